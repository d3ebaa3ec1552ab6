package rmap

import (
	"fmt"
	"github.com/ValentinKolb/rmap/lib/store"
	"github.com/ValentinKolb/rmap/rpc/client"
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/serializer"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"strconv"
	"time"
)

// Logger is the logger of the rmap package
var Logger = logger.GetLogger("rmap")

const (
	DefaultHost       = "localhost"
	DefaultPort       = 8080
	DefaultDB         = 100
	DefaultTransport  = "tcp"
	DefaultSerializer = "binary"
	DefaultTimeout    = 5 * time.Second
)

type options struct {
	id         string
	host       string
	port       int
	db         uint64
	transport  string
	serializer string
	timeout    time.Duration
	scan       ScanOptions
	attach     bool
}

// Option configures Open and New
type Option func(*options)

// WithID sets the logical id of the map. Handles with an id are shared.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithHost sets the server host. For the unix transport this is the socket path,
// for the inproc transport the endpoint name.
func WithHost(host string) Option {
	return func(o *options) { o.host = host }
}

// WithPort sets the server port used by Open
func WithPort(port int) Option {
	return func(o *options) { o.port = port }
}

// WithDB selects the logical database, which is the shard id on the server
func WithDB(db uint64) Option {
	return func(o *options) { o.db = db }
}

// WithTransport selects the transport (tcp, unix, http or inproc)
func WithTransport(name string) Option {
	return func(o *options) { o.transport = name }
}

// WithSerializer selects the serializer (binary, json or gob)
func WithSerializer(name string) Option {
	return func(o *options) { o.serializer = name }
}

// WithTimeout sets the per request timeout, rounded up to full seconds
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithScanOptions sets the page size and page cap of snapshot scans
func WithScanOptions(scan ScanOptions) Option {
	return func(o *options) { o.scan = scan }
}

// WithAttach opens the shared namespace of WithID without taking a reference.
// The handle never deletes the namespace.
func WithAttach() Option {
	return func(o *options) { o.attach = true }
}

func defaultOptions() options {
	return options{
		host:       DefaultHost,
		port:       DefaultPort,
		db:         DefaultDB,
		transport:  DefaultTransport,
		serializer: DefaultSerializer,
		timeout:    DefaultTimeout,
	}
}

// endpoint returns the address the transport dials
func (o *options) endpoint() string {
	switch o.transport {
	case "unix", "inproc":
		return o.host
	default:
		return net.JoinHostPort(o.host, strconv.Itoa(o.port))
	}
}

func (o *options) clientConfig() common.ClientConfig {
	return common.ClientConfig{
		TimeoutSecond: int((o.timeout + time.Second - 1) / time.Second),
		TransportType: o.transport,
		Serializer:    o.serializer,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{o.endpoint()},
			RetryCount:             3,
			ConnectionsPerEndpoint: 1,
		},
	}
}

// resolve picks the mode and generates an id for exclusive handles
func (o *options) resolve() (Mode, string, error) {
	switch {
	case o.attach && o.id == "":
		return 0, "", fmt.Errorf("%w: attaching requires an id", ErrInvalidArgument)
	case o.attach:
		return ModeAttached, o.id, nil
	case o.id != "":
		return ModeShared, o.id, nil
	default:
		return ModeExclusive, uuid.NewString(), nil
	}
}

// Open connects to a server and returns a new handle. The connection is closed by Map.Close.
//
// Without WithID the handle is exclusive: it gets a fresh id and its data is deleted on Close.
// With WithID the handle is shared with every other handle of the same id.
//
// Usage:
//
//	m, err := rmap.Open(rmap.WithID("sessions"), rmap.WithHost("db.local"))
//	if err != nil {
//		return err
//	}
//	defer m.Close()
func Open(opts ...Option) (*Map, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	t, err := client.NewClientTransport(o.transport)
	if err != nil {
		return nil, err
	}
	ser, err := serializer.New(o.serializer)
	if err != nil {
		return nil, err
	}
	s, err := client.NewRPCStore(o.db, o.clientConfig(), t, ser)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", o.endpoint(), err)
	}

	m, err := newMap(s, s, o)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return m, nil
}

// New returns a handle on an existing store. The store is not closed by Map.Close.
// Connection options (host, port, db, transport, serializer, timeout) are ignored.
func New(s store.IStore, opts ...Option) (*Map, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newMap(s, nil, o)
}

func newMap(s store.IStore, conn io.Closer, o options) (*Map, error) {
	mode, id, err := o.resolve()
	if err != nil {
		return nil, err
	}

	ns := NewNamespace(id, mode != ModeExclusive)
	m := &Map{
		id:    id,
		store: s,
		ns:    ns,
		scan:  o.scan,
		life: &lifecycle{
			store: s,
			conn:  conn,
			mode:  mode,
			ns:    ns,
		},
	}
	m.keys = &KeySet{m: m}
	m.values = &Values{m: m}
	m.entries = &EntrySet{m: m}

	if err := m.life.acquire(); err != nil {
		return nil, err
	}
	Logger.Debugf("opened %s handle on %s", mode, ns.DataKey)
	return m, nil
}
