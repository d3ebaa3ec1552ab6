package client

import (
	"errors"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/db/engines/maple"
	"github.com/ValentinKolb/rmap/lib/store"
	"github.com/ValentinKolb/rmap/lib/store/lstore"
	storetesting "github.com/ValentinKolb/rmap/lib/store/testing"
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/serializer"
	"github.com/ValentinKolb/rmap/rpc/server"
	"github.com/ValentinKolb/rmap/rpc/transport"
	"github.com/ValentinKolb/rmap/rpc/transport/inproc"
	"github.com/ValentinKolb/rmap/rpc/transport/tcp"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"
)

const testShard = 100

// startServer serves a fresh local store on an in-process endpoint named after the test
func startServer(t *testing.T, ser serializer.IRPCSerializer) string {
	t.Helper()
	endpoint := t.Name()
	serve(t, inproc.NewInprocServerTransport(), common.ServerTransportConfig{Endpoint: endpoint}, ser)
	return endpoint
}

// serve runs a server with a fresh local store on the given transport until the test ends
func serve(t *testing.T, st transport.IRPCServerTransport, config common.ServerTransportConfig, ser serializer.IRPCSerializer) {
	t.Helper()
	s := server.NewRPCServer(
		common.ServerConfig{TimeoutSecond: 5, Transport: config},
		st,
		ser,
	)
	s.RegisterStore(testShard, lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) }))

	go func() {
		if err := s.Serve(); err != nil {
			t.Errorf("server failed: %v", err)
		}
	}()
	t.Cleanup(func() { _ = s.Close() })
}

// connect retries until the server accepts connections
func connect(t *testing.T, endpoint string, ser serializer.IRPCSerializer) *RPCStore {
	t.Helper()
	return connectWith(t, endpoint, inproc.NewInprocClientTransport, 2, ser)
}

func connectWith(
	t *testing.T,
	endpoint string,
	newTransport func() transport.IRPCClientTransport,
	connections int,
	ser serializer.IRPCSerializer,
) *RPCStore {
	t.Helper()
	config := common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{endpoint},
			ConnectionsPerEndpoint: connections,
			RetryCount:             3,
		},
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		s, err := NewRPCStore(testShard, config, newTransport(), ser)
		if err == nil {
			t.Cleanup(func() { _ = s.Close() })
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("failed to connect to %s: %v", endpoint, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// freeTCPAddr returns a local address that was free a moment ago
func freeTCPAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

// TestConcurrentCalls runs many requests at once over a single connection to a server with
// fewer workers than requests in flight. Responses must keep flowing while senders wait.
func TestConcurrentCalls(t *testing.T) {
	const callers = 64

	transports := []struct {
		name     string
		server   func() transport.IRPCServerTransport
		client   func() transport.IRPCClientTransport
		endpoint func(t *testing.T) string
	}{
		{"inproc", inproc.NewInprocServerTransport, inproc.NewInprocClientTransport, func(t *testing.T) string { return t.Name() }},
		{"tcp", tcp.NewTCPServerTransport, tcp.NewTCPClientTransport, freeTCPAddr},
	}

	for _, tt := range transports {
		t.Run(tt.name, func(t *testing.T) {
			ser := serializer.NewBinarySerializer()
			endpoint := tt.endpoint(t)
			serve(t, tt.server(), common.ServerTransportConfig{Endpoint: endpoint, WorkersPerConn: 2}, ser)
			s := connectWith(t, endpoint, tt.client, 1, ser)

			start := time.Now()
			var wg sync.WaitGroup
			errs := make(chan error, callers)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.Incr("counter"); err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				t.Errorf("Incr failed: %v", err)
			}
			if elapsed := time.Since(start); elapsed > 3*time.Second {
				t.Errorf("concurrent calls took %s", elapsed)
			}

			value, ok, err := s.Get("counter")
			if err != nil || !ok || string(value) != strconv.Itoa(callers) {
				t.Fatalf("expected counter %d, got %q ok=%v err=%v", callers, value, ok, err)
			}
		})
	}
}

func TestRPCStore(t *testing.T) {
	serializers := map[string]func() serializer.IRPCSerializer{
		"binary": serializer.NewBinarySerializer,
		"json":   serializer.NewJSONSerializer,
		"gob":    serializer.NewGOBSerializer,
	}
	for name, newSerializer := range serializers {
		storetesting.RunIStoreTests(t, name, func(t *testing.T) store.IStore {
			endpoint := startServer(t, newSerializer())
			return connect(t, endpoint, newSerializer())
		})
	}
}

func TestRemoteError(t *testing.T) {
	ser := serializer.NewBinarySerializer()
	s := connect(t, startServer(t, ser), ser)

	if _, err := s.Incr("c"); err != nil {
		t.Fatalf("Incr failed: %v", err)
	}
	_, err := s.HLen("c")
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestUnknownShard(t *testing.T) {
	ser := serializer.NewBinarySerializer()
	s := connect(t, startServer(t, ser), ser)
	s.shardId = 7

	if _, _, err := s.HGet("h", "f"); !errors.Is(err, ErrRemote) {
		t.Fatalf("expected remote error for unknown shard, got %v", err)
	}
}

func TestClosedStore(t *testing.T) {
	ser := serializer.NewBinarySerializer()
	s := connect(t, startServer(t, ser), ser)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.HSet("h", "f", []byte("v")); err == nil {
		t.Fatalf("expected error after Close")
	}
}

func TestNewClientTransport(t *testing.T) {
	for _, name := range []string{"", "tcp", "unix", "http", "inproc"} {
		if _, err := NewClientTransport(name); err != nil {
			t.Errorf("NewClientTransport(%q) failed: %v", name, err)
		}
	}
	if _, err := NewClientTransport("carrier-pigeon"); err == nil {
		t.Errorf("expected error for unknown transport")
	}
}
