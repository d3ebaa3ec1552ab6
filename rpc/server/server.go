package server

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/db/engines/maple"
	"github.com/ValentinKolb/rmap/lib/store"
	"github.com/ValentinKolb/rmap/lib/store/dstore"
	"github.com/ValentinKolb/rmap/lib/store/lstore"
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/serializer"
	"github.com/ValentinKolb/rmap/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("rpc")

// unknownShardRequests counts requests for shards that are not served
var unknownShardRequests = metrics.NewCounter(`rmap_rpc_unknown_shard_requests_total`)

// serverShard is a struct that represents a shard in the RPC server
// It contains the store it encapsulates and the adapter that handles requests for the store
type serverShard struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// typeMetrics are the metrics of one message type
type typeMetrics struct {
	requests *metrics.Counter
	errors   *metrics.Counter
	duration *metrics.Histogram
}

// RPCServer routes the requests of a transport to the stores of its shards
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
	metrics    *xsync.MapOf[common.MessageType, *typeMetrics]

	closeOnce sync.Once
	nodeHost  *dragonboat.NodeHost
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
		metrics:    xsync.NewMapOf[common.MessageType, *typeMetrics](),
	}
}

// RegisterStore serves an existing store under the given shard id.
// Shards registered this way are not created from the config by Serve.
func (s *RPCServer) RegisterStore(shardID uint64, st store.IStore) {
	s.shards.Store(shardID, serverShard{
		Store:   st,
		Adapter: NewIStoreServerAdapter(),
	})
}

// Serve creates the shards of the config and starts the transport layer.
// It blocks until the transport fails or Close is called.
func (s *RPCServer) Serve() error {
	Logger.Infof("starting rpc server%s", s.config.String())
	if err := s.init(); err != nil {
		return err
	}
	s.transport.RegisterHandler(s.handle)
	return s.transport.Listen(s.config)
}

// Close stops the transport and the raft node host (if any)
func (s *RPCServer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.transport.Close()
		if s.nodeHost != nil {
			s.nodeHost.Close()
		}
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handle is the transport handler, it always returns a serialized message
func (s *RPCServer) handle(shardId uint64, req []byte) []byte {
	start := time.Now()
	var respMsg *common.Message
	var msg common.Message

	shard, ok := s.shards.Load(shardId)
	if !ok {
		unknownShardRequests.Inc()
		respMsg = common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		respMsg = shard.Adapter.Handle(&msg, shard.Store)
	}

	if ok {
		m := s.metricsFor(msg.MsgType)
		m.requests.Inc()
		if respMsg.Err != "" {
			m.errors.Inc()
		}
		m.duration.UpdateDuration(start)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// metricsFor returns the (lazily registered) metrics of a message type
func (s *RPCServer) metricsFor(t common.MessageType) *typeMetrics {
	m, _ := s.metrics.LoadOrCompute(t, func() *typeMetrics {
		return &typeMetrics{
			requests: metrics.GetOrCreateCounter(fmt.Sprintf(`rmap_rpc_requests_total{type=%q}`, t)),
			errors:   metrics.GetOrCreateCounter(fmt.Sprintf(`rmap_rpc_errors_total{type=%q}`, t)),
			duration: metrics.GetOrCreateHistogram(fmt.Sprintf(`rmap_rpc_request_duration_seconds{type=%q}`, t)),
		}
	})
	return m
}

// init creates all shards of the config that are not registered yet
func (s *RPCServer) init() error {
	// Function to create a new database instance
	dbFactory := func() db.KVDB { return maple.NewMapleDB(nil) }

	// Only create the NodeHost if we have raft shards
	if s.config.HasRemoteShard() {
		nodeHost, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.nodeHost = nodeHost
	}

	var errs []error
	for _, shardConfig := range s.config.Shards {
		if _, exists := s.shards.Load(shardConfig.ShardID); exists {
			continue
		}

		switch shardConfig.Type {
		case common.ShardTypeLocalIStore:
			s.RegisterStore(shardConfig.ShardID, lstore.NewLocalStore(dbFactory))
			Logger.Infof("created local store for shard %d", shardConfig.ShardID)

		case common.ShardTypeRemoteIStore:
			if err := s.nodeHost.StartConcurrentReplica(
				s.config.ClusterMembers,
				false,
				dstore.CreateStateMaschineFactory(dbFactory),
				s.config.ToDragonboatConfig(shardConfig.ShardID),
			); err != nil {
				errs = append(errs, fmt.Errorf("failed to start shard %d: %w", shardConfig.ShardID, err))
				continue
			}
			s.RegisterStore(shardConfig.ShardID, dstore.NewDistributedStore(s.nodeHost, shardConfig.ShardID, s.config.Timeout()))
			Logger.Infof("started raft store for shard %d", shardConfig.ShardID)

		default:
			errs = append(errs, fmt.Errorf("invalid shard type: %s", shardConfig.Type))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	Logger.Infof("rmap server setup completed successfully")
	return nil
}
