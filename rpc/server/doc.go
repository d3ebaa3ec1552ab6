// Package server implements the RPC server of rmap. It serves any number of shards, each
// backed by a store.IStore, and routes every request of the transport to the shard named
// in the frame.
//
// Key Components:
//
//   - RPCServer: Creates the shards of the config (NewRPCServer, Serve), exposes existing
//     stores (RegisterStore) and stops transport and raft node host (Close).
//
//   - IRPCServerAdapter: Translates a request message into a call of the store and the result
//     into a response message. NewIStoreServerAdapter handles all hash, counter and exec
//     messages of the common package.
//
// Shard Types:
//
//   - ShardTypeLocalIStore (lstore): an in-memory store local to this server.
//
//   - ShardTypeRemoteIStore (dstore): a store replicated with RAFT. RTTMillisecond,
//     SnapshotEntries, CompactionOverhead, DataDir, ReplicaID and ClusterMembers of the
//     config must be set.
//
// Metrics:
//
//	Every request is counted per message type with the VictoriaMetrics library:
//
//	  rmap_rpc_requests_total{type="hset"}
//	  rmap_rpc_errors_total{type="hset"}
//	  rmap_rpc_request_duration_seconds{type="hset"}
//	  rmap_rpc_unknown_shard_requests_total
//
//	The http transport exposes them on GET /metrics.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 100, Type: common.ShardTypeLocalIStore},
//	  },
//	  Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Requests are handled concurrently. Serve must be called only once.
package server
