// Package client implements the RPC client of rmap: a store.IStore that forwards every
// call to a shard of a remote server.
//
// Key Components:
//
//   - NewRPCStore: Connects the transport and returns an *RPCStore for one shard. Close
//     of the store closes the transport.
//
//   - NewClientTransport: Returns the client transport for a name (tcp, unix, http, inproc).
//
// Errors:
//
//	Errors reported by the server (e.g. an HSet on a counter) wrap ErrRemote and carry the
//	message of the server. Transport and serialization errors are returned wrapped with the
//	message type of the request.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:8080"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	s, err := client.NewRPCStore(100, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil { ... }
//	defer s.Close()
//
//	_ = s.HSet("rmap_x_repository", "k", []byte("v"))
//	value, ok, _ := s.HGet("rmap_x_repository", "k")
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - The binary serializer provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	RPCStore can be used concurrently from multiple goroutines.
package client
