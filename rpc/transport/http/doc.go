// Package http implements the HTTP transport of the rmap RPC system.
//
// Every request is a POST to /{shardId} with the serialized message as body, the response
// body holds the serialized response message. The server additionally exposes GET /metrics
// with the request counters of the rpc server in the Prometheus text format.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. Endpoints are selected round robin,
//     endpoints without scheme are prefixed with http://. Requests are only retried if the
//     connection could not be established.
//
//   - httpServerTransport: Implements IRPCServerTransport on top of net/http. With log level
//     debug each request is logged with its status and duration.
//
// Thread Safety:
//
//	The client transport can be used concurrently, the round robin counter is atomic.
package http
