// Package inproc implements an in-process transport for the rmap RPC system. Client and
// server live in the same process and are connected through net.Pipe, the endpoint is an
// arbitrary name that is unique per process.
//
// The transport runs the complete frame protocol of the base package (round robin over
// connections, request correlation, worker pool per connection), only the sockets are
// replaced. It is used to embed a server into an application and to test the RPC stack
// without opening ports or socket files.
//
// Usage:
//
//	srv := inproc.NewInprocServerTransport()
//	go srv.Listen(common.ServerConfig{Transport: common.ServerTransportConfig{Endpoint: "rmap-test"}})
//
//	cli := inproc.NewInprocClientTransport()
//	err := cli.Connect(common.ClientConfig{Transport: common.ClientTransportConfig{Endpoints: []string{"rmap-test"}}})
package inproc
