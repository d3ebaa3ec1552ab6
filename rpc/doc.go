// Package rpc provides the remote procedure calls between rmap handles and the store
// server, so that maps in different processes share one namespace.
//
// The package is organized into several subpackages:
//
//   - common: The Message protocol, configuration structures and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP, in-process).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB).
//
//   - client: The store.IStore implementation that forwards every call to a server.
//
//   - server: The server that routes requests to the stores of its shards.
package rpc
