// Package unix implements the transport of the rmap RPC system over Unix domain sockets,
// for clients running on the same machine as the server.
//
// It only provides the connectors, connection pooling, request routing and error handling
// come from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners (an existing socket file is removed first)
package unix
