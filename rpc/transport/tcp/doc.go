// Package tcp implements the TCP socket transport of the rmap RPC system. It provides
// the connectors for the base package, which holds the connection pooling, buffer reuse
// and request routing (see the base package documentation).
//
// Key Components:
//
//   - clientConnector: TCP implementation of base.IClientConnector
//
//   - serverConnector: TCP implementation of base.IServerConnector
//
// Both sides apply the SocketConf (kernel buffer sizes) and TCPConf (no delay, keep alive,
// linger) of their transport config to every connection.
package tcp
