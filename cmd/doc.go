// Package cmd implements the command-line interface of rmap. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the rmap server
//   - kv: Raw hash and counter operations on the store (hset, hget, incr, ...)
//   - maps: Operations on shared maps (put, get, list, inspect, perf, ...)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See rmap -help for a list of all commands.
package cmd
