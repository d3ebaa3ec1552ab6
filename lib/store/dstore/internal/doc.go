// Package internal provides the communication protocol structures and serialization
// logic for the dstore package. It defines the wire format used to transmit operations
// between the store client and the distributed state machine.
//
// This package is intended for internal use by the dstore implementation and should
// not be imported directly by external code.
//
// The package consists of two main components:
//
//   - Command System: Defines write operations (HSet, HSetNX, HSetMulti, HDel, IncrBy,
//     Delete, Exec) that modify the state of the database. Commands are serialized and
//     proposed to the RAFT cluster, executed on the state machine, and produce results that
//     are returned to the client.
//
//   - Query System: Defines read operations (HGet, HExists, HLen, HScan, Get, GetDBInfo)
//     that are executed locally on the state machine and therefore do not require serialization.
//
// Command Format (all integers big endian):
//
//	- 1 byte: Command type
//	- 8 bytes: Delta (int64, only IncrBy)
//	- 4 bytes + N bytes: Key
//	- 4 bytes + N bytes: Field
//	- 4 bytes + N bytes: Value
//	- 4 bytes: Item count, followed by the items
//	  HSetMulti: per field the length prefixed name and value
//	  Exec: per op 1 byte type, 8 bytes delta and the length prefixed key, field and value
//
// Result Format:
//
//	The state machine answers every successful command with a list of db.OpResult values
//	(one for single commands, one per op for Exec), see EncodeResults.
//
// Thread Safety:
//
//	The types in this package are not thread-safe and should not be shared
//	across goroutines without external synchronization.
package internal
