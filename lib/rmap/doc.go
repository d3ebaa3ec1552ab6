// Package rmap provides Map, a string map stored in a hash of a remote store.
//
// Every handle addresses a Namespace derived from a logical id:
//
//	rmap_<id>_repository        the hash holding the entries
//	rmap_<id>_connectionCount   the number of open shared handles
//
// Lifetime modes:
//
//   - Exclusive (no id given): the handle gets a random id and deletes its hash on Close.
//   - Shared (WithID): every handle increments the counter when opened and decrements it
//     on Close. The handle that brings the counter to zero deletes the hash and the counter.
//   - Attached (WithID and WithAttach): the handle reads and writes a shared namespace
//     without touching the counter and never deletes anything.
//
// Consistency:
//
//	Put and Remove read the previous value and write in one Exec transaction, so concurrent
//	writers never lose updates. Snapshots (and everything built on them, such as iterators,
//	Equal and HashCode) run HScan from cursor 0 until the store returns cursor 0 again.
//	Fields that exist during the whole scan are always part of the snapshot, fields
//	written concurrently may or may not be.
//
// Example:
//
//	m, err := rmap.Open(rmap.WithID("users"), rmap.WithHost("localhost"), rmap.WithPort(8080))
//	if err != nil {
//		return err
//	}
//	defer m.Close()
//
//	prev, existed, err := m.Put("alice", "admin")
//
// A Map can also be created on any store.IStore with New, e.g. on a local store in tests.
package rmap
