// Package db provides a standardized interface for hash and counter database implementations.
// It defines the KVDB interface that allows for consistent interaction
// with various database backends while abstracting implementation details.
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides hash operations (HSet, HSetNX, HSetMulti, HDel, HGet, HExists, HLen),
//     cursor based iteration (HScan), counters (IncrBy, Get), key operations (Delete, Has),
//     atomic transactions (Exec), metadata retrieval (GetInfo) and persistence (Save, Load).
//
//   - Transactions: Exec takes a list of Op values and returns one OpResult per op.
//     All ops of one call are applied without any other operation interleaving.
//     A failing op (e.g. a hash op on a counter) records its error in the result
//     and the remaining ops still run.
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method.
//
//   - Database Information: The DatabaseInfo structure reports size estimates,
//     the implementation type and implementation-specific metadata.
//
// Note on Scans:
//   - HScan walks the fields of a hash in a stable order derived from a hash of the field name.
//     The cursor is 0 at the start and 0 again once the scan is finished.
//   - A field that exists for the whole duration of a scan is returned at least once.
//     Fields added or removed while the scan runs may or may not be returned.
//
// Note on Write Indices:
//   - All write operations take a write-index parameter that serves as a logical timestamp.
//     It is recorded on the entry and advances the global index of the database.
//   - The write-index only increases monotonically. Lower indices are ignored by SetWriteIdx.
//
// Related Packages:
//
// The engines/maple package (github.com/ValentinKolb/rmap/lib/db/engines/maple) provides a
// sharded in-memory implementation of the KVDB interface.
//
// The util package (github.com/ValentinKolb/rmap/lib/db/util) provides hash functions
// and size statistics used by the implementations.
//
// The testing package (github.com/ValentinKolb/rmap/lib/db/testing) provides
// standardized tests and benchmarks for database implementations that satisfy the db.KVDB interface.
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
