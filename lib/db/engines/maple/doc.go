// Package maple implements an in-memory hash and counter database (KVDB).
// It provides a complete implementation of the db.KVDB interface with a focus
// on thread safety, performance, and memory efficiency.
//
// Key Components:
//
//   - mapleImpl: The central database structure implementing db.KVDB. It manages shards
//     and provides the public API. The caller provides the write indices, maple only records
//     them and keeps track of the highest one seen.
//
//   - Shard: A partition of the database that manages a subset of the key space.
//     Keys are distributed across shards using a hash function to ensure even distribution.
//
//   - Entry: The value stored under one key. An entry is either a counter (a decimal
//     integer) or a hash. Operations of the wrong kind fail with db.ErrWrongType.
//
//   - Hash: The fields of a hash entry are kept in a map for point lookups and in a
//     btree ordered by the FNV-1a hash of the field name for scans.
//
// Internal Mechanisms:
//
//   - Sharding Strategy: Keys are distributed across shards in a two-step process:
//     1. String keys are converted to 64-bit integers using the HashString function
//     with a database-specific seed
//     2. The integer key is right-shifted by 7 bits to use higher-quality bits for
//     distribution
//
//   - Locking: Every operation on a key runs inside xsync.MapOf.Compute, which holds
//     the lock of that key. On top, single operations take the read side of a database wide
//     RWMutex while Exec, Save, Load and GetInfo take the write side. That way a
//     transaction never interleaves with any other operation while single operations on
//     different keys still run in parallel.
//
//   - Scans: HScan visits fields in ascending (hash(field), field) order. The cursor is the
//     hash value to continue at, 0 starts a scan and is returned once the last field was
//     visited. Fields with the same hash value are always returned in the same page, so
//     no field is skipped on a page boundary. Fields that exist during the whole scan are
//     therefore returned exactly once.
//
//   - Persistence Format: The database uses a compact binary format with the
//     following structure:
//     1. Magic number "MAPLEDB\x00" to identify the file format
//     2. Version number (currently 4)
//     3. Database seed value for hash function consistency
//     4. Number of entries
//     5. For each entry: key, index, kind and then either the counter value
//     or the number of fields followed by the field names and values (each length prefixed)
//     Save copies all entries under the write lock, so a snapshot is a consistent cut.
//
//   - Metrics and Monitoring: GetInfo samples entries per shard to estimate
//     sizes and reports shard distribution statistics.
package maple
