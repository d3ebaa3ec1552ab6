// Package util provides utility components for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - statistics: sampling based size estimates and the shard balance reported by GetInfo
//   - functions: Hash functions and other utility functions
//
// HashString is also the order function of hash scans: fields are visited in
// ascending order of HashString(field, 0), so a scan cursor is simply the next hash value to visit.
package util
