// Package testing provides a conformance test suite for store.IStore implementations.
//
// The suite covers hashes, counters, cursor scans and Exec transactions, including
// concurrent read-modify-write transactions that must not interleave.
//
// Example usage:
//
//	storetesting.RunIStoreTests(t, "MyStore", func(t *testing.T) store.IStore {
//		return NewMyStore()
//	})
package testing
