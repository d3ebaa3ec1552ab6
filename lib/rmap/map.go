package rmap

import (
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/db/util"
	"github.com/ValentinKolb/rmap/lib/store"
	"maps"
	"sort"
	"sync/atomic"
)

// Map is a string to string map stored in a hash of a remote store.
//
// All methods block until the store answered. A Map has no local state besides its
// namespace, so any number of handles (also in other processes) can work on the same data.
// Put and Remove are atomic read-modify-write transactions; the other compound
// operations (Replace, RemoveIf, Compute, ...) read and write in separate calls.
//
// A Map must be closed with Close. Methods of a closed Map return ErrClosed.
type Map struct {
	id    string
	store store.IStore
	ns    Namespace
	scan  ScanOptions
	life  *lifecycle

	closed atomic.Bool

	keys    *KeySet
	values  *Values
	entries *EntrySet
}

// ID returns the logical id of the map
func (m *Map) ID() string {
	return m.id
}

// Namespace returns the remote keys used by the handle
func (m *Map) Namespace() Namespace {
	return m.ns
}

// Mode returns the lifetime mode of the handle
func (m *Map) Mode() Mode {
	return m.life.mode
}

// Close releases the handle, see Mode for what happens to the data.
// Errors of the cleanup are logged and returned joined. Only the first call has an effect.
func (m *Map) Close() error {
	m.closed.Store(true)
	return m.life.release()
}

// --------------------------------------------------------------------------
// Core Operations
// --------------------------------------------------------------------------

// Size returns the number of entries
func (m *Map) Size() (int, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	n, err := m.store.HLen(m.ns.DataKey)
	if err != nil {
		return 0, fmt.Errorf("size: %w", err)
	}
	return int(n), nil
}

// IsEmpty reports whether the map has no entries
func (m *Map) IsEmpty() (bool, error) {
	n, err := m.Size()
	return n == 0, err
}

// ContainsKey reports whether key is present
func (m *Map) ContainsKey(key string) (bool, error) {
	if err := m.checkKey(key); err != nil {
		return false, err
	}
	ok, err := m.store.HExists(m.ns.DataKey, key)
	if err != nil {
		return false, fmt.Errorf("contains key: %w", err)
	}
	return ok, nil
}

// Get returns the value of key and whether it exists
func (m *Map) Get(key string) (string, bool, error) {
	if err := m.checkKey(key); err != nil {
		return "", false, err
	}
	value, ok, err := m.store.HGet(m.ns.DataKey, key)
	if err != nil {
		return "", false, fmt.Errorf("get: %w", err)
	}
	return string(value), ok, nil
}

// Put sets key to value and returns the previous value.
// Reading the old and writing the new value is one transaction.
func (m *Map) Put(key, value string) (string, bool, error) {
	if err := m.checkKey(key); err != nil {
		return "", false, err
	}
	results, err := m.exec("put",
		db.HGetOp(m.ns.DataKey, key),
		db.HSetOp(m.ns.DataKey, key, []byte(value)),
	)
	if err != nil {
		return "", false, err
	}
	return string(results[0].Value), results[0].Ok, nil
}

// Remove deletes key and returns the removed value.
// Reading and deleting is one transaction.
func (m *Map) Remove(key string) (string, bool, error) {
	if err := m.checkKey(key); err != nil {
		return "", false, err
	}
	results, err := m.exec("remove",
		db.HGetOp(m.ns.DataKey, key),
		db.HDelOp(m.ns.DataKey, key),
	)
	if err != nil {
		return "", false, err
	}
	return string(results[0].Value), results[0].Ok, nil
}

// PutAll copies all entries of src with a single HSetMulti.
// All keys are validated before anything is written.
func (m *Map) PutAll(src Snapshotter) error {
	if err := m.check(); err != nil {
		return err
	}
	if isNil(src) {
		return fmt.Errorf("%w: nil source in put all", ErrInvalidArgument)
	}
	entries, err := src.Snapshot()
	if err != nil {
		return fmt.Errorf("put all: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	fields := make([]db.Field, 0, len(entries))
	for k, v := range entries {
		if k == "" {
			return fmt.Errorf("%w: empty key in put all", ErrInvalidArgument)
		}
		fields = append(fields, db.Field{Name: k, Value: []byte(v)})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	if err := m.store.HSetMulti(m.ns.DataKey, fields); err != nil {
		return fmt.Errorf("put all: %w", err)
	}
	return nil
}

// Clear removes all entries
func (m *Map) Clear() error {
	if err := m.check(); err != nil {
		return err
	}
	if err := m.store.Delete(m.ns.DataKey); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Snapshots and Views
// --------------------------------------------------------------------------

// Snapshot materialises all entries with a full scan
func (m *Map) Snapshot() (map[string]string, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	return scanAll(m.store, m.ns.DataKey, m.scan)
}

// Iter returns an iterator over a snapshot of the map
func (m *Map) Iter() (*Iterator, error) {
	snapshot, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return newIterator(m, snapshot), nil
}

// Keys returns the key view of the map
func (m *Map) Keys() *KeySet {
	return m.keys
}

// Values returns the value view of the map
func (m *Map) Values() *Values {
	return m.values
}

// Entries returns the entry view of the map
func (m *Map) Entries() *EntrySet {
	return m.entries
}

// Equal reports whether both hold the same entries. Namespaces are not compared.
func (m *Map) Equal(other Snapshotter) (bool, error) {
	if isNil(other) {
		return false, fmt.Errorf("%w: nil mapping in equal", ErrInvalidArgument)
	}
	a, err := m.Snapshot()
	if err != nil {
		return false, err
	}
	b, err := other.Snapshot()
	if err != nil {
		return false, err
	}
	return maps.Equal(a, b), nil
}

// HashCode returns the sum of hash(key) ^ hash(value) over all entries.
// Maps that are Equal have the same hash code.
func (m *Map) HashCode() (uint64, error) {
	snapshot, err := m.Snapshot()
	if err != nil {
		return 0, err
	}
	return hashEntries(snapshot), nil
}

func hashEntries(entries map[string]string) uint64 {
	var sum uint64
	for k, v := range entries {
		sum += uint64(util.HashString(k, 0)) ^ uint64(util.HashString(v, 0))
	}
	return sum
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (m *Map) check() error {
	if m.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (m *Map) checkKey(key string) error {
	if err := m.check(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	return nil
}

// exec runs ops as one transaction. An error of a single op fails the call.
func (m *Map) exec(name string, ops ...db.Op) ([]db.OpResult, error) {
	results, err := m.store.Exec(ops)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(results) != len(ops) {
		return nil, fmt.Errorf("%s: %w: expected %d results, got %d", name, ErrTransaction, len(ops), len(results))
	}
	for i, r := range results {
		if r.Err != "" {
			return nil, fmt.Errorf("%s: %w: %s: %s", name, ErrTransaction, ops[i].Type, r.Err)
		}
	}
	return results, nil
}

// deleteField removes a field without reading it first
func (m *Map) deleteField(key string) (bool, error) {
	if err := m.checkKey(key); err != nil {
		return false, err
	}
	n, err := m.store.HDel(m.ns.DataKey, key)
	if err != nil {
		return false, fmt.Errorf("delete field: %w", err)
	}
	return n > 0, nil
}

// isNil reports whether s is nil or a nil *Map
func isNil(s Snapshotter) bool {
	if s == nil {
		return true
	}
	m, ok := s.(*Map)
	return ok && m == nil
}
