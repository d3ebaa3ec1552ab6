package rmap

import (
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
)

// The operations in this file combine several store calls. Unless noted otherwise they
// are not atomic: another writer may change the entry between the read and the write.

// ContainsValue reports whether any key maps to value. It scans the whole map.
func (m *Map) ContainsValue(value string) (bool, error) {
	snapshot, err := m.Snapshot()
	if err != nil {
		return false, err
	}
	for _, v := range snapshot {
		if v == value {
			return true, nil
		}
	}
	return false, nil
}

// PutIfAbsent sets key to value if it does not exist yet and returns the value held before.
// This is a single transaction.
func (m *Map) PutIfAbsent(key, value string) (string, bool, error) {
	if err := m.checkKey(key); err != nil {
		return "", false, err
	}
	results, err := m.exec("put if absent",
		db.HGetOp(m.ns.DataKey, key),
		db.HSetNXOp(m.ns.DataKey, key, []byte(value)),
	)
	if err != nil {
		return "", false, err
	}
	return string(results[0].Value), results[0].Ok, nil
}

// Replace sets key to value only if the key exists and returns the previous value
func (m *Map) Replace(key, value string) (string, bool, error) {
	prev, ok, err := m.Get(key)
	if err != nil || !ok {
		return "", false, err
	}
	if err := m.set(key, value); err != nil {
		return "", false, err
	}
	return prev, true, nil
}

// RemoveIf deletes key if it maps to value
func (m *Map) RemoveIf(key, value string) (bool, error) {
	current, ok, err := m.Get(key)
	if err != nil || !ok || current != value {
		return false, err
	}
	return m.deleteField(key)
}

// ReplaceIf sets key to newValue if it maps to oldValue
func (m *Map) ReplaceIf(key, oldValue, newValue string) (bool, error) {
	current, ok, err := m.Get(key)
	if err != nil || !ok || current != oldValue {
		return false, err
	}
	if err := m.set(key, newValue); err != nil {
		return false, err
	}
	return true, nil
}

// Compute stores the result of fn for key. fn gets the current value and whether it exists;
// returning ok=false removes the key. Compute returns the new value and whether the key exists.
func (m *Map) Compute(key string, fn func(key, value string, exists bool) (string, bool)) (string, bool, error) {
	current, exists, err := m.Get(key)
	if err != nil {
		return "", false, err
	}
	value, keep := fn(key, current, exists)
	return m.apply(key, value, keep, exists)
}

// ComputeIfAbsent stores the result of fn if key does not exist.
// It returns the current (possibly new) value and whether the key exists.
func (m *Map) ComputeIfAbsent(key string, fn func(key string) (string, bool)) (string, bool, error) {
	current, exists, err := m.Get(key)
	if err != nil || exists {
		return current, exists, err
	}
	value, keep := fn(key)
	if !keep {
		return "", false, nil
	}
	return m.apply(key, value, true, false)
}

// ComputeIfPresent replaces the value of an existing key with the result of fn,
// returning ok=false from fn removes the key
func (m *Map) ComputeIfPresent(key string, fn func(key, value string) (string, bool)) (string, bool, error) {
	current, exists, err := m.Get(key)
	if err != nil || !exists {
		return "", false, err
	}
	value, keep := fn(key, current)
	return m.apply(key, value, keep, true)
}

// Merge sets key to value if it does not exist, otherwise to fn(current, value).
// Returning ok=false from fn removes the key.
func (m *Map) Merge(key, value string, fn func(current, value string) (string, bool)) (string, bool, error) {
	current, exists, err := m.Get(key)
	if err != nil {
		return "", false, err
	}
	if !exists {
		return m.apply(key, value, true, false)
	}
	merged, keep := fn(current, value)
	return m.apply(key, merged, keep, true)
}

// apply writes the outcome of a compute function
func (m *Map) apply(key, value string, keep, exists bool) (string, bool, error) {
	if !keep {
		if exists {
			if _, err := m.deleteField(key); err != nil {
				return "", false, err
			}
		}
		return "", false, nil
	}
	if err := m.set(key, value); err != nil {
		return "", false, err
	}
	return value, true, nil
}

// set writes a field without reading the previous value
func (m *Map) set(key, value string) error {
	if err := m.checkKey(key); err != nil {
		return err
	}
	if err := m.store.HSet(m.ns.DataKey, key, []byte(value)); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}
