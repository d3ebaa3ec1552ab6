package rmap

import "sort"

// KeySet is a view of the keys of a Map. Reads go to the store, removals delete the field.
type KeySet struct {
	m *Map
}

// Len returns the number of keys
func (v *KeySet) Len() (int, error) {
	return v.m.Size()
}

// Contains reports whether key is present
func (v *KeySet) Contains(key string) (bool, error) {
	return v.m.ContainsKey(key)
}

// Remove deletes key from the map and reports whether it existed
func (v *KeySet) Remove(key string) (bool, error) {
	return v.m.deleteField(key)
}

// Iter returns an iterator over a snapshot of the map
func (v *KeySet) Iter() (*Iterator, error) {
	return v.m.Iter()
}

// Slice returns the sorted keys of a snapshot
func (v *KeySet) Slice() ([]string, error) {
	snapshot, err := v.m.Snapshot()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Values is a view of the values of a Map
type Values struct {
	m *Map
}

// Len returns the number of values, duplicates included
func (v *Values) Len() (int, error) {
	return v.m.Size()
}

// Contains reports whether any key maps to value
func (v *Values) Contains(value string) (bool, error) {
	return v.m.ContainsValue(value)
}

// Remove deletes one entry holding value (the one with the smallest key)
// and reports whether there was one
func (v *Values) Remove(value string) (bool, error) {
	it, err := v.m.Iter()
	if err != nil {
		return false, err
	}
	for it.Next() {
		if it.Value() == value {
			return v.m.deleteField(it.Key())
		}
	}
	return false, nil
}

// Iter returns an iterator over a snapshot of the map
func (v *Values) Iter() (*Iterator, error) {
	return v.m.Iter()
}

// Slice returns the values of a snapshot ordered by key
func (v *Values) Slice() ([]string, error) {
	it, err := v.m.Iter()
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, it.Len())
	for it.Next() {
		values = append(values, it.Value())
	}
	return values, nil
}

// EntrySet is a view of the entries of a Map
type EntrySet struct {
	m *Map
}

// Len returns the number of entries
func (v *EntrySet) Len() (int, error) {
	return v.m.Size()
}

// Contains reports whether key maps to value
func (v *EntrySet) Contains(key, value string) (bool, error) {
	current, ok, err := v.m.Get(key)
	return ok && current == value, err
}

// Remove deletes key if it maps to value
func (v *EntrySet) Remove(key, value string) (bool, error) {
	return v.m.RemoveIf(key, value)
}

// Iter returns an iterator over a snapshot of the map
func (v *EntrySet) Iter() (*Iterator, error) {
	return v.m.Iter()
}

// Slice returns the entries of a snapshot ordered by key
func (v *EntrySet) Slice() ([]*Entry, error) {
	it, err := v.m.Iter()
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry, 0, it.Len())
	for it.Next() {
		entries = append(entries, it.Entry())
	}
	return entries, nil
}
