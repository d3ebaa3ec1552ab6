package rmap

import (
	"fmt"
	"github.com/ValentinKolb/rmap/lib/store"
	"sort"
)

// DefaultPageSize is the number of fields requested per HScan call if ScanOptions sets none
const DefaultPageSize = 256

// ScanOptions control the full scans behind snapshots and iterators
type ScanOptions struct {
	// PageSize is the count hint passed to every HScan call
	PageSize int
	// MaxPages aborts a scan with ErrScanNotTerminated after this many pages, zero means no limit
	MaxPages int
}

func (o ScanOptions) pageSize() int {
	if o.PageSize <= 0 {
		return DefaultPageSize
	}
	return o.PageSize
}

// Snapshotter is anything that can be materialised into a plain map,
// e.g. Entries or another *Map
type Snapshotter interface {
	Snapshot() (map[string]string, error)
}

// Entries is a plain local map usable as Snapshotter
type Entries map[string]string

// Snapshot returns a copy of the entries
func (e Entries) Snapshot() (map[string]string, error) {
	out := make(map[string]string, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out, nil
}

// scanAll runs HScan from cursor 0 until the store returns cursor 0 again.
// Fields seen on more than one page are deduplicated by name, the last value wins.
func scanAll(s store.IStore, key string, opts ScanOptions) (map[string]string, error) {
	result := make(map[string]string)
	var cursor uint64

	for pages := 0; ; pages++ {
		if opts.MaxPages > 0 && pages >= opts.MaxPages {
			return nil, fmt.Errorf("%w after %d pages", ErrScanNotTerminated, pages)
		}

		next, fields, err := s.HScan(key, cursor, opts.pageSize())
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for _, f := range fields {
			result[f.Name] = string(f.Value)
		}

		if next == 0 {
			return result, nil
		}
		cursor = next
	}
}

// Iterator walks over a snapshot of a map in key order.
//
// The whole map is materialised when the iterator is created, so memory use grows with the
// size of the map. Writes made after that point are not visible to the iterator.
//
// Usage:
//
//	it, err := m.Iter()
//	if err != nil {
//		return err
//	}
//	for it.Next() {
//		fmt.Println(it.Key(), it.Value())
//	}
type Iterator struct {
	m       *Map
	entries []*Entry
	next    int
	current int
}

func newIterator(m *Map, snapshot map[string]string) *Iterator {
	entries := make([]*Entry, 0, len(snapshot))
	for k, v := range snapshot {
		entries = append(entries, &Entry{key: k, value: v, m: m})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	return &Iterator{m: m, entries: entries, current: -1}
}

// Next advances to the next entry and reports whether there is one
func (it *Iterator) Next() bool {
	if it.next >= len(it.entries) {
		it.current = -1
		return false
	}
	it.current = it.next
	it.next++
	return true
}

// Entry returns the current entry, nil if there is none
func (it *Iterator) Entry() *Entry {
	if it.current < 0 {
		return nil
	}
	return it.entries[it.current]
}

// Key returns the key of the current entry
func (it *Iterator) Key() string {
	if e := it.Entry(); e != nil {
		return e.key
	}
	return ""
}

// Value returns the value of the current entry
func (it *Iterator) Value() string {
	if e := it.Entry(); e != nil {
		return e.value
	}
	return ""
}

// Len returns the number of entries in the snapshot
func (it *Iterator) Len() int {
	return len(it.entries)
}

// Remove deletes the current entry from the snapshot and its field from the map.
// Other snapshots and iterators are not affected.
func (it *Iterator) Remove() error {
	e := it.Entry()
	if e == nil {
		return ErrNoCurrentEntry
	}
	if _, err := it.m.deleteField(e.key); err != nil {
		return err
	}
	it.entries = append(it.entries[:it.current], it.entries[it.current+1:]...)
	it.next = it.current
	it.current = -1
	return nil
}
