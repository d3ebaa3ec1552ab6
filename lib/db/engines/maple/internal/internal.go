package internal

import (
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/db/util"
	"github.com/google/btree"
	"github.com/puzpuzpuz/xsync/v3"
	"math"
)

// --------------------------------------------------------------------------
// Entry Kinds
// --------------------------------------------------------------------------

type Kind uint8

const (
	KindHash Kind = iota + 1
	KindCounter
)

func (k Kind) String() string {
	switch k {
	case KindHash:
		return "Hash"
	case KindCounter:
		return "Counter"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Entry Type (the value stored under one key with metadata)
// --------------------------------------------------------------------------

// Entry stores the value of a key with metadata.
// Exactly one of Value (KindCounter) and Hash (KindHash) is used.
type Entry struct {
	Kind  Kind
	Value []byte // decimal counter value
	Hash  *Hash
	Index uint64 // Index when this entry was created/updated
}

func (e Entry) String() string {
	switch e.Kind {
	case KindHash:
		return fmt.Sprintf("Entry{Kind: %s, Fields: %d, Index: %d}", e.Kind, e.Hash.Len(), e.Index)
	default:
		return fmt.Sprintf("Entry{Kind: %s, Value: %s, Index: %d}", e.Kind, e.Value, e.Index)
	}
}

// --------------------------------------------------------------------------
// Hash Type (field-value pairs of one key)
// --------------------------------------------------------------------------

// fieldItem orders the fields of a hash by the hash of the field name, ties are broken by the name.
type fieldItem struct {
	sum  uint64
	name string
}

func (a fieldItem) Less(than btree.Item) bool {
	b := than.(fieldItem)
	if a.sum != b.sum {
		return a.sum < b.sum
	}
	return a.name < b.name
}

// Hash holds the fields of a hash entry.
// The values map serves point lookups, the btree serves cursor scans.
//
// Thread-safety: Hash is not thread-safe. The maple engine only accesses it inside
// a per-key Compute of the owning shard.
type Hash struct {
	values map[string][]byte
	order  *btree.BTree
}

// btreeDegree is the degree of the field index
const btreeDegree = 16

// NewHash creates an empty hash
func NewHash() *Hash {
	return &Hash{
		values: make(map[string][]byte),
		order:  btree.New(btreeDegree),
	}
}

// FieldSum returns the scan position of a field
func FieldSum(field string) uint64 {
	return uint64(util.HashString(field, 0))
}

// Set stores a copy of value for field and returns whether the field was newly created
func (h *Hash) Set(field string, value []byte) bool {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	_, exists := h.values[field]
	h.values[field] = valueCopy
	if !exists {
		h.order.ReplaceOrInsert(fieldItem{sum: FieldSum(field), name: field})
	}
	return !exists
}

// Get returns a copy of the value of field
func (h *Hash) Get(field string) ([]byte, bool) {
	value, ok := h.values[field]
	if !ok {
		return nil, false
	}
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	return valueCopy, true
}

// Has reports whether field exists
func (h *Hash) Has(field string) bool {
	_, ok := h.values[field]
	return ok
}

// Delete removes field and returns whether it existed
func (h *Hash) Delete(field string) bool {
	if _, ok := h.values[field]; !ok {
		return false
	}
	delete(h.values, field)
	h.order.Delete(fieldItem{sum: FieldSum(field), name: field})
	return true
}

// Len returns the number of fields
func (h *Hash) Len() int {
	return len(h.values)
}

// Scan returns the fields at or after position cursor in scan order.
// It stops after count fields but never splits fields sharing one position across two pages,
// so a page can hold more than count fields. The returned cursor is 0 once the end is reached.
func (h *Hash) Scan(cursor uint64, count int) (uint64, []db.Field) {
	if count <= 0 {
		count = 1
	}

	var (
		fields  []db.Field
		lastSum uint64
		more    bool
	)

	h.order.AscendGreaterOrEqual(fieldItem{sum: cursor}, func(i btree.Item) bool {
		item := i.(fieldItem)
		if len(fields) >= count && item.sum != lastSum {
			more = true
			return false
		}
		value, _ := h.Get(item.name)
		fields = append(fields, db.Field{Name: item.name, Value: value})
		lastSum = item.sum
		return true
	})

	if !more || lastSum == math.MaxUint64 {
		return 0, fields
	}
	return lastSum + 1, fields
}

// Range calls fn for every field in scan order until fn returns false.
// The value passed to fn must not be modified.
func (h *Hash) Range(fn func(field string, value []byte) bool) {
	h.order.Ascend(func(i btree.Item) bool {
		item := i.(fieldItem)
		return fn(item.name, h.values[item.name])
	})
}

// SizeBytes estimates the memory used by the field names and values
func (h *Hash) SizeBytes() int {
	size := 0
	for field, value := range h.values {
		size += len(field) + len(value)
	}
	return size
}

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard represents a partition of the database
type Shard struct {
	Data *xsync.MapOf[util.UintKey, Entry] // Map of active entries
}

// NewShard creates a new shard with the provided hash function
func NewShard(hasher func(util.UintKey, uint64) uint64) *Shard {
	return &Shard{
		Data: xsync.NewMapOfWithHasher[util.UintKey, Entry](hasher),
	}
}

// GetShard returns the appropriate shard for a given key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](key util.UintKey, shards []*T) *T {
	// Shift right by 7 bits to use higher-quality bits for distribution
	shiftedKey := uint64(key) >> 7
	shardPos := shiftedKey % uint64(len(shards))
	return shards[shardPos]
}
