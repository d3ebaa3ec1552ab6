package maple

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/rmap/lib/db/util"
	"io"
	"math"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Constants for database behavior and structure
const (
	magicNum     = "MAPLEDB\x00" // File format identifier
	mapleVersion = 4             // Database version
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements a high-performance database with sharded data
type mapleImpl struct {
	numShards int               // Number of shards
	seed      uint64            // Seed for hash function
	shards    []*internal.Shard // Array of shards
	currIndex atomic.Uint64     // Current logical timestamp

	// single operations hold the read lock, transactions and persistence the write lock
	txMu sync.RWMutex
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = auto)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(), // Auto-determine based on CPU count
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
//
// Thread-safety: This function is not thread-safe and should only be called once
// during initialization.
func NewMapleDB(opts *DBOptions) db.KVDB {

	// Generate default options if not provided
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}

	newDB := &mapleImpl{
		numShards: opts.NumShards,
		seed:      util.GenerateSeed(),
		shards:    newShards(opts.NumShards),
	}
	newDB.currIndex.Store(0)

	return newDB
}

func newShards(n int) []*internal.Shard {
	hasher := createIdentityHasher()
	shards := make([]*internal.Shard, n)
	for i := 0; i < n; i++ {
		shards[i] = internal.NewShard(hasher)
	}
	return shards
}

// --------------------------------------------------------------------------
// Hash Helper Functions
// --------------------------------------------------------------------------

// StringToUint64 converts a string to a util.UintKey with hashing
// and applies the mapleImpl seed to ensure uniqueness between mapleImpl instances
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) StringToUint64(s string) util.UintKey {
	return util.HashString(s, maple.seed)
}

// locate returns the integer key and the shard responsible for key
func (maple *mapleImpl) locate(key string) (util.UintKey, *internal.Shard) {
	intKey := maple.StringToUint64(key)
	return intKey, internal.GetShard(intKey, maple.shards)
}

// createIdentityHasher creates a hash function that combines a key with a seed
func createIdentityHasher() func(util.UintKey, uint64) uint64 {
	return func(key util.UintKey, mapSeed uint64) uint64 {
		return uint64(key) ^ mapSeed
	}
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// HSet stores value for field in the hash at key.
// The hash is created if it doesn't exist. Returns whether the field is new.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) HSet(key, field string, value []byte, writeIndex uint64) (bool, error) {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()
	return maple.hset(key, field, value, writeIndex, false)
}

// HSetNX stores value for field only if the field is missing.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) HSetNX(key, field string, value []byte, writeIndex uint64) (bool, error) {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()
	return maple.hset(key, field, value, writeIndex, true)
}

// HSetMulti stores all fields under one per-key lock.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) HSetMulti(key string, fields []db.Field, writeIndex uint64) (int, error) {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()
	return maple.hsetMulti(key, fields, writeIndex)
}

// HDel removes field from the hash at key. An emptied hash is removed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) HDel(key, field string, writeIndex uint64) (int, error) {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()
	return maple.hdel(key, field, writeIndex)
}

// IncrBy adds delta to the counter at key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) IncrBy(key string, delta int64, writeIndex uint64) (int64, error) {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()
	return maple.incrBy(key, delta, writeIndex)
}

// Delete removes the key with whatever it holds.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(key string, writeIndex uint64) bool {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()
	return maple.del(key, writeIndex)
}

// hset is the shared implementation of HSet and HSetNX
func (maple *mapleImpl) hset(key, field string, value []byte, writeIndex uint64, onlyIfNew bool) (created bool, err error) {
	maple.SetWriteIdx(writeIndex)
	intKey, shard := maple.locate(key)

	shard.Data.Compute(intKey, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			e = internal.Entry{Kind: internal.KindHash, Hash: internal.NewHash()}
		} else if e.Kind != internal.KindHash {
			err = db.ErrWrongType
			return e, false
		}

		if onlyIfNew && e.Hash.Has(field) {
			return e, false
		}

		created = e.Hash.Set(field, value)
		e.Index = writeIndex
		return e, false
	})

	return created, err
}

func (maple *mapleImpl) hsetMulti(key string, fields []db.Field, writeIndex uint64) (created int, err error) {
	maple.SetWriteIdx(writeIndex)

	// an empty write must not create an empty hash
	if len(fields) == 0 {
		return 0, nil
	}

	intKey, shard := maple.locate(key)
	shard.Data.Compute(intKey, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			e = internal.Entry{Kind: internal.KindHash, Hash: internal.NewHash()}
		} else if e.Kind != internal.KindHash {
			err = db.ErrWrongType
			return e, false
		}

		for _, f := range fields {
			if e.Hash.Set(f.Name, f.Value) {
				created++
			}
		}
		e.Index = writeIndex
		return e, false
	})

	return created, err
}

func (maple *mapleImpl) hdel(key, field string, writeIndex uint64) (removed int, err error) {
	maple.SetWriteIdx(writeIndex)
	intKey, shard := maple.locate(key)

	shard.Data.Compute(intKey, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			return e, true // set delete to true because else the value will be created
		}
		if e.Kind != internal.KindHash {
			err = db.ErrWrongType
			return e, false
		}

		if e.Hash.Delete(field) {
			removed = 1
			e.Index = writeIndex
		}

		// the hash vanishes with its last field
		return e, e.Hash.Len() == 0
	})

	return removed, err
}

func (maple *mapleImpl) incrBy(key string, delta int64, writeIndex uint64) (value int64, err error) {
	maple.SetWriteIdx(writeIndex)
	intKey, shard := maple.locate(key)

	shard.Data.Compute(intKey, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
		var current int64
		if loaded {
			if e.Kind != internal.KindCounter {
				err = db.ErrWrongType
				return e, false
			}
			current, err = strconv.ParseInt(string(e.Value), 10, 64)
			if err != nil {
				err = db.ErrNotInteger
				return e, false
			}
		}

		if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
			err = db.ErrNotInteger
			return e, !loaded
		}

		value = current + delta
		return internal.Entry{
			Kind:  internal.KindCounter,
			Value: strconv.AppendInt(nil, value, 10),
			Index: writeIndex,
		}, false
	})

	return value, err
}

func (maple *mapleImpl) del(key string, writeIndex uint64) (removed bool) {
	maple.SetWriteIdx(writeIndex)
	intKey, shard := maple.locate(key)

	shard.Data.Compute(intKey, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
		removed = loaded
		return e, true
	})

	return removed
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// HGet retrieves the value of field in the hash at key.
// The returned value is a copy of the stored data and therefore safe to use and modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) HGet(key, field string) ([]byte, bool, error) {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()
	return maple.hget(key, field)
}

// HExists checks whether field exists in the hash at key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) HExists(key, field string) (bool, error) {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()
	return maple.hexists(key, field)
}

// HLen returns the number of fields in the hash at key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) HLen(key string) (int, error) {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()
	return maple.hlen(key)
}

// HScan returns the next page of fields of the hash at key.
// Fields are visited in ascending order of their field hash, the cursor is the next hash to visit.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) HScan(key string, cursor uint64, count int) (next uint64, fields []db.Field, err error) {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()

	err = maple.withHash(key, func(h *internal.Hash) {
		next, fields = h.Scan(cursor, count)
	})
	return next, fields, err
}

// Get returns the raw value of the counter at key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string) ([]byte, bool, error) {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()
	return maple.get(key)
}

// Has checks if a key exists in the database.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Has(key string) bool {
	maple.txMu.RLock()
	defer maple.txMu.RUnlock()

	intKey, shard := maple.locate(key)
	_, ok := shard.Data.Load(intKey)
	return ok
}

// withHash runs fn on the hash at key under the per-key lock.
// fn is not called if the key doesn't exist.
func (maple *mapleImpl) withHash(key string, fn func(h *internal.Hash)) (err error) {
	intKey, shard := maple.locate(key)

	shard.Data.Compute(intKey, func(e internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			return e, true // set delete to true because else the value will be created
		}
		if e.Kind != internal.KindHash {
			err = db.ErrWrongType
			return e, false
		}
		fn(e.Hash)
		return e, false
	})

	return err
}

func (maple *mapleImpl) hget(key, field string) (value []byte, ok bool, err error) {
	err = maple.withHash(key, func(h *internal.Hash) {
		value, ok = h.Get(field)
	})
	return value, ok, err
}

func (maple *mapleImpl) hexists(key, field string) (ok bool, err error) {
	err = maple.withHash(key, func(h *internal.Hash) {
		ok = h.Has(field)
	})
	return ok, err
}

func (maple *mapleImpl) hlen(key string) (count int, err error) {
	err = maple.withHash(key, func(h *internal.Hash) {
		count = h.Len()
	})
	return count, err
}

func (maple *mapleImpl) get(key string) (value []byte, ok bool, err error) {
	intKey, shard := maple.locate(key)
	e, loaded := shard.Data.Load(intKey)
	if !loaded {
		return nil, false, nil
	}
	if e.Kind != internal.KindCounter {
		return nil, false, db.ErrWrongType
	}

	// counter values are replaced on write, never modified in place
	value = make([]byte, len(e.Value))
	copy(value, e.Value)
	return value, true, nil
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// Exec runs all ops while holding the write lock of the database, so no other operation
// can interleave. Each op gets its own result, a failure doesn't abort the remaining ops.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Exec(ops []db.Op, writeIndex uint64) []db.OpResult {
	maple.txMu.Lock()
	defer maple.txMu.Unlock()

	results := make([]db.OpResult, len(ops))
	for i, op := range ops {
		var (
			res db.OpResult
			err error
		)

		switch op.Type {
		case db.OpHGet:
			res.Value, res.Ok, err = maple.hget(op.Key, op.Field)
		case db.OpHSet:
			res.Ok, err = maple.hset(op.Key, op.Field, op.Value, writeIndex, false)
		case db.OpHSetNX:
			res.Ok, err = maple.hset(op.Key, op.Field, op.Value, writeIndex, true)
		case db.OpHDel:
			var removed int
			removed, err = maple.hdel(op.Key, op.Field, writeIndex)
			res.Int, res.Ok = int64(removed), removed > 0
		case db.OpHExists:
			res.Ok, err = maple.hexists(op.Key, op.Field)
		case db.OpHLen:
			var count int
			count, err = maple.hlen(op.Key)
			res.Int = int64(count)
		case db.OpIncrBy:
			res.Int, err = maple.incrBy(op.Key, op.Delta, writeIndex)
		case db.OpGet:
			res.Value, res.Ok, err = maple.get(op.Key)
		case db.OpDelete:
			res.Ok = maple.del(op.Key, writeIndex)
		default:
			err = fmt.Errorf("%w: %d", db.ErrUnknownOp, op.Type)
		}

		if err != nil {
			res = db.OpResult{Err: err.Error()}
		}
		results[i] = res
	}

	return results
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// savedEntry is a deep copy of an entry collected for Save
type savedEntry struct {
	key    util.UintKey
	kind   internal.Kind
	index  uint64
	value  []byte
	fields []db.Field
}

// Save persists the database to the writer.
// The entries are copied under the write lock, so the snapshot is a consistent cut.
// Writing to w happens after the lock is released.
func (maple *mapleImpl) Save(w io.Writer) error {

	maple.txMu.Lock()
	var entries []savedEntry
	for _, shard := range maple.shards {
		shard.Data.Range(func(key util.UintKey, entry internal.Entry) bool {
			item := savedEntry{key: key, kind: entry.Kind, index: entry.Index}
			switch entry.Kind {
			case internal.KindHash:
				item.fields = make([]db.Field, 0, entry.Hash.Len())
				entry.Hash.Range(func(field string, value []byte) bool {
					valueCopy := make([]byte, len(value))
					copy(valueCopy, value)
					item.fields = append(item.fields, db.Field{Name: field, Value: valueCopy})
					return true
				})
			default:
				item.value = make([]byte, len(entry.Value))
				copy(item.value, entry.Value)
			}
			entries = append(entries, item)
			return true
		})
	}
	seed := maple.seed
	maple.txMu.Unlock()

	// Use a buffered writer for better performance
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	// Write file header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}

	// Write maple version
	if err := binary.Write(bw, binary.LittleEndian, uint8(mapleVersion)); err != nil {
		return err
	}

	// Write seed
	if err := binary.Write(bw, binary.LittleEndian, seed); err != nil {
		return err
	}

	// Write total entries count
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, item := range entries {
		if err := binary.Write(bw, binary.LittleEndian, uint64(item.key)); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, item.index); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint8(item.kind)); err != nil {
			return err
		}

		switch item.kind {
		case internal.KindHash:
			if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.fields))); err != nil {
				return err
			}
			for _, f := range item.fields {
				if err := writeBytes(bw, []byte(f.Name)); err != nil {
					return err
				}
				if err := writeBytes(bw, f.Value); err != nil {
					return err
				}
			}
		default:
			if err := writeBytes(bw, item.value); err != nil {
				return err
			}
		}
	}

	// Flush buffer to ensure all data is written
	return bw.Flush()
}

// Load restores a database from the reader. All existing data is replaced.
//
// Thread-safety: This function blocks all other operations while loading.
func (maple *mapleImpl) Load(r io.Reader) error {
	maple.txMu.Lock()
	defer maple.txMu.Unlock()

	// Use a buffered reader for better performance
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}

	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	// Read and verify version
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}

	if int(version) != mapleVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, mapleVersion)
	}

	// Read seed
	var seed uint64
	if err := binary.Read(br, binary.LittleEndian, &seed); err != nil {
		return err
	}

	// Read entries count
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	// Load into fresh shards, the current state is only replaced if the whole snapshot could be read
	shards := newShards(maple.numShards)
	var maxIndex uint64

	for i := uint64(0); i < count; i++ {
		var (
			keyUint uint64
			index   uint64
			kind    uint8
		)
		if err := binary.Read(br, binary.LittleEndian, &keyUint); err != nil {
			return err
		}
		if err := binary.Read(br, binary.LittleEndian, &index); err != nil {
			return err
		}
		if err := binary.Read(br, binary.LittleEndian, &kind); err != nil {
			return err
		}

		// Track the highest index
		if index > maxIndex {
			maxIndex = index
		}

		entry := internal.Entry{Kind: internal.Kind(kind), Index: index}
		switch entry.Kind {
		case internal.KindHash:
			var numFields uint32
			if err := binary.Read(br, binary.LittleEndian, &numFields); err != nil {
				return err
			}
			entry.Hash = internal.NewHash()
			for j := uint32(0); j < numFields; j++ {
				name, err := readBytes(br)
				if err != nil {
					return err
				}
				value, err := readBytes(br)
				if err != nil {
					return err
				}
				entry.Hash.Set(string(name), value)
			}
		case internal.KindCounter:
			value, err := readBytes(br)
			if err != nil {
				return err
			}
			entry.Value = value
		default:
			return fmt.Errorf("invalid file format: unknown entry kind %d", kind)
		}

		key := util.UintKey(keyUint)
		internal.GetShard(key, shards).Data.Store(key, entry)
	}

	maple.shards = shards
	maple.seed = seed
	maple.currIndex.Store(0)

	// Update current index to the highest seen during load
	maple.SetWriteIdx(maxIndex)

	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	// hashes are mutated in place, sampling must not run concurrently with writes
	maple.txMu.Lock()
	defer maple.txMu.Unlock()

	currentWriteIndex := maple.currIndex.Load()

	var sample util.SizeSample
	samplesPerShard := 100

	var (
		hashCount    int
		counterCount int
		fieldCount   int
	)
	shardSizes := make([]int, len(maple.shards))

	for i, shard := range maple.shards {
		count := 0
		shard.Data.Range(func(key util.UintKey, entry internal.Entry) bool {
			switch entry.Kind {
			case internal.KindHash:
				sample.Add(entry.Hash.SizeBytes())
				hashCount++
				fieldCount += entry.Hash.Len()
			default:
				sample.Add(len(entry.Value))
				counterCount++
			}

			// only sample a few entries per shard
			count++
			return count < samplesPerShard
		})
		shardSizes[i] = shard.Data.Size()
	}

	// 8 bytes each for key, index and kind/pointer
	entryOverhead := 24
	sizeBytes := 0
	if sample.Len() > 0 {
		sizeBytes = sample.Estimate() + entryOverhead
	}

	// Metadata for this specific database implementation
	meta := &struct {
		CurrentWriteIndex uint64            `json:"current_write_index"`
		ShardCount        int               `json:"shard_count"`
		ShardBalance      util.ShardBalance `json:"shard_balance"`
		SampledHashes     int               `json:"sampled_hashes"`
		SampledCounters   int               `json:"sampled_counters"`
		SampledFields     int               `json:"sampled_fields"`
		Info              string            `json:"info"`
	}{
		CurrentWriteIndex: currentWriteIndex,
		ShardCount:        len(maple.shards),
		ShardBalance:      util.NewShardBalance(shardSizes),
		SampledHashes:     hashCount,
		SampledCounters:   counterCount,
		SampledFields:     fieldCount,
		Info:              "All values (including SizeBytes) are estimates and may vary depending on the database state.",
	}

	supportedFeatures := []db.Feature{
		db.FeatureHashWrite, db.FeatureHashRead, db.FeatureHashScan,
		db.FeatureCounter, db.FeatureDelete, db.FeatureExec,
		db.FeatureSave, db.FeatureLoad,
	}

	return db.DatabaseInfo{
		SizeBytes:         sizeBytes,
		DbType:            db.ImplMaple,
		SupportedFeatures: supportedFeatures,
		Metadata:          meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureHashWrite |
		db.FeatureHashRead |
		db.FeatureHashScan |
		db.FeatureCounter |
		db.FeatureDelete |
		db.FeatureExec |
		db.FeatureSave |
		db.FeatureLoad
	return supportedFeatures&feature == feature
}

// Close releases the database. Maple has no background work, so this is a no-op.
func (maple *mapleImpl) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Index and Timestamp Management
// --------------------------------------------------------------------------

// SetWriteIdx safely updates the current index
// It only updates if the new index is greater than the current one
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// It uses atomic operations to ensure that the index only increases.
func (maple *mapleImpl) SetWriteIdx(newIdx uint64) {
	// Only update if the new index is greater
	for {
		currIdx := maple.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if maple.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

// WriteIdx returns the current index of the database
func (maple *mapleImpl) WriteIdx() uint64 {
	return maple.currIndex.Load()
}
