package db

import (
	"errors"
	"io"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple Implementation = "maple"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureHashWrite Feature = 1 << iota // Support for HSet, HSetNX, HSetMulti and HDel operations
	FeatureHashRead                      // Support for HGet, HExists and HLen operations
	FeatureHashScan                      // Support for cursor based HScan operations
	FeatureCounter                       // Support for IncrBy and Get operations on counters
	FeatureDelete                        // Support for Delete operations
	FeatureExec                          // Support for atomic Exec (transactions)
	FeatureSave                          // Support for Save operations
	FeatureLoad                          // Support for Load operations
)

func (f Feature) String() string {
	switch f {
	case FeatureHashWrite:
		return "HashWrite"
	case FeatureHashRead:
		return "HashRead"
	case FeatureHashScan:
		return "HashScan"
	case FeatureCounter:
		return "Counter"
	case FeatureDelete:
		return "Delete"
	case FeatureExec:
		return "Exec"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// Field is a single field-value pair of a hash.
type Field struct {
	Name  string
	Value []byte
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrWrongType is returned when an operation is applied to a key holding a different kind of value
	// (e.g. a hash operation on a counter).
	ErrWrongType = errors.New("operation against a key holding the wrong kind of value")
	// ErrNotInteger is returned when a counter operation finds a value that can't be parsed as an integer.
	ErrNotInteger = errors.New("value is not an integer or out of range")
	// ErrUnknownOp is returned for transaction operations the database doesn't know.
	ErrUnknownOp = errors.New("unknown operation")
)

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for hash and counter database implementations.
// A key either holds a hash (a set of field-value pairs) or a counter (an integer stored as its decimal
// representation). Hashes are created implicitly by the first write and removed when their last field is
// deleted or when the key is deleted explicitly.
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Hash Write Operations
	// --------------------------------------------------------------------------

	// HSet stores value for field in the hash at key. Returns whether the field was newly created.
	// The writeIndex parameter is used as a logical timestamp for the entry.
	HSet(key, field string, value []byte, writeIndex uint64) (created bool, err error)

	// HSetNX stores value for field only if the field does not exist yet. Returns whether the value was stored.
	HSetNX(key, field string, value []byte, writeIndex uint64) (set bool, err error)

	// HSetMulti stores all fields in the hash at key in one step. Returns the number of newly created fields.
	HSetMulti(key string, fields []Field, writeIndex uint64) (created int, err error)

	// HDel removes field from the hash at key. Returns the number of removed fields (0 or 1).
	// If the last field is removed, the hash itself is removed.
	HDel(key, field string, writeIndex uint64) (removed int, err error)

	// --------------------------------------------------------------------------
	// Counter and Key Operations
	// --------------------------------------------------------------------------

	// IncrBy adds delta to the counter at key and returns the new value.
	// A missing counter is treated as 0.
	IncrBy(key string, delta int64, writeIndex uint64) (value int64, err error)

	// Delete removes the key with whatever it holds. Deleting a missing key is a no-op.
	// Returns whether a key was removed.
	Delete(key string, writeIndex uint64) (removed bool)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// HGet retrieves the value of field in the hash at key.
	// The boolean return value indicates whether the field was found.
	HGet(key, field string) (value []byte, loaded bool, err error)

	// HExists checks whether field exists in the hash at key.
	HExists(key, field string) (loaded bool, err error)

	// HLen returns the number of fields in the hash at key (0 for a missing key).
	HLen(key string) (count int, err error)

	// HScan returns up to (roughly) count fields of the hash at key starting at cursor.
	// A cursor of 0 starts a new scan. The returned cursor is 0 once the scan completed a full cycle.
	// Every field that exists for the whole duration of a scan is returned at least once.
	HScan(key string, cursor uint64, count int) (next uint64, fields []Field, err error)

	// Get returns the raw value of a counter key.
	Get(key string) (value []byte, loaded bool, err error)

	// Has checks whether a key exists in the database.
	Has(key string) (loaded bool)

	// --------------------------------------------------------------------------
	// Transactions
	// --------------------------------------------------------------------------

	// Exec runs all ops atomically: no other operation is observed between the first and the last op.
	// Every op gets one result; a failing op sets OpResult.Err and does not abort the remaining ops.
	Exec(ops []Op, writeIndex uint64) (results []OpResult)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save persists the current state of the database to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load restores the database state data provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Returns true if the feature is supported, false otherwise.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// --------------------------------------------------------------------------
	// Write Index Operations
	// --------------------------------------------------------------------------

	// SetWriteIdx sets the current index of the database only if the provided index is greater than the current index.
	SetWriteIdx(index uint64)

	// WriteIdx returns the current index of the database .
	WriteIdx() (index uint64)

	// Close closes the database.
	Close() (err error)
}
