package store

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.KVDB

// IStore is the generic interface for interacting with a hash and counter store.
// All write operations return an error (nil on success), read operations return the
// requested data along with an error (nil on success). A missing key or field is
// never an error, it is reported through the boolean return values.
type IStore interface {
	// HSet stores value for field in the hash at key. The hash is created if it doesn't exist.
	HSet(key, field string, value []byte) (err error)
	// HSetNX stores value for field only if the field doesn't exist. Returns whether the value was stored.
	HSetNX(key, field string, value []byte) (set bool, err error)
	// HSetMulti stores all fields in the hash at key in one step.
	HSetMulti(key string, fields []db.Field) (err error)
	// HDel removes field from the hash at key and returns the number of removed fields.
	HDel(key, field string) (removed int64, err error)
	// HGet returns the value of field. The boolean return value indicates whether the field was found.
	HGet(key, field string) (value []byte, loaded bool, err error)
	// HExists returns whether field exists in the hash at key.
	HExists(key, field string) (loaded bool, err error)
	// HLen returns the number of fields in the hash at key.
	HLen(key string) (count int64, err error)
	// HScan returns the next page of fields starting at cursor. Cursor 0 starts a scan,
	// a returned cursor of 0 means the scan is complete.
	HScan(key string, cursor uint64, count int) (next uint64, fields []db.Field, err error)
	// Incr increments the counter at key by one and returns the new value.
	Incr(key string) (value int64, err error)
	// Decr decrements the counter at key by one and returns the new value.
	Decr(key string) (value int64, err error)
	// Get returns the raw value of the counter at key.
	Get(key string) (value []byte, loaded bool, err error)
	// Delete deletes the key with whatever it holds. Deleting a missing key is not an error.
	Delete(key string) (err error)
	// Exec runs all ops atomically and returns one result per op.
	// A failing op is reported in its OpResult and doesn't abort the other ops.
	Exec(ops []db.Op) (results []db.OpResult, err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// FromDBError converts an error of the db package into a *Error with a matching code.
// nil stays nil.
func FromDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrWrongType):
		return NewError(RetCWrongType, err.Error())
	case errors.Is(err, db.ErrNotInteger), errors.Is(err, db.ErrUnknownOp):
		return NewError(RetCInvalidOperation, err.Error())
	default:
		return NewError(RetCInternalError, err.Error())
	}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code RetCode) bool {
	var storeErr *Error
	return errors.As(err, &storeErr) && storeErr.Code == code
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCWrongType                           // 4: Operation against a key holding the wrong kind of value.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCWrongType:
		return "WrongType"
	default:
		return "Unknown"
	}
}
