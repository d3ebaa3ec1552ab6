package db

// --------------------------------------------------------------------------
// Transaction Operations
// --------------------------------------------------------------------------

// OpType identifies a single operation inside an Exec transaction
type OpType uint8

const (
	OpHGet OpType = iota + 1
	OpHSet
	OpHSetNX
	OpHDel
	OpHExists
	OpHLen
	OpIncrBy
	OpGet
	OpDelete
)

func (t OpType) String() string {
	switch t {
	case OpHGet:
		return "HGET"
	case OpHSet:
		return "HSET"
	case OpHSetNX:
		return "HSETNX"
	case OpHDel:
		return "HDEL"
	case OpHExists:
		return "HEXISTS"
	case OpHLen:
		return "HLEN"
	case OpIncrBy:
		return "INCRBY"
	case OpGet:
		return "GET"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// IsWrite reports whether the operation modifies the database
func (t OpType) IsWrite() bool {
	switch t {
	case OpHSet, OpHSetNX, OpHDel, OpIncrBy, OpDelete:
		return true
	default:
		return false
	}
}

// Op is a single operation of a transaction. Which fields are used depends on the Type:
//
//	OpHGet, OpHExists, OpHDel: Key, Field
//	OpHSet, OpHSetNX:          Key, Field, Value
//	OpHLen, OpGet, OpDelete:   Key
//	OpIncrBy:                  Key, Delta
type Op struct {
	Type  OpType
	Key   string
	Field string
	Value []byte
	Delta int64
}

// OpResult is the outcome of a single Op.
//
//	Value: the loaded value (OpHGet, OpGet)
//	Ok:    found (OpHGet, OpHExists, OpGet), created (OpHSet), stored (OpHSetNX), removed (OpHDel, OpDelete)
//	Int:   the new counter value (OpIncrBy), the field count (OpHLen), removed fields (OpHDel)
//	Err:   a non-empty error message if the operation failed
type OpResult struct {
	Value []byte
	Ok    bool
	Int   int64
	Err   string
}

// Convenience constructors

func HGetOp(key, field string) Op {
	return Op{Type: OpHGet, Key: key, Field: field}
}

func HSetOp(key, field string, value []byte) Op {
	return Op{Type: OpHSet, Key: key, Field: field, Value: value}
}

func HSetNXOp(key, field string, value []byte) Op {
	return Op{Type: OpHSetNX, Key: key, Field: field, Value: value}
}

func HDelOp(key, field string) Op {
	return Op{Type: OpHDel, Key: key, Field: field}
}

func HExistsOp(key, field string) Op {
	return Op{Type: OpHExists, Key: key, Field: field}
}

func HLenOp(key string) Op {
	return Op{Type: OpHLen, Key: key}
}

func IncrByOp(key string, delta int64) Op {
	return Op{Type: OpIncrBy, Key: key, Delta: delta}
}

func GetOp(key string) Op {
	return Op{Type: OpGet, Key: key}
}

func DeleteOp(key string) Op {
	return Op{Type: OpDelete, Key: key}
}
