package internal

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTHSet      CommandType = iota // Insert or update a field of a hash.
	CommandTHSetNX                       // Insert a field of a hash if it does not exist.
	CommandTHSetMulti                    // Insert or update many fields of a hash.
	CommandTHDel                         // Delete a field of a hash.
	CommandTIncrBy                       // Add a delta to a counter.
	CommandTDelete                       // Delete a key.
	CommandTExec                         // Run a list of operations atomically.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTHSet:
		return "HSet"
	case CommandTHSetNX:
		return "HSetNX"
	case CommandTHSetMulti:
		return "HSetMulti"
	case CommandTHDel:
		return "HDel"
	case CommandTIncrBy:
		return "IncrBy"
	case CommandTDelete:
		return "Delete"
	case CommandTExec:
		return "Exec"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// ToDBFeature converts a CommandType to the corresponding db.Feature.
// This can be used for checking if the database supports a certain operation.
func (ct CommandType) ToDBFeature() (db.Feature, error) {
	switch ct {
	case CommandTHSet, CommandTHSetNX, CommandTHSetMulti, CommandTHDel:
		return db.FeatureHashWrite, nil
	case CommandTIncrBy:
		return db.FeatureCounter, nil
	case CommandTDelete:
		return db.FeatureDelete, nil
	case CommandTExec:
		return db.FeatureExec, nil
	default:
		return 0, fmt.Errorf("unknown command type %d", ct)
	}
}

// Command represents a command to be executed by the state machine (a single entry in the raft log)
type Command struct {
	Type   CommandType
	Key    string
	Field  string
	Value  []byte
	Delta  int64
	Fields []db.Field // only CommandTHSetMulti
	Ops    []db.Op    // only CommandTExec
}

// header: Type + Delta + KeyLen + FieldLen + ValueLen + ItemCount
const headerSize = 1 + 8 + 4 + 4 + 4 + 4

// opSize is the encoded size of one nested op
func opSize(op db.Op) int {
	return 1 + 8 + 4 + len(op.Key) + 4 + len(op.Field) + 4 + len(op.Value)
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	size := headerSize + len(command.Key) + len(command.Field) + len(command.Value)
	switch command.Type {
	case CommandTHSetMulti:
		for _, f := range command.Fields {
			size += 4 + len(f.Name) + 4 + len(f.Value)
		}
	case CommandTExec:
		for _, op := range command.Ops {
			size += opSize(op)
		}
	}
	return size
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 8 bytes for delta,
// 4 bytes key length + key data,
// 4 bytes field length + field data,
// 4 bytes value length + value data,
// 4 bytes item count followed by the items (fields of HSetMulti or ops of Exec).
// All integers are big endian.
func (command *Command) Serialize() []byte {
	result := make([]byte, 0, command.SizeBytes())

	result = append(result, byte(command.Type))
	result = binary.BigEndian.AppendUint64(result, uint64(command.Delta))
	result = appendBytes(result, []byte(command.Key))
	result = appendBytes(result, []byte(command.Field))
	result = appendBytes(result, command.Value)

	switch command.Type {
	case CommandTHSetMulti:
		result = binary.BigEndian.AppendUint32(result, uint32(len(command.Fields)))
		for _, f := range command.Fields {
			result = appendBytes(result, []byte(f.Name))
			result = appendBytes(result, f.Value)
		}
	case CommandTExec:
		result = binary.BigEndian.AppendUint32(result, uint32(len(command.Ops)))
		for _, op := range command.Ops {
			result = append(result, byte(op.Type))
			result = binary.BigEndian.AppendUint64(result, uint64(op.Delta))
			result = appendBytes(result, []byte(op.Key))
			result = appendBytes(result, []byte(op.Field))
			result = appendBytes(result, op.Value)
		}
	default:
		result = binary.BigEndian.AppendUint32(result, 0)
	}

	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}

	r := reader{data: data}

	command.Type = CommandType(r.byte())
	command.Delta = int64(r.uint64())
	command.Key = string(r.bytes())
	command.Field = string(r.bytes())
	command.Value = r.bytes()
	command.Fields = nil
	command.Ops = nil

	count := int(r.uint32())
	if r.err != nil {
		return r.err
	}

	switch command.Type {
	case CommandTHSetMulti:
		command.Fields = make([]db.Field, 0, min(count, len(data)))
		for i := 0; i < count && r.err == nil; i++ {
			name := string(r.bytes())
			value := r.bytes()
			command.Fields = append(command.Fields, db.Field{Name: name, Value: value})
		}
	case CommandTExec:
		command.Ops = make([]db.Op, 0, min(count, len(data)))
		for i := 0; i < count && r.err == nil; i++ {
			op := db.Op{Type: db.OpType(r.byte())}
			op.Delta = int64(r.uint64())
			op.Key = string(r.bytes())
			op.Field = string(r.bytes())
			op.Value = r.bytes()
			command.Ops = append(command.Ops, op)
		}
	}

	return r.err
}

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

// EncodeResults serializes the results of a command. Each result is encoded as
// 1 byte ok flag, 8 bytes int, 4 bytes value length + value, 4 bytes error length + error,
// prefixed with a 4 byte result count.
func EncodeResults(results []db.OpResult) []byte {
	size := 4
	for _, res := range results {
		size += 1 + 8 + 4 + len(res.Value) + 4 + len(res.Err)
	}

	out := make([]byte, 0, size)
	out = binary.BigEndian.AppendUint32(out, uint32(len(results)))
	for _, res := range results {
		var ok byte
		if res.Ok {
			ok = 1
		}
		out = append(out, ok)
		out = binary.BigEndian.AppendUint64(out, uint64(res.Int))
		out = appendBytes(out, res.Value)
		out = appendBytes(out, []byte(res.Err))
	}
	return out
}

// DecodeResults is the inverse of EncodeResults
func DecodeResults(data []byte) ([]db.OpResult, error) {
	r := reader{data: data}
	count := int(r.uint32())
	if r.err != nil {
		return nil, r.err
	}

	results := make([]db.OpResult, 0, min(count, len(data)))
	for i := 0; i < count && r.err == nil; i++ {
		res := db.OpResult{Ok: r.byte() == 1}
		res.Int = int64(r.uint64())
		res.Value = r.bytes()
		res.Err = string(r.bytes())
		results = append(results, res)
	}
	return results, r.err
}

// --------------------------------------------------------------------------
// Encoding helpers
// --------------------------------------------------------------------------

func appendBytes(dst, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

// reader reads big endian values from data and remembers the first error
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if len(r.data)-r.pos < n {
		r.err = fmt.Errorf("data too short: need %d bytes at offset %d, have %d", n, r.pos, len(r.data)-r.pos)
		return false
	}
	return true
}

func (r *reader) byte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *reader) uint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) uint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

// bytes reads a length prefixed byte slice. An empty slice is returned as nil.
func (r *reader) bytes() []byte {
	n := int(r.uint32())
	if n == 0 || !r.need(n) {
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b
}
