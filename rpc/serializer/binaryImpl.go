package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present (first flag byte)
const (
	hasKey    byte = 1 << 0
	hasField  byte = 1 << 1
	hasValue  byte = 1 << 2
	hasFields byte = 1 << 3
	hasCursor byte = 1 << 4
	hasCount  byte = 1 << 5
	hasInt    byte = 1 << 6
	hasOk     byte = 1 << 7
)

// Bit flags of the second flag byte
const (
	hasErr     byte = 1 << 0
	hasMeta    byte = 1 << 1
	hasOps     byte = 1 << 2
	hasResults byte = 1 << 3
)

// headerLen is the size of MsgType and both flag bytes
const headerLen = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, headerLen, b.sizeBytes(msg))
	result[0] = byte(msg.MsgType)

	var flags, flags2 byte

	if msg.Key != "" {
		flags |= hasKey
		result = appendString(result, msg.Key)
	}
	if msg.Field != "" {
		flags |= hasField
		result = appendString(result, msg.Field)
	}
	if msg.Value != nil {
		flags |= hasValue
		result = appendBytes(result, msg.Value)
	}
	if msg.Fields != nil {
		flags |= hasFields
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Fields)))
		for _, f := range msg.Fields {
			result = appendString(result, f.Name)
			result = appendBytes(result, f.Value)
		}
	}
	if msg.Cursor != 0 {
		flags |= hasCursor
		result = binary.BigEndian.AppendUint64(result, msg.Cursor)
	}
	if msg.Count != 0 {
		flags |= hasCount
		result = binary.BigEndian.AppendUint64(result, uint64(int64(msg.Count)))
	}
	if msg.Int != 0 {
		flags |= hasInt
		result = binary.BigEndian.AppendUint64(result, uint64(msg.Int))
	}
	if msg.Ok {
		// the flag alone encodes the value
		flags |= hasOk
	}
	if msg.Err != "" {
		flags2 |= hasErr
		result = appendString(result, msg.Err)
	}
	if msg.Meta != nil {
		flags2 |= hasMeta
		result = appendBytes(result, msg.Meta)
	}
	if msg.Ops != nil {
		flags2 |= hasOps
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Ops)))
		for _, op := range msg.Ops {
			result = append(result, byte(op.Type))
			result = binary.BigEndian.AppendUint64(result, uint64(op.Delta))
			result = appendString(result, op.Key)
			result = appendString(result, op.Field)
			result = appendOptionalBytes(result, op.Value)
		}
	}
	if msg.Results != nil {
		flags2 |= hasResults
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Results)))
		for _, res := range msg.Results {
			var ok byte
			if res.Ok {
				ok = 1
			}
			result = append(result, ok)
			result = binary.BigEndian.AppendUint64(result, uint64(res.Int))
			result = appendOptionalBytes(result, res.Value)
			result = appendString(result, res.Err)
		}
	}

	// Set flags after knowing which fields are present
	result[1] = flags
	result[2] = flags2

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerLen {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags, flags2 := data[1], data[2]
	r := &reader{data: data, pos: headerLen}

	if flags&hasKey != 0 {
		msg.Key = string(r.bytes("key"))
	}
	if flags&hasField != 0 {
		msg.Field = string(r.bytes("field"))
	}
	if flags&hasValue != 0 {
		msg.Value = r.copyBytes("value")
	}
	if flags&hasFields != 0 {
		n := r.count("fields")
		msg.Fields = make([]db.Field, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			name := string(r.bytes("field name"))
			msg.Fields = append(msg.Fields, db.Field{Name: name, Value: r.copyBytes("field value")})
		}
	}
	if flags&hasCursor != 0 {
		msg.Cursor = r.uint64("cursor")
	}
	if flags&hasCount != 0 {
		msg.Count = int(int64(r.uint64("count")))
	}
	if flags&hasInt != 0 {
		msg.Int = int64(r.uint64("int"))
	}
	msg.Ok = flags&hasOk != 0
	if flags2&hasErr != 0 {
		msg.Err = string(r.bytes("error"))
	}
	if flags2&hasMeta != 0 {
		msg.Meta = r.copyBytes("meta")
	}
	if flags2&hasOps != 0 {
		n := r.count("ops")
		msg.Ops = make([]db.Op, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			var op db.Op
			op.Type = db.OpType(r.byte("op type"))
			op.Delta = int64(r.uint64("op delta"))
			op.Key = string(r.bytes("op key"))
			op.Field = string(r.bytes("op field"))
			op.Value = r.optionalBytes("op value")
			msg.Ops = append(msg.Ops, op)
		}
	}
	if flags2&hasResults != 0 {
		n := r.count("results")
		msg.Results = make([]db.OpResult, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			var res db.OpResult
			res.Ok = r.byte("result ok") != 0
			res.Int = int64(r.uint64("result int"))
			res.Value = r.optionalBytes("result value")
			res.Err = string(r.bytes("result error"))
			msg.Results = append(msg.Results, res)
		}
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerLen

	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Field != "" {
		size += 4 + len(msg.Field)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Fields != nil {
		size += 4
		for _, f := range msg.Fields {
			size += 8 + len(f.Name) + len(f.Value)
		}
	}
	if msg.Cursor != 0 {
		size += 8
	}
	if msg.Count != 0 {
		size += 8
	}
	if msg.Int != 0 {
		size += 8
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}
	if msg.Ops != nil {
		size += 4
		for _, op := range msg.Ops {
			// type + delta + key + field + value (with nil marker)
			size += 1 + 8 + 4 + len(op.Key) + 4 + len(op.Field) + 1 + 4 + len(op.Value)
		}
	}
	if msg.Results != nil {
		size += 4
		for _, res := range msg.Results {
			size += 1 + 8 + 1 + 4 + len(res.Value) + 4 + len(res.Err)
		}
	}

	return size
}

func appendString(b []byte, s string) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func appendBytes(b []byte, v []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(v)))
	return append(b, v...)
}

// appendOptionalBytes prefixes the bytes with a marker so nil survives the round trip
func appendOptionalBytes(b []byte, v []byte) []byte {
	if v == nil {
		b = append(b, 0)
	} else {
		b = append(b, 1)
	}
	return appendBytes(b, v)
}

// reader reads the fields of a message and remembers the first error
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) need(n int, what string) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", what)
		return false
	}
	return true
}

func (r *reader) byte(what string) byte {
	if !r.need(1, what) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) uint32(what string) uint32 {
	if !r.need(4, what+" length") {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) uint64(what string) uint64 {
	if !r.need(8, what) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

// count reads an item count and bounds it by the remaining data, every item needs at least one byte
func (r *reader) count(what string) int {
	n := int(r.uint32(what))
	if r.err == nil && n > len(r.data)-r.pos {
		r.err = fmt.Errorf("data too short for %s", what)
		return 0
	}
	return n
}

// bytes returns a length prefixed slice that aliases the input
func (r *reader) bytes(what string) []byte {
	n := int(r.uint32(what))
	if !r.need(n, what+" data") {
		return nil
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v
}

// copyBytes returns a copy of a length prefixed slice (empty, not nil, for length 0)
func (r *reader) copyBytes(what string) []byte {
	v := r.bytes(what)
	if r.err != nil {
		return nil
	}
	return append(make([]byte, 0, len(v)), v...)
}

func (r *reader) optionalBytes(what string) []byte {
	present := r.byte(what)
	v := r.copyBytes(what)
	if present == 0 {
		return nil
	}
	return v
}
