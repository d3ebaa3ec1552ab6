package common

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key   string `json:"key,omitempty"`   // Used for all store operations except exec
	Field string `json:"field,omitempty"` // Used for: HSet, HSetNX, HGet, HExists, HDel
	Value []byte `json:"value,omitempty"` // Used for: HSet, HSetNX (request), HGet, Get (response)

	// Hash fields
	Fields []db.Field `json:"fields,omitempty"` // Used for: HSetMulti (request), HScan (response)
	Cursor uint64     `json:"cursor,omitempty"` // Used for: HScan (request and response)
	Count  int        `json:"count,omitempty"`  // Used for: HScan (request)

	// Transactions
	Ops     []db.Op       `json:"ops,omitempty"`     // Used for: Exec (request)
	Results []db.OpResult `json:"results,omitempty"` // Used for: Exec (response)

	// Response only fields
	Int int64  `json:"int,omitempty"` // Used for: HDel, HLen, Incr, Decr responses
	Ok  bool   `json:"ok,omitempty"`  // Used for: HGet, HExists, HSetNX, Get responses
	Err string `json:"err,omitempty"` // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional Adapters
}

// --------------------------------------------------------------------------
// Message Factory Functions (requests)
// --------------------------------------------------------------------------

// NewHSetRequest creates a new HSet request
func NewHSetRequest(key, field string, value []byte) *Message {
	return &Message{MsgType: MsgTHSet, Key: key, Field: field, Value: value}
}

// NewHSetNXRequest creates a new HSetNX request
func NewHSetNXRequest(key, field string, value []byte) *Message {
	return &Message{MsgType: MsgTHSetNX, Key: key, Field: field, Value: value}
}

// NewHGetRequest creates a new HGet request
func NewHGetRequest(key, field string) *Message {
	return &Message{MsgType: MsgTHGet, Key: key, Field: field}
}

// NewHExistsRequest creates a new HExists request
func NewHExistsRequest(key, field string) *Message {
	return &Message{MsgType: MsgTHExists, Key: key, Field: field}
}

// NewHDelRequest creates a new HDel request
func NewHDelRequest(key, field string) *Message {
	return &Message{MsgType: MsgTHDel, Key: key, Field: field}
}

// NewHSetMultiRequest creates a new HSetMulti request
func NewHSetMultiRequest(key string, fields []db.Field) *Message {
	return &Message{MsgType: MsgTHSetMulti, Key: key, Fields: fields}
}

// NewHLenRequest creates a new HLen request
func NewHLenRequest(key string) *Message {
	return &Message{MsgType: MsgTHLen, Key: key}
}

// NewHScanRequest creates a new HScan request
func NewHScanRequest(key string, cursor uint64, count int) *Message {
	return &Message{MsgType: MsgTHScan, Key: key, Cursor: cursor, Count: count}
}

// NewIncrRequest creates a new Incr request
func NewIncrRequest(key string) *Message {
	return &Message{MsgType: MsgTIncr, Key: key}
}

// NewDecrRequest creates a new Decr request
func NewDecrRequest(key string) *Message {
	return &Message{MsgType: MsgTDecr, Key: key}
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{MsgType: MsgTGet, Key: key}
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Message {
	return &Message{MsgType: MsgTDelete, Key: key}
}

// NewExecRequest creates a new Exec request
func NewExecRequest(ops []db.Op) *Message {
	return &Message{MsgType: MsgTExec, Ops: ops}
}

// NewDBInfoRequest creates a new DBInfo request
func NewDBInfoRequest() *Message {
	return &Message{MsgType: MsgTDBInfo}
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{MsgType: MsgTCustom, Meta: meta}
}

// --------------------------------------------------------------------------
// Message Factory Functions (responses)
// --------------------------------------------------------------------------

// NewResponse creates a response of the given type that only carries a possible error.
// Used for: HSet, HSetMulti, Delete
func NewResponse(t MessageType, err error) *Message {
	msg := &Message{MsgType: t}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewValueResponse creates a response for HGet and Get
func NewValueResponse(t MessageType, value []byte, ok bool, err error) *Message {
	msg := NewResponse(t, err)
	msg.Value = value
	msg.Ok = ok
	return msg
}

// NewOkResponse creates a response for HExists and HSetNX
func NewOkResponse(t MessageType, ok bool, err error) *Message {
	msg := NewResponse(t, err)
	msg.Ok = ok
	return msg
}

// NewIntResponse creates a response for HDel, HLen, Incr and Decr
func NewIntResponse(t MessageType, n int64, err error) *Message {
	msg := NewResponse(t, err)
	msg.Int = n
	return msg
}

// NewHScanResponse creates a new HScan response
func NewHScanResponse(cursor uint64, fields []db.Field, err error) *Message {
	msg := NewResponse(MsgTHScan, err)
	msg.Cursor = cursor
	msg.Fields = fields
	return msg
}

// NewExecResponse creates a new Exec response
func NewExecResponse(results []db.OpResult, err error) *Message {
	msg := NewResponse(MsgTExec, err)
	msg.Results = results
	return msg
}

// NewDBInfoResponse creates a new DBInfo response, the info is transported as json in the meta field
func NewDBInfoResponse(info db.DatabaseInfo, err error) *Message {
	if err != nil {
		return NewResponse(MsgTDBInfo, err)
	}
	meta, err := json.Marshal(info)
	msg := NewResponse(MsgTDBInfo, err)
	msg.Meta = meta
	return msg
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := NewResponse(MsgTCustom, err)
	msg.Meta = meta
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTUnknown:   "unknown",
	MsgTSuccess:   "success",
	MsgTError:     "error",
	MsgTHSet:      "hset",
	MsgTHSetNX:    "hsetnx",
	MsgTHGet:      "hget",
	MsgTHExists:   "hexists",
	MsgTHDel:      "hdel",
	MsgTHSetMulti: "hsetmulti",
	MsgTHLen:      "hlen",
	MsgTHScan:     "hscan",
	MsgTIncr:      "incr",
	MsgTDecr:      "decr",
	MsgTGet:       "get",
	MsgTDelete:    "delete",
	MsgTExec:      "exec",
	MsgTDBInfo:    "dbinfo",
	MsgTCustom:    "custom",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseMessageType is the inverse of MessageType.String
func ParseMessageType(s string) (MessageType, error) {
	for t, name := range messageTypeNames {
		if name == s {
			return t, nil
		}
	}
	return MsgTUnknown, fmt.Errorf("unknown message type: %s", s)
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMessageType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore hash operations

	MsgTHSet      // Set a field of a hash
	MsgTHSetNX    // Set a field of a hash if it is absent
	MsgTHGet      // Get a field of a hash
	MsgTHExists   // Check if a field of a hash exists
	MsgTHDel      // Delete a field of a hash
	MsgTHSetMulti // Set many fields of a hash
	MsgTHLen      // Count the fields of a hash
	MsgTHScan     // Read one page of fields of a hash

	// IStore counter and key operations

	MsgTIncr   // Increment a counter
	MsgTDecr   // Decrement a counter
	MsgTGet    // Read the raw value of a counter
	MsgTDelete // Delete a key (hash or counter)

	// Transactions and meta

	MsgTExec   // Execute ops atomically
	MsgTDBInfo // Read database information

	// Custom operations

	MsgTCustom // Custom operation type
)
