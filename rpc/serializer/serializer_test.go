package serializer

import (
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/rpc/common"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// HSet request
		{
			MsgType: common.MsgTHSet,
			Key:     "rmap_test_repository",
			Field:   "test-field",
			Value:   []byte("test-value"),
		},

		// HGet response
		{
			MsgType: common.MsgTHGet,
			Value:   []byte("test-value"),
			Ok:      true,
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Err:     "test error message",
		},

		// HScan request and response
		{
			MsgType: common.MsgTHScan,
			Key:     "rmap_test_repository",
			Cursor:  1 << 63,
			Count:   10,
		},
		{
			MsgType: common.MsgTHScan,
			Cursor:  42,
			Fields: []db.Field{
				{Name: "a", Value: []byte("1")},
				{Name: "b", Value: []byte("2")},
			},
		},

		// Decr response with a negative counter
		{
			MsgType: common.MsgTDecr,
			Int:     -1,
		},

		// Exec request and response
		{
			MsgType: common.MsgTExec,
			Ops: []db.Op{
				db.HGetOp("rmap_test_repository", "k"),
				db.HSetOp("rmap_test_repository", "k", []byte("v")),
				db.IncrByOp("rmap_test_connectionCount", -1),
			},
		},
		{
			MsgType: common.MsgTExec,
			Results: []db.OpResult{
				{Value: []byte("old"), Ok: true},
				{Ok: true, Int: 1},
				{Err: "wrong type"},
			},
		},

		// Message with meta
		{
			MsgType: common.MsgTCustom,
			Key:     "custom",
			Meta:    []byte("test-meta-data"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTCustom; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty value and meta slices",
			msg: common.Message{
				MsgType: common.MsgTHSet,
				Key:     "test",
				Field:   "f",
				Value:   []byte{},
				Meta:    []byte{},
			},
		},
		{
			name: "Message with empty strings but Ok=true",
			msg: common.Message{
				MsgType: common.MsgTHGet,
				Ok:      true,
			},
		},
		{
			name: "Empty field list",
			msg: common.Message{
				MsgType: common.MsgTHScan,
				Fields:  []db.Field{},
			},
		},
		{
			name: "Field with empty name and value",
			msg: common.Message{
				MsgType: common.MsgTHSetMulti,
				Key:     "h",
				Fields:  []db.Field{{Name: "", Value: []byte{}}},
			},
		},
		{
			name: "Op with nil and empty values",
			msg: common.Message{
				MsgType: common.MsgTExec,
				Ops: []db.Op{
					db.HSetOp("h", "f", []byte{}),
					db.HDelOp("h", "f"),
				},
			},
		},
		{
			name: "Negative count and extreme values",
			msg: common.Message{
				MsgType: common.MsgTHScan,
				Count:   -5,
				Cursor:  ^uint64(0),
				Int:     -9223372036854775808,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// nil and empty slices are distinguished by the binary format
			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Message doesn't match after round trip:\nOriginal: %#v\nResult: %#v", tc.msg, result)
			}
		})
	}
}

// TestDeserializeResetsMessage verifies that a reused message does not keep old fields
func TestDeserializeResetsMessage(t *testing.T) {
	serializer := NewBinarySerializer()

	data, err := serializer.Serialize(common.Message{MsgType: common.MsgTHLen, Key: "h"})
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	msg := common.Message{Value: []byte("stale"), Ok: true, Err: "stale", Int: 3}
	if err := serializer.Deserialize(data, &msg); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	if !reflect.DeepEqual(msg, common.Message{MsgType: common.MsgTHLen, Key: "h"}) {
		t.Errorf("Expected stale fields to be cleared, got %+v", msg)
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	execReq, _ := serializer.Serialize(common.Message{
		MsgType: common.MsgTExec,
		Ops:     []db.Op{db.HSetOp("key", "field", []byte("value"))},
	})

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1, 0}, // Only message type and one flag byte
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, 1, 0, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{1, 4, 0, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Field count exceeds data",
			data:        []byte{1, 8, 0, 0xff, 0xff, 0xff, 0xff},
			expectError: true,
		},
		{
			name:        "Truncated ops",
			data:        execReq[:len(execReq)-2],
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
