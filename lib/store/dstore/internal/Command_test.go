package internal

import (
	"bytes"
	"encoding/binary"
	"github.com/ValentinKolb/rmap/lib/db"
	"strings"
	"testing"
)

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name: "HSet with key, field and value",
			command: Command{
				Type:  CommandTHSet,
				Key:   "testkey",
				Field: "field",
				Value: []byte("testvalue"),
			},
			expected: headerSize + 7 + 5 + 9,
		},
		{
			name: "IncrBy without field and value",
			command: Command{
				Type:  CommandTIncrBy,
				Key:   "counter",
				Delta: -1,
			},
			expected: headerSize + 7,
		},
		{
			name: "HSetMulti with two fields",
			command: Command{
				Type:   CommandTHSetMulti,
				Key:    "h",
				Fields: []db.Field{{Name: "a", Value: []byte("1")}, {Name: "bb", Value: []byte("22")}},
			},
			expected: headerSize + 1 + (4 + 1 + 4 + 1) + (4 + 2 + 4 + 2),
		},
		{
			name: "Exec with two ops",
			command: Command{
				Type: CommandTExec,
				Ops:  []db.Op{db.HGetOp("h", "f"), db.HSetOp("h", "f", []byte("v"))},
			},
			expected: headerSize + (1 + 8 + 4 + 1 + 4 + 1 + 4) + (1 + 8 + 4 + 1 + 4 + 1 + 4 + 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := tt.command.SizeBytes()
			if size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{
			name: "HSet with value",
			command: Command{
				Type:  CommandTHSet,
				Key:   "testkey",
				Field: "testfield",
				Value: []byte("testvalue"),
			},
		},
		{
			name: "Delete without value",
			command: Command{
				Type: CommandTDelete,
				Key:  "testkey",
			},
		},
		{
			name: "HDel with empty key",
			command: Command{
				Type:  CommandTHDel,
				Key:   "",
				Field: "f",
			},
		},
		{
			name: "IncrBy with extreme deltas",
			command: Command{
				Type:  CommandTIncrBy,
				Key:   "counter",
				Delta: -9223372036854775808, // Min int64
			},
		},
		{
			name: "HSetNX with binary value",
			command: Command{
				Type:  CommandTHSetNX,
				Key:   "binary",
				Field: "bin",
				Value: []byte{0, 1, 2, 3, 254, 255},
			},
		},
		{
			name: "HSet with Unicode key",
			command: Command{
				Type:  CommandTHSet,
				Key:   "你好世界", // Hello World in Chinese
				Field: "世界",
				Value: []byte("unicode test"),
			},
		},
		{
			name: "HSetMulti",
			command: Command{
				Type: CommandTHSetMulti,
				Key:  "rmap_x_repository",
				Fields: []db.Field{
					{Name: "a", Value: []byte("1")},
					{Name: "", Value: []byte("empty name")},
					{Name: "c", Value: []byte("3")},
				},
			},
		},
		{
			name: "Exec",
			command: Command{
				Type: CommandTExec,
				Ops: []db.Op{
					db.HGetOp("rmap_x_repository", "k"),
					db.HSetOp("rmap_x_repository", "k", []byte("v")),
					db.IncrByOp("rmap_x_connectionCount", -1),
					db.DeleteOp("rmap_x_repository"),
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Serialize
			data := tt.command.Serialize()

			// Deserialize into a new command
			var newCommand Command
			err := newCommand.Deserialize(data)
			if err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}

			// Compare original and deserialized command
			if newCommand.Type != tt.command.Type {
				t.Errorf("Type mismatch: got %v, want %v", newCommand.Type, tt.command.Type)
			}
			if newCommand.Key != tt.command.Key {
				t.Errorf("Key mismatch: got %q, want %q", newCommand.Key, tt.command.Key)
			}
			if newCommand.Field != tt.command.Field {
				t.Errorf("Field mismatch: got %q, want %q", newCommand.Field, tt.command.Field)
			}
			if newCommand.Delta != tt.command.Delta {
				t.Errorf("Delta mismatch: got %v, want %v", newCommand.Delta, tt.command.Delta)
			}
			if !bytes.Equal(newCommand.Value, tt.command.Value) {
				t.Errorf("Value mismatch: got %v, want %v", newCommand.Value, tt.command.Value)
			}

			if len(newCommand.Fields) != len(tt.command.Fields) {
				t.Fatalf("Fields length mismatch: got %d, want %d", len(newCommand.Fields), len(tt.command.Fields))
			}
			for i, f := range tt.command.Fields {
				if newCommand.Fields[i].Name != f.Name || !bytes.Equal(newCommand.Fields[i].Value, f.Value) {
					t.Errorf("Field %d mismatch: got %+v, want %+v", i, newCommand.Fields[i], f)
				}
			}

			if len(newCommand.Ops) != len(tt.command.Ops) {
				t.Fatalf("Ops length mismatch: got %d, want %d", len(newCommand.Ops), len(tt.command.Ops))
			}
			for i, op := range tt.command.Ops {
				got := newCommand.Ops[i]
				if got.Type != op.Type || got.Key != op.Key || got.Field != op.Field || got.Delta != op.Delta || !bytes.Equal(got.Value, op.Value) {
					t.Errorf("Op %d mismatch: got %+v, want %+v", i, got, op)
				}
			}

			// Verify that SizeBytes matches the serialized data length
			if tt.command.SizeBytes() != len(data) {
				t.Errorf("SizeBytes() = %d, but serialized data length = %d",
					tt.command.SizeBytes(), len(data))
			}
		})
	}
}

// TestDeserializeErrors tests error cases in Deserialize
func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "Empty data",
			data: []byte{},
		},
		{
			name: "Data too short (less than header)",
			data: []byte{1, 2, 3, 4, 5},
		},
		{
			name: "Invalid key length",
			data: func() []byte {
				data := make([]byte, headerSize) // Just the header
				data[0] = byte(CommandTHSet)
				// Set key length to a large value that exceeds the data
				binary.BigEndian.PutUint32(data[9:13], 1000)
				return data
			}(),
		},
		{
			name: "Truncated exec ops",
			data: func() []byte {
				data := (&Command{Type: CommandTExec, Ops: []db.Op{db.HGetOp("key", "field")}}).Serialize()
				return data[:len(data)-3]
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			err := cmd.Deserialize(tt.data)

			// Check if we got the expected error
			if err == nil {
				t.Fatalf("Expected error but got nil")
			}
			if !strings.HasPrefix(err.Error(), "data too short") {
				t.Errorf("Expected a data too short error, got %q", err.Error())
			}
		})
	}
}

// TestBinaryFormat tests the exact binary format of serialized commands
func TestBinaryFormat(t *testing.T) {
	cmd := Command{
		Type:  CommandTHSet,
		Key:   "testkey",
		Field: "f",
		Value: []byte("testvalue"),
		Delta: 12345,
	}

	// Manually create the expected byte array
	var expected []byte
	expected = append(expected, byte(CommandTHSet))
	expected = binary.BigEndian.AppendUint64(expected, 12345)
	expected = binary.BigEndian.AppendUint32(expected, 7)
	expected = append(expected, "testkey"...)
	expected = binary.BigEndian.AppendUint32(expected, 1)
	expected = append(expected, "f"...)
	expected = binary.BigEndian.AppendUint32(expected, 9)
	expected = append(expected, "testvalue"...)
	expected = binary.BigEndian.AppendUint32(expected, 0) // no items

	// Serialize and compare
	serialized := cmd.Serialize()
	if !bytes.Equal(serialized, expected) {
		t.Errorf("Binary format does not match:\nGot:      %v\nExpected: %v", serialized, expected)
	}
}

// TestResults tests the encoding of command results
func TestResults(t *testing.T) {
	results := []db.OpResult{
		{Value: []byte("old"), Ok: true},
		{Ok: false},
		{Int: -3},
		{Err: db.ErrWrongType.Error()},
	}

	decoded, err := DecodeResults(EncodeResults(results))
	if err != nil {
		t.Fatalf("DecodeResults() error = %v", err)
	}
	if len(decoded) != len(results) {
		t.Fatalf("Expected %d results, got %d", len(results), len(decoded))
	}
	for i, want := range results {
		got := decoded[i]
		if got.Ok != want.Ok || got.Int != want.Int || got.Err != want.Err || !bytes.Equal(got.Value, want.Value) {
			t.Errorf("Result %d mismatch: got %+v, want %+v", i, got, want)
		}
	}

	if _, err := DecodeResults([]byte{0, 0, 0, 5, 1}); err == nil {
		t.Errorf("Expected error for truncated results")
	}

	empty, err := DecodeResults(EncodeResults(nil))
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected no results, got %v (err=%v)", empty, err)
	}
}
