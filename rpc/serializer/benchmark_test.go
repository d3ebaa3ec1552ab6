package serializer

import (
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/rpc/common"
	"testing"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	page := make([]db.Field, 100)
	for i := range page {
		page[i] = db.Field{Name: fmt.Sprintf("field-%d", i), Value: []byte("medium length value")}
	}

	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTSuccess,
		},
		"HGetSmall": {
			MsgType: common.MsgTHGet,
			Key:     "rmap_k_repository",
			Field:   "k",
		},
		"HGetLargeField": {
			MsgType: common.MsgTHGet,
			Key:     "rmap_k_repository",
			Field:   "this-is-a-very-large-field-that-could-be-used-for-storing-data-or-as-a-document-id-in-some-cases",
		},
		"HSetSmallValue": {
			MsgType: common.MsgTHSet,
			Key:     "rmap_k_repository",
			Field:   "key",
			Value:   []byte("v"),
		},
		"HSetLargeValue": {
			MsgType: common.MsgTHSet,
			Key:     "rmap_k_repository",
			Field:   "key",
			Value:   make([]byte, 1024), // 1KB of data
		},
		"HSetVeryLargeValue": {
			MsgType: common.MsgTHSet,
			Key:     "rmap_k_repository",
			Field:   "key",
			Value:   make([]byte, 1024*16), // 16KB of data
		},
		"HScanPage": {
			MsgType: common.MsgTHScan,
			Cursor:  1234567,
			Fields:  page,
		},
		"ExecPut": {
			MsgType: common.MsgTExec,
			Ops: []db.Op{
				db.HGetOp("rmap_k_repository", "key"),
				db.HSetOp("rmap_k_repository", "key", []byte("value")),
			},
		},
		"ExecPutResponse": {
			MsgType: common.MsgTExec,
			Results: []db.OpResult{{Value: []byte("old value"), Ok: true}, {Ok: true}},
		},
		"ErrorMessage": {
			MsgType: common.MsgTError,
			Err:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()
	serializedData := make(map[string]map[string][]byte)

	// Pre-serialize all messages with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	// Benchmark deserialization
	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					err := serializer.Deserialize(data, &msg)
					if err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				// Minimal loop to satisfy benchmark requirements
				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
