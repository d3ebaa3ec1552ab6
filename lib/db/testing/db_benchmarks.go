package testing

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

// RunKVDBBenchmarks runs all benchmarks for a hash database implementation
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run("HSet", func(b *testing.B) {
		benchmarkHSet(b, factory())
	})

	b.Run("HSetExisting", func(b *testing.B) {
		benchmarkHSetExisting(b, factory())
	})

	b.Run("HGet", func(b *testing.B) {
		benchmarkHGet(b, factory())
	})

	b.Run("HDel", func(b *testing.B) {
		benchmarkHDel(b, factory())
	})

	b.Run("IncrBy", func(b *testing.B) {
		benchmarkIncrBy(b, factory())
	})

	b.Run("HScan", func(b *testing.B) {
		benchmarkHScan(b, factory())
	})

	b.Run("ExecSwap", func(b *testing.B) {
		benchmarkExecSwap(b, factory())
	})

	b.Run("SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory())
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for HSet operation, every write creates a new field
func benchmarkHSet(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHashWrite)

	var worker atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		id := worker.Add(1)
		counter := 0
		for pb.Next() {
			field := fmt.Sprintf("field-%d-%d", id, counter)
			value := []byte(fmt.Sprintf("value-%d", counter))
			database.HSet("bench-hash", field, value, 0)
			counter++
		}
	})
}

// Benchmark for HSet operation with existing fields spread over many hashes
func benchmarkHSetExisting(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHashWrite)

	// Prepare data
	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		database.HSet(fmt.Sprintf("hash-%d", i%100), fmt.Sprintf("field-%d", i), []byte("value"), 0)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			i := counter % numKeys
			database.HSet(fmt.Sprintf("hash-%d", i%100), fmt.Sprintf("field-%d", i), []byte("updated"), 0)
			counter++
		}
	})
}

// Parallel benchmarking for HGet operation
func benchmarkHGet(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHashWrite|db.FeatureHashRead)

	// Prepare data
	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		database.HSet(fmt.Sprintf("hash-%d", i%100), fmt.Sprintf("field-%d", i), []byte("value"), 0)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			i := counter % numKeys
			database.HGet(fmt.Sprintf("hash-%d", i%100), fmt.Sprintf("field-%d", i))
			counter++
		}
	})
}

// Parallel benchmarking for HDel operation
func benchmarkHDel(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHashWrite)

	numKeys := 100000
	if b.N < numKeys {
		numKeys = b.N
	}

	// Prepare data
	fields := make([]string, numKeys)
	for i := 0; i < numKeys; i++ {
		fields[i] = fmt.Sprintf("field-%d", i)
		database.HSet("bench-hash", fields[i], []byte("value"), 0)
	}

	// Counter for atomic access
	var counter int64

	// Reset timer since we were doing setup
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx := int(atomic.AddInt64(&counter, 1)-1) % numKeys
			database.HDel("bench-hash", fields[idx], 0)
		}
	})
}

// Benchmark for IncrBy on a few hot counters
func benchmarkIncrBy(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureCounter)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			database.IncrBy(fmt.Sprintf("counter-%d", counter%8), 1, 0)
			counter++
		}
	})
}

// Benchmark for a full HScan cycle over a hash with 10k fields
func benchmarkHScan(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHashWrite|db.FeatureHashScan)

	for i := 0; i < 10000; i++ {
		database.HSet("bench-hash", fmt.Sprintf("field-%d", i), []byte("value"), 0)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var cursor uint64
		for {
			next, _, _ := database.HScan("bench-hash", cursor, 100)
			if next == 0 {
				break
			}
			cursor = next
		}
	}
}

// Benchmark for the HGET+HSET transaction used for put with previous value
func benchmarkExecSwap(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureExec)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			field := fmt.Sprintf("field-%d", counter%1000)
			database.Exec([]db.Op{
				db.HGetOp("bench-hash", field),
				db.HSetOp("bench-hash", field, []byte("value")),
			}, 0)
			counter++
		}
	})
}

// Benchmark for Save and Load operations
// For these operations, parallelization is not meaningful as they typically
// lock the entire database
func benchmarkSaveLoad(b *testing.B, factory DBFactory) {

	database := factory()

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHashWrite|db.FeatureSave|db.FeatureLoad)

	// Create a database with some data
	numEntries := 10000
	for i := 0; i < numEntries; i++ {
		database.HSet(fmt.Sprintf("hash-%d", i%100), fmt.Sprintf("field-%d", i), []byte(fmt.Sprintf("value-%d", i)), 0)
	}

	b.Run("Save", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			var buf bytes.Buffer
			database.Save(&buf)
		}
	})

	// Prepare a data buffer for Load benchmark
	var loadBuf bytes.Buffer
	database.Save(&loadBuf)
	data := loadBuf.Bytes()

	b.Run("Load", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			loadDB := factory()
			loadDB.Load(bytes.NewReader(data))
			loadDB.Close()
		}
	})
}

// Benchmark for mixed usage patterns
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHashWrite|db.FeatureHashRead|db.FeatureExec)

	numFields := 10000
	for i := 0; i < numFields; i++ {
		database.HSet("mixed", fmt.Sprintf("field-%d", i), []byte("value"), 0)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

		for pb.Next() {
			field := fmt.Sprintf("field-%d", rnd.Intn(numFields))

			// 60% HGet, 25% HSet, 10% swap, 5% HDel
			switch p := rnd.Intn(100); {
			case p < 60:
				database.HGet("mixed", field)
			case p < 85:
				database.HSet("mixed", field, []byte(fmt.Sprintf("value-%d", counter)), 0)
			case p < 95:
				database.Exec([]db.Op{db.HGetOp("mixed", field), db.HSetOp("mixed", field, []byte("swapped"))}, 0)
			default:
				database.HDel("mixed", field, 0)
			}

			counter++
		}
	})
}
