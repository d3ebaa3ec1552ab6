package testing

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"sync"
	"testing"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("HSet&HGet", func(t *testing.T) {
			testHSetHGet(t, factory())
		})

		t.Run("HSetNX", func(t *testing.T) {
			testHSetNX(t, factory())
		})

		t.Run("HSetMulti", func(t *testing.T) {
			testHSetMulti(t, factory())
		})

		t.Run("HDel", func(t *testing.T) {
			testHDel(t, factory())
		})

		t.Run("Counter", func(t *testing.T) {
			testCounter(t, factory())
		})

		t.Run("WrongType", func(t *testing.T) {
			testWrongType(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("HScan", func(t *testing.T) {
			testHScan(t, factory())
		})

		t.Run("HScanConcurrentWrites", func(t *testing.T) {
			testHScanConcurrentWrites(t, factory())
		})

		t.Run("Exec", func(t *testing.T) {
			testExec(t, factory())
		})

		t.Run("ExecAtomicity", func(t *testing.T) {
			testExecAtomicity(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// scanAll runs a full HScan cycle and counts how often each field was returned
func scanAll(t testing.TB, database db.KVDB, key string, count int) map[string]int {
	seen := make(map[string]int)
	var cursor uint64
	for pages := 0; ; pages++ {
		if pages > 1_000_000 {
			t.Fatalf("HScan of %s did not terminate", key)
		}
		next, fields, err := database.HScan(key, cursor, count)
		if err != nil {
			t.Fatalf("HScan failed: %v", err)
		}
		for _, f := range fields {
			seen[f.Name]++
		}
		if next == 0 {
			return seen
		}
		cursor = next
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testHSetHGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureHashWrite|db.FeatureHashRead)

	key := "test-hash"
	field := "field"
	value1 := []byte("value1")
	value2 := []byte("value2")

	created, err := database.HSet(key, field, value1, 1)
	if err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	if !created {
		t.Errorf("Expected first HSet to create the field")
	}

	result, ok, err := database.HGet(key, field)
	if err != nil || !ok {
		t.Fatalf("Expected field to exist after HSet (ok=%v, err=%v)", ok, err)
	}
	if !bytes.Equal(result, value1) {
		t.Errorf("Expected value %s, got %s", value1, result)
	}

	created, err = database.HSet(key, field, value2, 2)
	if err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	if created {
		t.Errorf("Expected second HSet to overwrite, not create")
	}

	result, _, _ = database.HGet(key, field)
	if !bytes.Equal(result, value2) {
		t.Errorf("Expected value %s, got %s", value2, result)
	}

	// returned values are copies
	result[0] = 'X'
	original, _, _ := database.HGet(key, field)
	if !bytes.Equal(original, value2) {
		t.Errorf("HGet should return a copy, not a reference to the stored value")
	}

	if _, ok, err := database.HGet(key, "missing"); ok || err != nil {
		t.Errorf("Expected missing field to return ok=false, err=nil (ok=%v, err=%v)", ok, err)
	}
	if _, ok, err := database.HGet("missing-hash", field); ok || err != nil {
		t.Errorf("Expected missing hash to return ok=false, err=nil (ok=%v, err=%v)", ok, err)
	}

	if ok, _ := database.HExists(key, field); !ok {
		t.Errorf("Expected HExists to report the field")
	}
	if ok, _ := database.HExists(key, "missing"); ok {
		t.Errorf("Expected HExists to be false for a missing field")
	}
	if n, _ := database.HLen(key); n != 1 {
		t.Errorf("Expected HLen 1, got %d", n)
	}
	if n, _ := database.HLen("missing-hash"); n != 0 {
		t.Errorf("Expected HLen 0 for a missing hash, got %d", n)
	}
	if !database.Has(key) {
		t.Errorf("Expected Has to report the hash key")
	}
	if database.WriteIdx() < 2 {
		t.Errorf("Expected write index to be at least 2, got %d", database.WriteIdx())
	}
}

func testHSetNX(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureHashWrite|db.FeatureHashRead)

	set, err := database.HSetNX("h", "f", []byte("first"), 1)
	if err != nil || !set {
		t.Fatalf("Expected HSetNX on a missing field to store (set=%v, err=%v)", set, err)
	}

	set, err = database.HSetNX("h", "f", []byte("second"), 2)
	if err != nil || set {
		t.Fatalf("Expected HSetNX on an existing field to do nothing (set=%v, err=%v)", set, err)
	}

	value, _, _ := database.HGet("h", "f")
	if string(value) != "first" {
		t.Errorf("Expected value first, got %s", value)
	}
}

func testHSetMulti(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureHashWrite|db.FeatureHashRead)

	if _, err := database.HSet("h", "a", []byte("old"), 1); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}

	created, err := database.HSetMulti("h", []db.Field{
		{Name: "a", Value: []byte("1")},
		{Name: "b", Value: []byte("2")},
		{Name: "c", Value: []byte("3")},
	}, 2)
	if err != nil {
		t.Fatalf("HSetMulti failed: %v", err)
	}
	if created != 2 {
		t.Errorf("Expected 2 created fields, got %d", created)
	}

	for field, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		value, ok, _ := database.HGet("h", field)
		if !ok || string(value) != want {
			t.Errorf("Expected %s=%s, got %s (ok=%v)", field, want, value, ok)
		}
	}

	// an empty write doesn't create a key
	if created, err := database.HSetMulti("empty", nil, 3); err != nil || created != 0 {
		t.Errorf("Expected empty HSetMulti to be a no-op (created=%d, err=%v)", created, err)
	}
	if database.Has("empty") {
		t.Errorf("Expected empty HSetMulti not to create a key")
	}
}

func testHDel(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureHashWrite|db.FeatureHashRead)

	database.HSet("h", "a", []byte("1"), 1)
	database.HSet("h", "b", []byte("2"), 1)

	removed, err := database.HDel("h", "a", 2)
	if err != nil || removed != 1 {
		t.Fatalf("Expected HDel to remove one field (removed=%d, err=%v)", removed, err)
	}
	removed, _ = database.HDel("h", "a", 3)
	if removed != 0 {
		t.Errorf("Expected second HDel to remove nothing, removed %d", removed)
	}
	if ok, _ := database.HExists("h", "a"); ok {
		t.Errorf("Expected field a to be gone")
	}

	// removing the last field removes the hash
	database.HDel("h", "b", 4)
	if database.Has("h") {
		t.Errorf("Expected hash to vanish with its last field")
	}

	if removed, err := database.HDel("missing", "a", 5); removed != 0 || err != nil {
		t.Errorf("Expected HDel on missing hash to be a no-op (removed=%d, err=%v)", removed, err)
	}
}

func testCounter(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureCounter)

	value, err := database.IncrBy("c", 1, 1)
	if err != nil || value != 1 {
		t.Fatalf("Expected 1 after first IncrBy (value=%d, err=%v)", value, err)
	}
	value, _ = database.IncrBy("c", 5, 2)
	if value != 6 {
		t.Errorf("Expected 6, got %d", value)
	}
	value, _ = database.IncrBy("c", -10, 3)
	if value != -4 {
		t.Errorf("Expected -4, got %d", value)
	}

	raw, ok, err := database.Get("c")
	if err != nil || !ok || string(raw) != "-4" {
		t.Errorf("Expected raw counter -4, got %s (ok=%v, err=%v)", raw, ok, err)
	}

	if _, ok, _ := database.Get("missing"); ok {
		t.Errorf("Expected missing counter to return ok=false")
	}

	// decrementing a missing counter starts at 0
	value, _ = database.IncrBy("fresh", -1, 4)
	if value != -1 {
		t.Errorf("Expected -1, got %d", value)
	}

	// concurrent increments are not lost
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				database.IncrBy("parallel", 1, 5)
			}
		}()
	}
	wg.Wait()
	raw, _, _ = database.Get("parallel")
	if string(raw) != "1000" {
		t.Errorf("Expected 1000 after parallel increments, got %s", raw)
	}
}

func testWrongType(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureCounter|db.FeatureHashWrite|db.FeatureHashRead)

	database.HSet("hash", "f", []byte("v"), 1)
	database.IncrBy("counter", 1, 1)

	if _, err := database.IncrBy("hash", 1, 2); !errors.Is(err, db.ErrWrongType) {
		t.Errorf("Expected ErrWrongType for IncrBy on a hash, got %v", err)
	}
	if _, _, err := database.Get("hash"); !errors.Is(err, db.ErrWrongType) {
		t.Errorf("Expected ErrWrongType for Get on a hash, got %v", err)
	}
	if _, err := database.HSet("counter", "f", []byte("v"), 2); !errors.Is(err, db.ErrWrongType) {
		t.Errorf("Expected ErrWrongType for HSet on a counter, got %v", err)
	}
	if _, _, err := database.HGet("counter", "f"); !errors.Is(err, db.ErrWrongType) {
		t.Errorf("Expected ErrWrongType for HGet on a counter, got %v", err)
	}
	if _, _, err := database.HScan("counter", 0, 10); !errors.Is(err, db.ErrWrongType) {
		t.Errorf("Expected ErrWrongType for HScan on a counter, got %v", err)
	}

	// failed operations leave the data untouched
	raw, _, _ := database.Get("counter")
	if string(raw) != "1" {
		t.Errorf("Expected counter to stay 1, got %s", raw)
	}
	value, _, _ := database.HGet("hash", "f")
	if string(value) != "v" {
		t.Errorf("Expected hash field to stay v, got %s", value)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureDelete|db.FeatureHashWrite|db.FeatureCounter)

	database.HSet("h", "f", []byte("v"), 1)
	database.IncrBy("c", 1, 1)

	if !database.Delete("h", 2) {
		t.Errorf("Expected Delete to remove the hash")
	}
	if !database.Delete("c", 2) {
		t.Errorf("Expected Delete to remove the counter")
	}
	if database.Delete("h", 3) {
		t.Errorf("Expected second Delete to be a no-op")
	}
	if database.Has("h") || database.Has("c") {
		t.Errorf("Expected keys to be gone after Delete")
	}

	// a deleted hash can be recreated
	database.HSet("h", "g", []byte("w"), 4)
	if n, _ := database.HLen("h"); n != 1 {
		t.Errorf("Expected recreated hash to hold exactly one field, got %d", n)
	}
}

func testHScan(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureHashScan|db.FeatureHashWrite)

	// empty or missing hash
	next, fields, err := database.HScan("missing", 0, 10)
	if err != nil || next != 0 || len(fields) != 0 {
		t.Errorf("Expected empty scan of a missing hash (next=%d, fields=%d, err=%v)", next, len(fields), err)
	}

	numFields := 1000
	for i := 0; i < numFields; i++ {
		database.HSet("h", fmt.Sprintf("field-%d", i), []byte(fmt.Sprintf("value-%d", i)), uint64(i))
	}

	for _, count := range []int{1, 7, 100, 10_000} {
		seen := scanAll(t, database, "h", count)
		if len(seen) != numFields {
			t.Errorf("count=%d: expected %d distinct fields, got %d", count, numFields, len(seen))
		}
		for field, n := range seen {
			if n != 1 {
				t.Errorf("count=%d: field %s returned %d times", count, field, n)
			}
		}
	}

	// values are returned with their fields
	var cursor uint64
	for {
		next, fields, _ := database.HScan("h", cursor, 50)
		for _, f := range fields {
			var i int
			fmt.Sscanf(f.Name, "field-%d", &i)
			if string(f.Value) != fmt.Sprintf("value-%d", i) {
				t.Errorf("Expected value-%d for %s, got %s", i, f.Name, f.Value)
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
}

func testHScanConcurrentWrites(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureHashScan|db.FeatureHashWrite)

	stable := 500
	for i := 0; i < stable; i++ {
		database.HSet("h", fmt.Sprintf("stable-%d", i), []byte("v"), 1)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			field := fmt.Sprintf("volatile-%d", i%100)
			if i%2 == 0 {
				database.HSet("h", field, []byte("v"), 2)
			} else {
				database.HDel("h", field, 2)
			}
		}
	}()

	seen := scanAll(t, database, "h", 10)
	close(done)
	wg.Wait()

	for i := 0; i < stable; i++ {
		if seen[fmt.Sprintf("stable-%d", i)] == 0 {
			t.Errorf("Field stable-%d was not returned by a scan", i)
		}
	}
}

func testExec(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureExec)

	database.HSet("h", "f", []byte("old"), 1)
	database.IncrBy("c", 1, 1)

	results := database.Exec([]db.Op{
		db.HGetOp("h", "f"),
		db.HSetOp("h", "f", []byte("new")),
		db.IncrByOp("h", 1), // wrong type, must not abort the rest
		db.HSetNXOp("h", "g", []byte("g")),
		db.HLenOp("h"),
		db.IncrByOp("c", 2),
		db.HDelOp("h", "g"),
		db.GetOp("c"),
		db.DeleteOp("missing"),
		{Type: db.OpType(200)},
	}, 2)

	if len(results) != 10 {
		t.Fatalf("Expected 10 results, got %d", len(results))
	}
	if !results[0].Ok || string(results[0].Value) != "old" {
		t.Errorf("Expected HGET to see old, got %+v", results[0])
	}
	if results[1].Ok || results[1].Err != "" {
		t.Errorf("Expected HSET to overwrite, got %+v", results[1])
	}
	if results[2].Err == "" {
		t.Errorf("Expected INCRBY on a hash to fail")
	}
	if !results[3].Ok {
		t.Errorf("Expected HSETNX to store, got %+v", results[3])
	}
	if results[4].Int != 2 {
		t.Errorf("Expected HLEN 2, got %+v", results[4])
	}
	if results[5].Int != 3 {
		t.Errorf("Expected INCRBY to return 3, got %+v", results[5])
	}
	if !results[6].Ok || results[6].Int != 1 {
		t.Errorf("Expected HDEL to remove one field, got %+v", results[6])
	}
	if !results[7].Ok || string(results[7].Value) != "3" {
		t.Errorf("Expected GET 3, got %+v", results[7])
	}
	if results[8].Ok {
		t.Errorf("Expected DELETE of a missing key to report false")
	}
	if results[9].Err == "" {
		t.Errorf("Expected unknown op to fail")
	}

	value, _, _ := database.HGet("h", "f")
	if string(value) != "new" {
		t.Errorf("Expected new after Exec, got %s", value)
	}

	if results := database.Exec(nil, 3); len(results) != 0 {
		t.Errorf("Expected no results for an empty transaction")
	}
}

// testExecAtomicity swaps the value of one field from many goroutines with HGET+HSET transactions.
// If the transactions are atomic, every written value is observed as the previous value at most once
// and exactly one value (the last one) is never observed.
func testExecAtomicity(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureExec)

	numWorkers := 8
	perWorker := 200

	var (
		mu       sync.Mutex
		previous = make(map[string]int)
		absent   int
	)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				value := fmt.Sprintf("%d-%d", worker, i)
				results := database.Exec([]db.Op{
					db.HGetOp("h", "f"),
					db.HSetOp("h", "f", []byte(value)),
				}, 1)

				mu.Lock()
				if results[0].Ok {
					previous[string(results[0].Value)]++
				} else {
					absent++
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	if absent != 1 {
		t.Errorf("Expected exactly one transaction to see a missing field, got %d", absent)
	}
	for value, n := range previous {
		if n != 1 {
			t.Errorf("Value %s was observed %d times as previous value", value, n)
		}
	}
	if len(previous) != numWorkers*perWorker-1 {
		t.Errorf("Expected %d observed values, got %d", numWorkers*perWorker-1, len(previous))
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory()
	defer database.Close()

	requireFeature(t, database, db.FeatureSave|db.FeatureLoad)

	for i := 0; i < 100; i++ {
		database.HSet(fmt.Sprintf("hash-%d", i%10), fmt.Sprintf("field-%d", i), []byte(fmt.Sprintf("value-%d", i)), uint64(i))
	}
	database.IncrBy("counter", 42, 200)

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored := factory()
	defer restored.Close()

	// existing data is replaced by the snapshot
	restored.HSet("stale", "f", []byte("v"), 1)

	if err := restored.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if restored.Has("stale") {
		t.Errorf("Expected Load to replace existing data")
	}
	for i := 0; i < 100; i++ {
		value, ok, err := restored.HGet(fmt.Sprintf("hash-%d", i%10), fmt.Sprintf("field-%d", i))
		if err != nil || !ok || string(value) != fmt.Sprintf("value-%d", i) {
			t.Errorf("Field %d not restored (value=%s, ok=%v, err=%v)", i, value, ok, err)
		}
	}
	for i := 0; i < 10; i++ {
		if n, _ := restored.HLen(fmt.Sprintf("hash-%d", i)); n != 10 {
			t.Errorf("Expected 10 fields in hash-%d, got %d", i, n)
		}
	}
	raw, ok, _ := restored.Get("counter")
	if !ok || string(raw) != "42" {
		t.Errorf("Expected counter 42, got %s", raw)
	}
	if restored.WriteIdx() != 200 {
		t.Errorf("Expected write index 200 after load, got %d", restored.WriteIdx())
	}

	// scans work on restored data
	if seen := scanAll(t, restored, "hash-3", 3); len(seen) != 10 {
		t.Errorf("Expected 10 fields from scan of restored hash, got %d", len(seen))
	}

	if err := restored.Load(bytes.NewReader([]byte("garbage"))); err == nil {
		t.Errorf("Expected Load of garbage to fail")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureHashWrite|db.FeatureHashRead)

	// empty field names and values
	database.HSet("h", "", []byte("value for empty field"), 1)
	value, ok, _ := database.HGet("h", "")
	if !ok || string(value) != "value for empty field" {
		t.Errorf("Empty field not found after HSet")
	}

	database.HSet("h", "nil-value", nil, 1)
	value, ok, _ = database.HGet("h", "nil-value")
	if !ok {
		t.Errorf("Field with nil value not found after HSet")
	} else if len(value) != 0 {
		t.Errorf("Nil value resulted in non-empty value: %v", value)
	}

	// large field names and values
	largeField := string(make([]byte, 1000))
	largeValue := make([]byte, 10*1024*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}
	database.HSet("h", largeField, largeValue, 1)
	value, ok, _ = database.HGet("h", largeField)
	if !ok || !bytes.Equal(value, largeValue) {
		t.Errorf("Large field/value mismatch (ok=%v, len=%d)", ok, len(value))
	}

	// the same field name in two hashes is independent
	database.HSet("a", "f", []byte("a"), 1)
	database.HSet("b", "f", []byte("b"), 1)
	database.HDel("a", "f", 2)
	value, ok, _ = database.HGet("b", "f")
	if !ok || string(value) != "b" {
		t.Errorf("Deleting a field in one hash affected another hash")
	}
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureHashWrite|db.FeatureHashRead|db.FeatureExec)

	numWorkers := 8
	opsPerWorker := 1000

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()

			// each worker owns its fields, so the final state is known
			for i := 0; i < opsPerWorker; i++ {
				field := fmt.Sprintf("w%d-f%d", workerId, i%50)
				switch i % 10 {
				case 0, 1, 2, 3, 4, 5:
					database.HSet("shared", field, []byte(fmt.Sprintf("%d", i)), uint64(i))
				case 6, 7:
					database.HGet("shared", field)
				case 8:
					database.Exec([]db.Op{db.HGetOp("shared", field), db.HDelOp("shared", field)}, uint64(i))
				case 9:
					database.HScan("shared", 0, 10)
				}
			}
		}(w)
	}

	wg.Wait()

	// replay the ops of one worker sequentially to compute the expected state
	expected := make(map[string]string)
	for w := 0; w < numWorkers; w++ {
		for i := 0; i < opsPerWorker; i++ {
			field := fmt.Sprintf("w%d-f%d", w, i%50)
			switch i % 10 {
			case 0, 1, 2, 3, 4, 5:
				expected[field] = fmt.Sprintf("%d", i)
			case 8:
				delete(expected, field)
			}
		}
	}

	n, err := database.HLen("shared")
	if err != nil {
		t.Fatalf("HLen failed: %v", err)
	}
	if n != len(expected) {
		t.Errorf("Expected %d fields, got %d", len(expected), n)
	}
	for field, want := range expected {
		value, ok, _ := database.HGet("shared", field)
		if !ok || string(value) != want {
			t.Errorf("Expected %s=%s, got %s (ok=%v)", field, want, value, ok)
		}
	}
}
