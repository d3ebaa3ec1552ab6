package testing

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/store"
	"sync"
	"testing"
)

// StoreFactory creates a new, empty store for one test. Cleanup is registered on t.
type StoreFactory func(t *testing.T) store.IStore

// RunIStoreTests runs the conformance tests every store.IStore implementation has to pass
func RunIStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Hash", func(t *testing.T) {
			testHash(t, factory(t))
		})
		t.Run("HSetNX", func(t *testing.T) {
			testHSetNX(t, factory(t))
		})
		t.Run("HSetMulti", func(t *testing.T) {
			testHSetMulti(t, factory(t))
		})
		t.Run("HScan", func(t *testing.T) {
			testHScan(t, factory(t))
		})
		t.Run("Counter", func(t *testing.T) {
			testCounter(t, factory(t))
		})
		t.Run("Exec", func(t *testing.T) {
			testExec(t, factory(t))
		})
		t.Run("ConcurrentExec", func(t *testing.T) {
			testConcurrentExec(t, factory(t))
		})
		t.Run("WrongType", func(t *testing.T) {
			testWrongType(t, factory(t))
		})
		t.Run("GetDBInfo", func(t *testing.T) {
			testGetDBInfo(t, factory(t))
		})
	})
}

func testHash(t *testing.T, s store.IStore) {
	const key = "hash"

	if _, ok, err := s.HGet(key, "f"); err != nil || ok {
		t.Fatalf("HGet on missing hash: ok=%v err=%v", ok, err)
	}
	if n, err := s.HLen(key); err != nil || n != 0 {
		t.Fatalf("HLen on missing hash: n=%d err=%v", n, err)
	}

	if err := s.HSet(key, "f", []byte("v1")); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	if err := s.HSet(key, "empty", []byte{}); err != nil {
		t.Fatalf("HSet with empty value failed: %v", err)
	}

	value, ok, err := s.HGet(key, "f")
	if err != nil || !ok || !bytes.Equal(value, []byte("v1")) {
		t.Fatalf("HGet: value=%q ok=%v err=%v", value, ok, err)
	}
	value, ok, err = s.HGet(key, "empty")
	if err != nil || !ok || len(value) != 0 {
		t.Fatalf("HGet of empty value: value=%q ok=%v err=%v", value, ok, err)
	}

	if ok, err := s.HExists(key, "f"); err != nil || !ok {
		t.Fatalf("HExists: ok=%v err=%v", ok, err)
	}
	if n, err := s.HLen(key); err != nil || n != 2 {
		t.Fatalf("HLen: n=%d err=%v", n, err)
	}

	if n, err := s.HDel(key, "f"); err != nil || n != 1 {
		t.Fatalf("HDel: n=%d err=%v", n, err)
	}
	if n, err := s.HDel(key, "f"); err != nil || n != 0 {
		t.Fatalf("second HDel: n=%d err=%v", n, err)
	}
	if ok, err := s.HExists(key, "f"); err != nil || ok {
		t.Fatalf("HExists after HDel: ok=%v err=%v", ok, err)
	}

	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n, err := s.HLen(key); err != nil || n != 0 {
		t.Fatalf("HLen after Delete: n=%d err=%v", n, err)
	}
	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}
}

func testHSetNX(t *testing.T, s store.IStore) {
	set, err := s.HSetNX("nx", "f", []byte("first"))
	if err != nil || !set {
		t.Fatalf("first HSetNX: set=%v err=%v", set, err)
	}
	set, err = s.HSetNX("nx", "f", []byte("second"))
	if err != nil || set {
		t.Fatalf("second HSetNX: set=%v err=%v", set, err)
	}
	value, _, _ := s.HGet("nx", "f")
	if string(value) != "first" {
		t.Errorf("HSetNX overwrote the value: %q", value)
	}
}

func testHSetMulti(t *testing.T, s store.IStore) {
	fields := make([]db.Field, 50)
	for i := range fields {
		fields[i] = db.Field{Name: fmt.Sprintf("f%d", i), Value: []byte(fmt.Sprintf("v%d", i))}
	}
	if err := s.HSetMulti("multi", fields); err != nil {
		t.Fatalf("HSetMulti failed: %v", err)
	}
	if n, err := s.HLen("multi"); err != nil || n != 50 {
		t.Fatalf("HLen: n=%d err=%v", n, err)
	}
	value, ok, _ := s.HGet("multi", "f42")
	if !ok || string(value) != "v42" {
		t.Errorf("HGet f42: %q ok=%v", value, ok)
	}

	if err := s.HSetMulti("multi", nil); err != nil {
		t.Fatalf("HSetMulti without fields failed: %v", err)
	}
}

func testHScan(t *testing.T, s store.IStore) {
	const total = 500
	fields := make([]db.Field, total)
	for i := range fields {
		fields[i] = db.Field{Name: fmt.Sprintf("key-%d", i), Value: []byte(fmt.Sprintf("value-%d", i))}
	}
	if err := s.HSetMulti("scan", fields); err != nil {
		t.Fatalf("HSetMulti failed: %v", err)
	}

	seen := make(map[string]string)
	var cursor uint64
	for pages := 0; ; pages++ {
		if pages > total {
			t.Fatalf("scan did not terminate")
		}
		next, page, err := s.HScan("scan", cursor, 37)
		if err != nil {
			t.Fatalf("HScan failed: %v", err)
		}
		for _, f := range page {
			seen[f.Name] = string(f.Value)
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	if len(seen) != total {
		t.Fatalf("expected %d fields, got %d", total, len(seen))
	}
	if seen["key-123"] != "value-123" {
		t.Errorf("unexpected value for key-123: %q", seen["key-123"])
	}

	next, page, err := s.HScan("missing", 0, 10)
	if err != nil || next != 0 || len(page) != 0 {
		t.Errorf("HScan on missing hash: next=%d page=%v err=%v", next, page, err)
	}
}

func testCounter(t *testing.T, s store.IStore) {
	if _, ok, err := s.Get("counter"); err != nil || ok {
		t.Fatalf("Get on missing counter: ok=%v err=%v", ok, err)
	}
	if n, err := s.Incr("counter"); err != nil || n != 1 {
		t.Fatalf("Incr: n=%d err=%v", n, err)
	}
	if n, err := s.Incr("counter"); err != nil || n != 2 {
		t.Fatalf("Incr: n=%d err=%v", n, err)
	}
	value, ok, err := s.Get("counter")
	if err != nil || !ok || string(value) != "2" {
		t.Fatalf("Get: value=%q ok=%v err=%v", value, ok, err)
	}
	for want := int64(1); want >= -1; want-- {
		if n, err := s.Decr("counter"); err != nil || n != want {
			t.Fatalf("Decr: n=%d want %d err=%v", n, want, err)
		}
	}

	// Parallel increments are not lost
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := s.Incr("parallel"); err != nil {
					t.Errorf("Incr failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if value, _, _ := s.Get("parallel"); string(value) != "200" {
		t.Errorf("expected 200 after parallel increments, got %q", value)
	}
}

func testExec(t *testing.T, s store.IStore) {
	results, err := s.Exec([]db.Op{
		db.HGetOp("tx", "k"),
		db.HSetOp("tx", "k", []byte("v1")),
	})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if len(results) != 2 || results[0].Ok {
		t.Fatalf("unexpected results of first put: %+v", results)
	}

	results, err = s.Exec([]db.Op{
		db.HGetOp("tx", "k"),
		db.HSetOp("tx", "k", []byte("v2")),
	})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if !results[0].Ok || string(results[0].Value) != "v1" {
		t.Fatalf("expected previous value v1, got %+v", results[0])
	}

	results, err = s.Exec([]db.Op{
		db.HGetOp("tx", "k"),
		db.HDelOp("tx", "k"),
	})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if !results[0].Ok || string(results[0].Value) != "v2" || results[1].Int != 1 {
		t.Fatalf("unexpected remove results: %+v", results)
	}
	if ok, _ := s.HExists("tx", "k"); ok {
		t.Errorf("field still exists after remove")
	}

	// read only transaction
	_ = s.HSet("tx", "a", []byte("1"))
	results, err = s.Exec([]db.Op{
		db.HExistsOp("tx", "a"),
		db.HExistsOp("tx", "k"),
		db.HLenOp("tx"),
	})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if !results[0].Ok || results[1].Ok || results[2].Int != 1 {
		t.Fatalf("unexpected read results: %+v", results)
	}

	if results, err := s.Exec(nil); err != nil || len(results) != 0 {
		t.Errorf("empty Exec: results=%v err=%v", results, err)
	}
}

// testConcurrentExec runs read-modify-write transactions in parallel. Every previous
// value must be observed by exactly one transaction.
func testConcurrentExec(t *testing.T, s store.IStore) {
	const workers, rounds = 8, 25

	var mu sync.Mutex
	seen := make(map[string]int)
	absent := 0

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				value := fmt.Sprintf("%d-%d", w, r)
				results, err := s.Exec([]db.Op{
					db.HGetOp("race", "k"),
					db.HSetOp("race", "k", []byte(value)),
				})
				if err != nil {
					t.Errorf("Exec failed: %v", err)
					return
				}
				mu.Lock()
				if results[0].Ok {
					seen[string(results[0].Value)]++
				} else {
					absent++
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	if absent != 1 {
		t.Errorf("expected exactly one transaction to see no previous value, got %d", absent)
	}
	for value, n := range seen {
		if n != 1 {
			t.Errorf("previous value %s observed %d times", value, n)
		}
	}
	if len(seen) != workers*rounds-1 {
		t.Errorf("expected %d distinct previous values, got %d", workers*rounds-1, len(seen))
	}
}

func testWrongType(t *testing.T, s store.IStore) {
	if _, err := s.Incr("typed"); err != nil {
		t.Fatalf("Incr failed: %v", err)
	}
	if err := s.HSet("typed", "f", []byte("v")); err == nil {
		t.Errorf("expected error for HSet on a counter")
	}
	if _, _, err := s.HGet("typed", "f"); err == nil {
		t.Errorf("expected error for HGet on a counter")
	}

	if err := s.HSet("hash", "f", []byte("v")); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	if _, err := s.Incr("hash"); err == nil {
		t.Errorf("expected error for Incr on a hash")
	}

	// A failing op inside a transaction is reported in its result only
	results, err := s.Exec([]db.Op{
		db.HSetOp("typed", "f", []byte("v")),
		db.HSetOp("other", "f", []byte("v")),
	})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if results[0].Err == "" || results[1].Err != "" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func testGetDBInfo(t *testing.T, s store.IStore) {
	_ = s.HSet("info", "f", []byte("v"))
	info, err := s.GetDBInfo()
	if err != nil {
		t.Fatalf("GetDBInfo failed: %v", err)
	}
	if info.DbType == "" {
		t.Errorf("expected a db type")
	}
	if len(info.SupportedFeatures) == 0 {
		t.Errorf("expected supported features")
	}
}
