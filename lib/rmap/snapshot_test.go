package rmap

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/store"
	"testing"
)

func TestSnapshotIsolation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s)
		mustPut(t, m, "a", "1")
		mustPut(t, m, "b", "2")

		entries, err := m.Entries().Slice()
		if err != nil {
			t.Fatalf("Slice failed: %v", err)
		}

		mustPut(t, m, "c", "3")
		if _, _, err := m.Remove("a"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}

		if len(entries) != 2 || entries[0].Key() != "a" || entries[1].Key() != "b" {
			t.Errorf("snapshot changed after mutation: %v", entries)
		}
	})
}

func TestLargeSnapshot(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s, WithScanOptions(ScanOptions{PageSize: 16}))
		want := Entries{}
		for i := 0; i < 300; i++ {
			want[fmt.Sprintf("key-%03d", i)] = fmt.Sprintf("value-%d", i)
		}
		if err := m.PutAll(want); err != nil {
			t.Fatalf("PutAll failed: %v", err)
		}

		if equal, err := m.Equal(want); err != nil || !equal {
			t.Fatalf("snapshot differs from written entries: %v", err)
		}

		keys, err := m.Keys().Slice()
		if err != nil {
			t.Fatalf("Slice failed: %v", err)
		}
		for i := 1; i < len(keys); i++ {
			if keys[i-1] >= keys[i] {
				t.Fatalf("keys are not sorted at %d: %s %s", i, keys[i-1], keys[i])
			}
		}
	})
}

func TestScanCap(t *testing.T) {
	m := openMap(t, loopingStore{newLocalStore(t)}, WithScanOptions(ScanOptions{PageSize: 10, MaxPages: 50}))

	if _, err := m.Snapshot(); !errors.Is(err, ErrScanNotTerminated) {
		t.Fatalf("expected ErrScanNotTerminated, got %v", err)
	}
	if _, err := m.Iter(); !errors.Is(err, ErrScanNotTerminated) {
		t.Errorf("expected ErrScanNotTerminated from Iter, got %v", err)
	}
}

func TestScanDeduplicates(t *testing.T) {
	m := openMap(t, repeatingStore{newLocalStore(t)})

	snapshot, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	want := map[string]string{"a": "1", "b": "new", "c": "3"}
	if len(snapshot) != len(want) {
		t.Fatalf("expected %v, got %v", want, snapshot)
	}
	for k, v := range want {
		if snapshot[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, snapshot[k])
		}
	}
}

func TestIterator(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s)
		if err := m.PutAll(Entries{"a": "1", "b": "2", "c": "3"}); err != nil {
			t.Fatalf("PutAll failed: %v", err)
		}

		it, err := m.Iter()
		if err != nil {
			t.Fatalf("Iter failed: %v", err)
		}
		if err := it.Remove(); !errors.Is(err, ErrNoCurrentEntry) {
			t.Errorf("expected ErrNoCurrentEntry before Next, got %v", err)
		}

		var seen []string
		for it.Next() {
			seen = append(seen, it.Key()+"="+it.Value())
			if it.Key() == "b" {
				if err := it.Remove(); err != nil {
					t.Fatalf("Remove failed: %v", err)
				}
				if err := it.Remove(); !errors.Is(err, ErrNoCurrentEntry) {
					t.Errorf("expected ErrNoCurrentEntry after Remove, got %v", err)
				}
			}
		}
		if fmt.Sprint(seen) != "[a=1 b=2 c=3]" {
			t.Errorf("unexpected iteration order: %v", seen)
		}
		if it.Len() != 2 {
			t.Errorf("expected 2 entries left in the snapshot, got %d", it.Len())
		}
		if ok, _ := m.ContainsKey("b"); ok {
			t.Errorf("Iterator.Remove did not delete the field")
		}
	})
}

func TestEntrySetValue(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s)
		mustPut(t, m, "key", "old")

		entries, err := m.Entries().Slice()
		if err != nil || len(entries) != 1 {
			t.Fatalf("Slice: %v %v", entries, err)
		}
		prev, err := entries[0].SetValue("new")
		if err != nil || prev != "old" {
			t.Fatalf("SetValue: prev=%q err=%v", prev, err)
		}
		if entries[0].Value() != "new" {
			t.Errorf("local copy not updated: %q", entries[0].Value())
		}
		if v, _, _ := m.Get("key"); v != "new" {
			t.Errorf("value not written through: %q", v)
		}
	})
}
