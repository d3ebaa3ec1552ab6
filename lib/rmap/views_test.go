package rmap

import (
	"fmt"
	"github.com/ValentinKolb/rmap/lib/store"
	"testing"
)

func TestViews(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s)
		if err := m.PutAll(Entries{"a": "1", "b": "2", "c": "2"}); err != nil {
			t.Fatalf("PutAll failed: %v", err)
		}

		if m.Keys() != m.Keys() || m.Values() != m.Values() || m.Entries() != m.Entries() {
			t.Fatalf("views are not cached")
		}

		for _, lenFn := range []func() (int, error){m.Keys().Len, m.Values().Len, m.Entries().Len} {
			if n, err := lenFn(); err != nil || n != 3 {
				t.Errorf("Len: %d %v", n, err)
			}
		}

		keys, _ := m.Keys().Slice()
		values, _ := m.Values().Slice()
		if fmt.Sprint(keys) != "[a b c]" || fmt.Sprint(values) != "[1 2 2]" {
			t.Errorf("unexpected views: %v %v", keys, values)
		}

		if ok, _ := m.Keys().Contains("a"); !ok {
			t.Errorf("key set does not contain a")
		}
		if ok, _ := m.Values().Contains("2"); !ok {
			t.Errorf("values do not contain 2")
		}
		if ok, _ := m.Entries().Contains("a", "2"); ok {
			t.Errorf("entry set contains a=2")
		}

		// values remove the entry with the smallest key
		if ok, err := m.Values().Remove("2"); err != nil || !ok {
			t.Fatalf("Values.Remove: %v %v", ok, err)
		}
		if ok, _ := m.ContainsKey("b"); ok {
			t.Errorf("b should have been removed")
		}

		if ok, _ := m.Entries().Remove("c", "wrong"); ok {
			t.Errorf("EntrySet.Remove removed an entry with a different value")
		}
		if ok, _ := m.Entries().Remove("c", "2"); !ok {
			t.Errorf("EntrySet.Remove did not remove c")
		}

		if ok, _ := m.Keys().Remove("a"); !ok {
			t.Errorf("KeySet.Remove did not remove a")
		}
		if ok, _ := m.Keys().Remove("a"); ok {
			t.Errorf("second KeySet.Remove reported a removal")
		}
		if empty, _ := m.IsEmpty(); !empty {
			t.Errorf("map should be empty")
		}
	})
}
