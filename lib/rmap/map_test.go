package rmap

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/store"
	"sync"
	"testing"
)

func TestPutGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s)

		prev, existed, err := m.Put("key", "value")
		if err != nil || existed || prev != "" {
			t.Fatalf("first Put: prev=%q existed=%v err=%v", prev, existed, err)
		}
		prev, existed, err = m.Put("key", "new")
		if err != nil || !existed || prev != "value" {
			t.Fatalf("second Put: prev=%q existed=%v err=%v", prev, existed, err)
		}

		value, ok, err := m.Get("key")
		if err != nil || !ok || value != "new" {
			t.Fatalf("Get: value=%q ok=%v err=%v", value, ok, err)
		}
		if _, ok, _ := m.Get("missing"); ok {
			t.Errorf("Get of missing key reported ok")
		}

		// empty values are values
		mustPut(t, m, "empty", "")
		value, ok, err = m.Get("empty")
		if err != nil || !ok || value != "" {
			t.Errorf("Get of empty value: value=%q ok=%v err=%v", value, ok, err)
		}
	})
}

func TestSize(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s)

		if empty, err := m.IsEmpty(); err != nil || !empty {
			t.Fatalf("new map is not empty: %v %v", empty, err)
		}
		for i := 1; i <= 5; i++ {
			mustPut(t, m, fmt.Sprintf("k%d", i), "v")
			if n, err := m.Size(); err != nil || n != i {
				t.Fatalf("Size after %d puts: n=%d err=%v", i, n, err)
			}
		}
		// overwriting does not change the size
		mustPut(t, m, "k1", "other")
		if n, _ := m.Size(); n != 5 {
			t.Errorf("Size after overwrite: %d", n)
		}
	})
}

func TestRemove(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s)

		if _, existed, err := m.Remove("key"); err != nil || existed {
			t.Fatalf("Remove on empty map: existed=%v err=%v", existed, err)
		}
		mustPut(t, m, "key", "value")
		prev, existed, err := m.Remove("key")
		if err != nil || !existed || prev != "value" {
			t.Fatalf("Remove: prev=%q existed=%v err=%v", prev, existed, err)
		}
		if _, ok, _ := m.Get("key"); ok {
			t.Errorf("key still present after Remove")
		}
	})
}

func TestClear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s)
		mustPut(t, m, "a", "1")
		mustPut(t, m, "b", "2")

		if err := m.Clear(); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		if empty, _ := m.IsEmpty(); !empty {
			t.Errorf("map not empty after Clear")
		}
		if _, ok, _ := m.Get("a"); ok {
			t.Errorf("key still present after Clear")
		}
	})
}

func TestPutAll(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s)

		if err := m.PutAll(Entries{"a": "1", "b": "2", "c": ""}); err != nil {
			t.Fatalf("PutAll failed: %v", err)
		}
		if n, _ := m.Size(); n != 3 {
			t.Fatalf("expected 3 entries, got %d", n)
		}

		// nothing is written if one key is invalid
		err := m.PutAll(Entries{"d": "4", "": "invalid"})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if ok, _ := m.ContainsKey("d"); ok {
			t.Errorf("PutAll was partially applied")
		}

		if err := m.PutAll(Entries{}); err != nil {
			t.Errorf("PutAll of empty entries failed: %v", err)
		}

		// another handle as source
		other := openMap(t, s)
		if err := other.PutAll(m); err != nil {
			t.Fatalf("PutAll from map failed: %v", err)
		}
		if equal, err := other.Equal(m); err != nil || !equal {
			t.Errorf("copy is not equal: %v %v", equal, err)
		}
	})
}

func TestInvalidArguments(t *testing.T) {
	m := openMap(t, newLocalStore(t))

	calls := map[string]func() error{
		"Get":         func() error { _, _, err := m.Get(""); return err },
		"ContainsKey": func() error { _, err := m.ContainsKey(""); return err },
		"Put":         func() error { _, _, err := m.Put("", "v"); return err },
		"Remove":      func() error { _, _, err := m.Remove(""); return err },
		"PutIfAbsent": func() error { _, _, err := m.PutIfAbsent("", "v"); return err },
		"Replace":     func() error { _, _, err := m.Replace("", "v"); return err },
		"KeysRemove":  func() error { _, err := m.Keys().Remove(""); return err },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: expected ErrInvalidArgument, got %v", name, err)
		}
	}
}

func TestSharedHandles(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		h1 := openMap(t, s, WithID("test"))
		h2 := openMap(t, s, WithID("test"))

		if h1.Namespace() != h2.Namespace() {
			t.Fatalf("namespaces differ: %+v %+v", h1.Namespace(), h2.Namespace())
		}
		mustPut(t, h1, "key", "value")
		if ok, err := h2.ContainsKey("key"); err != nil || !ok {
			t.Errorf("second handle does not see the entry: %v %v", ok, err)
		}
	})
}

func TestIsolatedHandles(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		h1 := openMap(t, s)
		h2 := openMap(t, s)

		if h1.ID() == h2.ID() {
			t.Fatalf("exclusive handles got the same id %s", h1.ID())
		}
		mustPut(t, h1, "key", "value")
		if ok, _ := h2.ContainsKey("key"); ok {
			t.Errorf("exclusive handles share data")
		}

		h3 := openMap(t, s, WithID("one"))
		h4 := openMap(t, s, WithID("two"))
		mustPut(t, h3, "key", "value")
		if ok, _ := h4.ContainsKey("key"); ok {
			t.Errorf("handles with different ids share data")
		}
	})
}

func TestEqualAndHashCode(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		h1 := openMap(t, s)
		h2 := openMap(t, s)
		mustPut(t, h1, "key", "value")
		mustPut(t, h2, "key", "value")

		if equal, err := h1.Equal(h2); err != nil || !equal {
			t.Fatalf("handles with equal entries are not equal: %v %v", equal, err)
		}
		c1, err1 := h1.HashCode()
		c2, err2 := h2.HashCode()
		if err1 != nil || err2 != nil || c1 != c2 {
			t.Fatalf("hash codes differ: %d %d (%v %v)", c1, c2, err1, err2)
		}
		if equal, _ := h1.Equal(Entries{"key": "value"}); !equal {
			t.Errorf("map is not equal to a plain map with the same entries")
		}

		mustPut(t, h2, "other", "x")
		if equal, _ := h1.Equal(h2); equal {
			t.Errorf("handles with different entries are equal")
		}

		empty := openMap(t, s)
		if c, err := empty.HashCode(); err != nil || c != 0 {
			t.Errorf("hash code of empty map: %d %v", c, err)
		}
	})
}

func TestHashCodeIsOrderIndependent(t *testing.T) {
	a := hashEntries(map[string]string{"a": "1", "b": "2"})
	b := hashEntries(map[string]string{"b": "2", "a": "1"})
	if a != b {
		t.Errorf("hash depends on order: %d %d", a, b)
	}
	if a == hashEntries(map[string]string{"a": "2", "b": "1"}) {
		t.Errorf("swapped values produced the same hash")
	}
}

func TestConcurrentPut(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		const writers, rounds = 16, 20
		handles := make([]*Map, writers)
		for i := range handles {
			handles[i] = openMap(t, s, WithID("race"))
		}

		var mu sync.Mutex
		previous := make(map[string]int)
		absent := 0

		var wg sync.WaitGroup
		for i, h := range handles {
			wg.Add(1)
			go func(i int, h *Map) {
				defer wg.Done()
				for r := 0; r < rounds; r++ {
					prev, existed, err := h.Put("key", fmt.Sprintf("%d-%d", i, r))
					if err != nil {
						t.Errorf("Put failed: %v", err)
						return
					}
					mu.Lock()
					if existed {
						previous[prev]++
					} else {
						absent++
					}
					mu.Unlock()
				}
			}(i, h)
		}
		wg.Wait()

		// every written value is returned as previous value at most once
		if absent != 1 {
			t.Errorf("expected one Put without previous value, got %d", absent)
		}
		for v, n := range previous {
			if n > 1 {
				t.Errorf("value %s was overwritten %d times", v, n)
			}
		}
		if len(previous) != writers*rounds-1 {
			t.Errorf("lost updates: %d distinct previous values", len(previous))
		}
	})
}

func TestNilMapping(t *testing.T) {
	m := openMap(t, newLocalStore(t))
	mustPut(t, m, "key", "value")

	var nilMap *Map
	for _, src := range []Snapshotter{nil, nilMap} {
		if err := m.PutAll(src); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("PutAll(%v): expected invalid argument, got %v", src, err)
		}
		if equal, err := m.Equal(src); !errors.Is(err, ErrInvalidArgument) || equal {
			t.Errorf("Equal(%v): expected invalid argument, got %v %v", src, equal, err)
		}
	}
	if n, _ := m.Size(); n != 1 {
		t.Errorf("nil source changed the map: %d entries", n)
	}
}
