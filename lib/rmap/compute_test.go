package rmap

import (
	"github.com/ValentinKolb/rmap/lib/store"
	"strconv"
	"testing"
)

func TestPutIfAbsent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s)

		if prev, existed, err := m.PutIfAbsent("key", "first"); err != nil || existed || prev != "" {
			t.Fatalf("first PutIfAbsent: prev=%q existed=%v err=%v", prev, existed, err)
		}
		if prev, existed, err := m.PutIfAbsent("key", "second"); err != nil || !existed || prev != "first" {
			t.Fatalf("second PutIfAbsent: prev=%q existed=%v err=%v", prev, existed, err)
		}
		if v, _, _ := m.Get("key"); v != "first" {
			t.Errorf("PutIfAbsent overwrote the value: %q", v)
		}
	})
}

func TestReplace(t *testing.T) {
	m := openMap(t, newLocalStore(t))

	if _, existed, err := m.Replace("key", "v"); err != nil || existed {
		t.Fatalf("Replace of missing key: existed=%v err=%v", existed, err)
	}
	if ok, _ := m.ContainsKey("key"); ok {
		t.Fatalf("Replace created a missing key")
	}

	mustPut(t, m, "key", "old")
	if prev, existed, err := m.Replace("key", "new"); err != nil || !existed || prev != "old" {
		t.Fatalf("Replace: prev=%q existed=%v err=%v", prev, existed, err)
	}

	if ok, _ := m.ReplaceIf("key", "old", "other"); ok {
		t.Errorf("ReplaceIf replaced a different value")
	}
	if ok, _ := m.ReplaceIf("key", "new", "newer"); !ok {
		t.Errorf("ReplaceIf did not replace")
	}
	if v, _, _ := m.Get("key"); v != "newer" {
		t.Errorf("unexpected value %q", v)
	}

	if ok, _ := m.RemoveIf("key", "new"); ok {
		t.Errorf("RemoveIf removed a different value")
	}
	if ok, _ := m.RemoveIf("key", "newer"); !ok {
		t.Errorf("RemoveIf did not remove")
	}
	if ok, _ := m.ContainsKey("key"); ok {
		t.Errorf("key still exists")
	}
}

func TestCompute(t *testing.T) {
	m := openMap(t, newLocalStore(t))

	incr := func(_ string, value string, exists bool) (string, bool) {
		n := 0
		if exists {
			n, _ = strconv.Atoi(value)
		}
		return strconv.Itoa(n + 1), true
	}
	for want := 1; want <= 3; want++ {
		v, ok, err := m.Compute("counter", incr)
		if err != nil || !ok || v != strconv.Itoa(want) {
			t.Fatalf("Compute: v=%q ok=%v err=%v", v, ok, err)
		}
	}

	// returning false removes the entry
	if _, ok, err := m.Compute("counter", func(string, string, bool) (string, bool) { return "", false }); err != nil || ok {
		t.Fatalf("Compute removal: ok=%v err=%v", ok, err)
	}
	if ok, _ := m.ContainsKey("counter"); ok {
		t.Errorf("Compute did not remove the entry")
	}
}

func TestComputeIfAbsentAndPresent(t *testing.T) {
	m := openMap(t, newLocalStore(t))
	calls := 0
	create := func(key string) (string, bool) {
		calls++
		return key + "-value", true
	}

	if v, ok, err := m.ComputeIfAbsent("a", create); err != nil || !ok || v != "a-value" {
		t.Fatalf("ComputeIfAbsent: v=%q ok=%v err=%v", v, ok, err)
	}
	if v, _, _ := m.ComputeIfAbsent("a", create); v != "a-value" || calls != 1 {
		t.Errorf("ComputeIfAbsent called fn for an existing key: v=%q calls=%d", v, calls)
	}
	if _, ok, _ := m.ComputeIfAbsent("b", func(string) (string, bool) { return "", false }); ok {
		t.Errorf("ComputeIfAbsent stored a rejected value")
	}

	upper := func(_ string, value string) (string, bool) { return value + "!", true }
	if _, ok, _ := m.ComputeIfPresent("missing", upper); ok {
		t.Errorf("ComputeIfPresent created a missing key")
	}
	if v, ok, _ := m.ComputeIfPresent("a", upper); !ok || v != "a-value!" {
		t.Errorf("ComputeIfPresent: v=%q ok=%v", v, ok)
	}
	if _, ok, _ := m.ComputeIfPresent("a", func(string, string) (string, bool) { return "", false }); ok {
		t.Errorf("ComputeIfPresent did not remove")
	}
	if ok, _ := m.ContainsKey("a"); ok {
		t.Errorf("key still exists")
	}
}

func TestMerge(t *testing.T) {
	m := openMap(t, newLocalStore(t))
	concat := func(current, value string) (string, bool) { return current + "," + value, true }

	if v, _, _ := m.Merge("k", "a", concat); v != "a" {
		t.Fatalf("Merge of missing key: %q", v)
	}
	if v, _, _ := m.Merge("k", "b", concat); v != "a,b" {
		t.Fatalf("Merge of existing key: %q", v)
	}
	if _, ok, _ := m.Merge("k", "c", func(string, string) (string, bool) { return "", false }); ok {
		t.Fatalf("Merge did not remove")
	}
	if ok, _ := m.ContainsKey("k"); ok {
		t.Errorf("key still exists")
	}
}

func TestContainsValue(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m := openMap(t, s)
		mustPut(t, m, "a", "x")
		if ok, err := m.ContainsValue("x"); err != nil || !ok {
			t.Errorf("ContainsValue(x): %v %v", ok, err)
		}
		if ok, _ := m.ContainsValue("y"); ok {
			t.Errorf("ContainsValue(y) reported true")
		}
	})
}
