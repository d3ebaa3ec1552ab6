package rmap

import (
	"errors"
	"github.com/ValentinKolb/rmap/lib/store"
	"strconv"
	"sync"
	"testing"
)

// assertGone checks with direct store reads that the namespace was deleted
func assertGone(t *testing.T, s store.IStore, ns Namespace) {
	t.Helper()
	if n, err := s.HLen(ns.DataKey); err != nil || n != 0 {
		t.Errorf("data key %s still holds %d fields (err=%v)", ns.DataKey, n, err)
	}
	if ns.RefCountKey != "" {
		if _, ok, err := s.Get(ns.RefCountKey); err != nil || ok {
			t.Errorf("counter %s still exists (err=%v)", ns.RefCountKey, err)
		}
	}
}

func refCount(t *testing.T, s store.IStore, ns Namespace) string {
	t.Helper()
	v, _, err := s.Get(ns.RefCountKey)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", ns.RefCountKey, err)
	}
	return string(v)
}

func TestNamespace(t *testing.T) {
	ns := NewNamespace("test", true)
	if ns.DataKey != "rmap_test_repository" || ns.RefCountKey != "rmap_test_connectionCount" || !ns.Shared {
		t.Errorf("unexpected shared namespace %+v", ns)
	}
	ns = NewNamespace("test", false)
	if ns.RefCountKey != "" || ns.Shared {
		t.Errorf("exclusive namespace has a counter: %+v", ns)
	}
	if NewNamespace("x", true) != NewNamespace("x", true) {
		t.Errorf("equal ids resolved to different namespaces")
	}
}

func TestSharedLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		h1, err := New(s, WithID("test"))
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		h2, err := New(s, WithID("test"))
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		ns := h1.Namespace()
		if h1.Mode() != ModeShared {
			t.Fatalf("expected shared mode, got %s", h1.Mode())
		}
		if c := refCount(t, s, ns); c != "2" {
			t.Fatalf("expected 2 references, got %s", c)
		}

		mustPut(t, h1, "key", "value")
		if err := h1.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		// the data survives while the second handle is open
		if v, ok, err := h2.Get("key"); err != nil || !ok || v != "value" {
			t.Fatalf("data lost after first Close: %q %v %v", v, ok, err)
		}
		if c := refCount(t, s, ns); c != "1" {
			t.Fatalf("expected 1 reference, got %s", c)
		}

		if err := h2.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		assertGone(t, s, ns)
	})
}

func TestExclusiveLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		m, err := New(s)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if m.Mode() != ModeExclusive || m.Namespace().RefCountKey != "" {
			t.Fatalf("unexpected exclusive handle: %s %+v", m.Mode(), m.Namespace())
		}
		mustPut(t, m, "key", "value")
		if err := m.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		assertGone(t, s, m.Namespace())
	})
}

func TestAttachedLifecycle(t *testing.T) {
	s := newLocalStore(t)
	owner := openMap(t, s, WithID("shared"))
	mustPut(t, owner, "key", "value")

	attached, err := New(s, WithID("shared"), WithAttach())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if attached.Mode() != ModeAttached {
		t.Fatalf("expected attached mode, got %s", attached.Mode())
	}
	if c := refCount(t, s, owner.Namespace()); c != "1" {
		t.Errorf("attaching changed the reference count to %s", c)
	}
	if err := attached.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if v, _, _ := owner.Get("key"); v != "value" {
		t.Errorf("closing an attached handle deleted data")
	}

	if _, err := New(s, WithAttach()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for attach without id, got %v", err)
	}
}

func TestCloseTwice(t *testing.T) {
	s := newLocalStore(t)
	h1 := openMap(t, s, WithID("twice"))
	h2, _ := New(s, WithID("twice"))

	if err := h2.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := h2.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	// the second Close must not release the reference of h1
	if c := refCount(t, s, h1.Namespace()); c != "1" {
		t.Errorf("expected 1 reference, got %s", c)
	}
}

func TestClosedHandle(t *testing.T) {
	m, _ := New(newLocalStore(t))
	_ = m.Close()

	calls := map[string]func() error{
		"Size":     func() error { _, err := m.Size(); return err },
		"Get":      func() error { _, _, err := m.Get("k"); return err },
		"Put":      func() error { _, _, err := m.Put("k", "v"); return err },
		"Remove":   func() error { _, _, err := m.Remove("k"); return err },
		"PutAll":   func() error { return m.PutAll(Entries{"k": "v"}) },
		"Clear":    func() error { return m.Clear() },
		"Snapshot": func() error { _, err := m.Snapshot(); return err },
		"Keys":     func() error { _, err := m.Keys().Len(); return err },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrClosed) {
			t.Errorf("%s: expected ErrClosed, got %v", name, err)
		}
	}
}

func TestNegativeReferenceCount(t *testing.T) {
	s := newLocalStore(t)
	m, _ := New(s, WithID("negative"))
	mustPut(t, m, "key", "value")

	// someone else released a reference they never held
	if _, err := s.Decr(m.Namespace().RefCountKey); err != nil {
		t.Fatalf("Decr failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	assertGone(t, s, m.Namespace())
}

func TestRacingLastRelease(t *testing.T) {
	s := newLocalStore(t)
	h1, _ := New(s, WithID("race"))
	h2, _ := New(s, WithID("race"))
	ns := h1.Namespace()

	// h2 is released twice through the counter, so both handles see a count <= 0
	if _, err := s.Decr(ns.RefCountKey); err != nil {
		t.Fatalf("Decr failed: %v", err)
	}
	if err := h1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := h2.Close(); err != nil {
		t.Fatalf("Close of already deleted namespace failed: %v", err)
	}
	assertGone(t, s, ns)
}

func TestCleanupErrors(t *testing.T) {
	fs := &failingStore{IStore: newLocalStore(t)}
	conn := &closer{err: errors.New("connection reset")}

	m, err := newMap(fs, conn, func() options {
		o := defaultOptions()
		o.id = "broken"
		return o
	}())
	if err != nil {
		t.Fatalf("newMap failed: %v", err)
	}

	err = m.Close()
	if !errors.Is(err, errUnavailable) || !errors.Is(err, conn.err) {
		t.Fatalf("expected joined store and connection errors, got %v", err)
	}
	if conn.calls != 1 {
		t.Errorf("connection closed %d times", conn.calls)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
	if conn.calls != 1 {
		t.Errorf("connection closed again by second Close")
	}
}

func TestConcurrentSharedHandles(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.IStore) {
		const handles = 40

		opened := make([]*Map, handles)
		var wg sync.WaitGroup
		for i := range opened {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m, err := New(s, WithID("crowd"))
				if err != nil {
					t.Errorf("New failed: %v", err)
					return
				}
				opened[i] = m
				if _, _, err := m.Put(strconv.Itoa(i), "v"); err != nil {
					t.Errorf("Put failed: %v", err)
				}
			}(i)
		}
		wg.Wait()
		if t.Failed() {
			return
		}

		ns := opened[0].Namespace()
		if c := refCount(t, s, ns); c != strconv.Itoa(handles) {
			t.Fatalf("expected %d references, got %s", handles, c)
		}
		if n, err := opened[0].Size(); err != nil || n != handles {
			t.Fatalf("expected %d entries, got %d (err=%v)", handles, n, err)
		}

		for _, m := range opened {
			wg.Add(1)
			go func(m *Map) {
				defer wg.Done()
				if err := m.Close(); err != nil {
					t.Errorf("Close failed: %v", err)
				}
			}(m)
		}
		wg.Wait()
		assertGone(t, s, ns)
	})
}
