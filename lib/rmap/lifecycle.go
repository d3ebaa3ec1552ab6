package rmap

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/store"
	"io"
	"sync"
)

// Mode is the lifetime mode of a handle
type Mode int

const (
	// ModeExclusive handles own their namespace and delete it on Close
	ModeExclusive Mode = iota
	// ModeShared handles are reference counted, the last one to close deletes the namespace
	ModeShared
	// ModeAttached handles use a shared namespace without counting and never delete it
	ModeAttached
)

// String returns the name of the mode
func (m Mode) String() string {
	switch m {
	case ModeExclusive:
		return "exclusive"
	case ModeShared:
		return "shared"
	case ModeAttached:
		return "attached"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// lifecycle acquires and releases the remote resources of one handle
type lifecycle struct {
	store store.IStore
	conn  io.Closer // closed on release, may be nil
	mode  Mode
	ns    Namespace

	once sync.Once
}

// acquire registers the handle. Shared handles increment the reference count.
func (l *lifecycle) acquire() error {
	if l.mode != ModeShared {
		return nil
	}
	n, err := l.store.Incr(l.ns.RefCountKey)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", l.ns.RefCountKey, err)
	}
	Logger.Debugf("acquired %s (%d handles)", l.ns.DataKey, n)
	return nil
}

// release runs at most once. A later call returns nil.
//
// Deleting keys that are already gone is a no-op in the store,
// so handles racing to release the last reference both succeed.
func (l *lifecycle) release() error {
	var errs []error

	l.once.Do(func() {
		switch l.mode {
		case ModeExclusive:
			if err := l.store.Delete(l.ns.DataKey); err != nil {
				errs = append(errs, fmt.Errorf("delete %s: %w", l.ns.DataKey, err))
			}

		case ModeShared:
			n, err := l.store.Decr(l.ns.RefCountKey)
			if err != nil {
				errs = append(errs, fmt.Errorf("release %s: %w", l.ns.RefCountKey, err))
				break
			}
			if n < 0 {
				Logger.Warningf("reference count %s dropped to %d, a handle was released more often than acquired", l.ns.RefCountKey, n)
			}
			if n <= 0 {
				if err := l.store.Delete(l.ns.RefCountKey); err != nil {
					errs = append(errs, fmt.Errorf("delete %s: %w", l.ns.RefCountKey, err))
				}
				if err := l.store.Delete(l.ns.DataKey); err != nil {
					errs = append(errs, fmt.Errorf("delete %s: %w", l.ns.DataKey, err))
				}
				Logger.Debugf("deleted %s, no handles left", l.ns.DataKey)
			} else {
				Logger.Debugf("released %s (%d handles left)", l.ns.DataKey, n)
			}
		}

		if l.conn != nil {
			if err := l.conn.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close connection: %w", err))
			}
		}

		for _, err := range errs {
			Logger.Errorf("cleanup of %s: %v", l.ns.DataKey, err)
		}
	})

	return errors.Join(errs...)
}
