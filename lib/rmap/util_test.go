package rmap

import (
	"errors"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/db/engines/maple"
	"github.com/ValentinKolb/rmap/lib/store"
	"github.com/ValentinKolb/rmap/lib/store/lstore"
	"github.com/ValentinKolb/rmap/rpc/client"
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/serializer"
	"github.com/ValentinKolb/rmap/rpc/server"
	"github.com/ValentinKolb/rmap/rpc/transport/inproc"
	"testing"
	"time"
)

// storeFactory returns a fresh store. All handles of one test share it.
type storeFactory func(t *testing.T) store.IStore

func newLocalStore(*testing.T) store.IStore {
	return lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) })
}

// startServer serves a local store on an in-process endpoint named after the test
func startServer(t *testing.T) string {
	t.Helper()
	endpoint := "rmap/" + t.Name()

	s := server.NewRPCServer(
		common.ServerConfig{Transport: common.ServerTransportConfig{Endpoint: endpoint}},
		inproc.NewInprocServerTransport(),
		serializer.NewBinarySerializer(),
	)
	s.RegisterStore(DefaultDB, newLocalStore(t))
	go func() { _ = s.Serve() }()
	t.Cleanup(func() { _ = s.Close() })

	// Wait until the endpoint accepts connections
	deadline := time.Now().Add(5 * time.Second)
	for {
		probe := inproc.NewInprocClientTransport()
		err := probe.Connect(common.ClientConfig{Transport: common.ClientTransportConfig{Endpoints: []string{endpoint}}})
		if err == nil {
			_ = probe.Close()
			return endpoint
		}
		if time.Now().After(deadline) {
			t.Fatalf("server on %s did not start: %v", endpoint, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func newRPCStore(t *testing.T) store.IStore {
	endpoint := startServer(t)
	s, err := client.NewRPCStore(
		DefaultDB,
		common.ClientConfig{
			TimeoutSecond: 5,
			Transport:     common.ClientTransportConfig{Endpoints: []string{endpoint}},
		},
		inproc.NewInprocClientTransport(),
		serializer.NewBinarySerializer(),
	)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var backends = map[string]storeFactory{
	"lstore": newLocalStore,
	"rpc":    newRPCStore,
}

// forEachBackend runs fn once per store backend
func forEachBackend(t *testing.T, fn func(t *testing.T, s store.IStore)) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

// openMap creates a handle on s which is closed at the end of the test
func openMap(t *testing.T, s store.IStore, opts ...Option) *Map {
	t.Helper()
	m, err := New(s, opts...)
	if err != nil {
		t.Fatalf("failed to create map: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func mustPut(t *testing.T, m *Map, key, value string) {
	t.Helper()
	if _, _, err := m.Put(key, value); err != nil {
		t.Fatalf("Put(%q) failed: %v", key, err)
	}
}

// --------------------------------------------------------------------------
// Misbehaving stores
// --------------------------------------------------------------------------

// loopingStore never finishes a scan
type loopingStore struct {
	store.IStore
}

func (s loopingStore) HScan(key string, cursor uint64, count int) (uint64, []db.Field, error) {
	return cursor + 1, []db.Field{{Name: "k", Value: []byte("v")}}, nil
}

// repeatingStore returns every field on two pages, the second time with a newer value
type repeatingStore struct {
	store.IStore
}

func (s repeatingStore) HScan(key string, cursor uint64, count int) (uint64, []db.Field, error) {
	switch cursor {
	case 0:
		return 7, []db.Field{{Name: "a", Value: []byte("1")}, {Name: "b", Value: []byte("old")}}, nil
	default:
		return 0, []db.Field{{Name: "b", Value: []byte("new")}, {Name: "c", Value: []byte("3")}}, nil
	}
}

var errUnavailable = errors.New("store unavailable")

// failingStore fails every counter and delete call
type failingStore struct {
	store.IStore
}

func (s *failingStore) Decr(string) (int64, error) { return 0, errUnavailable }
func (s *failingStore) Delete(string) error        { return errUnavailable }

// closer counts Close calls
type closer struct {
	calls int
	err   error
}

func (c *closer) Close() error {
	c.calls++
	return c.err
}
