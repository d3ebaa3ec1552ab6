package lstore

import (
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/store"
	"sync/atomic"
)

type storeImpl struct {
	db    db.KVDB
	index atomic.Uint64
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
// This works by using the maple engine from the db package directly.
func NewLocalStore(factory store.DBFactory) store.IStore {
	return &storeImpl{
		db:    factory(),
		index: atomic.Uint64{},
	}
}

// incAndGetIndex increments the index and returns the new value.
// It is used to ensure that each write operation has a unique index.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (s *storeImpl) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// require returns an UnsupportedOperation error if the db lacks feature
func (s *storeImpl) require(feature db.Feature, op string) error {
	if !s.db.SupportsFeature(feature) {
		return store.NewError(store.RetCUnsupportedOperation, op+" operation is not supported")
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) HSet(key, field string, value []byte) error {
	if err := s.require(db.FeatureHashWrite, "HSet"); err != nil {
		return err
	}
	_, err := s.db.HSet(key, field, value, s.incAndGetIndex())
	return store.FromDBError(err)
}

func (s *storeImpl) HSetNX(key, field string, value []byte) (bool, error) {
	if err := s.require(db.FeatureHashWrite, "HSetNX"); err != nil {
		return false, err
	}
	set, err := s.db.HSetNX(key, field, value, s.incAndGetIndex())
	return set, store.FromDBError(err)
}

func (s *storeImpl) HSetMulti(key string, fields []db.Field) error {
	if err := s.require(db.FeatureHashWrite, "HSetMulti"); err != nil {
		return err
	}
	_, err := s.db.HSetMulti(key, fields, s.incAndGetIndex())
	return store.FromDBError(err)
}

func (s *storeImpl) HDel(key, field string) (int64, error) {
	if err := s.require(db.FeatureHashWrite, "HDel"); err != nil {
		return 0, err
	}
	removed, err := s.db.HDel(key, field, s.incAndGetIndex())
	return int64(removed), store.FromDBError(err)
}

func (s *storeImpl) HGet(key, field string) ([]byte, bool, error) {
	if err := s.require(db.FeatureHashRead, "HGet"); err != nil {
		return nil, false, err
	}
	value, ok, err := s.db.HGet(key, field)
	return value, ok, store.FromDBError(err)
}

func (s *storeImpl) HExists(key, field string) (bool, error) {
	if err := s.require(db.FeatureHashRead, "HExists"); err != nil {
		return false, err
	}
	ok, err := s.db.HExists(key, field)
	return ok, store.FromDBError(err)
}

func (s *storeImpl) HLen(key string) (int64, error) {
	if err := s.require(db.FeatureHashRead, "HLen"); err != nil {
		return 0, err
	}
	n, err := s.db.HLen(key)
	return int64(n), store.FromDBError(err)
}

func (s *storeImpl) HScan(key string, cursor uint64, count int) (uint64, []db.Field, error) {
	if err := s.require(db.FeatureHashScan, "HScan"); err != nil {
		return 0, nil, err
	}
	next, fields, err := s.db.HScan(key, cursor, count)
	return next, fields, store.FromDBError(err)
}

func (s *storeImpl) Incr(key string) (int64, error) {
	if err := s.require(db.FeatureCounter, "Incr"); err != nil {
		return 0, err
	}
	value, err := s.db.IncrBy(key, 1, s.incAndGetIndex())
	return value, store.FromDBError(err)
}

func (s *storeImpl) Decr(key string) (int64, error) {
	if err := s.require(db.FeatureCounter, "Decr"); err != nil {
		return 0, err
	}
	value, err := s.db.IncrBy(key, -1, s.incAndGetIndex())
	return value, store.FromDBError(err)
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if err := s.require(db.FeatureCounter, "Get"); err != nil {
		return nil, false, err
	}
	value, ok, err := s.db.Get(key)
	return value, ok, store.FromDBError(err)
}

func (s *storeImpl) Delete(key string) error {
	if err := s.require(db.FeatureDelete, "Delete"); err != nil {
		return err
	}
	s.db.Delete(key, s.incAndGetIndex())
	return nil
}

func (s *storeImpl) Exec(ops []db.Op) ([]db.OpResult, error) {
	if err := s.require(db.FeatureExec, "Exec"); err != nil {
		return nil, err
	}
	return s.db.Exec(ops, s.incAndGetIndex()), nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}
