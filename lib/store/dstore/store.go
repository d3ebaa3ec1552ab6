package dstore

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/store"
	"github.com/ValentinKolb/rmap/lib/store/dstore/internal"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var (
	retries = 5
	log     = logger.GetLogger("store")
)

// storeImpl is the raft backed implementation of the store.IStore interface.
// It encapsulates a Dragonboat NodeHost which is used to communicate with the state machine.
type storeImpl struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
}

// NewDistributedStore creates a new distributed store instance which uses raft consensus to ensure strict linearizability
// across multiple nodes.
func NewDistributedStore(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) store.IStore {
	cs := nh.GetNoOPSession(shardID)
	return &storeImpl{
		nh:      nh,
		shardID: shardID,
		cs:      cs,
		timeout: timeout,
	}
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// write serializes a Command and sends it via SyncPropose.
// It returns the results encoded by the state machine, or a *store.Error if an error occurs.
func (s *storeImpl) write(cmd internal.Command) ([]db.OpResult, error) {
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)

		res, err := s.nh.SyncPropose(ctx, s.cs, cmd.Serialize())
		cancel()

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}

		if err != nil {
			return nil, store.NewError(store.RetCInternalError, err.Error())
		}
		if res.Value != uint64(store.RetCSuccess) {
			return nil, store.NewError(store.RetCode(res.Value), string(res.Data))
		}
		results, err := internal.DecodeResults(res.Data)
		if err != nil {
			return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid command result: %v", err))
		}
		return results, nil
	}
	return nil, store.NewError(store.RetCInternalError, "timeout")
}

// writeOne is write for commands that produce exactly one result
func (s *storeImpl) writeOne(cmd internal.Command) (db.OpResult, error) {
	results, err := s.write(cmd)
	if err != nil {
		return db.OpResult{}, err
	}
	if len(results) != 1 {
		return db.OpResult{}, store.NewError(store.RetCInternalError, fmt.Sprintf("expected 1 result for %s, got %d", cmd.Type, len(results)))
	}
	return results[0], nil
}

// read is a generic helper function queries the statemachine
// and attempts to convert the response into the expected type R.
//
// This function uses the SyncRead function (dragenboat) by default to Query the state machine.
// If linearizability is not required, the stale parameter can be set to true to use the faster StaleRead function.
//
// Is the read operation fails due to a system busy error, the function retries up to 5 times.
//
// It returns the response of type R and a error (nil on success).
func read[R any](r *storeImpl, q internal.Query, stale bool) (R, error) {
	var zero R
	for i := 0; i < retries; i++ {

		var res interface{}
		var err error

		// Query the standmaschine, use StaleRead if stale is set otherwise use SyncRead (default)
		if stale {
			res, err = r.nh.StaleRead(r.shardID, q)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			res, err = r.nh.SyncRead(ctx, r.shardID, q)
			cancel()
		}

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(r.timeout / 10)
			continue
		}

		if err != nil {
			var rse *store.Error
			if errors.As(err, &rse) {
				return zero, rse
			}
			return zero, store.NewError(store.RetCInternalError, err.Error())
		}

		// The state machine is expected to return the response in the expected type R.
		casted, ok := res.(R)
		if !ok {
			return zero, store.NewError(store.RetCInternalError,
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
		}
		return casted, nil
	}
	return zero, store.NewError(store.RetCInternalError, "timeout")
}

// --------------------------------------------------------------------------
// Interface Methods (docs see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) HSet(key, field string, value []byte) error {
	_, err := s.writeOne(internal.Command{
		Type:  internal.CommandTHSet,
		Key:   key,
		Field: field,
		Value: value,
	})
	return err
}

func (s *storeImpl) HSetNX(key, field string, value []byte) (bool, error) {
	res, err := s.writeOne(internal.Command{
		Type:  internal.CommandTHSetNX,
		Key:   key,
		Field: field,
		Value: value,
	})
	return res.Ok, err
}

func (s *storeImpl) HSetMulti(key string, fields []db.Field) error {
	_, err := s.writeOne(internal.Command{
		Type:   internal.CommandTHSetMulti,
		Key:    key,
		Fields: fields,
	})
	return err
}

func (s *storeImpl) HDel(key, field string) (int64, error) {
	res, err := s.writeOne(internal.Command{
		Type:  internal.CommandTHDel,
		Key:   key,
		Field: field,
	})
	return res.Int, err
}

func (s *storeImpl) Incr(key string) (int64, error) {
	res, err := s.writeOne(internal.Command{
		Type:  internal.CommandTIncrBy,
		Key:   key,
		Delta: 1,
	})
	return res.Int, err
}

func (s *storeImpl) Decr(key string) (int64, error) {
	res, err := s.writeOne(internal.Command{
		Type:  internal.CommandTIncrBy,
		Key:   key,
		Delta: -1,
	})
	return res.Int, err
}

func (s *storeImpl) Delete(key string) error {
	_, err := s.writeOne(
		internal.Command{
			Type: internal.CommandTDelete,
			Key:  key,
		},
	)
	return err
}

// Exec is proposed as a single raft entry, so it is applied atomically on every replica.
// Reads inside a transaction are therefore linearizable as well.
// A transaction without write operations is sent as a linearizable read instead of a proposal.
func (s *storeImpl) Exec(ops []db.Op) ([]db.OpResult, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	var (
		results []db.OpResult
		err     error
	)
	if hasWrite(ops) {
		results, err = s.write(internal.Command{
			Type: internal.CommandTExec,
			Ops:  ops,
		})
	} else {
		results, err = read[[]db.OpResult](s, internal.Query{
			Type: internal.QueryTExec,
			Ops:  ops,
		}, false)
	}
	if err != nil {
		return nil, err
	}
	if len(results) != len(ops) {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("expected %d results, got %d", len(ops), len(results)))
	}
	return results, nil
}

func (s *storeImpl) HGet(key, field string) ([]byte, bool, error) {
	res, err := read[internal.QueryResult](s, internal.Query{
		Type:  internal.QueryTHGet,
		Key:   key,
		Field: field,
	}, false)
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ok, nil
}

func (s *storeImpl) HExists(key, field string) (bool, error) {
	res, err := read[internal.QueryResult](s, internal.Query{
		Type:  internal.QueryTHExists,
		Key:   key,
		Field: field,
	}, false)
	return res.Ok, err
}

func (s *storeImpl) HLen(key string) (int64, error) {
	res, err := read[internal.QueryResult](s, internal.Query{
		Type: internal.QueryTHLen,
		Key:  key,
	}, false)
	return res.Int, err
}

func (s *storeImpl) HScan(key string, cursor uint64, count int) (uint64, []db.Field, error) {
	res, err := read[internal.QueryResult](s, internal.Query{
		Type:   internal.QueryTHScan,
		Key:    key,
		Cursor: cursor,
		Count:  count,
	}, false)
	if err != nil {
		return 0, nil, err
	}
	return res.Cursor, res.Fields, nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	res, err := read[internal.QueryResult](s, internal.Query{
		Type: internal.QueryTGet,
		Key:  key,
	}, false)
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ok, nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return read[db.DatabaseInfo](
		s,
		internal.Query{
			Type: internal.QueryTGetDBInfo,
		},
		true, // Note: allow for stale reads
	)
}

func hasWrite(ops []db.Op) bool {
	for _, op := range ops {
		if op.Type.IsWrite() {
			return true
		}
	}
	return false
}
