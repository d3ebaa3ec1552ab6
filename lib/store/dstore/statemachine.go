package dstore

import (
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/store"
	"github.com/ValentinKolb/rmap/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
	"io"
	"time"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// KVStateMachine is a state machine implementation for Dragonboat RAFT
type KVStateMachine struct {
	replicaID uint64
	shardID   uint64
	database  db.KVDB // the actual dataStorage
}

// CreateStateMaschineFactory returns a function that can be used by dragenboat to create a new standmaschine for a node host
// The factory pattern is used to enable the caller to pass an interchangeable dbFactory
func CreateStateMaschineFactory(dbFactory store.DBFactory) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return &KVStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			database:  dbFactory(),
		}
	}
}

// Lookup handles read-only queries by mapping each Query operation to the corresponding KVDB method.
func (fsm *KVStateMachine) Lookup(itf interface{}) (interface{}, error) {

	// try to parse Query into Query struct
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}

	if q.Type != internal.QueryTGetDBInfo {
		if err := fsm.requireQueryFeature(q.Type); err != nil {
			return nil, err
		}
	}

	var (
		res internal.QueryResult
		err error
	)

	// Handle different Query types
	switch q.Type {
	case internal.QueryTHGet:
		res.Value, res.Ok, err = fsm.database.HGet(q.Key, q.Field)
	case internal.QueryTHExists:
		res.Ok, err = fsm.database.HExists(q.Key, q.Field)
	case internal.QueryTHLen:
		var n int
		n, err = fsm.database.HLen(q.Key)
		res.Int = int64(n)
	case internal.QueryTHScan:
		res.Cursor, res.Fields, err = fsm.database.HScan(q.Key, q.Cursor, q.Count)
	case internal.QueryTGet:
		res.Value, res.Ok, err = fsm.database.Get(q.Key)
	case internal.QueryTGetDBInfo:
		return fsm.database.GetInfo(), nil
	case internal.QueryTExec:
		for _, op := range q.Ops {
			if op.Type.IsWrite() {
				return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("%s is not allowed in a read transaction", op.Type))
			}
		}
		// read ops ignore the write index
		return fsm.database.Exec(q.Ops, 0), nil
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %d", q.Type))
	}

	if err != nil {
		return nil, store.FromDBError(err)
	}
	return res, nil
}

func (fsm *KVStateMachine) requireQueryFeature(t internal.QueryType) error {
	feature := db.FeatureHashRead
	switch t {
	case internal.QueryTHScan:
		feature = db.FeatureHashScan
	case internal.QueryTGet:
		feature = db.FeatureCounter
	case internal.QueryTExec:
		feature = db.FeatureExec
	}
	if !fsm.database.SupportsFeature(feature) {
		return store.NewError(store.RetCUnsupportedOperation, fmt.Sprintf("%s operation is not supported", t))
	}
	return nil
}

// Update handles write commands on the KVDB instance
// All write operations are serialized into []byte and are accessible via the entries struct.
// On success the Result.Data holds the encoded db.OpResult values of the command (see internal.EncodeResults).
func (fsm *KVStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	// Stats
	start := time.Now()

	for idx, e := range entries {
		entries[idx].Result = fsm.apply(e)
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("Statemashine took long to update. Batch updated %d entries, took %.2fms:", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// apply executes a single raft log entry
func (fsm *KVStateMachine) apply(e sm.Entry) sm.Result {
	if len(e.Cmd) == 0 {
		return sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte("empty command ignored")}
	}

	// Deserialize the command
	cmd := internal.Command{}
	if err := cmd.Deserialize(e.Cmd); err != nil {
		return sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(fmt.Sprintf("failed to deserialize command: %v", err))}
	}

	// Check if the db supports the operation
	feat, err := cmd.Type.ToDBFeature()
	if err != nil {
		return sm.Result{
			Value: uint64(store.RetCInvalidOperation),
			Data:  []byte(fmt.Sprintf("unknown Command operation: %s", cmd.Type)),
		}
	}
	if !fsm.database.SupportsFeature(feat) {
		return sm.Result{
			Value: uint64(store.RetCUnsupportedOperation),
			Data:  []byte(fmt.Sprintf("%s operation is not suported", cmd.Type)),
		}
	}

	var res db.OpResult
	switch cmd.Type {
	case internal.CommandTHSet:
		res.Ok, err = fsm.database.HSet(cmd.Key, cmd.Field, cmd.Value, e.Index)
	case internal.CommandTHSetNX:
		res.Ok, err = fsm.database.HSetNX(cmd.Key, cmd.Field, cmd.Value, e.Index)
	case internal.CommandTHSetMulti:
		var created int
		created, err = fsm.database.HSetMulti(cmd.Key, cmd.Fields, e.Index)
		res.Int = int64(created)
	case internal.CommandTHDel:
		var removed int
		removed, err = fsm.database.HDel(cmd.Key, cmd.Field, e.Index)
		res.Int, res.Ok = int64(removed), removed > 0
	case internal.CommandTIncrBy:
		res.Int, err = fsm.database.IncrBy(cmd.Key, cmd.Delta, e.Index)
	case internal.CommandTDelete:
		res.Ok = fsm.database.Delete(cmd.Key, e.Index)
	case internal.CommandTExec:
		return sm.Result{
			Value: uint64(store.RetCSuccess),
			Data:  internal.EncodeResults(fsm.database.Exec(cmd.Ops, e.Index)),
		}
	}

	if err != nil {
		storeErr := store.FromDBError(err).(*store.Error)
		return sm.Result{Value: uint64(storeErr.Code), Data: []byte(storeErr.Msg)}
	}

	return sm.Result{
		Value: uint64(store.RetCSuccess),
		Data:  internal.EncodeResults([]db.OpResult{res}),
	}
}

// PrepareSnapshot is not used. The database copies its state under its own lock in Save
func (fsm *KVStateMachine) PrepareSnapshot() (interface{}, error) {
	return nil, nil
}

// SaveSnapshot saves a db snapshot to the writer
func (fsm *KVStateMachine) SaveSnapshot(_ interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureSave) {
		return fmt.Errorf("the used KVDB implemantation does not supports Save() operations")
	}
	return fsm.database.Save(writer)
}

// RecoverFromSnapshot restores the database from a snapshot
func (fsm *KVStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureLoad) {
		return fmt.Errorf("the used KVDB implemantation does not supports Load() operations")
	}
	return fsm.database.Load(r)
}

// Close performs any necessary cleanup.
func (fsm *KVStateMachine) Close() error {
	return fsm.database.Close()
}
