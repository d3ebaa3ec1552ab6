// Package dstore implements a replicated hash and counter store using
// the Dragonboat RAFT consensus library. It provides a strongly consistent implementation
// of the store.IStore interface that can operate across multiple nodes.
//
// Architecture:
//
//   - Store Client: Implements store.IStore. Write operations are serialized into a
//     Command and proposed to the RAFT shard, read operations are sent as a Query.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine that owns the db.KVDB instance
//     and applies committed commands and queries to it.
//
//   - Protocol: The internal package holds the Command and Query structures and the binary
//     encoding of commands and their results.
//
// Write Operations:
//
//	HSet, HSetNX, HSetMulti, HDel, Incr, Decr, Delete and Exec follow this flow:
//
//	1. The operation is serialized into a Command
//	2. The Command is proposed to the RAFT shard via SyncPropose
//	3. Once committed, the state machine applies it on each replica (Update in statemachine.go)
//	4. The encoded results are returned to the client in the sm.Result
//
//	The write index for all operations is the RAFT log index. An Exec transaction is a single
//	log entry, so its ops are applied without interleaving on every replica. This makes the
//	HGET+HSET read-modify-write of the map layer atomic cluster wide.
//
// Read Operations:
//
//	HGet, HExists, HLen, HScan and Get use SyncRead (linearizable). GetDBInfo uses StaleRead.
//
// Error Handling and Retries:
//
//	ErrSystemBusy from Dragonboat is retried after a short delay, up to five times. Errors
//	of the database (e.g. db.ErrWrongType) are returned as *store.Error with a matching code.
//
// Snapshotting and Recovery:
//
//	Snapshots use the db.KVDB Save method, recovery its Load method. Afterwards the replica
//	receives all log entries committed after the snapshot.
//
// Usage:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	dbFactory := func() db.KVDB { return maple.NewMapleDB(nil) }
//
//	err = nh.StartConcurrentReplica(
//	    clusterMembers,
//	    false,
//	    dstore.CreateStateMaschineFactory(dbFactory),
//	    shardConfig)
//	if err != nil { ... }
//
//	store := dstore.NewDistributedStore(nh, shardID, 5*time.Second)
//
// For a single process without replication use the lstore package.
package dstore
