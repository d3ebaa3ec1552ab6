package client

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/store"
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/serializer"
	"github.com/ValentinKolb/rmap/rpc/transport"
)

// NewRPCStore creates a new RPC store
// The function takes a shard ID, a config, a transport and a serializer as parameters.
// The transport is connected here and closed by Close of the returned store.
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCStore, error) {

	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &RPCStore{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// RPCStore implements store.IStore by forwarding every call to an rpc server
type RPCStore struct {
	rpcClientAdapter
}

var _ store.IStore = (*RPCStore)(nil)

// Close closes the transport of the store
func (i *RPCStore) Close() error {
	return i.transport.Close()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *RPCStore) HSet(key, field string, value []byte) error {
	_, err := i.call(common.NewHSetRequest(key, field, value))
	return err
}

func (i *RPCStore) HSetNX(key, field string, value []byte) (bool, error) {
	resp, err := i.call(common.NewHSetNXRequest(key, field, value))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *RPCStore) HSetMulti(key string, fields []db.Field) error {
	_, err := i.call(common.NewHSetMultiRequest(key, fields))
	return err
}

func (i *RPCStore) HDel(key, field string) (int64, error) {
	resp, err := i.call(common.NewHDelRequest(key, field))
	if err != nil {
		return 0, err
	}
	return resp.Int, nil
}

func (i *RPCStore) HGet(key, field string) ([]byte, bool, error) {
	resp, err := i.call(common.NewHGetRequest(key, field))
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *RPCStore) HExists(key, field string) (bool, error) {
	resp, err := i.call(common.NewHExistsRequest(key, field))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *RPCStore) HLen(key string) (int64, error) {
	resp, err := i.call(common.NewHLenRequest(key))
	if err != nil {
		return 0, err
	}
	return resp.Int, nil
}

func (i *RPCStore) HScan(key string, cursor uint64, count int) (uint64, []db.Field, error) {
	resp, err := i.call(common.NewHScanRequest(key, cursor, count))
	if err != nil {
		return 0, nil, err
	}
	return resp.Cursor, resp.Fields, nil
}

func (i *RPCStore) Incr(key string) (int64, error) {
	resp, err := i.call(common.NewIncrRequest(key))
	if err != nil {
		return 0, err
	}
	return resp.Int, nil
}

func (i *RPCStore) Decr(key string) (int64, error) {
	resp, err := i.call(common.NewDecrRequest(key))
	if err != nil {
		return 0, err
	}
	return resp.Int, nil
}

func (i *RPCStore) Get(key string) ([]byte, bool, error) {
	resp, err := i.call(common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *RPCStore) Delete(key string) error {
	_, err := i.call(common.NewDeleteRequest(key))
	return err
}

func (i *RPCStore) Exec(ops []db.Op) ([]db.OpResult, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	resp, err := i.call(common.NewExecRequest(ops))
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != len(ops) {
		return nil, fmt.Errorf("exec: expected %d results, got %d", len(ops), len(resp.Results))
	}
	return resp.Results, nil
}

func (i *RPCStore) GetDBInfo() (db.DatabaseInfo, error) {
	resp, err := i.call(common.NewDBInfoRequest())
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	var info db.DatabaseInfo
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		return db.DatabaseInfo{}, fmt.Errorf("dbinfo: %w", err)
	}
	return info, nil
}
