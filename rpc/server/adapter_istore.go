package server

import (
	"fmt"
	"github.com/ValentinKolb/rmap/lib/store"
	"github.com/ValentinKolb/rmap/rpc/common"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	if s == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	switch t := req.MsgType; t {
	case common.MsgTHSet:
		return common.NewResponse(t, s.HSet(req.Key, req.Field, req.Value))
	case common.MsgTHSetNX:
		ok, err := s.HSetNX(req.Key, req.Field, req.Value)
		return common.NewOkResponse(t, ok, err)
	case common.MsgTHGet:
		val, ok, err := s.HGet(req.Key, req.Field)
		return common.NewValueResponse(t, val, ok, err)
	case common.MsgTHExists:
		ok, err := s.HExists(req.Key, req.Field)
		return common.NewOkResponse(t, ok, err)
	case common.MsgTHDel:
		n, err := s.HDel(req.Key, req.Field)
		return common.NewIntResponse(t, n, err)
	case common.MsgTHSetMulti:
		return common.NewResponse(t, s.HSetMulti(req.Key, req.Fields))
	case common.MsgTHLen:
		n, err := s.HLen(req.Key)
		return common.NewIntResponse(t, n, err)
	case common.MsgTHScan:
		cursor, fields, err := s.HScan(req.Key, req.Cursor, req.Count)
		return common.NewHScanResponse(cursor, fields, err)
	case common.MsgTIncr:
		n, err := s.Incr(req.Key)
		return common.NewIntResponse(t, n, err)
	case common.MsgTDecr:
		n, err := s.Decr(req.Key)
		return common.NewIntResponse(t, n, err)
	case common.MsgTGet:
		val, ok, err := s.Get(req.Key)
		return common.NewValueResponse(t, val, ok, err)
	case common.MsgTDelete:
		return common.NewResponse(t, s.Delete(req.Key))
	case common.MsgTExec:
		results, err := s.Exec(req.Ops)
		return common.NewExecResponse(results, err)
	case common.MsgTDBInfo:
		info, err := s.GetDBInfo()
		return common.NewDBInfoResponse(info, err)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IStoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
