package client

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/serializer"
	"github.com/ValentinKolb/rmap/rpc/transport"
	"github.com/ValentinKolb/rmap/rpc/transport/http"
	"github.com/ValentinKolb/rmap/rpc/transport/inproc"
	"github.com/ValentinKolb/rmap/rpc/transport/tcp"
	"github.com/ValentinKolb/rmap/rpc/transport/unix"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// ErrRemote marks errors reported by the server (as opposed to transport errors)
var ErrRemote = errors.New("remote error")

// NewClientTransport returns the client transport with the given name (tcp, unix, http or inproc)
func NewClientTransport(name string) (transport.IRPCClientTransport, error) {
	switch name {
	case "tcp", "":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	case "http":
		return http.NewHttpClientTransport(), nil
	case "inproc":
		return inproc.NewInprocClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (must be tcp, unix, http or inproc)", name)
	}
}

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	shardId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// call sends a request to the shard and returns the response.
// Error responses and responses of an unexpected type are returned as error.
func (a *rpcClientAdapter) call(req *common.Message) (*common.Message, error) {
	reqBytes, err := a.serializer.Serialize(*req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to serialize request: %w", req.MsgType, err)
	}

	respBytes, err := a.transport.Send(a.shardId, reqBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.MsgType, err)
	}

	resp := &common.Message{}
	if err := a.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("%s: failed to deserialize response: %w", req.MsgType, err)
	}

	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrRemote, req.MsgType, resp.Err)
	}

	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("%s: unexpected response type %s", req.MsgType, resp.MsgType)
	}

	return resp, nil
}
