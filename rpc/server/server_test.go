package server

import (
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/ValentinKolb/rmap/lib/db/engines/maple"
	"github.com/ValentinKolb/rmap/lib/store/lstore"
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/serializer"
	"github.com/ValentinKolb/rmap/rpc/transport/inproc"
	"github.com/VictoriaMetrics/metrics"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *RPCServer {
	s := NewRPCServer(
		common.ServerConfig{Transport: common.ServerTransportConfig{Endpoint: t.Name()}},
		inproc.NewInprocServerTransport(),
		serializer.NewBinarySerializer(),
	)
	s.RegisterStore(100, lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) }))
	return s
}

func call(t *testing.T, s *RPCServer, shardID uint64, req *common.Message) *common.Message {
	t.Helper()
	ser := serializer.NewBinarySerializer()
	reqBytes, err := ser.Serialize(*req)
	if err != nil {
		t.Fatalf("failed to serialize request: %v", err)
	}
	var resp common.Message
	if err := ser.Deserialize(s.handle(shardID, reqBytes), &resp); err != nil {
		t.Fatalf("failed to deserialize response: %v", err)
	}
	return &resp
}

func TestHandle(t *testing.T) {
	s := newTestServer(t)

	resp := call(t, s, 100, common.NewHSetRequest("h", "f", []byte("v")))
	if resp.Err != "" {
		t.Fatalf("HSet failed: %s", resp.Err)
	}

	resp = call(t, s, 100, common.NewHGetRequest("h", "f"))
	if resp.MsgType != common.MsgTHGet || !resp.Ok || string(resp.Value) != "v" {
		t.Fatalf("unexpected HGet response: %+v", resp)
	}

	resp = call(t, s, 100, common.NewExecRequest([]db.Op{
		db.HGetOp("h", "f"),
		db.HDelOp("h", "f"),
	}))
	if resp.Err != "" || len(resp.Results) != 2 || string(resp.Results[0].Value) != "v" {
		t.Fatalf("unexpected Exec response: %+v", resp)
	}

	resp = call(t, s, 100, common.NewHLenRequest("h"))
	if resp.Int != 0 {
		t.Errorf("expected empty hash, got %d fields", resp.Int)
	}
}

func TestHandleErrors(t *testing.T) {
	s := newTestServer(t)

	before := unknownShardRequests.Get()
	resp := call(t, s, 999, common.NewHGetRequest("h", "f"))
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Errorf("expected error for unknown shard, got %+v", resp)
	}
	if unknownShardRequests.Get() != before+1 {
		t.Errorf("unknown shard request was not counted")
	}

	var resp2 common.Message
	ser := serializer.NewBinarySerializer()
	if err := ser.Deserialize(s.handle(100, []byte{0xff}), &resp2); err != nil {
		t.Fatalf("failed to deserialize response: %v", err)
	}
	if resp2.MsgType != common.MsgTError {
		t.Errorf("expected error for malformed request, got %+v", resp2)
	}

	call(t, s, 100, common.NewIncrRequest("counter"))
	resp = call(t, s, 100, common.NewHGetRequest("counter", "f"))
	if resp.Err == "" {
		t.Errorf("expected wrong type error")
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)

	requests := metrics.GetOrCreateCounter(`rmap_rpc_requests_total{type="hlen"}`)
	errs := metrics.GetOrCreateCounter(`rmap_rpc_errors_total{type="hlen"}`)
	beforeRequests, beforeErrors := requests.Get(), errs.Get()

	call(t, s, 100, common.NewHLenRequest("h"))
	call(t, s, 100, common.NewIncrRequest("c"))
	call(t, s, 100, common.NewHLenRequest("c"))

	if got := requests.Get() - beforeRequests; got != 2 {
		t.Errorf("expected 2 hlen requests, got %d", got)
	}
	if got := errs.Get() - beforeErrors; got != 1 {
		t.Errorf("expected 1 hlen error, got %d", got)
	}
}

func TestServeAndClose(t *testing.T) {
	s := newTestServer(t)

	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	// Wait until the listener is up
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn := inproc.NewInprocClientTransport()
		err := conn.Connect(common.ClientConfig{Transport: common.ClientTransportConfig{Endpoints: []string{t.Name()}}})
		if err == nil {
			_ = conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return after Close")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestNewServerTransport(t *testing.T) {
	for _, name := range []string{"", "tcp", "unix", "http", "inproc"} {
		if _, err := NewServerTransport(name); err != nil {
			t.Errorf("NewServerTransport(%q) failed: %v", name, err)
		}
	}
	if _, err := NewServerTransport("udp"); err == nil {
		t.Errorf("expected error for unknown transport")
	}
}
