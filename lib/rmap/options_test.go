package rmap

import (
	"testing"
	"time"
)

func TestOpen(t *testing.T) {
	endpoint := startServer(t)
	opts := []Option{WithTransport("inproc"), WithHost(endpoint), WithTimeout(2 * time.Second)}

	h1, err := Open(append(opts, WithID("open"))...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	h2, err := Open(append(opts, WithID("open"))...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	exclusive, err := Open(opts...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	mustPut(t, h1, "key", "value")
	if ok, _ := h2.ContainsKey("key"); !ok {
		t.Errorf("handles opened with the same id do not share data")
	}
	if ok, _ := exclusive.ContainsKey("key"); ok {
		t.Errorf("exclusive handle sees shared data")
	}

	for _, m := range []*Map{h1, h2, exclusive} {
		if err := m.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}

	// everything was deleted by the last handle
	inspect, err := Open(append(opts, WithID("open"), WithAttach())...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer inspect.Close()
	if n, _ := inspect.Size(); n != 0 {
		t.Errorf("namespace was not deleted, %d entries left", n)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(WithTransport("smoke-signals")); err == nil {
		t.Errorf("expected error for unknown transport")
	}
	if _, err := Open(WithTransport("inproc"), WithSerializer("xml")); err == nil {
		t.Errorf("expected error for unknown serializer")
	}
	if _, err := Open(WithTransport("inproc"), WithHost("nobody-listens-here")); err == nil {
		t.Errorf("expected error for missing server")
	}
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		transport, host string
		port            int
		want            string
	}{
		{"tcp", "localhost", 8080, "localhost:8080"},
		{"http", "10.0.0.1", 80, "10.0.0.1:80"},
		{"tcp", "::1", 9000, "[::1]:9000"},
		{"unix", "/tmp/rmap.sock", 8080, "/tmp/rmap.sock"},
		{"inproc", "test", 8080, "test"},
	}
	for _, tt := range tests {
		o := options{transport: tt.transport, host: tt.host, port: tt.port}
		if got := o.endpoint(); got != tt.want {
			t.Errorf("endpoint(%s, %s, %d) = %s, want %s", tt.transport, tt.host, tt.port, got, tt.want)
		}
	}
}

func TestClientConfigTimeout(t *testing.T) {
	o := defaultOptions()
	o.timeout = 1500 * time.Millisecond
	if c := o.clientConfig(); c.TimeoutSecond != 2 {
		t.Errorf("expected timeout rounded up to 2s, got %d", c.TimeoutSecond)
	}
}
