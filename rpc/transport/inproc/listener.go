package inproc

import (
	"fmt"
	"github.com/puzpuzpuz/xsync/v3"
	"net"
	"sync"
)

// listeners holds all open in-process listeners by endpoint name
var listeners = xsync.NewMapOf[string, *listener]()

// addr is the net.Addr of an in-process endpoint
type addr string

func (a addr) Network() string { return "inproc" }
func (a addr) String() string  { return string(a) }

// listener implements net.Listener, every dial hands one end of a net.Pipe to Accept
type listener struct {
	name    string
	conns   chan net.Conn
	closed  chan struct{}
	closeMu sync.Once
}

func listen(name string) (*listener, error) {
	l := &listener{
		name:   name,
		conns:  make(chan net.Conn),
		closed: make(chan struct{}),
	}
	if _, loaded := listeners.LoadOrStore(name, l); loaded {
		return nil, fmt.Errorf("inproc endpoint %q is already in use", name)
	}
	return l, nil
}

func dial(name string) (net.Conn, error) {
	l, ok := listeners.Load(name)
	if !ok {
		return nil, fmt.Errorf("inproc endpoint %q: connection refused", name)
	}

	client, server := net.Pipe()
	select {
	case l.conns <- server:
		return client, nil
	case <-l.closed:
		_ = client.Close()
		_ = server.Close()
		return nil, fmt.Errorf("inproc endpoint %q: connection refused", name)
	}
}

func (l *listener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

func (l *listener) Close() error {
	l.closeMu.Do(func() {
		close(l.closed)
		listeners.Compute(l.name, func(old *listener, loaded bool) (*listener, bool) {
			// only remove the entry if it still belongs to this listener
			return old, !loaded || old == l
		})
	})
	return nil
}

func (l *listener) Addr() net.Addr {
	return addr(l.name)
}
