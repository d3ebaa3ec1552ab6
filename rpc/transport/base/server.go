package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/transport"
	"io"
	"net"
	"sync"
	"time"
)

const (
	// DefaultBufferSize is the size of the pooled frame buffers if the config sets none
	DefaultBufferSize = 64 * 1024
	// DefaultWorkersPerConn is the number of requests handled in parallel per connection if the config sets none
	DefaultWorkersPerConn = 16
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector         IServerConnector
	handler           transport.ServerHandleFunc
	config            common.ServerConfig
	bufferPool        *sync.Pool
	maxWorkersPerConn int

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	conns    map[net.Conn]struct{}
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with per-connection worker pool.
// Buffer size and worker count are taken from the config passed to Listen.
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		conns:     make(map[net.Conn]struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	t.config = config

	bufferSize := config.Transport.StreamBufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	t.bufferPool = &sync.Pool{
		New: func() interface{} {
			return make([]byte, bufferSize)
		},
	}

	// minimum one worker per connection
	t.maxWorkersPerConn = config.Transport.WorkersPerConn
	if t.maxWorkersPerConn <= 0 {
		t.maxWorkersPerConn = DefaultWorkersPerConn
	}

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	t.listener = listener
	t.mu.Unlock()

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), config.Transport.Endpoint, t.maxWorkersPerConn)

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Errorf("Failed to upgrade connection: %v", err)
			_ = conn.Close()
			continue
		}

		if !t.track(conn) {
			_ = conn.Close()
			return nil
		}

		// Handle the connection in a goroutine
		go t.handleConnection(conn)
	}
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	if t.listener != nil {
		errs = append(errs, t.listener.Close())
	}
	for conn := range t.conns {
		errs = append(errs, conn.Close())
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// track registers an open connection, it returns false if the transport is closed
func (t *serverTransport) track(conn net.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.conns[conn] = struct{}{}
	return true
}

func (t *serverTransport) untrack(conn net.Conn) {
	t.mu.Lock()
	delete(t.conns, conn)
	t.mu.Unlock()
}

// handleConnection handles incoming requests for one connection.
// Idle connections are kept open, the timeout only applies to writing responses.
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer t.untrack(conn)
	defer conn.Close()

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// The buffered channel acts as a counting semaphore
	workerSemaphore := make(chan struct{}, t.maxWorkersPerConn)

	var wg sync.WaitGroup
	var connMutex sync.Mutex

	handleResponse := func(shardID, requestID uint64, data []byte) {
		start := time.Now()
		resp := t.handler(shardID, data)
		Logger.Debugf("Processed request for shard %d with requestID %d took %s", shardID, requestID, time.Since(start))

		// Protect writes to the connection with a mutex
		connMutex.Lock()
		defer connMutex.Unlock()

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}

		// Write the response with the same requestID
		if err := writeFrame(conn, shardID, requestID, resp); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
		}
	}

	for {
		buf := t.bufferPool.Get().([]byte)

		shardID, requestID, data, err := readFrame(conn, buf)
		if err != nil {
			t.bufferPool.Put(buf)
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				Logger.Debugf("Connection closed")
			} else {
				Logger.Errorf("Error handling request: %v", err)
			}
			break
		}

		// Blocks if maxWorkersPerConn is reached
		workerSemaphore <- struct{}{}
		wg.Add(1)

		go func() {
			defer func() {
				t.bufferPool.Put(buf)
				<-workerSemaphore
				wg.Done()
			}()
			handleResponse(shardID, requestID, data)
		}()
	}

	// Wait for all workers to finish before closing the connection
	wg.Wait()
}
