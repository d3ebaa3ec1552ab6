package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport/rpc")

// ErrNoConnection is returned by Send if the transport has no usable connection
var ErrNoConnection = errors.New("no active connections available")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection based on the provided configuration
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// clientConnection represents a single net connection
type clientConnection struct {
	conn         atomic.Pointer[net.Conn] // nil while disconnected
	endpoint     string
	stopCh       chan struct{} // Close signal for the reader goroutine
	requestChans *xsync.MapOf[uint64, chan responseResult]
	writeMu      sync.Mutex // Serializes frame writes, never taken by the reader
	parent       *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex uint64 // Atomic counter for Round Robin
	nextRequestID uint64 // Atomic counter for unique request IDs
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector:     connector,
		nextRequestID: 1, // Start from 1
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Close all existing connections
	t.closeConnections()

	t.config = config

	// Set default value for ConnectionsPerEndpoint
	connectionsPerEP := max(1, config.Transport.ConnectionsPerEndpoint)
	total := len(config.Transport.Endpoints) * connectionsPerEP

	connections := make([]*clientConnection, 0, total)
	for _, endpoint := range config.Transport.Endpoints {
		// Create multiple connections per endpoint
		for i := 0; i < connectionsPerEP; i++ {
			clientConn := &clientConnection{
				endpoint:     endpoint,
				stopCh:       make(chan struct{}),
				requestChans: xsync.NewMapOf[uint64, chan responseResult](),
				parent:       t,
			}

			if err := clientConn.reconnect(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}
			connections = append(connections, clientConn)

			Logger.Debugf("Connected to %s (connection %d/%d)", endpoint, i+1, connectionsPerEP)

			// Start the response reader
			go clientConn.readResponses()
		}
	}

	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	Logger.Infof("Connected to %d out of %d connections to %d endpoints using %s transport",
		len(connections), total, len(config.Transport.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(shardId uint64, req []byte) (resp []byte, err error) {
	// Generate a unique request ID
	requestID := atomic.AddUint64(&t.nextRequestID, 1)
	timeout := t.config.Timeout()

	// send returns whether the request reached the connection. Only unsent requests are retried,
	// a request that was written may have been applied by the server already.
	send := func(connection *clientConnection) ([]byte, bool, error) {
		// Create a channel for the response and register the request
		respCh := make(chan responseResult, 1)
		connection.requestChans.Store(requestID, respCh)
		defer connection.requestChans.Delete(requestID)

		if err := connection.write(shardId, requestID, req, timeout); err != nil {
			return nil, false, err
		}

		var timeoutCh <-chan time.Time
		if timeout > 0 {
			timer := time.NewTimer(timeout)
			defer timer.Stop()
			timeoutCh = timer.C
		}

		select {
		case result := <-respCh:
			return result.data, true, result.err
		case <-timeoutCh:
			return nil, true, fmt.Errorf("request timed out after %s", timeout)
		}
	}

	// We always try at least once, and up to RetryCount times
	maxRetries := max(1, t.config.Transport.RetryCount)

	// Initial backoff duration in milliseconds
	backoffMs := 50

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		conn := t.getNextConnection()
		if conn == nil {
			return nil, ErrNoConnection
		}

		data, sent, err := send(conn)
		if err == nil {
			return data, nil
		}
		if sent {
			return nil, err
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	// All attempts failed
	return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, lastErr)
}

func (t *clientTransport) Close() error {
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	switch len(t.connections) {
	case 0:
		return nil
	case 1:
		return t.connections[0]
	}
	index := atomic.AddUint64(&t.nextConnIndex, 1) % uint64(len(t.connections))
	return t.connections[index]
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	connections := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, conn := range connections {
		// Signal reader goroutine to stop
		close(conn.stopCh)
		conn.dropConn()
	}
}

// write sends one frame. The write lock only orders writers, the reader never waits for it.
func (c *clientConnection) write(shardID, requestID uint64, data []byte, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	p := c.conn.Load()
	if p == nil {
		return fmt.Errorf("connection to %s is closed", c.endpoint)
	}
	conn := *p
	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return writeFrame(conn, shardID, requestID, data)
}

// dropConn closes and forgets the current connection. Closing unblocks a writer stuck on it.
func (c *clientConnection) dropConn() {
	if old := c.conn.Swap(nil); old != nil {
		_ = (*old).Close()
	}
}

func (c *clientConnection) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// failPending answers all waiting requests of this connection with err
func (c *clientConnection) failPending(err error) {
	c.requestChans.Range(func(id uint64, ch chan responseResult) bool {
		select {
		case ch <- responseResult{nil, err}:
		default:
		}
		return true
	})
}

// readResponses reads responses in a loop and distributes them to waiting requests.
// No read deadline is set, request timeouts are enforced by Send.
func (c *clientConnection) readResponses() {
	for {
		p := c.conn.Load()
		if p == nil || c.stopped() {
			c.failPending(fmt.Errorf("connection to %s closed", c.endpoint))
			return
		}

		shardID, requestID, data, err := readFrame(*p, nil)
		if err != nil {
			if c.stopped() {
				c.failPending(fmt.Errorf("connection to %s closed", c.endpoint))
				return
			}

			// The stream is broken, all requests in flight on it are lost
			c.failPending(fmt.Errorf("error reading response: %w", err))
			Logger.Warningf("Connection to %s failed, reconnecting: %v", c.endpoint, err)

			if err := c.reconnect(); err != nil {
				Logger.Errorf("Failed to reconnect to %s: %v", c.endpoint, err)
				return
			}
			continue
		}

		if respCh, found := c.requestChans.Load(requestID); found {
			select {
			case respCh <- responseResult{data, nil}:
			default:
			}
		} else {
			// The request timed out before the response arrived
			Logger.Warningf("Received response for unknown request ID %d with shard ID %d", requestID, shardID)
		}
	}
}

// reconnect establishes or restores a connection to the endpoint.
// It is only called by Connect and by the reader goroutine of this connection, never concurrently.
func (c *clientConnection) reconnect() error {
	// Close the old connection if it exists
	c.dropConn()
	if c.stopped() {
		return fmt.Errorf("transport closed")
	}

	conn, err := c.parent.connector.Connect(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", c.endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %v", c.endpoint, err)
	}

	c.conn.Store(&conn)

	// Close raced with the dial
	if c.stopped() {
		c.dropConn()
		return fmt.Errorf("transport closed")
	}
	return nil
}
