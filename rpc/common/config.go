package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/config"
	"sort"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// helper functions for to interface with Dragonboat (for the server util)
// --------------------------------------------------------------------------

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
// These default values are selected according to the RAFT Paper
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig converts the ServerConfig to Dragonboat Config
func (c *ServerConfig) ToDragonboatConfig(shardId uint64) config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            shardId,
		ElectionRTT:        electionRTTFactor,
		HeartbeatRTT:       heartbeatRTTFactor,
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
		MaxInMemLogSize:    0,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         c.DataDir,
		NodeHostDir:    c.DataDir,
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// --------------------------------------------------------------------------
// Transport configuration (shared by client and server)
// --------------------------------------------------------------------------

// SocketConf holds the buffer sizes of stream sockets (tcp, unix). Zero keeps the OS default.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds tcp specific socket options. Zero values disable keep alive and linger.
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ServerTransportConfig configures the server side of a transport
type ServerTransportConfig struct {
	// Endpoint is the address to listen on (host:port, socket path or inproc name)
	Endpoint string
	// WorkersPerConn limits the number of requests handled in parallel per connection
	WorkersPerConn int
	// StreamBufferSize is the size of the buffered reader/writer per connection
	StreamBufferSize int
	SocketConf
	TCPConf
}

// ClientTransportConfig configures the client side of a transport
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerShardType string

const (
	ShardTypeLocalIStore  ServerShardType = "lstore"
	ShardTypeRemoteIStore ServerShardType = "dstore"
)

// ParseShardType converts the cli notation of a shard type
func ParseShardType(s string) (ServerShardType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ShardTypeLocalIStore), "local":
		return ShardTypeLocalIStore, nil
	case string(ShardTypeRemoteIStore), "raft", "remote":
		return ShardTypeRemoteIStore, nil
	default:
		return "", fmt.Errorf("unknown shard type %q (must be lstore or dstore)", s)
	}
}

type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Type selects the store implementation backing the shard
	Type ServerShardType
}

// ServerConfig holds all configuration parameters for the rpc server and the RAFT cluster.
type ServerConfig struct {
	Shards []ServerShard

	// Dragenboat parameters
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	DataDir            string
	ReplicaID          uint64
	ClusterMembers     map[uint64]string

	// remote store parameters
	TimeoutSecond int64

	// Transport settings
	TransportType string
	Transport     ServerTransportConfig

	// Serializer used for the messages
	Serializer string

	// Logging configuration
	LogLevel string
}

// Timeout returns the configured timeout for raft operations
func (c *ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// HasRemoteShard checks if the configuration contains any raft backed shards
func (c *ServerConfig) HasRemoteShard() bool {
	for _, shard := range c.Shards {
		if shard.Type == ShardTypeRemoteIStore {
			return true
		}
	}
	return false
}

// configWriter renders aligned config listings
type configWriter struct {
	sb strings.Builder
}

func (w *configWriter) section(title string) {
	w.sb.WriteString("\n")
	w.sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
}

func (w *configWriter) field(name, value string) {
	w.sb.WriteString(fmt.Sprintf("  %-24s: %s\n", name, value))
}

func (w *configWriter) socket(s SocketConf, t TCPConf, withTCP bool) {
	w.field("Write Buffer", bufferString(s.WriteBufferSize))
	w.field("Read Buffer", bufferString(s.ReadBufferSize))
	if withTCP {
		w.field("TCP NoDelay", strconv.FormatBool(t.TCPNoDelay))
		w.field("TCP KeepAlive", fmt.Sprintf("%d sec", t.TCPKeepAliveSec))
		w.field("TCP Linger", fmt.Sprintf("%d sec", t.TCPLingerSec))
	}
}

func bufferString(size int) string {
	if size <= 0 {
		return "os default"
	}
	return fmt.Sprintf("%d bytes", size)
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	w := &configWriter{}

	w.section("RPC Server")
	w.field("Transport", c.TransportType)
	w.field("Endpoint", c.Transport.Endpoint)
	w.field("Serializer", c.Serializer)
	w.field("Workers per Connection", strconv.Itoa(c.Transport.WorkersPerConn))
	w.socket(c.Transport.SocketConf, c.Transport.TCPConf, c.TransportType == "tcp")

	w.section("Logging")
	w.field("Log Level", c.LogLevel)

	w.section("Shards")
	for _, shard := range c.Shards {
		w.field(strconv.FormatUint(shard.ShardID, 10), string(shard.Type))
	}

	if c.HasRemoteShard() {
		w.section("Node Identity")
		w.field("RAFT Address", c.ClusterMembers[c.ReplicaID])
		w.field("Node ID", strconv.FormatUint(c.ReplicaID, 10))

		w.section("RAFT Parameters")
		w.field("Round Trip Time (ms)", fmt.Sprintf("%d ms", c.RTTMillisecond))
		w.field("Election RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*electionRTTFactor))
		w.field("Heartbeat RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*heartbeatRTTFactor))
		w.field("Check Quorum", fmt.Sprintf("%t", true))
		w.field("Snapshot Entries", fmt.Sprintf("%d", c.SnapshotEntries))
		w.field("Compaction Overhead", fmt.Sprintf("%d", c.CompactionOverhead))
		w.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

		w.section("Storage")
		w.field("Data Directory", c.DataDir)

		w.section("Cluster")
		w.sb.WriteString("  Initial Members:\n")

		// Sort keys for consistent output
		var keys []uint64
		for k := range c.ClusterMembers {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		for _, k := range keys {
			w.sb.WriteString(fmt.Sprintf("    Node %d: %s\n", k, c.ClusterMembers[k]))
		}
	}
	return w.sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	TimeoutSecond int
	TransportType string
	Serializer    string
	Transport     ClientTransportConfig
}

// Timeout returns the per request timeout (zero means no timeout)
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	w := &configWriter{}

	w.section("Client Configuration")
	w.field("Transport", c.TransportType)
	w.field("Serializer", c.Serializer)
	w.field("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	w.field("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	w.field("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))
	w.socket(c.Transport.SocketConf, c.Transport.TCPConf, c.TransportType == "tcp")

	w.section("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		w.field(strconv.Itoa(i), endpoint)
	}

	return w.sb.String()
}
