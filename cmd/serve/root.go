package serve

import (
	"fmt"
	cmdUtil "github.com/ValentinKolb/rmap/cmd/util"
	"github.com/ValentinKolb/rmap/lib/db/util"
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/serializer"
	"github.com/ValentinKolb/rmap/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the rmap server",
		Long:    `Start the rmap server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is RMAP_<flag> (e.g. RMAP_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "shards"
	ServeCmd.PersistentFlags().String(key, "100=lstore", cmdUtil.WrapString("Comma-separated list of shards to serve. Format: ID=TYPE where TYPE is one of: lstore (in memory, single node), dstore (replicated with raft). Maps select their shard with the db option"))

	key = "rtt-millisecond"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("(dstore) RTTMillisecond defines the average Round Trip Time (RTT) in milliseconds between two NodeHost instances. \nOther raft configuration parameters (ElectionRTT=value/10, HeartbeatRTT=value/100) are derived from this value"))

	key = "snapshot-entries"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("(dstore) SnapshotEntries defines how often the state machine should be snapshotted automatically. It is defined in terms of the number of applied Raft log entries. SnapshotEntries can be set to 0 to disable such automatic snapshotting (not recommended)"))

	key = "compaction-overhead"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("(dstore) CompactionOverhead defines the number of snapshots that should be retained in the system. Recommended value is about 1/2 of SnapshotEntries"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("(dstore) DataDir is the directory used for storing the raft logs and snapshots"))

	key = "replica-id"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(dstore) ReplicaID is the unique identifier for this NodeHost instance (e.g. 'node-1')"))

	key = "cluster-members"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(dstore) ClusterMembers is a comma-separated list of NodeHost addresses in the format 'node-1=localhost:63001,node-2=localhost:63002,...'"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds for raft proposals and for writing responses"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the server will listen (e.g. localhost:8080, /tmp/rmap.sock, ...)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("Number of requests handled in parallel per connection (tcp and unix)"))

	key = "stream-buffer"
	ServeCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("Size of the frame buffers per request in KB (tcp and unix)"))

	key = "write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Socket write buffer in KB, 0 keeps the OS default (tcp and unix)"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Socket read buffer in KB, 0 keeps the OS default (tcp and unix)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Keepalive interval in seconds, 0 disables keepalive (tcp only)"))
}

// parseShards parses the cli notation ID=TYPE[,ID=TYPE...]
func parseShards(s string) ([]common.ServerShard, error) {
	var shards []common.ServerShard
	seen := make(map[uint64]bool)

	for _, shardConfig := range strings.Split(s, ",") {
		parts := strings.Split(shardConfig, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid shard format: %s (expected ID=TYPE)", shardConfig)
		}

		// Parse shard ID
		shardID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid shard ID %s: %v", parts[0], err)
		}
		if seen[shardID] {
			return nil, fmt.Errorf("shard %d is configured twice", shardID)
		}
		seen[shardID] = true

		shardType, err := common.ParseShardType(parts[1])
		if err != nil {
			return nil, err
		}

		shards = append(shards, common.ServerShard{
			ShardID: shardID,
			Type:    shardType,
		})
	}
	return shards, nil
}

// parseClusterMembers parses 'name=address,...', the names are hashed into replica ids
func parseClusterMembers(s string) (map[uint64]string, error) {
	members := make(map[uint64]string)
	for _, member := range strings.Split(s, ",") {
		parts := strings.Split(member, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid cluster member format: %s (expected ID=address)", member)
		}
		members[uint64(util.HashString(parts[0], 0))] = parts[1]
	}
	return members, nil
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	shards, err := parseShards(viper.GetString("shards"))
	if err != nil {
		return err
	}
	serveCmdConfig.Shards = shards

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.RTTMillisecond = viper.GetUint64("rtt-millisecond")
	serveCmdConfig.SnapshotEntries = viper.GetUint64("snapshot-entries")
	serveCmdConfig.CompactionOverhead = viper.GetUint64("compaction-overhead")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.TransportType = viper.GetString("transport")
	serveCmdConfig.Serializer = viper.GetString("serializer")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:         viper.GetString("endpoint"),
		WorkersPerConn:   viper.GetInt("workers-per-conn"),
		StreamBufferSize: viper.GetInt("stream-buffer") * 1024,
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		},
	}

	// parse replica id
	if id := viper.GetString("replica-id"); id != "" {
		serveCmdConfig.ReplicaID = uint64(util.HashString(id, 0))
	} else if serveCmdConfig.HasRemoteShard() {
		// error only if cluster mode
		return fmt.Errorf("ReplicaId is required for dstore shards")
	}

	// parse cluster members
	if clusterMembers := viper.GetString("cluster-members"); clusterMembers != "" {
		members, err := parseClusterMembers(clusterMembers)
		if err != nil {
			return err
		}
		serveCmdConfig.ClusterMembers = members
	} else if serveCmdConfig.HasRemoteShard() {
		// error only if cluster mode
		return fmt.Errorf("ClusterMembers is required for dstore shards")
	}

	// test if the replica id is in the cluster members (only for cluster mode)
	if _, ok := serveCmdConfig.ClusterMembers[serveCmdConfig.ReplicaID]; !ok && serveCmdConfig.HasRemoteShard() {
		return fmt.Errorf("no address found for replica ID %d in cluster members", serveCmdConfig.ReplicaID)
	}

	return nil
}

// run starts the rmap server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	if err := cmdUtil.InitLogging("info"); err != nil {
		return err
	}

	s, err := serializer.New(serveCmdConfig.Serializer)
	if err != nil {
		return err
	}
	t, err := server.NewServerTransport(serveCmdConfig.TransportType)
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, t, s)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signals
		server.Logger.Infof("received %s, shutting down", sig)
		if err := serv.Close(); err != nil {
			server.Logger.Errorf("failed to stop server: %v", err)
		}
	}()

	return serv.Serve()
}
