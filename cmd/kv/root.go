package kv

import (
	"github.com/ValentinKolb/rmap/cmd/util"
	"github.com/ValentinKolb/rmap/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore *client.RPCStore

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform raw hash and counter operations on the store",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(hsetCmd)
	KeyValueCommands.AddCommand(hsetnxCmd)
	KeyValueCommands.AddCommand(hgetCmd)
	KeyValueCommands.AddCommand(hdelCmd)
	KeyValueCommands.AddCommand(hlenCmd)
	KeyValueCommands.AddCommand(hscanCmd)
	KeyValueCommands.AddCommand(incrCmd)
	KeyValueCommands.AddCommand(decrCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the RPC store client
func setupKVClient(cmd *cobra.Command, _ []string) (err error) {
	rpcStore, err = util.NewRPCStore(cmd)
	return err
}

func closeKVClient(*cobra.Command, []string) error {
	if rpcStore == nil {
		return nil
	}
	return rpcStore.Close()
}
