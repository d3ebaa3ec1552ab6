package maps

import (
	"fmt"
	"github.com/ValentinKolb/rmap/cmd/util"
	"github.com/ValentinKolb/rmap/lib/rmap"
	"github.com/ValentinKolb/rmap/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rpcStore *client.RPCStore

	// MapCommands represents the map command group
	MapCommands = &cobra.Command{
		Use:   "map",
		Short: "Work with shared maps",
		Long: `Work with the shared map of a logical id (--id).

All commands except perf attach to the namespace without taking a reference,
so they never delete the data of the map when they exit.`,
		PersistentPreRunE:  setupMapClient,
		PersistentPostRunE: closeMapClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the map command
	util.SetupRPCClientFlags(MapCommands)

	key := "id"
	MapCommands.PersistentFlags().String(key, "", util.WrapString("Logical id of the map"))
	key = "page-size"
	MapCommands.PersistentFlags().Int(key, rmap.DefaultPageSize, util.WrapString("Number of fields requested per scan call"))

	// Add subcommands
	MapCommands.AddCommand(putCmd)
	MapCommands.AddCommand(getCmd)
	MapCommands.AddCommand(removeCmd)
	MapCommands.AddCommand(listCmd)
	MapCommands.AddCommand(sizeCmd)
	MapCommands.AddCommand(clearCmd)
	MapCommands.AddCommand(inspectCmd)
	MapCommands.AddCommand(perfTestCmd)
}

// setupMapClient initializes the RPC store client
func setupMapClient(cmd *cobra.Command, _ []string) (err error) {
	rpcStore, err = util.NewRPCStore(cmd)
	return err
}

func closeMapClient(*cobra.Command, []string) error {
	if rpcStore == nil {
		return nil
	}
	return rpcStore.Close()
}

func scanOptions() rmap.ScanOptions {
	return rmap.ScanOptions{PageSize: viper.GetInt("page-size")}
}

// attach returns a handle on the map of --id that does not change the reference count
func attach() (*rmap.Map, error) {
	id := viper.GetString("id")
	if id == "" {
		return nil, fmt.Errorf("--id is required")
	}
	return rmap.New(rpcStore, rmap.WithID(id), rmap.WithAttach(), rmap.WithScanOptions(scanOptions()))
}

// withMap runs fn on an attached handle
func withMap(fn func(m *rmap.Map) error) error {
	m, err := attach()
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}
