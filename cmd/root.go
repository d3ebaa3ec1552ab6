package cmd

import (
	"fmt"
	"github.com/ValentinKolb/rmap/cmd/kv"
	"github.com/ValentinKolb/rmap/cmd/maps"
	"github.com/ValentinKolb/rmap/cmd/serve"
	"github.com/ValentinKolb/rmap/cmd/util"
	"github.com/spf13/cobra"
	"os"
	"runtime"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "rmap",
		Short: "shared remote hash maps",
		Long: fmt.Sprintf(`rmap (v%s)

Shared string maps stored in the hashes of a remote key-value store.
Handles with the same id share one map, the last handle to close deletes it.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of rmap",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rmap v%s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(maps.MapCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (binary, json, gob)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix, http)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("log level (debug, info, warn, error), defaults to info for serve and warn for all client commands"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
