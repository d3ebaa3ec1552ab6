package maps

import (
	"fmt"
	"github.com/ValentinKolb/rmap/lib/rmap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Sets a key and prints the previous value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMap(func(m *rmap.Map) error {
				prev, existed, err := m.Put(args[0], args[1])
				if err != nil {
					return err
				}
				printPrevious(prev, existed)
				return nil
			})
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Gets the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMap(func(m *rmap.Map) error {
				value, ok, err := m.Get(args[0])
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("<not found>")
					return nil
				}
				fmt.Println(value)
				return nil
			})
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [key]",
		Short: "Removes a key and prints its value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMap(func(m *rmap.Map) error {
				prev, existed, err := m.Remove(args[0])
				if err != nil {
					return err
				}
				printPrevious(prev, existed)
				return nil
			})
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Prints all entries ordered by key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMap(func(m *rmap.Map) error {
				it, err := m.Iter()
				if err != nil {
					return err
				}
				for it.Next() {
					fmt.Printf("%s=%s\n", it.Key(), it.Value())
				}
				return nil
			})
		},
	}
	sizeCmd = &cobra.Command{
		Use:   "size",
		Short: "Prints the number of entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMap(func(m *rmap.Map) error {
				n, err := m.Size()
				if err != nil {
					return err
				}
				fmt.Println(n)
				return nil
			})
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Removes all entries (open handles keep working on the empty map)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMap(func(m *rmap.Map) error {
				if err := m.Clear(); err != nil {
					return err
				}
				fmt.Println("cleared successfully")
				return nil
			})
		},
	}
	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Prints the store keys of the map, its size and the number of open handles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := viper.GetString("id")
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			ns := rmap.NewNamespace(id, true)

			size, err := rpcStore.HLen(ns.DataKey)
			if err != nil {
				return err
			}
			count, ok, err := rpcStore.Get(ns.RefCountKey)
			if err != nil {
				return err
			}
			if !ok {
				count = []byte("<not set>")
			}

			fmt.Printf("data key:      %s\n", ns.DataKey)
			fmt.Printf("entries:       %d\n", size)
			fmt.Printf("counter key:   %s\n", ns.RefCountKey)
			fmt.Printf("open handles:  %s\n", count)
			return nil
		},
	}
)

func printPrevious(prev string, existed bool) {
	if existed {
		fmt.Printf("previous value: %s\n", prev)
	} else {
		fmt.Println("previous value: <none>")
	}
}
