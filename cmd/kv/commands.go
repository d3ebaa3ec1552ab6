package kv

import (
	"fmt"
	"github.com/spf13/cobra"
	"strconv"
)

var (
	hsetCmd = &cobra.Command{
		Use:   "hset [key] [field] [value]",
		Short: "Sets a field of a hash",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.HSet(args[0], args[1], []byte(args[2])); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	hsetnxCmd = &cobra.Command{
		Use:   "hsetnx [key] [field] [value]",
		Short: "Sets a field of a hash if it does not exist yet",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := rpcStore.HSetNX(args[0], args[1], []byte(args[2]))
			if err != nil {
				return err
			}
			if set {
				fmt.Println("set successfully")
			} else {
				fmt.Println("field exists, nothing changed")
			}
			return nil
		},
	}
	hgetCmd = &cobra.Command{
		Use:   "hget [key] [field]",
		Short: "Gets a field of a hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok, err := rpcStore.HGet(args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("<not found>")
				return nil
			}
			fmt.Println(string(value))
			return nil
		},
	}
	hdelCmd = &cobra.Command{
		Use:   "hdel [key] [field]",
		Short: "Deletes a field of a hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcStore.HDel(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d field(s)\n", n)
			return nil
		},
	}
	hlenCmd = &cobra.Command{
		Use:   "hlen [key]",
		Short: "Prints the number of fields of a hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcStore.HLen(args[0])
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	hscanCmd = &cobra.Command{
		Use:   "hscan [key] [cursor] [count]",
		Short: "Prints one page of a hash scan and the next cursor (0 when the scan is complete)",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cursor uint64
			count := 10
			if len(args) > 1 {
				c, err := strconv.ParseUint(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("cursor must be a number: %w", err)
				}
				cursor = c
			}
			if len(args) > 2 {
				c, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("count must be a number: %w", err)
				}
				count = c
			}

			next, fields, err := rpcStore.HScan(args[0], cursor, count)
			if err != nil {
				return err
			}
			for _, f := range fields {
				fmt.Printf("%s=%s\n", f.Name, f.Value)
			}
			fmt.Printf("next cursor: %d\n", next)
			return nil
		},
	}
	incrCmd = &cobra.Command{
		Use:   "incr [key]",
		Short: "Increments a counter and prints the new value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcStore.Incr(args[0])
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	decrCmd = &cobra.Command{
		Use:   "decr [key]",
		Short: "Decrements a counter and prints the new value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcStore.Decr(args[0])
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Gets the value of a counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok, err := rpcStore.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("<not found>")
				return nil
			}
			fmt.Println(string(value))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key (hash or counter)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Delete(args[0]); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		},
	}
)
