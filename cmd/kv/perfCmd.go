package kv

import (
	"fmt"
	"github.com/ValentinKolb/rmap/cmd/util"
	"github.com/ValentinKolb/rmap/lib/db"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"strconv"
	"strings"
	"testing"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for rmap servers (raw store operations)",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = ""
)

// benchmark is one store operation measured by perf. setup runs once with all keys before the timer starts.
type benchmark struct {
	name  string
	setup func(keys []string) error
	op    func(key string, i int) error
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. hset,hget)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the hset-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different fields to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = viper.GetString("skip")

	return nil
}

// perfHash is the hash all field benchmarks write to
const perfHash = "__perf-hash"

func benchmarks() []benchmark {
	value := []byte("test")
	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	fill := func(keys []string) error {
		fields := make([]db.Field, len(keys))
		for i, k := range keys {
			fields[i] = db.Field{Name: k, Value: value}
		}
		return rpcStore.HSetMulti(perfHash, fields)
	}

	return []benchmark{
		{name: "hset", op: func(key string, _ int) error {
			return rpcStore.HSet(perfHash, key, value)
		}},
		{name: "hset-large", op: func(key string, _ int) error {
			return rpcStore.HSet(perfHash, key, largeValue)
		}},
		{name: "hget", setup: fill, op: func(key string, _ int) error {
			_, _, err := rpcStore.HGet(perfHash, key)
			return err
		}},
		{name: "hdel", setup: fill, op: func(key string, _ int) error {
			_, err := rpcStore.HDel(perfHash, key)
			return err
		}},
		{name: "incr", op: func(key string, _ int) error {
			_, err := rpcStore.Incr(key)
			return err
		}},
		{name: "exec", op: func(key string, _ int) error {
			_, err := rpcStore.Exec([]db.Op{
				db.HGetOp(perfHash, key),
				db.HSetOp(perfHash, key, value),
			})
			return err
		}},
		{name: "mixed", setup: fill, op: func(key string, i int) error {
			var err error
			switch i % 4 {
			case 0:
				err = rpcStore.HSet(perfHash, key, value)
			case 1:
				_, _, err = rpcStore.HGet(perfHash, key)
			case 2:
				_, err = rpcStore.HDel(perfHash, key)
			case 3:
				_, err = rpcStore.HExists(perfHash, key)
			}
			return err
		}},
	}
}

func run(_ *cobra.Command, _ []string) error {
	config := util.GetClientConfig()

	fmt.Println("Performance testing tool for rmap servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	var rows [][]string
	for _, bm := range benchmarks() {
		var result testing.BenchmarkResult
		if !util.Skips(perfSkip, bm.name) {
			result = runBenchmark(bm)
		}
		util.PrintResult(bm.name, float64(result.NsPerOp()), "")

		rows = append(rows, []string{
			bm.name,
			strconv.FormatInt(result.NsPerOp(), 10),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.FormatUint(util.GetShardID(), 10),
			config.Serializer,
			config.TransportType,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		})
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		header := []string{"Test", "NsPerOp", "Endpoints", "TimeoutSec", "ShardID", "Serializer", "Transport", "Threads", "LargeValueSizeKB", "Keys Count"}
		if err := util.WriteCSV(csvPath, header, rows); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

func runBenchmark(bm benchmark) testing.BenchmarkResult {
	keys, getKey := util.Keys(bm.name, perfKeySpread)

	return testing.Benchmark(func(b *testing.B) {
		if bm.setup != nil {
			if err := bm.setup(keys); err != nil {
				log.Printf("(%s) - error preparing keys: %v\n", bm.name, err)
			}
		}

		// cleanup
		b.Cleanup(func() {
			if err := rpcStore.Delete(perfHash); err != nil {
				log.Printf("(%s) - error deleting hash: %v\n", bm.name, err)
			}
			for _, k := range keys {
				if err := rpcStore.Delete(k); err != nil {
					log.Printf("(%s) - error deleting key: %v\n", bm.name, err)
				}
			}
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := bm.op(getKey(counter), counter); err != nil {
					log.Printf("(%s) - error: %v\n", bm.name, err)
				}
				counter++
			}
		})
	})
}
