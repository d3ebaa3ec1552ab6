package maps

import (
	"fmt"
	"github.com/ValentinKolb/rmap/cmd/util"
	"github.com/ValentinKolb/rmap/lib/rmap"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strconv"
	"sync"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Measures the latency of map operations",
		Long: `Measures the latency of map operations with parallel clients.

Without --id a new exclusive map is used and deleted afterwards. With --id the
benchmark runs on the shared map of that id and clears it after every test.`,
		Args: cobra.NoArgs,
		RunE: runPerf,
	}
)

// mapBenchmark is one map operation measured by perf
type mapBenchmark struct {
	name  string
	setup func(m *rmap.Map, keys []string) error
	op    func(m *rmap.Map, key string) error
}

func init() {
	key := "ops"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("Number of operations per test"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of parallel clients"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Tests to skip (comma separated - e.g. put,snapshot)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save the results as CSV"))
}

func fill(m *rmap.Map, keys []string) error {
	entries := make(rmap.Entries, len(keys))
	for _, k := range keys {
		entries[k] = "test"
	}
	return m.PutAll(entries)
}

var mapBenchmarks = []mapBenchmark{
	{name: "put", op: func(m *rmap.Map, key string) error {
		_, _, err := m.Put(key, "test")
		return err
	}},
	{name: "get", setup: fill, op: func(m *rmap.Map, key string) error {
		_, _, err := m.Get(key)
		return err
	}},
	{name: "contains", setup: fill, op: func(m *rmap.Map, key string) error {
		_, err := m.ContainsKey(key)
		return err
	}},
	{name: "remove", setup: fill, op: func(m *rmap.Map, key string) error {
		_, _, err := m.Remove(key)
		return err
	}},
	{name: "put-if-absent", op: func(m *rmap.Map, key string) error {
		_, _, err := m.PutIfAbsent(key, "test")
		return err
	}},
	{name: "snapshot", setup: fill, op: func(m *rmap.Map, _ string) error {
		_, err := m.Snapshot()
		return err
	}},
}

func runPerf(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	ops := max(1, viper.GetInt("ops"))
	threads := max(1, viper.GetInt("threads"))
	keySpread := viper.GetInt("keys")

	opts := []rmap.Option{rmap.WithScanOptions(scanOptions())}
	if id := viper.GetString("id"); id != "" {
		opts = append(opts, rmap.WithID(id))
	}
	m, err := rmap.New(rpcStore, opts...)
	if err != nil {
		return err
	}
	defer m.Close()

	fmt.Println("Performance testing tool for rmap maps")
	fmt.Println()
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Map: %s (%s)\n", m.Namespace().DataKey, m.Mode())
	fmt.Printf("Threads: %d, operations per test: %d\n", threads, ops)
	fmt.Println()

	registry := metrics.NewRegistry()
	var rows [][]string

	for _, bm := range mapBenchmarks {
		if util.Skips(viper.GetString("skip"), bm.name) {
			util.PrintResult(bm.name, 0, "")
			continue
		}

		timer := metrics.GetOrRegisterTimer(bm.name, registry)
		errs := metrics.GetOrRegisterCounter(bm.name+".errors", registry)

		keys, getKey := util.Keys(bm.name, keySpread)
		if bm.setup != nil {
			if err := bm.setup(m, keys); err != nil {
				return fmt.Errorf("(%s) failed to prepare keys: %w", bm.name, err)
			}
		}

		var wg sync.WaitGroup
		for t := 0; t < threads; t++ {
			wg.Add(1)
			go func(t int) {
				defer wg.Done()
				for i := t; i < ops; i += threads {
					start := time.Now()
					err := bm.op(m, getKey(i))
					timer.UpdateSince(start)
					if err != nil {
						errs.Inc(1)
					}
				}
			}(t)
		}
		wg.Wait()

		if err := m.Clear(); err != nil {
			return fmt.Errorf("(%s) failed to clear map: %w", bm.name, err)
		}

		s := timer.Snapshot()
		p := s.Percentiles([]float64{0.5, 0.99})
		util.PrintResult(bm.name, s.Mean(), fmt.Sprintf("\tp50 %s\tp99 %s\terrors %d",
			time.Duration(p[0]), time.Duration(p[1]), errs.Count()))

		rows = append(rows, []string{
			bm.name,
			strconv.FormatInt(s.Count(), 10),
			fmt.Sprintf("%.0f", s.Mean()),
			fmt.Sprintf("%.0f", p[0]),
			fmt.Sprintf("%.0f", p[1]),
			strconv.FormatInt(s.Max(), 10),
			strconv.FormatInt(errs.Count(), 10),
			strconv.Itoa(threads),
		})
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		header := []string{"Test", "Count", "MeanNs", "P50Ns", "P99Ns", "MaxNs", "Errors", "Threads"}
		if err := util.WriteCSV(csvPath, header, rows); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}
