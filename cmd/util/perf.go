package util

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"
)

// Skips reports whether test is part of the comma separated skip list
func Skips(skipList, test string) bool {
	for _, skip := range strings.Split(skipList, ",") {
		if strings.TrimSpace(skip) == test {
			return true
		}
	}
	return false
}

// Keys creates n test keys and a function to pick one by index (with wraparound)
func Keys(prefix string, n int) ([]string, func(int) string) {
	n = max(1, n)
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("__perf-%s-%d", prefix, i)
	}
	return keys, func(i int) string {
		return keys[i%n]
	}
}

// PrintResult prints the result of a benchmark in a formatted way
func PrintResult(test string, nsPerOp float64, extra string) {
	if nsPerOp <= 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec%s\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec, extra)
}

// WriteCSV writes the header and rows to a new file at path
func WriteCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %v", err)
	}
	return nil
}
