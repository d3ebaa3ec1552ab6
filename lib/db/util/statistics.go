package util

import (
	"math"
	"slices"
)

// ShardBalance describes how evenly the keys of a database are spread over its shards
type ShardBalance struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_deviation"`
	// Quality is 1 for a perfectly even spread and approaches 0 when a few shards hold all keys
	Quality float64 `json:"quality"`
}

// NewShardBalance computes the balance of the given per shard key counts
func NewShardBalance(sizes []int) ShardBalance {
	if len(sizes) == 0 {
		return ShardBalance{}
	}

	b := ShardBalance{Min: slices.Min(sizes), Max: slices.Max(sizes)}

	var sum int
	for _, s := range sizes {
		sum += s
	}
	b.Mean = float64(sum) / float64(len(sizes))

	var squares float64
	for _, s := range sizes {
		d := float64(s) - b.Mean
		squares += d * d
	}
	b.StdDev = math.Sqrt(squares / float64(len(sizes)))

	// empty databases are perfectly balanced
	if b.Max == 0 {
		b.Quality = 1
		return b
	}

	// half coefficient of variation, half min/max ratio
	cv := math.Min(1, b.StdDev/b.Mean)
	b.Quality = (1-cv)*0.5 + float64(b.Min)/float64(b.Max)*0.5
	return b
}

// SizeSample collects entry sizes to estimate the size of a database without a full scan.
// It is not safe for concurrent use.
type SizeSample struct {
	sizes []int
	sum   int
}

// Add records the size of one sampled entry
func (s *SizeSample) Add(size int) {
	s.sizes = append(s.sizes, size)
	s.sum += size
}

// Len returns the number of samples
func (s *SizeSample) Len() int {
	return len(s.sizes)
}

// Mean returns the average sample, 0 without samples
func (s *SizeSample) Mean() int {
	if len(s.sizes) == 0 {
		return 0
	}
	return s.sum / len(s.sizes)
}

// Median returns the median sample, 0 without samples
func (s *SizeSample) Median() int {
	if len(s.sizes) == 0 {
		return 0
	}
	sorted := slices.Clone(s.sizes)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Estimate returns a per entry size estimate weighted 60/40 between median and mean
func (s *SizeSample) Estimate() int {
	return (s.Median()*60 + s.Mean()*40) / 100
}
