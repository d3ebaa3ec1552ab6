package util

import "testing"

func TestSizeSample(t *testing.T) {
	var s SizeSample
	if s.Median() != 0 || s.Mean() != 0 || s.Estimate() != 0 {
		t.Fatalf("empty sample must estimate 0")
	}

	for _, size := range []int{10, 20, 30, 100} {
		s.Add(size)
	}
	if s.Len() != 4 {
		t.Errorf("Len = %d, want 4", s.Len())
	}
	if s.Mean() != 40 {
		t.Errorf("Mean = %d, want 40", s.Mean())
	}
	if s.Median() != 25 {
		t.Errorf("Median = %d, want 25", s.Median())
	}
	// 25*0.6 + 40*0.4
	if s.Estimate() != 31 {
		t.Errorf("Estimate = %d, want 31", s.Estimate())
	}

	s.Add(5)
	if s.Median() != 20 {
		t.Errorf("Median of odd sample = %d, want 20", s.Median())
	}
}

func TestShardBalance(t *testing.T) {
	tests := []struct {
		name    string
		sizes   []int
		quality float64
	}{
		{"empty", nil, 0},
		{"no keys", []int{0, 0, 0}, 1},
		{"even", []int{5, 5, 5, 5}, 1},
		{"single shard", []int{8, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewShardBalance(tt.sizes)
			if b.Quality != tt.quality {
				t.Errorf("Quality = %v, want %v", b.Quality, tt.quality)
			}
		})
	}

	b := NewShardBalance([]int{2, 4, 6})
	if b.Min != 2 || b.Max != 6 || b.Mean != 4 {
		t.Errorf("unexpected balance: %+v", b)
	}
	if b.Quality <= 0 || b.Quality >= 1 {
		t.Errorf("uneven shards must have a quality between 0 and 1, got %v", b.Quality)
	}
}
