package parallel

import (
	"sync/atomic"
	"testing"
)

func TestParallelizeN_CoversAllItems(t *testing.T) {
	tests := []struct {
		name    string
		items   int
		workers int
	}{
		{"sequential", 10, 1},
		{"four workers", 103, 4},
		{"all cpus", 57, -1},
		{"more workers than items", 3, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]int32, tt.items)
			ParallelizeN(tt.items, tt.workers, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&seen[i], 1)
				}
			})
			for i, c := range seen {
				if c != 1 {
					t.Fatalf("item %d visited %d times", i, c)
				}
			}
		})
	}
}

func TestParallelizeWithThreshold_Sequential(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		calls++
		if start != 0 || end != 5 {
			t.Errorf("range = [%d, %d), want [0, 5)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestParallelize_ZeroItems(t *testing.T) {
	Parallelize(0, func(start, end int) {
		t.Error("fn should not be called for zero items")
	})
}
