package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestForPlanes(t *testing.T) {
	cfg := DefaultConfig()

	batch, channels := 4, 8
	results := make([][]bool, batch)
	for b := range results {
		results[b] = make([]bool, channels)
	}

	ForPlanes(batch, channels, func(n, c int) {
		results[n][c] = true
	}, cfg)

	for n := 0; n < batch; n++ {
		for c := 0; c < channels; c++ {
			if !results[n][c] {
				t.Errorf("Missing result at [%d][%d]", n, c)
			}
		}
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var counter int64
	For(100, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestFor_SmallChunk(t *testing.T) {
	// Test that small work units fall back to sequential.
	cfg := DefaultConfig()

	var counter int64
	n := cfg.MinChunkSize - 1

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestForEach(t *testing.T) {
	var counter int64
	n := 100

	err := ForEach(n, 4, func(_ int) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestForEach_CollectsError(t *testing.T) {
	boom := errors.New("boom")

	err := ForEach(10, 2, func(i int) error {
		if i == 7 {
			return boom
		}
		return nil
	})

	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
}

func TestForEach_NoLimit(t *testing.T) {
	var counter int64

	err := ForEach(50, 0, func(_ int) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if counter != 50 {
		t.Errorf("Expected 50, got %d", counter)
	}
}
