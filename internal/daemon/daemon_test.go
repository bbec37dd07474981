package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewValidatesConfig(t *testing.T) {
	planFn := func(ctx context.Context) (int, error) { return 0, nil }

	if _, err := New(Config{Interval: 0}, planFn); err == nil {
		t.Error("expected error for zero interval")
	}
	if _, err := New(Config{Interval: time.Second}, nil); err == nil {
		t.Error("expected error for nil plan function")
	}
	if _, err := New(Config{Interval: time.Second}, planFn); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestRunCyclesUntilCancelled(t *testing.T) {
	var cycles atomic.Int64
	planFn := func(ctx context.Context) (int, error) {
		cycles.Add(1)
		return 0, nil
	}

	d, err := New(Config{Interval: 10 * time.Millisecond, Region: "us-east-1"}, planFn)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// One immediate cycle plus at least a couple of ticks.
	if got := cycles.Load(); got < 3 {
		t.Errorf("expected at least 3 cycles, got %d", got)
	}
	if d.Health().Cycles != cycles.Load() {
		t.Errorf("health cycles = %d, want %d", d.Health().Cycles, cycles.Load())
	}
}

func TestRunCountsDrift(t *testing.T) {
	planFn := func(ctx context.Context) (int, error) { return 2, nil }

	d, err := New(Config{Interval: time.Hour}, planFn)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := d.Run(ctx); err != nil {
		t.Fatal(err)
	}

	health := d.Health()
	if health.DriftCycles != 1 {
		t.Errorf("DriftCycles = %d, want 1", health.DriftCycles)
	}
	if health.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", health.Status)
	}
}

func TestRunSurvivesPlanErrors(t *testing.T) {
	planFn := func(ctx context.Context) (int, error) {
		return 0, errors.New("aws unavailable")
	}

	d, err := New(Config{Interval: 10 * time.Millisecond}, planFn)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	if err := d.Run(ctx); err != nil {
		t.Fatalf("daemon must keep running through cycle errors, got %v", err)
	}
	if d.Health().Cycles < 2 {
		t.Errorf("expected retries after failure, got %d cycles", d.Health().Cycles)
	}
	if d.Health().DriftCycles != 0 {
		t.Error("failed cycles must not count as drift")
	}
}
