// Package loadtest drives concurrent writers through the Dual-Write Facade and
// checks that the mirror still equals the projection of the store afterwards.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/devbydijah/todolist/internal/todo/facade"
	"github.com/devbydijah/todolist/internal/todo/schema"
	"github.com/google/go-cmp/cmp"
)

// Op names a facade operation exercised by the load test.
type Op string

const (
	OpSave   Op = "save"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
)

// Options configures a run.
type Options struct {
	Workers      int
	OpsPerWorker int
	// RemoveEvery makes every Nth operation of a worker a remove. Zero
	// disables removes.
	RemoveEvery int
	// Seed makes the operation mix reproducible.
	Seed int64
}

// DefaultOptions returns a small mixed workload.
func DefaultOptions() Options {
	return Options{Workers: 8, OpsPerWorker: 50, RemoveEvery: 5, Seed: 1}
}

// LatencyStats captures latency for one kind of operation.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration // Median
	P95          time.Duration
	P99          time.Duration
	TotalQueries int
	Errors       int
	Durations    []time.Duration
}

// Report is the outcome of a run.
type Report struct {
	Overall    *LatencyStats
	ByOp       map[Op]*LatencyStats
	FinalCount int
	// MirrorDiff is empty when the mirror equals the projection of the store.
	MirrorDiff string
	Elapsed    time.Duration
}

type sample struct {
	op  Op
	d   time.Duration
	err error
}

// Run executes the workload against f.
func Run(ctx context.Context, f *facade.Facade, opts Options) (*Report, error) {
	if opts.Workers <= 0 || opts.OpsPerWorker <= 0 {
		return nil, fmt.Errorf("workers and ops per worker must be positive")
	}

	start := time.Now()
	samplesChan := make(chan []sample, opts.Workers)
	var wg sync.WaitGroup

	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			samplesChan <- runWorker(ctx, f, worker, opts)
		}(i)
	}
	wg.Wait()
	close(samplesChan)

	byOp := make(map[Op][]time.Duration)
	errs := make(map[Op]int)
	var all []time.Duration
	totalErrors := 0
	for samples := range samplesChan {
		for _, s := range samples {
			all = append(all, s.d)
			byOp[s.op] = append(byOp[s.op], s.d)
			if s.err != nil {
				errs[s.op]++
				totalErrors++
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Overall: computeLatencyStats(all),
		ByOp:    make(map[Op]*LatencyStats, len(byOp)),
		Elapsed: time.Since(start),
	}
	report.Overall.Errors = totalErrors
	for op, ds := range byOp {
		stats := computeLatencyStats(ds)
		stats.Errors = errs[op]
		report.ByOp[op] = stats
	}

	diff, count, err := VerifyMirror(ctx, f)
	if err != nil {
		return report, err
	}
	report.MirrorDiff = diff
	report.FinalCount = count
	return report, nil
}

func runWorker(ctx context.Context, f *facade.Facade, worker int, opts Options) []sample {
	rng := rand.New(rand.NewSource(opts.Seed + int64(worker)))
	samples := make([]sample, 0, opts.OpsPerWorker)
	var owned []int64

	for j := 0; j < opts.OpsPerWorker; j++ {
		if ctx.Err() != nil {
			return samples
		}

		op := OpSave
		switch {
		case len(owned) == 0:
		case opts.RemoveEvery > 0 && (j+1)%opts.RemoveEvery == 0:
			op = OpRemove
		case rng.Intn(2) == 0:
			op = OpUpdate
		}

		began := time.Now()
		var err error
		switch op {
		case OpSave:
			var saved schema.Todo
			saved, err = f.Save(ctx, schema.Todo{
				Title:       fmt.Sprintf("worker %d todo %d", worker, j),
				Description: "load test",
			})
			if err == nil {
				owned = append(owned, saved.ID)
			}
		case OpUpdate:
			id := owned[rng.Intn(len(owned))]
			_, err = f.Toggle(ctx, id)
		case OpRemove:
			idx := rng.Intn(len(owned))
			err = f.Remove(ctx, owned[idx])
			if err == nil {
				owned = append(owned[:idx], owned[idx+1:]...)
			}
		}
		samples = append(samples, sample{op: op, d: time.Since(began), err: err})
	}
	return samples
}

// VerifyMirror compares the mirror with the projection of the store. It
// returns a diff (empty when equal) and the store's record count.
func VerifyMirror(ctx context.Context, f *facade.Facade) (string, int, error) {
	todos, err := f.List(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to list store: %w", err)
	}
	snap, err := f.Snapshot()
	if err != nil {
		return "", 0, fmt.Errorf("failed to read mirror: %w", err)
	}
	return cmp.Diff(schema.Project(todos), snap), len(todos), nil
}

func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return &LatencyStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Mean:         sum / time.Duration(len(durations)),
		P50:          sorted[len(sorted)*50/100],
		P95:          sorted[len(sorted)*95/100],
		P99:          sorted[len(sorted)*99/100],
		TotalQueries: len(durations),
		Durations:    sorted,
	}
}

// WriteStats formats latency statistics to w.
func (s *LatencyStats) WriteStats(w io.Writer) {
	fmt.Fprintf(w, "  Operations:    %d\n", s.TotalQueries)
	fmt.Fprintf(w, "  Errors:        %d\n", s.Errors)
	fmt.Fprintf(w, "  Min:           %v\n", s.Min)
	fmt.Fprintf(w, "  P50 (Median):  %v\n", s.P50)
	fmt.Fprintf(w, "  Mean:          %v\n", s.Mean)
	fmt.Fprintf(w, "  P95:           %v\n", s.P95)
	fmt.Fprintf(w, "  P99:           %v\n", s.P99)
	fmt.Fprintf(w, "  Max:           %v\n", s.Max)
}
