package racebench

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/zeebo/pcg"
)

// Config describes a single benchmark run.
type Config struct {
	// Policy selects how the shared counter is kept consistent.
	Policy Policy

	// Workers is the number of concurrent workers. It must be at least 1.
	Workers int

	// Iterations is the number of increments each worker performs. It must
	// not be negative.
	Iterations int

	// Yield, when non-zero, makes a worker yield the processor after an
	// increment with probability 1/Yield. Yielding widens the window in which
	// an unsynchronized increment can be interleaved.
	Yield uint32

	// Prepare, if set, is called by each worker with its index before it
	// starts incrementing. A panic in Prepare fails only that worker.
	Prepare func(worker int)

	// Logger is used for lifecycle messages. If nil, log.Default() is used.
	Logger *log.Logger
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Logger == nil {
		out.Logger = log.Default()
	}
	return out
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d: %w", c.Workers, ErrInvalidConfig)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative, got %d: %w", c.Iterations, ErrInvalidConfig)
	}
	if !c.Policy.valid() {
		return fmt.Errorf("%w: %w %d", ErrInvalidConfig, ErrUnknownPolicy, int(c.Policy))
	}
	return nil
}

// Outcome is how a single worker of a run terminated.
type Outcome struct {
	Worker int            // index of the worker in the run
	Err    *WorkerFailure // nil if the worker completed
}

// OK reports if the worker completed.
func (o Outcome) OK() bool { return o.Err == nil }

// Result is the outcome of a benchmark run.
type Result struct {
	Policy     Policy
	Workers    int
	Iterations int

	Value    int64 // counter value after every worker joined
	Expected int64 // Workers * Iterations

	Outcomes []Outcome // one per worker, in worker order
	Elapsed  time.Duration
}

// Failures returns the failures of the workers that did not complete.
func (r Result) Failures() []*WorkerFailure {
	var out []*WorkerFailure
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o.Err)
		}
	}
	return out
}

// Completed returns the number of workers that completed.
func (r Result) Completed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Lost returns how many increments were lost to unsynchronized updates. It is
// only meaningful when every worker completed and returns 0 otherwise, since a
// failed worker's contribution is unknown.
func (r Result) Lost() int64 {
	if r.Completed() != len(r.Outcomes) {
		return 0
	}
	return r.Expected - r.Value
}

// Run validates cfg, runs cfg.Workers workers that each increment a shared
// counter cfg.Iterations times, and waits for all of them to terminate before
// reading the counter. A worker that panics is recorded in the Result and
// does not affect the others. The only errors returned are configuration
// errors, and they are returned before any worker is started.
func Run(cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	cfg = cfg.withDefaults()

	t := newTally(cfg.Policy)
	res := Result{
		Policy:     cfg.Policy,
		Workers:    cfg.Workers,
		Iterations: cfg.Iterations,
		Expected:   int64(cfg.Workers) * int64(cfg.Iterations),
		Outcomes:   make([]Outcome, cfg.Workers),
	}

	cfg.Logger.Printf("[bench] dispatching %d workers (policy=%s, iterations=%d)",
		cfg.Workers, cfg.Policy, cfg.Iterations)
	start := time.Now()

	handles := make([]*Handle[struct{}], cfg.Workers)
	for i := range handles {
		i := i // per-iteration copy (pre-Go 1.22 loop semantics)
		name := fmt.Sprintf("bench-%s-%d", cfg.Policy, i)
		handles[i] = SpawnNamed(name, func() struct{} {
			if cfg.Prepare != nil {
				cfg.Prepare(i)
			}
			increment(t, i, cfg.Iterations, cfg.Yield)
			return struct{}{}
		})
	}

	for i, h := range handles {
		res.Outcomes[i].Worker = i
		var wf *WorkerFailure
		if _, err := h.Join(); errors.As(err, &wf) {
			res.Outcomes[i].Err = wf
			cfg.Logger.Printf("[bench] worker %d failed: %v", i, wf)
		}
	}

	res.Value = t.load()
	res.Elapsed = time.Since(start)

	cfg.Logger.Printf("[bench] done in %s: value=%d expected=%d failures=%d",
		res.Elapsed, res.Value, res.Expected, len(res.Outcomes)-res.Completed())

	return res, nil
}

// increment is the body of a benchmark worker.
func increment(t tally, worker, iterations int, yield uint32) {
	for j := 0; j < iterations; j++ {
		t.inc(worker)
		if yield > 0 && pcg.Uint32n(yield) == 0 {
			runtime.Gosched()
		}
	}
}

// RunBenchmark runs workers workers each performing iterations increments
// under policy and returns the final counter value along with the failures of
// any workers that panicked.
func RunBenchmark(policy Policy, workers, iterations int) (int64, []*WorkerFailure, error) {
	res, err := Run(Config{
		Policy:     policy,
		Workers:    workers,
		Iterations: iterations,
	})
	if err != nil {
		return 0, nil, err
	}
	return res.Value, res.Failures(), nil
}
