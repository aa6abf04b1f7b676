package racebench

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
	"golang.org/x/sync/errgroup"
)

// RuntimeConfig holds Runtime construction parameters.
type RuntimeConfig struct {
	// Workers is the number of tasks that may execute at the same time.
	// Defaults to runtime.GOMAXPROCS(0).
	Workers int

	// Logger is used for lifecycle messages. If nil, log.Default() is used.
	Logger *log.Logger
}

func (c *RuntimeConfig) withDefaults() RuntimeConfig {
	out := *c
	if out.Workers <= 0 {
		out.Workers = runtime.GOMAXPROCS(0)
	}
	if out.Logger == nil {
		out.Logger = log.Default()
	}
	return out
}

// Runtime executes tasks on a fixed number of workers. A task holds a worker
// only while it is running: at a suspension point (Sleep, Await, AwaitAll) it
// hands the worker back and, once the wait is over, resumes on whichever
// worker is free first.
//
// Lifecycle:
//
//	rt := racebench.NewRuntime(cfg)
//	task, err := racebench.Go(rt, ctx, fn)
//	v, err := task.Await(ctx)
//	rt.Shutdown(ctx)
type Runtime struct {
	cfg RuntimeConfig

	// workers holds the ids of the idle workers. Receiving an id is
	// acquiring that worker, sending it back is releasing it.
	workers chan int

	mu      sync.RWMutex // guards closed against tasks.Add
	closed  bool
	tasks   sync.WaitGroup
	once    sync.Once
	drained chan struct{}

	metrics runtimeMetrics
}

// NewRuntime creates a Runtime with cfg.Workers workers.
func NewRuntime(cfg RuntimeConfig) *Runtime {
	cfg = cfg.withDefaults()

	r := &Runtime{
		cfg:     cfg,
		workers: make(chan int, cfg.Workers),
		drained: make(chan struct{}),
	}
	for i := 0; i < cfg.Workers; i++ {
		r.workers <- i
	}

	r.cfg.Logger.Printf("[runtime] starting %d workers", cfg.Workers)
	return r
}

// Workers returns the number of workers of the runtime.
func (r *Runtime) Workers() int { return r.cfg.Workers }

func (r *Runtime) acquire() int { return <-r.workers }
func (r *Runtime) release(worker int) { r.workers <- worker }

// Metrics returns a snapshot of the runtime counters. The snapshot is
// consistent even while tasks run: a task is never counted as completed or
// failed without also being counted as submitted.
func (r *Runtime) Metrics() RuntimeMetrics { return r.metrics.snapshot() }

// Shutdown stops the runtime from accepting tasks and waits for every
// submitted task to finish, or for ctx to be done. It is safe to call more
// than once. It must not be called from inside a task.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.cfg.Logger.Printf("[runtime] shutdown initiated")

		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		go func() {
			r.tasks.Wait()
			close(r.drained)
		}()
	})

	select {
	case <-r.drained:
		r.cfg.Logger.Printf("[runtime] shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}

// taskKey is the context key carrying the *taskState of a running task.
type taskKey struct{}

// taskState is what a task's context knows about the task.
type taskState struct {
	rt     *Runtime
	id     int64
	owner  int64 // goroutine id running the task body
	worker int64 // id of the worker currently executing the task
}

var nextTask int64

// Task is a unit of work submitted to a Runtime.
type Task[T any] struct {
	id   int64
	done chan struct{}
	val  T
	err  error
}

// ID returns the task's id, unique within the process.
func (t *Task[T]) ID() int64 { return t.id }

// Done returns a channel that is closed when the task has finished.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Go submits fn to run as a task on r. The context passed to fn carries the
// task identity: pass it to Sleep, Await and AwaitAll so that they suspend
// the task rather than blocking its worker. Only the goroutine running fn
// suspends; other goroutines fn starts with the same ctx block while the task
// keeps its worker. Go returns ErrRuntimeClosed after
// Shutdown has been called.
func Go[T any](r *Runtime, ctx context.Context, fn func(ctx context.Context) (T, error)) (*Task[T], error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrRuntimeClosed
	}
	r.tasks.Add(1)
	r.mu.RUnlock()

	r.metrics.add(metricSubmitted)
	t := &Task[T]{
		id:   atomic.AddInt64(&nextTask, 1),
		done: make(chan struct{}),
	}
	go runTask(r, ctx, t, fn)
	return t, nil
}

// runTask is the goroutine body of a task.
func runTask[T any](r *Runtime, ctx context.Context, t *Task[T], fn func(context.Context) (T, error)) {
	defer r.tasks.Done()
	defer close(t.done)
	defer Release()

	ts := &taskState{rt: r, id: t.id, owner: goid.Get(), worker: int64(r.acquire())}
	defer func() { r.release(int(atomic.LoadInt64(&ts.worker))) }()

	defer func() {
		if rec := recover(); rec != nil {
			t.err = &WorkerFailure{
				Worker: t.id,
				Name:   fmt.Sprintf("task-%d", t.id),
				Cause:  rec,
				Stack:  debug.Stack(),
			}
			r.cfg.Logger.Printf("[task %d] panicked: %v", t.id, rec)
		}
		if t.err != nil {
			r.metrics.add(metricFailed)
		} else {
			r.metrics.add(metricCompleted)
		}
	}()

	t.val, t.err = fn(context.WithValue(ctx, taskKey{}, ts))
}

// suspend runs wait with the calling task's worker handed back to the
// runtime, then resumes the task on the first free worker. Outside of a task,
// or on a goroutine that is not running the task body, it just runs wait.
func suspend(ctx context.Context, wait func()) {
	ts, _ := ctx.Value(taskKey{}).(*taskState)
	if ts == nil || ts.owner != goid.Get() {
		wait()
		return
	}

	ts.rt.metrics.add(metricSuspended)
	ts.rt.release(int(atomic.LoadInt64(&ts.worker)))
	wait()
	atomic.StoreInt64(&ts.worker, int64(ts.rt.acquire()))
}

// WorkerID returns the worker executing the task that owns ctx. It reports
// false if ctx does not belong to a task. The worker may change across
// suspension points.
func WorkerID(ctx context.Context) (int, bool) {
	ts, _ := ctx.Value(taskKey{}).(*taskState)
	if ts == nil {
		return 0, false
	}
	return int(atomic.LoadInt64(&ts.worker)), true
}

// Sleep pauses for d or until ctx is done. Inside a task it is a suspension
// point.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	var err error
	suspend(ctx, func() {
		select {
		case <-timer.C:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}

// Await waits for the task to finish and returns its result. A task that
// panicked returns a *WorkerFailure. If ctx is done first, Await returns the
// context error; the task itself keeps running. Inside a task, Await is a
// suspension point unless t has already finished.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	default:
	}

	var err error
	suspend(ctx, func() {
		select {
		case <-t.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return t.val, t.err
}

// AwaitAll waits for every task and returns their values in order. It returns
// the first error any task produced, after which the remaining waits are
// abandoned. Inside a task it is a single suspension point.
func AwaitAll[T any](ctx context.Context, tasks ...*Task[T]) ([]T, error) {
	out := make([]T, len(tasks))

	var err error
	suspend(ctx, func() {
		g, gctx := errgroup.WithContext(ctx)
		for i, t := range tasks {
			i, t := i, t // per-iteration copy (pre-Go 1.22 loop semantics)
			g.Go(func() error {
				v, err := t.Await(gctx)
				out[i] = v
				return err
			})
		}
		err = g.Wait()
	})
	return out, err
}

// BlockOn runs fn as a task on r and waits for its result. It is meant to be
// called from outside the runtime.
func BlockOn[T any](r *Runtime, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	t, err := Go(r, ctx, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.Await(ctx)
}
