package racebench

import "sync"

// RuntimeMetrics is a snapshot of Runtime counters.
type RuntimeMetrics struct {
	Submitted int64 // tasks accepted by Go
	Completed int64 // tasks that returned a nil error
	Failed    int64 // tasks that returned an error or panicked
	Suspended int64 // times a task gave up its worker at a suspension point
}

type metric int

const (
	metricSubmitted metric = iota
	metricCompleted
	metricFailed
	metricSuspended
)

// metricSet holds the events recorded during one tracker generation.
type metricSet struct {
	submitted Counter
	completed Counter
	failed    Counter
	suspended Counter
}

func (s *metricSet) counter(m metric) *Counter {
	switch m {
	case metricSubmitted:
		return &s.submitted
	case metricCompleted:
		return &s.completed
	case metricFailed:
		return &s.failed
	default:
		return &s.suspended
	}
}

// runtimeMetrics records events into the metricSet of the current tracker
// generation. A snapshot retires the generation, waits for its writers and
// folds the retired set into the running totals, so every snapshot contains
// exactly the events of a prefix of generations.
type runtimeMetrics struct {
	tracker Tracker
	sets    [2]metricSet

	mu    sync.Mutex // serializes snapshots and guards total
	total RuntimeMetrics
}

func (r *runtimeMetrics) add(m metric) {
	token := r.tracker.Acquire()
	r.sets[token.Gen()%2].counter(m).Add(1)
	token.Release()
}

func (r *runtimeMetrics) snapshot() RuntimeMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	// the set of the retired generation is not written again until the
	// generation after next, which needs another snapshot and so mu.
	s := &r.sets[r.tracker.Increment().Wait()%2]
	r.total.Submitted += s.submitted.drain()
	r.total.Completed += s.completed.drain()
	r.total.Failed += s.failed.drain()
	r.total.Suspended += s.suspended.drain()
	return r.total
}
