package racebench

import (
	"errors"
	"runtime/debug"
	"sync"

	"github.com/petermattis/goid"
)

// errExited is the cause recorded for a worker that stopped through
// runtime.Goexit instead of returning or panicking.
var errExited = errors.New("worker exited without returning")

// goroutineState is the bookkeeping kept for a goroutine that has been
// spawned as a worker or has touched a Local. Only the goroutine it belongs
// to reads or writes locals.
type goroutineState struct {
	name   string
	locals map[any]any
}

// states maps goroutine ids to their *goroutineState. Goroutine ids are never
// reused by the runtime so a stale entry can never be observed by a new
// goroutine.
var states sync.Map

// currentState returns the state of the calling goroutine, creating it if
// this is the first time the goroutine needs one.
func currentState() *goroutineState {
	gid := goid.Get()
	if st, ok := states.Load(gid); ok {
		return st.(*goroutineState)
	}
	st, _ := states.LoadOrStore(gid, new(goroutineState))
	return st.(*goroutineState)
}

// Thread identifies a goroutine.
type Thread struct {
	ID   int64  // runtime goroutine id
	Name string // name given to SpawnNamed, or empty
}

// Current returns the identity of the calling goroutine.
func Current() Thread {
	gid := goid.Get()
	th := Thread{ID: gid}
	if st, ok := states.Load(gid); ok {
		th.Name = st.(*goroutineState).name
	}
	return th
}

// Release discards every Local value held by the calling goroutine. Workers
// started with Spawn release automatically when they terminate; other
// goroutines that use a Local should call Release before they exit.
func Release() { states.Delete(goid.Get()) }

// Handle is the joinable result of a spawned worker.
type Handle[T any] struct {
	id   int64
	name string
	done chan struct{}
	val  T
	err  error
}

// Spawn runs fn on a new worker goroutine.
func Spawn[T any](fn func() T) *Handle[T] {
	return SpawnNamed("", fn)
}

// SpawnNamed runs fn on a new worker goroutine that reports name from
// Current. It returns once the worker is running.
func SpawnNamed[T any](name string, fn func() T) *Handle[T] {
	h := &Handle[T]{name: name, done: make(chan struct{})}
	started := make(chan int64)

	go func() {
		gid := goid.Get()
		states.Store(gid, &goroutineState{name: name})
		started <- gid

		// deferred in reverse: the panic is captured, then the worker's
		// locals are torn down, and only then can Join return.
		defer close(h.done)
		defer states.Delete(gid)

		returned := false
		defer func() {
			if r := recover(); r != nil {
				h.err = &WorkerFailure{Worker: gid, Name: name, Cause: r, Stack: debug.Stack()}
			} else if !returned {
				h.err = &WorkerFailure{Worker: gid, Name: name, Cause: errExited}
			}
		}()

		h.val = fn()
		returned = true
	}()

	h.id = <-started
	return h
}

// ID returns the goroutine id of the worker.
func (h *Handle[T]) ID() int64 { return h.id }

// Name returns the name the worker was spawned with.
func (h *Handle[T]) Name() string { return h.name }

// Done returns a channel that is closed when the worker has terminated.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

// Join blocks until the worker has terminated and returns what it returned.
// If the worker panicked or exited through runtime.Goexit, the error is a
// *WorkerFailure and the value is the zero T. Join may be called any number of times from any goroutine.
func (h *Handle[T]) Join() (T, error) {
	<-h.done
	return h.val, h.err
}
