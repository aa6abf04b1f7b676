package racebench

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrUnknownPolicy = errors.New("unknown policy")
	ErrRuntimeClosed = errors.New("runtime is closed")
)

// WorkerFailure describes a worker or task that terminated by panicking. The
// panic is isolated to that worker: siblings and the joining caller continue.
type WorkerFailure struct {
	Worker int64  // id of the failed worker
	Name   string // name of the failed worker, if any
	Cause  any    // value passed to panic
	Stack  []byte // stack of the worker at the time of the panic
}

// Error implements error.
func (f *WorkerFailure) Error() string {
	if f.Name != "" {
		return fmt.Sprintf("worker %d (%s) panicked: %v", f.Worker, f.Name, f.Cause)
	}
	return fmt.Sprintf("worker %d panicked: %v", f.Worker, f.Cause)
}

// Unwrap returns the panic value if it was an error.
func (f *WorkerFailure) Unwrap() error {
	err, _ := f.Cause.(error)
	return err
}
