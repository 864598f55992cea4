package task

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskCapacity is returned by Spawn when the executor already holds
	// its maximum number of live tasks.
	ErrTaskCapacity = errors.New("task: task capacity exhausted")

	// ErrInvalidTaskCapacity is returned by WithTaskCapacity for values < 1.
	ErrInvalidTaskCapacity = errors.New("task: task capacity must be at least 1")

	// ErrNilTask is returned by Spawn when given a nil task.
	ErrNilTask = errors.New("task: nil task")

	// ErrDuplicateTask is returned by Spawn when the task was already spawned.
	ErrDuplicateTask = errors.New("task: task already spawned")

	// ErrExecutorRunning is returned when Run is called on an executor that is
	// already running.
	ErrExecutorRunning = errors.New("task: executor is already running")

	// ErrExecutorTerminated is returned when operations are attempted on an
	// executor whose Run has returned.
	ErrExecutorTerminated = errors.New("task: executor has been terminated")
)

// PanicError wraps a value recovered from a panicking Future.
type PanicError struct {
	Value any
	Task  ID
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("task: task %d panicked: %v", e.Task, e.Value)
}

// Unwrap returns the panic value if it is an error, enabling errors.Is and
// errors.As through the panic.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
