// Package task provides cooperative tasks and the executors that drive them.
//
// A Task wraps a Future, a resumable computation that is polled until it
// reports Ready. When a Future cannot make progress it returns Pending, after
// arranging for the Waker from its Context to be invoked once progress is
// possible. Wakers may be invoked from any goroutine, including interrupt
// handlers, and never block or allocate.
package task

import (
	"strconv"
	"sync/atomic"
)

// ID uniquely identifies a Task for the lifetime of the process. IDs are
// never reused, and zero is never assigned.
type ID uint64

func (x ID) String() string {
	return strconv.FormatUint(uint64(x), 10)
}

// idCounter generates task IDs, starting at 1.
var idCounter atomic.Uint64

func nextID() ID {
	return ID(idCounter.Add(1))
}

// Poll is the result of polling a Future.
type Poll uint8

const (
	// Pending indicates the Future has registered its Waker and should not be
	// polled again until woken.
	Pending Poll = iota
	// Ready indicates the Future has completed.
	Ready
)

func (p Poll) String() string {
	switch p {
	case Pending:
		return "Pending"
	case Ready:
		return "Ready"
	default:
		return "Unknown"
	}
}

// Future is a resumable computation.
type Future interface {
	Poll(cx *Context) Poll
}

// FutureFunc adapts a function to Future.
type FutureFunc func(cx *Context) Poll

// Poll calls f(cx).
func (f FutureFunc) Poll(cx *Context) Poll {
	return f(cx)
}

// Context is passed to Future.Poll.
type Context struct {
	waker *Waker
}

// NewContext returns a Context carrying w, for driving futures by hand.
func NewContext(w *Waker) *Context {
	return &Context{waker: w}
}

// Waker returns the waker of the task being polled, never nil.
func (x *Context) Waker() *Waker {
	if x == nil || x.waker == nil {
		return &noopWaker
	}
	return x.waker
}

// Waker reschedules a suspended task.
type Waker struct {
	wake func()
	id   ID
}

var noopWaker Waker

// NewWaker returns a Waker that calls fn on every Wake. fn must be safe to
// call from interrupt context.
func NewWaker(id ID, fn func()) *Waker {
	return &Waker{id: id, wake: fn}
}

// NoopWaker returns a Waker whose Wake does nothing.
func NoopWaker() *Waker {
	return &noopWaker
}

// Wake marks the task ready to be polled again. Safe for concurrent use, and
// a no-op once the task has completed.
func (w *Waker) Wake() {
	if w != nil && w.wake != nil {
		w.wake()
	}
}

// TaskID returns the ID of the task this waker belongs to, or zero.
func (w *Waker) TaskID() ID {
	if w == nil {
		return 0
	}
	return w.id
}

// Task is a Future paired with its ID. Once spawned, it is exclusively owned
// by the executor.
type Task struct {
	future  Future
	id      ID
	spawned atomic.Bool
}

// New wraps future in a Task with a fresh ID.
func New(future Future) *Task {
	return &Task{
		future: future,
		id:     nextID(),
	}
}

// Func wraps fn in a Task that completes on its first poll.
func Func(fn func()) *Task {
	return New(FutureFunc(func(*Context) Poll {
		fn()
		return Ready
	}))
}

// ID returns the task's identifier.
func (t *Task) ID() ID {
	return t.id
}

func (t *Task) poll(cx *Context) Poll {
	return t.future.Poll(cx)
}

// claim marks t as owned by an executor, reporting false if it already was.
func (t *Task) claim() bool {
	return t.spawned.CompareAndSwap(false, true)
}
