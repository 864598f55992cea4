// Package scancode carries raw keyboard bytes from interrupt context to the
// single task that consumes them.
//
// The interrupt side ([Port.AddScancode], [Queue.TryPush]) never blocks,
// allocates or suspends. The task side ([Stream.PollNext]) follows a
// register-then-recheck protocol, so a byte pushed at any point relative to
// the poll is either returned by that poll or wakes the task.
package scancode

import (
	"errors"
	"sync/atomic"

	"github.com/joeycumines/go-kexec/internal/ring"
	"github.com/joeycumines/go-kexec/task"
)

// DefaultCapacity is the default number of bytes a Queue can hold.
const DefaultCapacity = 100

var (
	// ErrQueueFull is returned by TryPush when the queue has no free slot.
	// The byte is not enqueued.
	ErrQueueFull = errors.New("scancode: queue full")

	// ErrQueueEmpty is returned by TryPop when no byte is available. It is
	// the normal "nothing yet" signal, not a failure.
	ErrQueueEmpty = errors.New("scancode: queue empty")

	// ErrUninitialized is reported when a byte arrives before any Stream was
	// constructed for the Port.
	ErrUninitialized = errors.New("scancode: queue uninitialized")

	// ErrStreamExists is returned when a second Stream is constructed for the
	// same queue. It indicates a configuration bug and should be treated as
	// fatal by the caller.
	ErrStreamExists = errors.New("scancode: stream already constructed")

	// ErrInvalidCapacity is returned for capacities less than one.
	ErrInvalidCapacity = errors.New("scancode: capacity must be at least 1")
)

// WakeCell holds at most one waker. Register overwrites, Wake takes the
// waker out and invokes it once, and Wake on an empty cell does nothing.
// All methods are safe for concurrent use and lock-free.
type WakeCell struct {
	waker atomic.Pointer[task.Waker]
}

// Register stores w, replacing any previous waker.
func (c *WakeCell) Register(w *task.Waker) {
	c.waker.Store(w)
}

// Take removes and returns the registered waker, or nil.
func (c *WakeCell) Take() *task.Waker {
	return c.waker.Swap(nil)
}

// Wake invokes and clears the registered waker, if any.
func (c *WakeCell) Wake() {
	if w := c.Take(); w != nil {
		w.Wake()
	}
}

// Queue is a bounded FIFO of bytes with many producers (interrupt handlers)
// and one consumer (the Stream). A successful push wakes the consumer.
type Queue struct {
	buf     *ring.MPSC[byte]
	cell    WakeCell
	claimed atomic.Bool
}

// NewQueue allocates a Queue holding at most capacity bytes.
func NewQueue(capacity int) (*Queue, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	buf, err := ring.New[byte](capacity)
	if err != nil {
		return nil, err
	}
	return &Queue{buf: buf}, nil
}

// TryPush appends b, or returns ErrQueueFull (dropping b) without blocking.
// On success the byte is visible to the consumer before its waker runs.
func (q *Queue) TryPush(b byte) error {
	if !q.buf.TryPush(b) {
		return ErrQueueFull
	}
	q.cell.Wake()
	return nil
}

// TryPop removes the oldest byte, or returns ErrQueueEmpty. Must only be
// called by the single consumer.
func (q *Queue) TryPop() (byte, error) {
	b, ok := q.buf.TryPop()
	if !ok {
		return 0, ErrQueueEmpty
	}
	return b, nil
}

// Len returns the number of bytes currently queued.
func (q *Queue) Len() int {
	return q.buf.Len()
}

// Cap returns the queue's fixed capacity.
func (q *Queue) Cap() int {
	return q.buf.Cap()
}
