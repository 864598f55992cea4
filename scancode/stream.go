package scancode

import (
	"github.com/joeycumines/go-kexec/task"
)

// Stream is the single consumer of a Queue.
type Stream struct {
	q *Queue
}

// NewStream claims q for a new Stream. Only one Stream may ever be
// constructed per queue, subsequent calls return ErrStreamExists.
func NewStream(q *Queue) (*Stream, error) {
	if q == nil {
		return nil, ErrUninitialized
	}
	if !q.claimed.CompareAndSwap(false, true) {
		return nil, ErrStreamExists
	}
	return &Stream{q: q}, nil
}

// PollNext returns the next byte if one is available. Otherwise it
// registers the waker from cx and returns task.Pending. The stream never
// ends.
func (s *Stream) PollNext(cx *task.Context) (byte, task.Poll) {
	// fast path, no registration needed
	if b, err := s.q.TryPop(); err == nil {
		return b, task.Ready
	}

	s.q.cell.Register(cx.Waker())

	// a push between the first pop and Register would have found an
	// empty cell, so check again before suspending
	if b, err := s.q.TryPop(); err == nil {
		s.q.cell.Take()
		return b, task.Ready
	}

	return 0, task.Pending
}

// Len returns the number of bytes waiting in the underlying queue.
func (s *Stream) Len() int {
	return s.q.Len()
}
