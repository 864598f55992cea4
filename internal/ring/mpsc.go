// Package ring implements the bounded, lock-free multi-producer
// single-consumer queue shared by the executor's ready queue and the
// scancode queue.
package ring

import (
	"errors"
	"sync/atomic"
)

// ErrInvalidCapacity is returned by New when the capacity is less than one.
var ErrInvalidCapacity = errors.New("ring: capacity must be at least 1")

const (
	// sizeOfCacheLine is the size of a CPU cache line.
	// 128 covers both x86-64 (64) and Apple Silicon / ARM64 (128).
	sizeOfCacheLine = 128

	// sizeOfAtomicUint64 is the size of an atomic.Uint64 variable.
	sizeOfAtomicUint64 = 8

	// indexPadSize pads head and tail onto separate cache lines.
	indexPadSize = sizeOfCacheLine - sizeOfAtomicUint64
)

// slot is a single cell of the ring. The seq field is the publication guard:
//
//   - seq == pos      the slot is free for the producer claiming pos
//   - seq == pos+1    the slot holds the value pushed at pos
//   - seq == pos+cap  the consumer released the slot for the next lap
type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// MPSC is a fixed capacity FIFO queue, safe for any number of concurrent
// producers and exactly one consumer. It never allocates after New, and
// TryPush never blocks, making it usable from interrupt context.
//
// The implementation is a bounded sequence-numbered ring (per-slot sequence
// counters, CAS on the tail), with the consumer side simplified to plain
// atomic stores since there is only ever one reader.
type MPSC[T any] struct { // betteralign:ignore
	_     [sizeOfCacheLine]byte
	head  atomic.Uint64 // consumer index
	_     [indexPadSize]byte
	tail  atomic.Uint64 // producer claim index
	_     [indexPadSize]byte
	slots []slot[T]
	size  uint64 // len(slots)
	limit uint64 // usable capacity, size can exceed it by one
}

// New allocates a ring with room for exactly capacity values.
func New[T any](capacity int) (*MPSC[T], error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	// the sequence encoding needs at least two slots to tell a full slot
	// from a free one
	size := max(capacity, 2)
	r := &MPSC[T]{
		slots: make([]slot[T], size),
		size:  uint64(size),
		limit: uint64(capacity),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}
	return r, nil
}

// TryPush appends v, returning false if the ring is full. Safe to call from
// any goroutine.
func (r *MPSC[T]) TryPush(v T) bool {
	pos := r.tail.Load()
	for {
		s := &r.slots[pos%r.size]
		seq := s.seq.Load()
		switch diff := int64(seq - pos); {
		case diff == 0:
			if pos-r.head.Load() >= r.limit {
				return false
			}
			if r.tail.CompareAndSwap(pos, pos+1) {
				// value first, then the release store publishing it
				s.val = v
				s.seq.Store(pos + 1)
				return true
			}
			pos = r.tail.Load()
		case diff < 0:
			// the consumer has not released this slot yet
			return false
		default:
			// another producer claimed pos, catch up
			pos = r.tail.Load()
		}
	}
}

// TryPop removes the oldest value. It returns false if nothing has been
// published yet, including the case where a producer has claimed a slot
// but not finished writing it. Must only be called by the single consumer.
func (r *MPSC[T]) TryPop() (v T, ok bool) {
	pos := r.head.Load()
	s := &r.slots[pos%r.size]
	// acquire, pairs with the producer's release store
	if s.seq.Load() != pos+1 {
		return v, false
	}
	v = s.val
	var zero T
	s.val = zero
	s.seq.Store(pos + r.size)
	r.head.Store(pos + 1)
	return v, true
}

// Len returns the number of claimed slots, which may briefly include values
// still being written by a producer.
func (r *MPSC[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail <= head {
		return 0
	}
	if n := tail - head; n < r.limit {
		return int(n)
	}
	return int(r.limit)
}

// IsEmpty reports whether no slot is currently claimed.
func (r *MPSC[T]) IsEmpty() bool {
	return r.tail.Load() == r.head.Load()
}

// Cap returns the fixed capacity.
func (r *MPSC[T]) Cap() int {
	return int(r.limit)
}
