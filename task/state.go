package task

import (
	"sync/atomic"
)

// State represents the lifecycle state of an Executor.
//
// State Machine:
//
//	StateAwake → StateRunning         [Run()]
//	StateRunning → StateSleeping      [idle, via CAS]
//	StateSleeping → StateRunning      [woken, via CAS]
//	StateRunning → StateTerminated    [Run() returned]
//	StateTerminated → (terminal)
//
// Use TryTransition (CAS) for the temporary states (Running, Sleeping), and
// Store only for StateTerminated.
type State uint64

const (
	// StateAwake indicates the executor has been created but not started.
	StateAwake State = iota
	// StateRunning indicates the executor is polling tasks.
	StateRunning
	// StateSleeping indicates the executor is halted waiting for a wakeup.
	StateSleeping
	// StateTerminated indicates Run has returned. Terminal.
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding.
type fastState struct { // betteralign:ignore
	_ [64]byte      // Cache line padding (before value) //nolint:unused
	v atomic.Uint64 // State value
	_ [56]byte      // Pad to complete cache line (64 - 8 = 56) //nolint:unused
}

func (s *fastState) Load() State {
	return State(s.v.Load())
}

func (s *fastState) Store(state State) {
	s.v.Store(uint64(state))
}

func (s *fastState) TryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}
