package task

import (
	"sync/atomic"
)

// Metrics is a snapshot of an Executor's counters, see WithMetrics.
//
// Example:
//
//	exec, _ := NewExecutor(WithMetrics(true))
//	_ = exec.Run(ctx)
//	m := exec.Metrics()
//	fmt.Printf("polls=%d stale=%d\n", m.Polls, m.StaleWakeups)
type Metrics struct {
	// Spawned counts tasks accepted by Spawn.
	Spawned uint64
	// Polls counts calls to Future.Poll.
	Polls uint64
	// Completed counts tasks that returned Ready (or panicked).
	Completed uint64
	// Panics counts tasks removed because their poll panicked.
	Panics uint64
	// StaleWakeups counts ready-queue entries for tasks that no longer exist.
	StaleWakeups uint64
	// Halts counts times the executor went idle and halted.
	Halts uint64
	// Overflows counts ready-queue overflows recovered by a full requeue.
	Overflows uint64
	// Live is the number of live tasks at the time of the snapshot.
	Live int
}

// counters is the live, atomically updated form of Metrics.
type counters struct {
	spawned      atomic.Uint64
	polls        atomic.Uint64
	completed    atomic.Uint64
	panics       atomic.Uint64
	staleWakeups atomic.Uint64
	halts        atomic.Uint64
	overflows    atomic.Uint64
}

func (c *counters) snapshot(live int) Metrics {
	return Metrics{
		Spawned:      c.spawned.Load(),
		Polls:        c.polls.Load(),
		Completed:    c.completed.Load(),
		Panics:       c.panics.Load(),
		StaleWakeups: c.staleWakeups.Load(),
		Halts:        c.halts.Load(),
		Overflows:    c.overflows.Load(),
		Live:         live,
	}
}
