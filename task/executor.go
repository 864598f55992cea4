package task

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-kexec/cpu"
	"github.com/joeycumines/go-kexec/internal/ring"
	"github.com/joeycumines/logiface"
)

// Executor drives tasks on a single goroutine, polling each task only after
// it was spawned or woken, and halting the core when nothing is ready.
//
// The task map and waker cache are owned by the goroutine inside Run and are
// never touched by wakers. Wakers only push task IDs onto the bounded
// lock-free ready queue, so they are safe to invoke from interrupt handlers.
// The ready queue tolerates duplicate and stale IDs: an ID whose task has
// already completed is skipped.
type Executor struct { // betteralign:ignore
	// Hot fields
	state *fastState
	ready *ring.MPSC[ID]
	core  *cpu.Core

	// Run loop only
	tasks  map[ID]*Task
	wakers map[ID]*taskWaker

	logger *logiface.Logger[logiface.Event]

	inbox   []*Task
	inboxMu sync.Mutex

	metrics        counters
	live           atomic.Int64
	taskCapacity   int64
	overflow       atomic.Bool
	metricsEnabled bool
	returnWhenIdle bool
}

// taskWaker is the cached waker of a single task, plus the Context handed to
// every poll of it. queued deduplicates ready-queue entries, done silences
// wakers that outlive their task.
type taskWaker struct {
	waker  Waker
	cx     Context
	queued atomic.Bool
	done   atomic.Bool
}

// NewExecutor creates an Executor. See the With* options.
func NewExecutor(opts ...Option) (*Executor, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	core := cfg.core
	if core == nil {
		if core, err = cpu.New(cpu.WithLogger(cfg.logger)); err != nil {
			return nil, err
		}
	}

	ready, err := ring.New[ID](cfg.taskCapacity)
	if err != nil {
		return nil, err
	}

	return &Executor{
		state:          &fastState{},
		ready:          ready,
		core:           core,
		tasks:          make(map[ID]*Task, cfg.taskCapacity),
		wakers:         make(map[ID]*taskWaker, cfg.taskCapacity),
		logger:         cfg.logger,
		taskCapacity:   int64(cfg.taskCapacity),
		metricsEnabled: cfg.metricsEnabled,
		returnWhenIdle: cfg.returnWhenIdle,
	}, nil
}

// Spawn hands t to the executor and marks it ready. It may be called from
// any goroutine, before or during Run, including from within a task.
func (e *Executor) Spawn(t *Task) error {
	if t == nil {
		return ErrNilTask
	}
	if e.state.Load() == StateTerminated {
		return ErrExecutorTerminated
	}
	if e.live.Add(1) > e.taskCapacity {
		e.live.Add(-1)
		return ErrTaskCapacity
	}
	if !t.claim() {
		e.live.Add(-1)
		return ErrDuplicateTask
	}

	e.inboxMu.Lock()
	e.inbox = append(e.inbox, t)
	e.inboxMu.Unlock()

	e.schedule(t.id)
	e.inc(&e.metrics.spawned)
	e.logger.Trace().
		Uint64("task", uint64(t.id)).
		Log("task: spawned")
	return nil
}

// Run polls tasks until ctx is done, which is its only way out unless
// WithReturnWhenIdle is set. Run locks the calling goroutine to its OS thread
// and binds it to the core.
func (e *Executor) Run(ctx context.Context) error {
	if !e.state.TryTransition(StateAwake, StateRunning) {
		if e.state.Load() == StateTerminated {
			return ErrExecutorTerminated
		}
		return ErrExecutorRunning
	}
	return e.run(ctx)
}

func (e *Executor) run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer e.terminate()

	if err := e.core.Bind(); err != nil {
		e.logger.Warning().
			Err(err).
			Log("task: running without cpu affinity")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.adoptSpawned()
		if e.overflow.Swap(false) {
			e.requeueAll()
		}

		e.runReady()

		if e.returnWhenIdle && e.live.Load() == 0 {
			return nil
		}

		e.sleepIfIdle(ctx)
	}
}

// runReady polls at most one queue's worth of ready tasks, so a task that
// keeps waking itself cannot keep the loop from checking ctx.
func (e *Executor) runReady() {
	for range e.ready.Cap() {
		id, ok := e.ready.TryPop()
		if !ok {
			return
		}

		t, ok := e.tasks[id]
		if !ok {
			// a spawn may have published its ID before the task was adopted
			e.adoptSpawned()
			if t, ok = e.tasks[id]; !ok {
				e.inc(&e.metrics.staleWakeups)
				continue
			}
		}

		tw := e.wakers[id]
		tw.queued.Store(false)

		if e.poll(t, tw) == Ready {
			tw.done.Store(true)
			delete(e.tasks, id)
			delete(e.wakers, id)
			e.live.Add(-1)
			e.inc(&e.metrics.completed)
		}
	}
}

// poll runs a single Future.Poll, treating a panic as completion.
func (e *Executor) poll(t *Task, tw *taskWaker) (result Poll) {
	defer func() {
		if r := recover(); r != nil {
			e.inc(&e.metrics.panics)
			e.logger.Err().
				Err(PanicError{Value: r, Task: t.id}).
				Log("task: dropping panicked task")
			result = Ready
		}
	}()
	e.inc(&e.metrics.polls)
	return t.poll(&tw.cx)
}

// sleepIfIdle halts the core if, with interrupts disabled, there is still
// nothing to do. Enabling interrupts and halting is a single step, so an
// interrupt arriving after the check always ends the halt.
func (e *Executor) sleepIfIdle(ctx context.Context) {
	e.core.DisableInterrupts()
	if !e.ready.IsEmpty() || e.overflow.Load() {
		e.core.EnableInterrupts()
		return
	}
	e.state.TryTransition(StateRunning, StateSleeping)
	e.inc(&e.metrics.halts)
	_ = e.core.EnableAndHalt(ctx)
	e.state.TryTransition(StateSleeping, StateRunning)
}

// adoptSpawned moves spawned tasks into the task map.
func (e *Executor) adoptSpawned() {
	e.inboxMu.Lock()
	batch := e.inbox
	e.inbox = nil
	e.inboxMu.Unlock()

	for _, t := range batch {
		e.tasks[t.id] = t
		e.wakers[t.id] = e.newTaskWaker(t.id)
	}
}

func (e *Executor) newTaskWaker(id ID) *taskWaker {
	tw := &taskWaker{}
	// Spawn already queued it
	tw.queued.Store(true)
	tw.waker = Waker{id: id, wake: func() { e.wake(tw) }}
	tw.cx = Context{waker: &tw.waker}
	return tw
}

// wake is the body of every task waker. It may run in interrupt context.
func (e *Executor) wake(tw *taskWaker) {
	if tw.done.Load() || !tw.queued.CompareAndSwap(false, true) {
		return
	}
	e.schedule(tw.waker.id)
}

func (e *Executor) schedule(id ID) {
	if !e.ready.TryPush(id) {
		// recovered by requeueAll on the next iteration
		e.overflow.Store(true)
	}
	e.core.Notify()
}

// requeueAll marks every live task ready, after the ready queue dropped an
// entry. Tasks tolerate spurious polls, so over-scheduling is safe.
func (e *Executor) requeueAll() {
	e.inc(&e.metrics.overflows)
	e.logger.Warning().
		Int("tasks", len(e.tasks)).
		Log("task: ready queue overflowed, requeueing all tasks")
	for id, tw := range e.wakers {
		tw.queued.Store(true)
		if !e.ready.TryPush(id) {
			e.overflow.Store(true)
			return
		}
	}
}

func (e *Executor) terminate() {
	e.state.Store(StateTerminated)
	if n := len(e.tasks); n > 0 {
		e.logger.Debug().
			Int("tasks", n).
			Log("task: executor stopped with live tasks")
	}
	for _, tw := range e.wakers {
		tw.done.Store(true)
	}
}

func (e *Executor) inc(c *atomic.Uint64) {
	if e.metricsEnabled {
		c.Add(1)
	}
}

// State returns the executor's lifecycle state.
func (e *Executor) State() State {
	return e.state.Load()
}

// Len returns the number of live tasks.
func (e *Executor) Len() int {
	return int(e.live.Load())
}

// Metrics returns a snapshot of the executor's counters. All counters are
// zero unless WithMetrics(true) was given.
func (e *Executor) Metrics() Metrics {
	return e.metrics.snapshot(e.Len())
}
