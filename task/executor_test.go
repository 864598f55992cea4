package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-kexec/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, opts ...Option) *Executor {
	t.Helper()
	e, err := NewExecutor(append([]Option{WithMetrics(true), WithReturnWhenIdle(true)}, opts...)...)
	require.NoError(t, err)
	return e
}

func runWithTimeout(t *testing.T, e *Executor) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := e.Run(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("executor hung")
	}
	return err
}

func TestNewExecutor_invalidCapacity(t *testing.T) {
	e, err := NewExecutor(WithTaskCapacity(0))
	assert.Nil(t, e)
	assert.ErrorIs(t, err, ErrInvalidTaskCapacity)
}

func TestExecutor_immediateCompletionRemovesTask(t *testing.T) {
	e := newTestExecutor(t)

	var ran int
	require.NoError(t, e.Spawn(Func(func() { ran++ })))
	assert.Equal(t, 1, e.Len())

	require.NoError(t, runWithTimeout(t, e))

	assert.Equal(t, 1, ran)
	assert.Equal(t, 0, e.Len())
	assert.Empty(t, e.tasks)
	assert.Empty(t, e.wakers)
	m := e.Metrics()
	assert.Equal(t, uint64(1), m.Polls)
	assert.Equal(t, uint64(1), m.Completed)
	assert.Equal(t, StateTerminated, e.State())
}

func TestExecutor_fifoSpawnOrder(t *testing.T) {
	e := newTestExecutor(t)
	var order []int
	for i := 0; i < 5; i++ {
		require.NoError(t, e.Spawn(Func(func() { order = append(order, i) })))
	}
	require.NoError(t, runWithTimeout(t, e))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestExecutor_wokenNTimesPolledNPlusOne(t *testing.T) {
	const n = 7
	e := newTestExecutor(t)

	var polls int
	require.NoError(t, e.Spawn(New(FutureFunc(func(cx *Context) Poll {
		polls++
		if polls > n {
			return Ready
		}
		cx.Waker().Wake()
		return Pending
	}))))

	require.NoError(t, runWithTimeout(t, e))
	assert.Equal(t, n+1, polls)
	assert.Equal(t, uint64(n+1), e.Metrics().Polls)
}

func TestExecutor_duplicateWakesCoalesce(t *testing.T) {
	e := newTestExecutor(t)

	var polls int
	require.NoError(t, e.Spawn(New(FutureFunc(func(cx *Context) Poll {
		polls++
		if polls == 2 {
			return Ready
		}
		for i := 0; i < 10; i++ {
			cx.Waker().Wake()
		}
		return Pending
	}))))

	require.NoError(t, runWithTimeout(t, e))
	assert.Equal(t, 2, polls)
}

// The task suspends, the executor halts, and an interrupt wakes it.
func TestExecutor_haltUntilInterrupt(t *testing.T) {
	core, err := cpu.New()
	require.NoError(t, err)
	e := newTestExecutor(t, WithCore(core))

	var (
		waker   atomic.Pointer[Waker]
		signal  atomic.Bool
		polls   atomic.Int32
		runDone = make(chan error, 1)
	)
	require.NoError(t, e.Spawn(New(FutureFunc(func(cx *Context) Poll {
		polls.Add(1)
		if signal.Load() {
			return Ready
		}
		waker.Store(cx.Waker())
		return Pending
	}))))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() { runDone <- e.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for e.State() != StateSleeping || !core.Halted() {
		if time.Now().After(deadline) {
			t.Fatal("executor never halted")
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, int32(1), polls.Load())

	core.Interrupt(func() {
		signal.Store(true)
		waker.Load().Wake()
	})

	require.NoError(t, <-runDone)
	assert.Equal(t, int32(2), polls.Load())
	assert.GreaterOrEqual(t, e.Metrics().Halts, uint64(1))
	assert.GreaterOrEqual(t, core.Stats().Interrupts, uint64(1))
}

// Many interrupts racing with the task's register-then-recheck must never
// leave it suspended with work available.
func TestExecutor_noLostWakeups(t *testing.T) {
	const target = 5000
	core, err := cpu.New()
	require.NoError(t, err)
	e := newTestExecutor(t, WithCore(core))

	var (
		produced atomic.Int64
		waker    atomic.Pointer[Waker]
		consumed int64
	)
	require.NoError(t, e.Spawn(New(FutureFunc(func(cx *Context) Poll {
		for {
			if n := produced.Load(); n > consumed {
				consumed = n
				continue
			}
			if consumed >= target {
				return Ready
			}
			waker.Store(cx.Waker())
			if produced.Load() > consumed {
				continue
			}
			return Pending
		}
	}))))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < target; i++ {
			core.Interrupt(func() {
				produced.Add(1)
				if w := waker.Load(); w != nil {
					w.Wake()
				}
			})
		}
	}()

	require.NoError(t, runWithTimeout(t, e))
	wg.Wait()
	assert.Equal(t, int64(target), consumed)
}

func TestExecutor_staleWakeIgnored(t *testing.T) {
	e := newTestExecutor(t)

	var stale *Waker
	require.NoError(t, e.Spawn(New(FutureFunc(func(cx *Context) Poll {
		stale = cx.Waker()
		return Ready
	}))))
	require.NoError(t, runWithTimeout(t, e))

	require.NotNil(t, stale)
	stale.Wake()
	assert.True(t, e.ready.IsEmpty())
}

func TestExecutor_staleReadyEntrySkipped(t *testing.T) {
	e := newTestExecutor(t)
	e.schedule(ID(1 << 62))
	require.NoError(t, e.Spawn(Func(func() {})))
	require.NoError(t, runWithTimeout(t, e))
	assert.Equal(t, uint64(1), e.Metrics().StaleWakeups)
	assert.Equal(t, uint64(1), e.Metrics().Completed)
}

func TestExecutor_taskCapacity(t *testing.T) {
	e := newTestExecutor(t, WithTaskCapacity(2))
	require.NoError(t, e.Spawn(Func(func() {})))
	require.NoError(t, e.Spawn(Func(func() {})))
	assert.ErrorIs(t, e.Spawn(Func(func() {})), ErrTaskCapacity)
	require.NoError(t, runWithTimeout(t, e))
	assert.Equal(t, uint64(2), e.Metrics().Completed)
}

func TestExecutor_spawnErrors(t *testing.T) {
	e := newTestExecutor(t)
	assert.ErrorIs(t, e.Spawn(nil), ErrNilTask)

	tk := Func(func() {})
	require.NoError(t, e.Spawn(tk))
	assert.ErrorIs(t, e.Spawn(tk), ErrDuplicateTask)
	assert.Equal(t, 1, e.Len())

	require.NoError(t, runWithTimeout(t, e))
	assert.ErrorIs(t, e.Spawn(Func(func() {})), ErrExecutorTerminated)
	assert.ErrorIs(t, e.Run(context.Background()), ErrExecutorTerminated)
}

func TestExecutor_spawnFromTask(t *testing.T) {
	e := newTestExecutor(t)
	var child bool
	require.NoError(t, e.Spawn(Func(func() {
		require.NoError(t, e.Spawn(Func(func() { child = true })))
	})))
	require.NoError(t, runWithTimeout(t, e))
	assert.True(t, child)
	assert.Equal(t, uint64(2), e.Metrics().Spawned)
}

func TestExecutor_spawnFromOtherGoroutine(t *testing.T) {
	e, err := NewExecutor()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- e.Run(ctx) }()

	done := make(chan struct{})
	require.NoError(t, e.Spawn(Func(func() { close(done) })))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task spawned from another goroutine never ran")
	}

	cancel()
	assert.ErrorIs(t, <-runDone, context.Canceled)
}

func TestExecutor_alreadyRunning(t *testing.T) {
	e, err := NewExecutor()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- e.Run(ctx) }()

	for e.State() == StateAwake {
		time.Sleep(time.Millisecond)
	}
	assert.ErrorIs(t, e.Run(ctx), ErrExecutorRunning)

	cancel()
	assert.ErrorIs(t, <-runDone, context.Canceled)
	assert.Equal(t, StateTerminated, e.State())
}

func TestExecutor_panicDropsTask(t *testing.T) {
	e := newTestExecutor(t)
	var after bool
	require.NoError(t, e.Spawn(Func(func() { panic(errors.New("boom")) })))
	require.NoError(t, e.Spawn(Func(func() { after = true })))
	require.NoError(t, runWithTimeout(t, e))
	assert.True(t, after)
	m := e.Metrics()
	assert.Equal(t, uint64(1), m.Panics)
	assert.Equal(t, uint64(2), m.Completed)
}

func TestExecutor_readyOverflowRequeues(t *testing.T) {
	e := newTestExecutor(t, WithTaskCapacity(1))
	require.NoError(t, e.Spawn(Func(func() {})))
	// ring now full, this entry is dropped
	e.schedule(ID(1 << 62))
	require.True(t, e.overflow.Load())

	require.NoError(t, runWithTimeout(t, e))
	m := e.Metrics()
	assert.Equal(t, uint64(1), m.Completed)
	assert.GreaterOrEqual(t, m.Overflows, uint64(1))
}

func TestPanicError_unwrap(t *testing.T) {
	err := PanicError{Value: context.Canceled, Task: 3}
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, PanicError{Value: "x"}.Unwrap())
	assert.Equal(t, "task: task 3 panicked: context canceled", err.Error())
}
