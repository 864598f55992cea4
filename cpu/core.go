// Package cpu models the single logical core the executor runs on: an
// interrupt-enable flag, interrupt delivery from device goroutines, and the
// halt instruction the idle loop parks on.
package cpu

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// Stats is a point in time copy of a Core's counters.
type Stats struct {
	Interrupts uint64
	Panics     uint64
	Halts      uint64
	Notifies   uint64
}

// Core serializes interrupt handlers against code running with interrupts
// disabled, and lets the owning goroutine halt until the next interrupt.
//
// Interrupt delivery maps onto a mutex (the "gate"): while the executor holds
// it, interrupts are masked and device goroutines block in Interrupt, exactly
// like an IRQ held pending by the interrupt controller. EnableAndHalt releases
// the gate and parks on a single-slot latch that every delivered interrupt
// fills, so there is no window between enabling and halting in which a
// wakeup can be lost.
type Core struct {
	logger   *logiface.Logger[logiface.Event]
	latch    chan struct{}
	gate     sync.Mutex
	masked   atomic.Bool
	halted   atomic.Bool
	affinity int

	interrupts atomic.Uint64
	panics     atomic.Uint64
	halts      atomic.Uint64
	notifies   atomic.Uint64
}

// New constructs a Core with interrupts enabled.
func New(opts ...Option) (*Core, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Core{
		logger:   cfg.logger,
		latch:    make(chan struct{}, 1),
		affinity: cfg.affinity,
	}, nil
}

// DisableInterrupts masks interrupt delivery. Calls do not nest.
func (c *Core) DisableInterrupts() {
	c.gate.Lock()
	c.masked.Store(true)
}

// EnableInterrupts unmasks interrupt delivery. It must pair with a prior
// DisableInterrupts by the same goroutine.
func (c *Core) EnableInterrupts() {
	c.masked.Store(false)
	c.gate.Unlock()
}

// InterruptsEnabled reports whether interrupts are currently unmasked.
func (c *Core) InterruptsEnabled() bool {
	return !c.masked.Load()
}

// WithoutInterrupts runs fn with interrupts disabled.
func (c *Core) WithoutInterrupts(fn func()) {
	c.DisableInterrupts()
	defer c.EnableInterrupts()
	fn()
}

// EnableAndHalt atomically unmasks interrupts and halts until an interrupt
// (or Notify) arrives. Interrupts must be disabled on entry, and are enabled
// on return. A pending notification makes it return immediately, so callers
// must tolerate spurious wakeups. ctx is the only other way out.
func (c *Core) EnableAndHalt(ctx context.Context) error {
	c.halts.Add(1)
	c.halted.Store(true)
	defer c.halted.Store(false)
	c.EnableInterrupts()
	select {
	case <-c.latch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Halted reports whether the owning goroutine is parked in EnableAndHalt.
func (c *Core) Halted() bool {
	return c.halted.Load()
}

// Notify fills the wakeup latch without blocking. It is safe to call from any
// goroutine, including from within an interrupt handler.
func (c *Core) Notify() {
	select {
	case c.latch <- struct{}{}:
		c.notifies.Add(1)
	default:
	}
}

// Interrupt delivers an interrupt: it waits until interrupts are enabled,
// runs handler with further interrupts masked, then wakes the core. A panic
// in handler is recovered and logged, mirroring a fault in an IRQ handler
// that must not bring down the machine.
func (c *Core) Interrupt(handler func()) {
	c.gate.Lock()
	c.masked.Store(true)
	defer func() {
		c.masked.Store(false)
		c.gate.Unlock()
		c.Notify()
	}()
	c.interrupts.Add(1)
	c.safeHandle(handler)
}

func (c *Core) safeHandle(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			c.panics.Add(1)
			c.logger.Err().
				Str("panic", fmt.Sprint(r)).
				Log("cpu: interrupt handler panicked")
		}
	}()
	handler()
}

// Bind pins the calling OS thread to the configured CPU, if any. The caller
// is expected to have called runtime.LockOSThread.
func (c *Core) Bind() error {
	if c.affinity < 0 {
		return nil
	}
	if err := pinThread(c.affinity); err != nil {
		return fmt.Errorf("cpu: pin to cpu %d: %w", c.affinity, err)
	}
	return nil
}

// Stats returns a copy of the counters.
func (c *Core) Stats() Stats {
	return Stats{
		Interrupts: c.interrupts.Load(),
		Panics:     c.panics.Load(),
		Halts:      c.halts.Load(),
		Notifies:   c.notifies.Load(),
	}
}
