package scancode

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Stats is a point in time copy of a Port's counters.
type Stats struct {
	// Pushed counts bytes accepted into the queue.
	Pushed uint64
	// Dropped counts bytes discarded because the queue was full.
	Dropped uint64
	// Uninitialized counts bytes discarded because no stream existed yet.
	Uninitialized uint64
	// Suppressed counts diagnostics withheld by the rate limiter.
	Suppressed uint64
	// Queued is the queue length at the time of the snapshot.
	Queued int
}

// Port is the keyboard controller's data port: the single owner of the
// scancode queue, shared between the interrupt handler and the keyboard
// task. The queue comes into existence when the Stream is constructed,
// bytes arriving earlier are dropped.
type Port struct {
	queue    atomic.Pointer[Queue]
	logger   *logiface.Logger[logiface.Event]
	limiter  *catrate.Limiter
	capacity int

	pushed        atomic.Uint64
	dropped       atomic.Uint64
	uninitialized atomic.Uint64
	suppressed    atomic.Uint64
}

// NewPort creates a Port without a queue.
func NewPort(opts ...PortOption) (*Port, error) {
	cfg, err := resolvePortOptions(opts)
	if err != nil {
		return nil, err
	}
	p := &Port{
		logger:   cfg.logger,
		capacity: cfg.capacity,
	}
	if len(cfg.warnRates) != 0 {
		if p.limiter, err = newLimiter(cfg.warnRates); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// newLimiter converts catrate's panic on invalid rates into an error.
func newLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scancode: warn rates: %v", r)
		}
	}()
	return catrate.NewLimiter(rates), nil
}

// NewStream initializes the port's queue and returns its only consumer. A
// second call returns ErrStreamExists.
func (p *Port) NewStream() (*Stream, error) {
	q, err := NewQueue(p.capacity)
	if err != nil {
		return nil, err
	}
	if !p.queue.CompareAndSwap(nil, q) {
		return nil, ErrStreamExists
	}
	p.logger.Debug().
		Int("capacity", q.Cap()).
		Log("scancode: queue initialized")
	return NewStream(q)
}

// AddScancode is called by the keyboard interrupt handler for every byte
// read from the controller. It never blocks. Bytes that cannot be queued
// are dropped, counted, and reported through a rate limited warning.
func (p *Port) AddScancode(b byte) {
	q := p.queue.Load()
	if q == nil {
		p.uninitialized.Add(1)
		p.warn(ErrUninitialized, b)
		return
	}
	if err := q.TryPush(b); err != nil {
		p.dropped.Add(1)
		p.warn(err, b)
		return
	}
	p.pushed.Add(1)
}

func (p *Port) warn(err error, b byte) {
	if p.logger == nil {
		return
	}
	if _, ok := p.limiter.Allow(err); !ok {
		p.suppressed.Add(1)
		return
	}
	p.logger.Warning().
		Err(err).
		Int("scancode", int(b)).
		Log("scancode: dropping keyboard input")
}

// Initialized reports whether NewStream has been called.
func (p *Port) Initialized() bool {
	return p.queue.Load() != nil
}

// Stats returns a copy of the port's counters.
func (p *Port) Stats() Stats {
	s := Stats{
		Pushed:        p.pushed.Load(),
		Dropped:       p.dropped.Load(),
		Uninitialized: p.uninitialized.Load(),
		Suppressed:    p.suppressed.Load(),
	}
	if q := p.queue.Load(); q != nil {
		s.Queued = q.Len()
	}
	return s
}

// DefaultWarnRates bounds drop warnings per error kind.
var DefaultWarnRates = map[time.Duration]int{
	time.Second: 5,
	time.Minute: 60,
}
