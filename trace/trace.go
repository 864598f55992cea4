// Package trace records raw scancodes with their arrival times, and replays
// them later through the same interrupt path a keyboard would use.
package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// SchemaVersion is written to every trace, and checked on decode.
const SchemaVersion uint16 = 1

var (
	// ErrTooLong is returned when an event is more than ~49 days after the
	// start of a recording.
	ErrTooLong = errors.New("trace: recording too long")

	// ErrCorrupt is returned by Decode for a trace with an unknown schema or
	// out of order events.
	ErrCorrupt = errors.New("trace: corrupt trace")

	// ErrInvalidSpeed is returned by Replay for a negative or NaN speed.
	ErrInvalidSpeed = errors.New("trace: invalid replay speed")
)

// Event is a single scancode. Offset is milliseconds since the start of the
// recording.
type Event struct {
	Offset   uint32 `msgpack:"o"`
	Scancode byte   `msgpack:"s"`
}

// Trace is a complete recording.
type Trace struct {
	Layout string  `msgpack:"layout"`
	Events []Event `msgpack:"events"`
	Schema uint16  `msgpack:"schema"`
}

// Recorder accumulates events. Safe for concurrent use.
type Recorder struct {
	start  time.Time
	now    func() time.Time
	layout string
	events []Event
	mu     sync.Mutex
}

// NewRecorder starts a recording now.
func NewRecorder(layout string) *Recorder {
	return newRecorder(layout, time.Now)
}

func newRecorder(layout string, now func() time.Time) *Recorder {
	return &Recorder{start: now(), now: now, layout: layout}
}

// Record appends b at the current offset.
func (r *Recorder) Record(b byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	offset, err := safecast.Conv[uint32](r.now().Sub(r.start).Milliseconds())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTooLong, err)
	}
	r.events = append(r.events, Event{Offset: offset, Scancode: b})
	return nil
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Trace returns a copy of the recording so far.
func (r *Recorder) Trace() Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Trace{
		Schema: SchemaVersion,
		Layout: r.layout,
		Events: append([]Event(nil), r.events...),
	}
}

// Encode writes t as msgpack.
func Encode(w io.Writer, t Trace) error {
	return msgpack.NewEncoder(w).Encode(&t)
}

// Decode reads a msgpack trace and checks it.
func Decode(r io.Reader) (Trace, error) {
	var t Trace
	if err := msgpack.NewDecoder(r).Decode(&t); err != nil {
		return Trace{}, err
	}
	if t.Schema != SchemaVersion {
		return Trace{}, fmt.Errorf("%w: schema %d, want %d", ErrCorrupt, t.Schema, SchemaVersion)
	}
	for i := 1; i < len(t.Events); i++ {
		if t.Events[i].Offset < t.Events[i-1].Offset {
			return Trace{}, fmt.Errorf("%w: event %d is before event %d", ErrCorrupt, i, i-1)
		}
	}
	return t, nil
}

// WriteFile atomically replaces path with t.
func WriteFile(path string, t Trace) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".trace-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if err = Encode(f, t); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadFile decodes the trace at path.
func ReadFile(path string) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return Trace{}, err
	}
	defer f.Close()
	t, err := Decode(f)
	if err != nil {
		return Trace{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Replay calls deliver with each scancode in t, keeping the recorded timing
// scaled by speed (2 is twice as fast). A speed of 0 delivers everything
// without waiting. Replay returns early with ctx.Err() if ctx is done.
func Replay(ctx context.Context, t Trace, deliver func(b byte), speed float64) error {
	if speed < 0 || math.IsNaN(speed) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}

	start := time.Now()
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for _, ev := range t.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if speed != 0 {
			due := time.Duration(float64(ev.Offset) * float64(time.Millisecond) / speed)
			if wait := time.Until(start.Add(due)); wait > 0 {
				if timer == nil {
					timer = time.NewTimer(wait)
				} else {
					timer.Reset(wait)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
		deliver(ev.Scancode)
	}
	return nil
}
