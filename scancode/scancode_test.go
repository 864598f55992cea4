package scancode

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/go-kexec/task"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingContext() (*task.Context, *int) {
	var n int
	return task.NewContext(task.NewWaker(1, func() { n++ })), &n
}

func TestQueue_pushPopOrder(t *testing.T) {
	q, err := NewQueue(4)
	require.NoError(t, err)

	for _, b := range []byte{0x1E, 0x30, 0x2E} {
		require.NoError(t, q.TryPush(b))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []byte{0x1E, 0x30, 0x2E} {
		got, err := q.TryPop()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = q.TryPop()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestQueue_fullDropsNewest(t *testing.T) {
	q, err := NewQueue(2)
	require.NoError(t, err)
	require.NoError(t, q.TryPush(1))
	require.NoError(t, q.TryPush(2))
	assert.ErrorIs(t, q.TryPush(3), ErrQueueFull)
	assert.Equal(t, 2, q.Len())

	b, _ := q.TryPop()
	assert.Equal(t, byte(1), b)
	b, _ = q.TryPop()
	assert.Equal(t, byte(2), b)
	_, err = q.TryPop()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestNewQueue_invalidCapacity(t *testing.T) {
	_, err := NewQueue(0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestWakeCell(t *testing.T) {
	var c WakeCell
	c.Wake() // empty, no-op
	assert.Nil(t, c.Take())

	var a, b int
	wa := task.NewWaker(1, func() { a++ })
	wb := task.NewWaker(2, func() { b++ })

	c.Register(wa)
	c.Register(wb) // overwrites
	c.Wake()
	c.Wake()
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)

	c.Register(wa)
	assert.Same(t, wa, c.Take())
	c.Wake()
	assert.Equal(t, 0, a)
}

func TestNewStream_onlyOnce(t *testing.T) {
	q, err := NewQueue(DefaultCapacity)
	require.NoError(t, err)
	_, err = NewStream(q)
	require.NoError(t, err)
	_, err = NewStream(q)
	assert.ErrorIs(t, err, ErrStreamExists)
	_, err = NewStream(nil)
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestStream_fastPathDoesNotRegister(t *testing.T) {
	q, err := NewQueue(4)
	require.NoError(t, err)
	s, err := NewStream(q)
	require.NoError(t, err)
	require.NoError(t, q.TryPush(0x1E))

	cx, _ := countingContext()
	b, p := s.PollNext(cx)
	assert.Equal(t, task.Ready, p)
	assert.Equal(t, byte(0x1E), b)
	assert.Nil(t, q.cell.Take())
}

func TestStream_pendingThenWokenByPush(t *testing.T) {
	q, err := NewQueue(4)
	require.NoError(t, err)
	s, err := NewStream(q)
	require.NoError(t, err)

	cx, wakes := countingContext()
	_, p := s.PollNext(cx)
	require.Equal(t, task.Pending, p)
	assert.Equal(t, 0, *wakes)

	require.NoError(t, q.TryPush(0x30))
	assert.Equal(t, 1, *wakes)

	// the waker was consumed, further pushes do not re-invoke it
	require.NoError(t, q.TryPush(0x2E))
	assert.Equal(t, 1, *wakes)

	b, p := s.PollNext(cx)
	assert.Equal(t, task.Ready, p)
	assert.Equal(t, byte(0x30), b)
	b, p = s.PollNext(cx)
	assert.Equal(t, task.Ready, p)
	assert.Equal(t, byte(0x2E), b)
	assert.Equal(t, 0, s.Len())
}

func TestPort_streamOnce(t *testing.T) {
	p, err := NewPort()
	require.NoError(t, err)
	assert.False(t, p.Initialized())

	_, err = p.NewStream()
	require.NoError(t, err)
	assert.True(t, p.Initialized())

	_, err = p.NewStream()
	assert.ErrorIs(t, err, ErrStreamExists)
}

func newLoggedPort(t *testing.T, opts ...PortOption) (*Port, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
	).Logger()
	p, err := NewPort(append([]PortOption{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return p, &buf
}

func TestPort_uninitializedDrops(t *testing.T) {
	p, buf := newLoggedPort(t)

	p.AddScancode(0x1E)

	s := p.Stats()
	assert.Equal(t, uint64(1), s.Uninitialized)
	assert.Equal(t, uint64(0), s.Pushed)
	assert.Contains(t, buf.String(), ErrUninitialized.Error())
	assert.Contains(t, buf.String(), `"lvl":"warning"`)

	// the byte is not retained for a later stream
	stream, err := p.NewStream()
	require.NoError(t, err)
	cx, _ := countingContext()
	_, poll := stream.PollNext(cx)
	assert.Equal(t, task.Pending, poll)
}

func TestPort_fullDropsAndLogs(t *testing.T) {
	p, buf := newLoggedPort(t, WithCapacity(2))
	stream, err := p.NewStream()
	require.NoError(t, err)

	for _, b := range []byte{1, 2, 3} {
		p.AddScancode(b)
	}
	s := p.Stats()
	assert.Equal(t, uint64(2), s.Pushed)
	assert.Equal(t, uint64(1), s.Dropped)
	assert.Equal(t, 2, s.Queued)
	assert.Contains(t, buf.String(), ErrQueueFull.Error())

	cx, _ := countingContext()
	for _, want := range []byte{1, 2} {
		b, poll := stream.PollNext(cx)
		require.Equal(t, task.Ready, poll)
		assert.Equal(t, want, b)
	}
}

func TestPort_warningsRateLimited(t *testing.T) {
	p, buf := newLoggedPort(t, WithWarnRates(map[time.Duration]int{time.Hour: 2}))
	for i := 0; i < 10; i++ {
		p.AddScancode(byte(i))
	}
	assert.Equal(t, 2, strings.Count(buf.String(), "dropping keyboard input"))
	s := p.Stats()
	assert.Equal(t, uint64(10), s.Uninitialized)
	assert.Equal(t, uint64(8), s.Suppressed)
}

func TestNewPort_invalidOptions(t *testing.T) {
	_, err := NewPort(WithCapacity(0))
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = NewPort(WithWarnRates(map[time.Duration]int{time.Second: -1}))
	assert.Error(t, err)
}

// Bytes pushed concurrently with polling are all delivered, each wake
// leading to a poll that makes progress.
func TestStream_concurrentProducer(t *testing.T) {
	const total = 10000
	q, err := NewQueue(DefaultCapacity)
	require.NoError(t, err)
	s, err := NewStream(q)
	require.NoError(t, err)

	woken := make(chan struct{}, 1)
	cx := task.NewContext(task.NewWaker(1, func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			for q.TryPush(byte(i)) != nil {
				time.Sleep(time.Microsecond)
			}
		}
	}()

	for i := 0; i < total; i++ {
		for {
			b, p := s.PollNext(cx)
			if p == task.Ready {
				if b != byte(i) {
					t.Fatalf("byte %d: got %d", i, b)
				}
				break
			}
			select {
			case <-woken:
			case <-time.After(10 * time.Second):
				t.Fatalf("lost wakeup waiting for byte %d", i)
			}
		}
	}
	wg.Wait()
}
