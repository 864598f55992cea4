package input

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/go-kexec/cpu"
	"github.com/joeycumines/go-kexec/keyboard"
	"github.com/joeycumines/go-kexec/scancode"
	"github.com/joeycumines/go-kexec/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls    []string
	onSubmit func()
}

func (x *recorder) Submit() {
	x.calls = append(x.calls, "submit")
	if x.onSubmit != nil {
		x.onSubmit()
	}
}
func (x *recorder) Backspace()                   { x.calls = append(x.calls, "backspace") }
func (x *recorder) AddKey(k keyboard.DecodedKey) { x.calls = append(x.calls, "add "+k.String()) }
func (x *recorder) Echo(r rune)                  { x.calls = append(x.calls, "echo "+string(r)) }
func (x *recorder) Prompt()                      { x.calls = append(x.calls, "prompt") }
func (x *recorder) HandleKey(k keyboard.DecodedKey) {
	x.calls = append(x.calls, "key "+k.String())
}

func TestTarget_String(t *testing.T) {
	assert.Equal(t, "None", TargetNone.String())
	assert.Equal(t, "GraphicMode", TargetGraphicMode.String())
	assert.Equal(t, "Unknown", Target(42).String())
	assert.Equal(t, "Application", RouteApplication.String())
}

func TestRouter_terminal(t *testing.T) {
	var rec recorder
	r := NewRouter(NewFocus(TargetTerminal), WithLineEditor(&rec), WithEcho(&rec))

	for _, k := range []keyboard.DecodedKey{
		keyboard.Unicode('h'),
		keyboard.Unicode('\b'),
		keyboard.Unicode('i'),
		keyboard.RawKey(keyboard.KeyArrowUp),
		keyboard.Unicode('\n'),
	} {
		assert.Equal(t, RouteTerminal, r.Dispatch(k))
	}

	assert.Equal(t, []string{
		"add Unicode('h')",
		"echo h",
		"backspace",
		"add Unicode('i')",
		"echo i",
		"add RawKey(ArrowUp)",
		"submit",
		"prompt",
	}, rec.calls)
}

func TestRouter_terminalControlCharsNotEchoed(t *testing.T) {
	var rec recorder
	r := NewRouter(NewFocus(TargetTerminal), WithLineEditor(&rec), WithEcho(&rec))
	r.Dispatch(keyboard.Unicode(0x1B))
	r.Dispatch(keyboard.Unicode(0x7F))
	assert.Equal(t, []string{"add Unicode('\\x1b')", "add Unicode('\\x7f')"}, rec.calls)
}

func TestRouter_applicationVerbatim(t *testing.T) {
	var editor, app recorder
	focus := NewFocus(TargetTerminal)
	r := NewRouter(focus, WithLineEditor(&editor), WithEcho(&editor))

	a := NewApplication("demo", &app)
	a.Init(r)
	require.NoError(t, a.Run())
	assert.Equal(t, TargetApplication, focus.Load())

	assert.Equal(t, RouteApplication, r.Dispatch(keyboard.Unicode('\n')))
	assert.Equal(t, RouteApplication, r.Dispatch(keyboard.Unicode('\b')))
	assert.Equal(t, []string{"key Unicode('\\n')", "key Unicode('\\b')"}, app.calls)
	assert.Empty(t, editor.calls)

	a.Stop()
	assert.False(t, a.Running())
	assert.Equal(t, TargetTerminal, focus.Load())
}

func TestApplication_unrunnable(t *testing.T) {
	var rec recorder
	r := NewRouter(NewFocus(TargetNone))
	a := NewUnrunnableApplication("nope")
	a.Init(r)
	assert.ErrorIs(t, a.Run(), ErrNotRunnable)
	assert.Equal(t, "nope", a.Name())

	// installed but not running, keys are swallowed
	assert.Equal(t, RouteApplication, r.Dispatch(keyboard.Unicode('x')))
	assert.Empty(t, rec.calls)
}

func TestRouter_graphics(t *testing.T) {
	var gfx recorder
	r := NewRouter(NewFocus(TargetGraphicMode), WithGraphics(&gfx))
	assert.Equal(t, RouteGraphicMode, r.Dispatch(keyboard.RawKey(keyboard.KeyArrowLeft)))
	assert.Equal(t, RouteGraphicMode, r.Dispatch(keyboard.Unicode('x')))
	assert.Equal(t, []string{"key RawKey(ArrowLeft)", "key Unicode('x')"}, gfx.calls)
}

func TestRouter_noneAndMissingHandlers(t *testing.T) {
	focus := NewFocus(TargetNone)
	r := NewRouter(focus)
	assert.Equal(t, RouteDiscarded, r.Dispatch(keyboard.Unicode('a')))
	for _, target := range []Target{TargetTerminal, TargetApplication, TargetGraphicMode} {
		focus.Store(target)
		assert.Equal(t, RouteDiscarded, r.Dispatch(keyboard.Unicode('a')), target.String())
	}
}

// A focus change made while handling a key applies from the next key on.
func TestRouter_focusSnapshotPerKey(t *testing.T) {
	var editor, gfx recorder
	focus := NewFocus(TargetTerminal)
	editor.onSubmit = func() { focus.Store(TargetGraphicMode) }
	r := NewRouter(focus, WithLineEditor(&editor), WithEcho(&editor), WithGraphics(&gfx))

	assert.Equal(t, RouteTerminal, r.Dispatch(keyboard.Unicode('\n')))
	assert.Equal(t, RouteGraphicMode, r.Dispatch(keyboard.Unicode('q')))

	assert.Equal(t, []string{"submit", "prompt"}, editor.calls)
	assert.Equal(t, []string{"key Unicode('q')"}, gfx.calls)
}

// Bytes delivered by interrupts travel through the port, stream, decoder
// and router to the line editor.
func TestRouter_Task_endToEnd(t *testing.T) {
	core, err := cpu.New()
	require.NoError(t, err)
	exec, err := task.NewExecutor(task.WithCore(core))
	require.NoError(t, err)
	port, err := scancode.NewPort(scancode.WithCapacity(8))
	require.NoError(t, err)
	stream, err := port.NewStream()
	require.NoError(t, err)

	submitted := make(chan struct{})
	rec := &recorder{onSubmit: func() { close(submitted) }}
	r := NewRouter(NewFocus(TargetTerminal), WithLineEditor(rec), WithEcho(rec))
	require.NoError(t, exec.Spawn(r.Task(stream, keyboard.NewDecoder(keyboard.Us104Key{}, keyboard.Ignore))))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- exec.Run(ctx) }()

	var layout keyboard.Us104Key
	for _, ch := range "Hi\n" {
		bs, err := layout.Encode(ch)
		require.NoError(t, err)
		for _, b := range bs {
			core.Interrupt(func() { port.AddScancode(b) })
			// the queue is small, give the keyboard task a chance
			for port.Stats().Queued > 4 {
				time.Sleep(time.Millisecond)
			}
		}
	}

	select {
	case <-submitted:
	case <-time.After(10 * time.Second):
		t.Fatal("line never submitted")
	}
	cancel()
	assert.ErrorIs(t, <-runDone, context.Canceled)

	assert.Equal(t, []string{
		"add RawKey(LShift)",
		"add Unicode('H')",
		"echo H",
		"add Unicode('i')",
		"echo i",
		"submit",
		"prompt",
	}, rec.calls)
	assert.Equal(t, uint64(0), port.Stats().Dropped)
}
