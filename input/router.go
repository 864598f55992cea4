package input

import (
	"sync/atomic"

	"github.com/joeycumines/go-kexec/keyboard"
	"github.com/joeycumines/go-kexec/scancode"
	"github.com/joeycumines/go-kexec/task"
	"github.com/joeycumines/logiface"
)

// PromptRedraw is the key the router synthesizes after the line editor
// submits a line. Default handling answers it by printing a fresh prompt.
// U+0080 is a C1 control and never produced by the keyboard.
const PromptRedraw rune = '\u0080'

// keyBatch bounds how many bytes the keyboard task handles per poll.
const keyBatch = 64

// LineEditor is the shell side of TargetTerminal.
type LineEditor interface {
	// Submit ends the current line and executes it.
	Submit()
	// Backspace removes the last character of the current line.
	Backspace()
	// AddKey appends a key to the current line.
	AddKey(key keyboard.DecodedKey)
}

// Echo renders the default handling of terminal keys.
type Echo interface {
	// Echo prints a character typed at the prompt.
	Echo(r rune)
	// Prompt starts a new line and prints the prompt.
	Prompt()
}

// KeyHandler receives keys verbatim, for TargetApplication and
// TargetGraphicMode.
type KeyHandler interface {
	HandleKey(key keyboard.DecodedKey)
}

// KeyHandlerFunc adapts a function to KeyHandler.
type KeyHandlerFunc func(key keyboard.DecodedKey)

// HandleKey calls f(key).
func (f KeyHandlerFunc) HandleKey(key keyboard.DecodedKey) { f(key) }

// Route records where Dispatch sent a key.
type Route uint8

const (
	RouteDiscarded Route = iota
	RouteTerminal
	RouteApplication
	RouteGraphicMode
)

func (r Route) String() string {
	switch r {
	case RouteDiscarded:
		return "Discarded"
	case RouteTerminal:
		return "Terminal"
	case RouteApplication:
		return "Application"
	case RouteGraphicMode:
		return "GraphicMode"
	default:
		return "Unknown"
	}
}

type handlerBox struct {
	h KeyHandler
}

// Router dispatches decoded keys according to the current Focus. The target
// is read once per key, so a focus change only affects later keys.
type Router struct {
	focus    *Focus
	editor   LineEditor
	echo     Echo
	graphics KeyHandler
	app      atomic.Pointer[handlerBox]
	logger   *logiface.Logger[logiface.Event]
}

// NewRouter creates a Router reading focus. Collaborators are attached with
// options, or later via the Set methods.
func NewRouter(focus *Focus, opts ...RouterOption) *Router {
	if focus == nil {
		focus = &Focus{}
	}
	r := &Router{focus: focus}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLineEditor sets the TargetTerminal line editor.
func WithLineEditor(editor LineEditor) RouterOption {
	return func(r *Router) { r.editor = editor }
}

// WithEcho sets the default handling sink for terminal keys.
func WithEcho(echo Echo) RouterOption {
	return func(r *Router) { r.echo = echo }
}

// WithGraphics sets the TargetGraphicMode handler.
func WithGraphics(h KeyHandler) RouterOption {
	return func(r *Router) { r.graphics = h }
}

// WithLogger sets the logger.
func WithLogger(logger *logiface.Logger[logiface.Event]) RouterOption {
	return func(r *Router) { r.logger = logger }
}

// Focus returns the focus the router reads.
func (r *Router) Focus() *Focus {
	return r.focus
}

// SetApplication installs the TargetApplication handler, replacing any
// previous one. nil uninstalls it.
func (r *Router) SetApplication(h KeyHandler) {
	if h == nil {
		r.app.Store(nil)
		return
	}
	r.app.Store(&handlerBox{h: h})
}

// Dispatch routes a single key.
func (r *Router) Dispatch(key keyboard.DecodedKey) Route {
	switch target := r.focus.Load(); target {
	case TargetTerminal:
		if r.editor == nil {
			return r.discard(target, key)
		}
		key = r.edit(key)
		r.defaultHandling(key)
		return RouteTerminal

	case TargetApplication:
		box := r.app.Load()
		if box == nil {
			return r.discard(target, key)
		}
		box.h.HandleKey(key)
		return RouteApplication

	case TargetGraphicMode:
		if r.graphics == nil {
			return r.discard(target, key)
		}
		r.graphics.HandleKey(key)
		return RouteGraphicMode

	default:
		return RouteDiscarded
	}
}

// edit applies key to the line editor and returns what is left for default
// handling.
func (r *Router) edit(key keyboard.DecodedKey) keyboard.DecodedKey {
	if key.IsUnicode() {
		switch key.Rune {
		case '\n':
			r.editor.Submit()
			return keyboard.Unicode(PromptRedraw)
		case '\b':
			r.editor.Backspace()
			return key
		}
	}
	r.editor.AddKey(key)
	return key
}

func (r *Router) defaultHandling(key keyboard.DecodedKey) {
	if r.echo == nil || !key.IsUnicode() {
		return
	}
	switch key.Rune {
	case PromptRedraw:
		r.echo.Prompt()
	case '\b':
		// erased by the line editor
	default:
		if isPrintable(key.Rune) {
			r.echo.Echo(key.Rune)
		}
	}
}

func (r *Router) discard(target Target, key keyboard.DecodedKey) Route {
	r.logger.Debug().
		Stringer("target", target).
		Stringer("key", key).
		Log("input: no handler for target, discarding key")
	return RouteDiscarded
}

// isPrintable reports whether r should be echoed. Control characters,
// including PromptRedraw and the C1 block, are not.
func isPrintable(r rune) bool {
	return r >= 0x20 && r != 0x7F && (r < 0x80 || r > 0x9F)
}

// Task returns the long-lived keyboard task: it drains stream, decodes each
// byte, and dispatches every decoded key. It never completes.
func (r *Router) Task(stream *scancode.Stream, dec *keyboard.Decoder) *task.Task {
	return task.New(task.FutureFunc(func(cx *task.Context) task.Poll {
		for range keyBatch {
			b, p := stream.PollNext(cx)
			if p == task.Pending {
				return task.Pending
			}
			key, ok, err := dec.Feed(b)
			if err != nil {
				r.logger.Debug().
					Err(err).
					Log("input: ignoring scancode")
				continue
			}
			if ok {
				r.Dispatch(key)
			}
		}
		// yield to other tasks, more input is likely waiting
		cx.Waker().Wake()
		return task.Pending
	}))
}
