// Package machine wires the core, executor, keyboard path and screen into a
// bootable system.
package machine

import (
	"context"
	"fmt"
	"io"

	"github.com/joeycumines/go-kexec/config"
	"github.com/joeycumines/go-kexec/console"
	"github.com/joeycumines/go-kexec/cpu"
	"github.com/joeycumines/go-kexec/graphics"
	"github.com/joeycumines/go-kexec/input"
	"github.com/joeycumines/go-kexec/keyboard"
	"github.com/joeycumines/go-kexec/scancode"
	"github.com/joeycumines/go-kexec/shell"
	"github.com/joeycumines/go-kexec/task"
	"github.com/joeycumines/go-kexec/trace"
	"github.com/joeycumines/logiface"
)

// Options configures New.
type Options struct {
	// Mirror receives a copy of the screen, nil for none.
	Mirror io.Writer
	// Logger may be nil.
	Logger *logiface.Logger[logiface.Event]
	// Recorder, if set, records every delivered scancode.
	Recorder *trace.Recorder
	// Version is shown by the shell.
	Version string
	// Config must be valid, see config.Config.Validate.
	Config config.Config
	// RawNewlines and PlainMirror are passed to the console.
	RawNewlines bool
	PlainMirror bool
}

// Machine is a booted system. Deliver may be called from any goroutine,
// everything else belongs to the goroutine calling Run.
type Machine struct {
	Core     *cpu.Core
	Executor *task.Executor
	Port     *scancode.Port
	Screen   *console.Console
	Focus    *input.Focus
	Router   *input.Router
	Shell    *shell.Shell
	Graphics *graphics.Mode

	logger   *logiface.Logger[logiface.Event]
	recorder *trace.Recorder
}

// New builds and boots a Machine: the screen shows the shell intro, and the
// example and keyboard tasks are spawned. Nothing runs until Run.
func New(opts Options) (*Machine, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{logger: opts.Logger, recorder: opts.Recorder}

	var err error
	if m.Core, err = cpu.New(
		cpu.WithLogger(opts.Logger),
		cpu.WithAffinity(cfg.Executor.PinCPU),
	); err != nil {
		return nil, err
	}
	if m.Executor, err = task.NewExecutor(
		task.WithCore(m.Core),
		task.WithTaskCapacity(cfg.Executor.TaskCapacity),
		task.WithLogger(opts.Logger),
		task.WithMetrics(true),
	); err != nil {
		return nil, err
	}
	if m.Port, err = scancode.NewPort(
		scancode.WithCapacity(cfg.Keyboard.QueueCapacity),
		scancode.WithLogger(opts.Logger),
	); err != nil {
		return nil, err
	}

	consoleOpts := []console.Option{
		console.WithRawNewlines(opts.RawNewlines),
		console.WithPlainMirror(opts.PlainMirror),
	}
	if opts.Mirror != nil {
		consoleOpts = append(consoleOpts, console.WithMirror(opts.Mirror))
	}
	m.Screen = console.New(consoleOpts...)
	m.Focus = input.NewFocus(input.TargetNone)

	m.Shell = shell.New(m.Screen, m.Focus, shell.Info{
		OSName:     cfg.System.OSName,
		OSFullName: cfg.System.OSFullName,
		DeviceName: cfg.System.DeviceName,
		Version:    opts.Version,
	}, shell.WithLogger(opts.Logger), shell.WithStats(m.statLines))
	m.Graphics = graphics.New(m.Screen, m.Focus, m.Shell, graphics.WithLogger(opts.Logger))
	m.Shell.SetGraphics(m.Graphics)

	m.Router = input.NewRouter(m.Focus,
		input.WithLineEditor(m.Shell),
		input.WithEcho(m.Shell),
		input.WithGraphics(m.Graphics),
		input.WithLogger(opts.Logger),
	)
	if err := m.Shell.Register(keyTestCommand(m)); err != nil {
		return nil, err
	}

	if err := m.boot(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Machine) boot() error {
	stream, err := m.Port.NewStream()
	if err != nil {
		return err
	}
	m.Shell.Intro()
	if err := m.Executor.Spawn(exampleTask(m.Screen, m.Shell)); err != nil {
		return err
	}
	dec := keyboard.NewDecoder(keyboard.Us104Key{}, keyboard.Ignore)
	return m.Executor.Spawn(m.Router.Task(stream, dec))
}

// Run runs the executor until ctx is done.
func (m *Machine) Run(ctx context.Context) error {
	m.logger.Debug().
		Int("tasks", m.Executor.Len()).
		Log("machine: running")
	return m.Executor.Run(ctx)
}

// Deliver raises a keyboard interrupt carrying b.
func (m *Machine) Deliver(b byte) {
	if m.recorder != nil {
		if err := m.recorder.Record(b); err != nil {
			m.logger.Warning().
				Err(err).
				Log("machine: trace recording failed")
		}
	}
	m.Core.Interrupt(func() {
		m.Port.AddScancode(b)
	})
}

// DeliverAll delivers each byte of p in order.
func (m *Machine) DeliverAll(p []byte) {
	for _, b := range p {
		m.Deliver(b)
	}
}

func (m *Machine) statLines() []string {
	em := m.Executor.Metrics()
	ps := m.Port.Stats()
	cs := m.Core.Stats()
	return []string{
		fmt.Sprintf("tasks: %d live, %d spawned, %d completed, %d panicked", em.Live, em.Spawned, em.Completed, em.Panics),
		fmt.Sprintf("polls: %d, stale wakeups: %d, overflows: %d", em.Polls, em.StaleWakeups, em.Overflows),
		fmt.Sprintf("cpu: %d interrupts, %d halts", cs.Interrupts, cs.Halts),
		fmt.Sprintf("keyboard: %d queued, %d pushed, %d dropped, %d before init", ps.Queued, ps.Pushed, ps.Dropped, ps.Uninitialized),
	}
}

// exampleNumber completes on its second poll, waking itself in between.
func exampleNumber() task.Future {
	polled := false
	return task.FutureFunc(func(cx *task.Context) task.Poll {
		if polled {
			return task.Ready
		}
		polled = true
		cx.Waker().Wake()
		return task.Pending
	})
}

// exampleTask awaits exampleNumber, then prints its result under the intro.
func exampleTask(screen *console.Console, sh *shell.Shell) *task.Task {
	inner := exampleNumber()
	return task.New(task.FutureFunc(func(cx *task.Context) task.Poll {
		if inner.Poll(cx) == task.Pending {
			return task.Pending
		}
		_, _ = fmt.Fprintf(screen, "Example Number: %d", 174)
		sh.Prompt()
		return task.Ready
	}))
}

// keyTestCommand runs an Application that prints every decoded key until
// Escape is pressed.
func keyTestCommand(m *Machine) shell.Command {
	return shell.Command{
		Name:        "keys",
		Description: "Show decoded keys until Escape",
		Run: func(s *shell.Shell, _ []string) error {
			var app *input.Application
			app = input.NewApplication("keys", input.KeyHandlerFunc(func(key keyboard.DecodedKey) {
				if key == keyboard.RawKey(keyboard.KeyEscape) || key == keyboard.Unicode(0x1B) {
					app.Stop()
					s.Prompt()
					return
				}
				_, _ = fmt.Fprintf(m.Screen, "\n%v", key)
			}))
			_, _ = m.Screen.WriteString("Press keys, Escape to return")
			app.Init(m.Router)
			return app.Run()
		},
	}
}
