package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeycumines/go-kexec/config"
	"github.com/joeycumines/go-kexec/internal/hostkbd"
	"github.com/joeycumines/go-kexec/internal/machine"
	"github.com/joeycumines/go-kexec/trace"
	"github.com/joeycumines/logiface"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// errQuit ends a session without an error.
var errQuit = errors.New("quit")

const drainInterval = 10 * time.Millisecond

func newRunCmd() *cobra.Command {
	var record string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot, using the terminal as keyboard and screen",
		Long: `Boot the system and attach it to the terminal. Keys typed are translated to
scancodes and delivered through the keyboard interrupt. Press Ctrl+C to power off.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runInteractive(cmd.Context(), cfg, os.Stdin, os.Stdout, cmd.ErrOrStderr(), record)
		},
	}
	cmd.Flags().StringVar(&record, "record", "", "record keyboard input to a trace file")
	return cmd
}

// runInteractive runs a session reading keys from in until Ctrl+C, or until
// in is exhausted and every delivered key has been processed.
func runInteractive(ctx context.Context, cfg config.Config, in, out *os.File, stderr io.Writer, record string) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, closeLog, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); err == nil {
			err = cerr
		}
	}()

	inTTY, outTTY := isTerminal(in), isTerminal(out)
	if inTTY {
		state, err := term.MakeRaw(int(in.Fd()))
		if err != nil {
			return err
		}
		defer func() { _ = term.Restore(int(in.Fd()), state) }()
	}

	var rec *trace.Recorder
	if record != "" {
		rec = trace.NewRecorder(cfg.Keyboard.Layout)
	}

	m, err := machine.New(machine.Options{
		Config:      cfg,
		Logger:      logger,
		Mirror:      out,
		RawNewlines: inTTY && outTTY,
		PlainMirror: plainMirror(cfg.Console.Color, outTTY),
		Recorder:    rec,
		Version:     version,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	chunks := make(chan []byte)
	go readChunks(gctx, in, chunks)

	g.Go(func() error { return m.Run(gctx) })
	g.Go(func() error { return feed(gctx, m, chunks) })
	err = session(g.Wait(), logger)

	if rec != nil {
		if werr := trace.WriteFile(record, rec.Trace()); werr != nil && err == nil {
			err = werr
		}
		logger.Info().
			Str("path", record).
			Int("events", rec.Len()).
			Log("kexec: trace written")
	}
	if outTTY {
		_, _ = io.WriteString(out, "\r\n")
	}
	return err
}

// readChunks copies in to chunks until it fails or ctx is done, then closes
// chunks. Each chunk is a single read, so escape sequences usually arrive
// whole.
func readChunks(ctx context.Context, in io.Reader, chunks chan<- []byte) {
	defer close(chunks)
	buf := make([]byte, 256)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			select {
			case chunks <- append([]byte(nil), buf[:n]...):
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// feed translates and delivers host input. It returns errQuit on Ctrl+C,
// or once input has ended and the scancode queue has drained.
func feed(ctx context.Context, m *machine.Machine, chunks <-chan []byte) error {
	var (
		tr  hostkbd.Translator
		out []byte
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return drain(ctx, m)
			}
			out = out[:0]
			for _, b := range chunk {
				if b == hostkbd.Interrupt {
					return errQuit
				}
				out = tr.Translate(out, b)
			}
			m.DeliverAll(tr.Flush(out))
		}
	}
}

// drain waits for the keyboard task to consume every queued scancode.
func drain(ctx context.Context, m *machine.Machine) error {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()
	for m.Port.Stats().Queued != 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return errQuit
}

// session maps the end of a session to the command's result.
func session(err error, logger *logiface.Logger[logiface.Event]) error {
	switch {
	case err == nil, errors.Is(err, errQuit):
		logger.Info().Log("kexec: powering off")
		return nil
	case errors.Is(err, context.Canceled):
		logger.Info().Log("kexec: interrupted")
		return nil
	default:
		logger.Err().Err(err).Log("kexec: session failed")
		return err
	}
}
