package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/joeycumines/go-kexec/config"
	"github.com/joeycumines/go-kexec/internal/machine"
	"github.com/joeycumines/go-kexec/trace"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newReplayCmd() *cobra.Command {
	var (
		speed float64
		hold  time.Duration
		final bool
	)
	cmd := &cobra.Command{
		Use:   "replay <trace>",
		Short: "Boot and replay a recorded keyboard trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			t, err := trace.ReadFile(args[0])
			if err != nil {
				return err
			}
			if t.Layout != "" && t.Layout != cfg.Keyboard.Layout {
				return fmt.Errorf("trace layout %q does not match configured layout %q", t.Layout, cfg.Keyboard.Layout)
			}
			return runReplay(cmd.Context(), cfg, t, replayOptions{
				out:    cmd.OutOrStdout(),
				stderr: cmd.ErrOrStderr(),
				speed:  speed,
				hold:   hold,
				final:  final,
			})
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1, "replay speed multiplier, 0 for no delays")
	cmd.Flags().DurationVar(&hold, "hold", 200*time.Millisecond, "time to keep running after the last key")
	cmd.Flags().BoolVar(&final, "final", false, "print only the final screen instead of mirroring")
	return cmd
}

type replayOptions struct {
	out    io.Writer
	stderr io.Writer
	speed  float64
	hold   time.Duration
	final  bool
}

// runReplay boots a machine, feeds it t through the keyboard interrupt, and
// powers off hold after the last key.
func runReplay(ctx context.Context, cfg config.Config, t trace.Trace, opts replayOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, closeLog, err := newLogger(cfg.Log, opts.stderr)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); err == nil {
			err = cerr
		}
	}()

	mopts := machine.Options{
		Config:      cfg,
		Logger:      logger,
		PlainMirror: true,
		Version:     version,
	}
	if !opts.final {
		mopts.Mirror = opts.out
	}
	m, err := machine.New(mopts)
	if err != nil {
		return err
	}

	logger.Info().
		Int("events", len(t.Events)).
		Any("speed", opts.speed).
		Log("kexec: replaying trace")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.Run(gctx) })
	g.Go(func() error {
		if err := trace.Replay(gctx, t, m.Deliver, opts.speed); err != nil {
			return err
		}
		if err := drain(gctx, m); !errors.Is(err, errQuit) {
			return err
		}
		select {
		case <-gctx.Done():
			return gctx.Err()
		case <-time.After(opts.hold):
			return errQuit
		}
	})
	if err := session(g.Wait(), logger); err != nil {
		return err
	}

	if opts.final {
		_, err = fmt.Fprintln(opts.out, m.Screen.Text())
		return err
	}
	_, err = io.WriteString(opts.out, "\n")
	return err
}
