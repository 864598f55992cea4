// Command kexec boots the cooperative kernel executor on the host, with the
// terminal acting as keyboard and screen.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/go-kexec/config"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "kexec",
		Short:        "Cooperative single-core kernel executor",
		Long:         `kexec runs a cooperative async executor with a PS/2 keyboard path, driven by the host terminal.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to a TOML config file")
	root.PersistentFlags().String("log-level", "", "override [log].level")

	root.AddCommand(newRunCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig reads --config, or the defaults when it is unset, and applies
// flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, cfg.Validate()
}

// newLogger builds the JSON lines logger described by cfg. The returned
// close function must be called once logging is done.
func newLogger(cfg config.Log, stderr io.Writer) (*logiface.Logger[logiface.Event], func() error, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	w, closer := stderr, func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f.Close
	}
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
	return logger, closer, nil
}

// plainMirror reports whether the screen mirror should omit ANSI colors.
func plainMirror(color string, tty bool) bool {
	switch color {
	case "always":
		return false
	case "never":
		return true
	default:
		return !tty
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
