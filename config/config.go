// Package config loads the kexec TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joeycumines/logiface"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

type (
	// Config is the root of the configuration file.
	Config struct {
		System   System   `toml:"system"`
		Log      Log      `toml:"log"`
		Console  Console  `toml:"console"`
		Keyboard Keyboard `toml:"keyboard"`
		Executor Executor `toml:"executor"`
	}

	// System identifies the machine in the shell.
	System struct {
		OSName     string `toml:"os_name"`
		OSFullName string `toml:"os_full_name"`
		DeviceName string `toml:"device_name"`
	}

	// Executor configures the task executor.
	Executor struct {
		// TaskCapacity bounds live tasks and the ready queue.
		TaskCapacity int `toml:"task_capacity"`
		// PinCPU pins the executor thread to a CPU, -1 to leave it unpinned.
		PinCPU int `toml:"pin_cpu"`
	}

	// Keyboard configures the scancode queue and decoder.
	Keyboard struct {
		Layout        string `toml:"layout"`
		QueueCapacity int    `toml:"queue_capacity"`
	}

	// Log configures the logger. An empty File logs to stderr.
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	}

	// Console configures the host terminal mirror. Color is one of "auto",
	// "always" or "never".
	Console struct {
		Color string `toml:"color"`
	}
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		System: System{
			OSName:     "MidAS",
			OSFullName: "Midna Avery System",
			DeviceName: "qemu",
		},
		Executor: Executor{
			TaskCapacity: 100,
			PinCPU:       -1,
		},
		Keyboard: Keyboard{
			Layout:        "us104",
			QueueCapacity: 100,
		},
		Log: Log{
			Level: "info",
		},
		Console: Console{
			Color: "auto",
		},
	}
}

// Load reads path over the defaults, then validates the result. Keys not
// known to Config are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: %w: unknown keys: %s", path, ErrInvalid, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.System.OSName) == "":
		return fmt.Errorf("%w: [system].os_name is empty", ErrInvalid)
	case strings.TrimSpace(c.System.DeviceName) == "":
		return fmt.Errorf("%w: [system].device_name is empty", ErrInvalid)
	case strings.ContainsAny(c.System.DeviceName, " \t"):
		return fmt.Errorf("%w: [system].device_name contains whitespace", ErrInvalid)
	case c.Executor.TaskCapacity < 1:
		return fmt.Errorf("%w: [executor].task_capacity must be positive, got %d", ErrInvalid, c.Executor.TaskCapacity)
	case c.Executor.PinCPU < -1:
		return fmt.Errorf("%w: [executor].pin_cpu must be -1 or a cpu number, got %d", ErrInvalid, c.Executor.PinCPU)
	case c.Keyboard.QueueCapacity < 1:
		return fmt.Errorf("%w: [keyboard].queue_capacity must be positive, got %d", ErrInvalid, c.Keyboard.QueueCapacity)
	case c.Keyboard.Layout != "us104":
		return fmt.Errorf("%w: [keyboard].layout %q is not supported", ErrInvalid, c.Keyboard.Layout)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Console.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%w: [console].color %q is not one of auto, always, never", ErrInvalid, c.Console.Color)
	}
	return nil
}

// ParseLevel converts a level name to a logiface.Level. Both the syslog
// keywords logiface prints ("err", "warning") and the common aliases
// ("error", "warn") are accepted.
func ParseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "off", "none":
		return logiface.LevelDisabled, nil
	case "emerg", "emergency":
		return logiface.LevelEmergency, nil
	case "alert":
		return logiface.LevelAlert, nil
	case "crit", "critical":
		return logiface.LevelCritical, nil
	case "err", "error":
		return logiface.LevelError, nil
	case "warning", "warn":
		return logiface.LevelWarning, nil
	case "notice":
		return logiface.LevelNotice, nil
	case "info", "informational":
		return logiface.LevelInformational, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "trace":
		return logiface.LevelTrace, nil
	default:
		return logiface.LevelDisabled, fmt.Errorf("%w: [log].level %q is not a known level", ErrInvalid, s)
	}
}
