package shell

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joeycumines/go-kexec/console"
)

// Command is a named shell command. Run writes its output to the shell's
// screen, without a trailing newline; a returned error is printed in red.
type Command struct {
	Run         func(s *Shell, args []string) error
	Name        string
	Description string
}

var errUsage = errors.New("usage")

func usage(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

func builtins() []Command {
	return []Command{
		{Name: "help", Description: "Show this help message", Run: cmdHelp},
		{Name: "intro", Description: "Show the welcome screen", Run: cmdIntro},
		{Name: "clear", Description: "Clear the screen", Run: cmdClear},
		{Name: "echo", Description: "Echo the arguments", Run: cmdEcho},
		{Name: "version", Description: "Show the current version", Run: cmdVersion},
		{Name: "rdvc", Description: "Rename the current device", Run: cmdRenameDevice},
		{Name: "vga", Description: "Enter graphics mode", Run: cmdGraphics},
		{Name: "rnd", Description: "Generate a random number", Run: cmdRandom},
		{Name: "rndrg", Description: "Generate a random number in a range", Run: cmdRandomRange},
		{Name: "stats", Description: "Show executor and keyboard statistics", Run: cmdStats},
	}
}

func cmdHelp(s *Shell, _ []string) error {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range s.commands {
		fmt.Fprintf(&b, "\n%s - %s", c.Name, c.Description)
	}
	_, err := s.screen.WriteString(b.String())
	return err
}

func cmdIntro(s *Shell, _ []string) error {
	s.Intro()
	return nil
}

func cmdClear(s *Shell, _ []string) error {
	s.screen.SetColors(console.LightGray, console.Black)
	s.screen.Clear()
	return nil
}

func cmdEcho(s *Shell, args []string) error {
	if len(args) == 0 {
		return usage("echo <text>")
	}
	_, err := s.screen.WriteString(strings.Join(args, " "))
	return err
}

func cmdVersion(s *Shell, _ []string) error {
	_, err := fmt.Fprintf(s.screen, "%s version %s", s.info.OSName, s.info.Version)
	return err
}

func cmdRenameDevice(s *Shell, args []string) error {
	if len(args) != 1 {
		return usage("rdvc <name>")
	}
	s.info.DeviceName = args[0]
	_, err := fmt.Fprintf(s.screen, "Renaming device to %q", args[0])
	return err
}

func cmdGraphics(s *Shell, _ []string) error {
	if s.graphics == nil {
		return errors.New("graphics mode is not available")
	}
	s.line = s.line[:0]
	s.graphics.Activate()
	return nil
}

func cmdRandom(s *Shell, _ []string) error {
	_, err := fmt.Fprintf(s.screen, "Random number (0, 1): %f\nRandom number: %d", s.rng.Float64(), s.rng.Uint64())
	return err
}

func cmdRandomRange(s *Shell, args []string) error {
	if len(args) != 2 {
		return usage("rndrg <min> <max>")
	}
	lo, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid min: %w", err)
	}
	hi, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid max: %w", err)
	}
	if hi < lo {
		return fmt.Errorf("max %d is less than min %d", hi, lo)
	}
	var n uint64
	if span := hi - lo; span == math.MaxUint64 {
		n = s.rng.Uint64()
	} else {
		n = lo + s.rng.Uint64N(span+1)
	}
	_, err = fmt.Fprintf(s.screen, "Random number in range (%d, %d): %d", lo, hi, n)
	return err
}

func cmdStats(s *Shell, _ []string) error {
	if s.stats == nil {
		return errors.New("no statistics available")
	}
	_, err := s.screen.WriteString(strings.Join(s.stats(), "\n"))
	return err
}
