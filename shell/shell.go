// Package shell implements the text mode command line: a fixed size line
// buffer edited through the input router, and a table of commands.
package shell

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/joeycumines/go-kexec/console"
	"github.com/joeycumines/go-kexec/input"
	"github.com/joeycumines/go-kexec/keyboard"
	"github.com/joeycumines/logiface"
)

// LineCapacity is the maximum length of a command line, in bytes.
const LineCapacity = 512

// ErrDuplicateCommand is returned by Register for a name already in use.
var ErrDuplicateCommand = errors.New("shell: duplicate command")

// Info identifies the system in the prompt and the version command.
type Info struct {
	OSName     string
	OSFullName string
	DeviceName string
	Version    string
}

// Activator is a component that can take over the screen and keyboard.
type Activator interface {
	Activate()
}

// Shell is the command line. It implements input.LineEditor and input.Echo,
// and must only be used from the goroutine running the keyboard task.
type Shell struct {
	screen   *console.Console
	focus    *input.Focus
	graphics Activator
	logger   *logiface.Logger[logiface.Event]
	rng      *rand.Rand
	stats    func() []string
	byName   map[string]*Command
	commands []*Command
	info     Info
	line     []byte
}

var (
	_ input.LineEditor = (*Shell)(nil)
	_ input.Echo       = (*Shell)(nil)
)

// New returns a Shell drawing on screen and taking focus through focus.
// The built-in commands are registered.
func New(screen *console.Console, focus *input.Focus, info Info, opts ...Option) *Shell {
	s := &Shell{
		screen: screen,
		focus:  focus,
		info:   info,
		byName: make(map[string]*Command),
		line:   make([]byte, 0, LineCapacity),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	for _, cmd := range builtins() {
		_ = s.Register(cmd)
	}
	return s
}

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the logger.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(s *Shell) { s.logger = logger }
}

// WithSeed makes the rnd commands deterministic.
func WithSeed(seed1, seed2 uint64) Option {
	return func(s *Shell) { s.rng = rand.New(rand.NewPCG(seed1, seed2)) }
}

// WithStats provides the lines printed by the stats command.
func WithStats(fn func() []string) Option {
	return func(s *Shell) { s.stats = fn }
}

// SetGraphics sets the component started by the vga command.
func (s *Shell) SetGraphics(a Activator) {
	s.graphics = a
}

// Register adds a command.
func (s *Shell) Register(cmd Command) error {
	if _, ok := s.byName[cmd.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateCommand, cmd.Name)
	}
	c := &cmd
	s.byName[cmd.Name] = c
	s.commands = append(s.commands, c)
	return nil
}

// Info returns the current system info.
func (s *Shell) Info() Info {
	return s.info
}

// PromptText returns the prompt, e.g. "qemu@midas> ".
func (s *Shell) PromptText() string {
	return s.info.DeviceName + "@" + strings.ToLower(s.info.OSName) + "> "
}

// Line returns the current, unsubmitted line.
func (s *Shell) Line() string {
	return string(s.line)
}

// Activate shows the intro and gives the shell keyboard focus.
func (s *Shell) Activate() {
	s.Intro()
	_, _ = s.screen.WriteString(s.PromptText())
}

// Deactivate releases keyboard focus, if the shell holds it.
func (s *Shell) Deactivate() {
	s.focus.CompareAndSwap(input.TargetTerminal, input.TargetNone)
}

// Intro clears the screen, prints the welcome banner and takes focus.
func (s *Shell) Intro() {
	s.line = s.line[:0]
	s.screen.SetColors(console.LightGray, console.Black)
	s.screen.Clear()
	_, _ = s.screen.WriteString("\nWelcome to ")
	s.screen.WriteColored(console.Yellow, console.Black, s.info.OSName)
	if s.info.OSFullName != "" {
		_, _ = fmt.Fprintf(s.screen, " (%s)", s.info.OSFullName)
	}
	_, _ = s.screen.WriteString("\n\nType ")
	s.screen.WriteColored(console.LightGreen, console.Black, `"help"`)
	_, _ = s.screen.WriteString(" to see a list of commands\n")
	s.focus.Store(input.TargetTerminal)
}

// Submit implements input.LineEditor.
func (s *Shell) Submit() {
	line := string(s.line)
	s.line = s.line[:0]
	s.Exec(line)
}

// Backspace implements input.LineEditor.
func (s *Shell) Backspace() {
	if len(s.line) == 0 {
		return
	}
	_, size := utf8.DecodeLastRune(s.line)
	s.line = s.line[:len(s.line)-size]
	s.screen.Backspace()
}

// AddKey implements input.LineEditor. Only printable characters are kept,
// and input beyond LineCapacity is dropped.
func (s *Shell) AddKey(key keyboard.DecodedKey) {
	if !key.IsUnicode() || key.Rune < 0x20 || key.Rune == 0x7F || key.Rune == input.PromptRedraw {
		return
	}
	if len(s.line)+utf8.RuneLen(key.Rune) > LineCapacity {
		s.logger.Debug().
			Int("capacity", LineCapacity).
			Log("shell: line full, dropping key")
		return
	}
	s.line = utf8.AppendRune(s.line, key.Rune)
}

// Echo implements input.Echo.
func (s *Shell) Echo(r rune) {
	s.screen.WriteRune(r)
}

// Prompt implements input.Echo. It does nothing once a command has handed
// focus elsewhere.
func (s *Shell) Prompt() {
	if s.focus.Load() != input.TargetTerminal {
		return
	}
	_, _ = s.screen.WriteString("\n" + s.PromptText())
}

// Exec runs a command line. Empty lines do nothing.
func (s *Shell) Exec(line string) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return
	}
	_, _ = s.screen.WriteString("\n")

	cmd, ok := s.byName[args[0]]
	if !ok {
		s.screen.WriteColored(console.LightRed, console.Black, fmt.Sprintf("Command %q not found", args[0]))
		return
	}

	s.logger.Debug().
		Str("command", cmd.Name).
		Int("args", len(args)-1).
		Log("shell: exec")

	if err := cmd.Run(s, args[1:]); err != nil {
		s.screen.WriteColored(console.LightRed, console.Black, err.Error())
	}
}
