// Package graphics implements the full screen "graphics mode": a framed page
// drawn over a solid background, navigated with the arrow keys.
package graphics

import (
	"runtime"
	"strings"
	"unicode"

	"github.com/joeycumines/go-kexec/console"
	"github.com/joeycumines/go-kexec/input"
	"github.com/joeycumines/go-kexec/keyboard"
	"github.com/joeycumines/go-kexec/shell"
	"github.com/joeycumines/logiface"
	"github.com/mattn/go-runewidth"
)

// Frame geometry, in character cells.
const (
	frameWidth  = 72
	frameHeight = 17
	frameLeft   = (console.Columns - frameWidth) / 2
	frameTop    = (console.Rows - frameHeight) / 2
	innerWidth  = frameWidth - 2
)

var footer = [...]string{
	"Press X to exit to text",
	"Use the Up and Down Arrow keys to change the current page",
	"Use the Left and Right Arrow keys to change the background color",
}

// TextMode is the component graphics mode returns to on exit.
type TextMode interface {
	Activate()
	Info() shell.Info
}

// Page is a single screen. Body is called on every render.
type Page struct {
	Body  func(info shell.Info) []string
	Name  string
	Title string
}

// Mode is the graphics mode key handler. Like the shell, it must only be
// used from the goroutine running the keyboard task.
type Mode struct {
	screen *console.Console
	focus  *input.Focus
	text   TextMode
	logger *logiface.Logger[logiface.Event]
	pages  []Page
	page   int
	bg     console.Color
	fg     console.Color
}

var _ input.KeyHandler = (*Mode)(nil)

// Option configures a Mode.
type Option func(*Mode)

// WithLogger sets the logger.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(m *Mode) { m.logger = logger }
}

// WithPages replaces the default pages. Empty is ignored.
func WithPages(pages ...Page) Option {
	return func(m *Mode) {
		if len(pages) != 0 {
			m.pages = pages
		}
	}
}

// New returns a Mode drawing on screen, which returns to text on exit.
func New(screen *console.Console, focus *input.Focus, text TextMode, opts ...Option) *Mode {
	m := &Mode{
		screen: screen,
		focus:  focus,
		text:   text,
		pages:  DefaultPages(),
		bg:     console.Black,
		fg:     console.White,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// DefaultPages returns the main and device information pages.
func DefaultPages() []Page {
	return []Page{
		{
			Name:  "main",
			Title: "Graphical User Interface",
			Body: func(info shell.Info) []string {
				return []string{info.OSName + " " + info.Version}
			},
		},
		{
			Name:  "device_info",
			Title: "Device Information",
			Body: func(info shell.Info) []string {
				return []string{
					"Device Name: " + info.DeviceName,
					"Architecture: " + runtime.GOARCH,
					"OS Version: " + info.Version,
				}
			},
		},
	}
}

// Activate takes keyboard focus and draws the current page.
func (m *Mode) Activate() {
	m.focus.Store(input.TargetGraphicMode)
	m.render()
}

// Page returns the name of the current page.
func (m *Mode) Page() string {
	return m.pages[m.page].Name
}

// Colors returns the current foreground and background.
func (m *Mode) Colors() (fg, bg console.Color) {
	return m.fg, m.bg
}

// HandleKey implements input.KeyHandler.
func (m *Mode) HandleKey(key keyboard.DecodedKey) {
	if !key.IsUnicode() {
		switch key.Code {
		case keyboard.KeyArrowLeft:
			m.bg = m.bg.Prev()
		case keyboard.KeyArrowRight:
			m.bg = m.bg.Next()
		case keyboard.KeyArrowUp:
			m.page = (m.page + len(m.pages) - 1) % len(m.pages)
		case keyboard.KeyArrowDown:
			m.page = (m.page + 1) % len(m.pages)
		default:
			return
		}
		m.render()
		return
	}

	switch unicode.ToLower(key.Rune) {
	case 'x':
		m.exit()
	case 'c':
		m.fg = m.fg.Next()
		if m.fg == m.bg {
			m.fg = m.fg.Next()
		}
		m.render()
	}
}

func (m *Mode) exit() {
	m.logger.Debug().
		Str("page", m.Page()).
		Log("graphics: exit to text mode")
	m.text.Activate()
}

func (m *Mode) render() {
	m.logger.Trace().
		Str("page", m.Page()).
		Stringer("bg", m.bg).
		Stringer("fg", m.fg).
		Log("graphics: render")

	m.screen.SetColors(m.fg, m.bg)
	m.screen.Clear()

	p := m.pages[m.page]
	rows := make([]string, console.Rows)
	rows[frameTop] = "┌" + strings.Repeat("─", innerWidth) + "┐"
	for r := frameTop + 1; r < frameTop+frameHeight-1; r++ {
		rows[r] = "│" + strings.Repeat(" ", innerWidth) + "│"
	}
	rows[frameTop+frameHeight-1] = "└" + strings.Repeat("─", innerWidth) + "┘"

	place(rows, frameTop+2, p.Title)
	if p.Body != nil {
		for i, line := range p.Body(m.text.Info()) {
			if r := frameTop + 4 + i; r < frameTop+frameHeight-2-len(footer) {
				place(rows, r, line)
			}
		}
	}
	for i, line := range footer {
		place(rows, frameTop+frameHeight-2-i, line)
	}

	indent := strings.Repeat(" ", frameLeft)
	var b strings.Builder
	for i, row := range rows {
		if i != 0 {
			b.WriteByte('\n')
		}
		if row != "" {
			b.WriteString(indent)
			b.WriteString(row)
		}
	}
	_, _ = m.screen.WriteString(strings.TrimRight(b.String(), "\n"))
}

// place centers text inside the frame on rows[r], truncating to fit.
func place(rows []string, r int, text string) {
	text = runewidth.Truncate(text, innerWidth, "")
	w := runewidth.StringWidth(text)
	pad := (innerWidth - w) / 2
	rows[r] = "│" + strings.Repeat(" ", pad) + text + strings.Repeat(" ", innerWidth-pad-w) + "│"
}
