// Package console implements an 80x25 VGA text mode screen, optionally
// mirrored to a host terminal using ANSI colors.
package console

import (
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fatih/color"
)

const (
	// Columns is the screen width in characters.
	Columns = 80
	// Rows is the screen height in characters.
	Rows = 25

	tabWidth = 8
)

// Cell is a single character position.
type Cell struct {
	Rune rune
	FG   Color
	BG   Color
}

// Console is a text screen with a cursor. Writes past the last column wrap,
// and writes past the last row scroll the screen up. Safe for concurrent use.
type Console struct {
	mirror  io.Writer
	ansi    map[attr]*color.Color
	newline string
	cells   [Rows * Columns]attrCell
	mu      sync.Mutex
	row     int
	col     int
	attr    attr
	plain   bool
}

type attrCell struct {
	r rune
	a attr
}

// New returns a cleared console using LightGray on Black.
func New(opts ...Option) *Console {
	c := &Console{
		ansi:    make(map[attr]*color.Color),
		newline: "\n",
		attr:    makeAttr(LightGray, Black),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.clear()
	return c
}

// Option configures a Console.
type Option func(*Console)

// WithMirror copies everything drawn to w, as ANSI colored text.
func WithMirror(w io.Writer) Option {
	return func(c *Console) { c.mirror = w }
}

// WithRawNewlines makes the mirror emit "\r\n", for terminals in raw mode.
func WithRawNewlines(raw bool) Option {
	return func(c *Console) {
		if raw {
			c.newline = "\r\n"
		} else {
			c.newline = "\n"
		}
	}
}

// WithPlainMirror disables ANSI sequences on the mirror.
func WithPlainMirror(plain bool) Option {
	return func(c *Console) { c.plain = plain }
}

// WithColors sets the initial foreground and background.
func WithColors(fg, bg Color) Option {
	return func(c *Console) { c.attr = makeAttr(fg, bg) }
}

// Write implements io.Writer, interpreting '\n', '\r', '\b' and '\t'.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < len(p); {
		r, size := utf8.DecodeRune(p[i:])
		c.putRune(r)
		i += size
	}
	return len(p), nil
}

// WriteString is Write for strings.
func (c *Console) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

// WriteRune writes a single character.
func (c *Console) WriteRune(r rune) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putRune(r)
}

// WriteColored writes s in the given colors, then restores the current ones.
func (c *Console) WriteColored(fg, bg Color, s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	saved := c.attr
	c.attr = makeAttr(fg, bg)
	for _, r := range s {
		c.putRune(r)
	}
	c.attr = saved
}

// SetColors sets the colors used by subsequent writes.
func (c *Console) SetColors(fg, bg Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attr = makeAttr(fg, bg)
}

// Colors returns the current foreground and background.
func (c *Console) Colors() (fg, bg Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attr.fg(), c.attr.bg()
}

// Backspace moves the cursor back one cell and blanks it. It does not cross
// to the previous line.
func (c *Console) Backspace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backspace()
}

// Clear blanks the screen in the current colors and homes the cursor.
func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
	if c.mirror != nil && !c.plain {
		c.color(c.attr).Fprint(c.mirror, "\x1b[2J\x1b[H")
	}
}

// Fill is Clear with a new background color, keeping the foreground.
func (c *Console) Fill(bg Color) {
	c.mu.Lock()
	c.attr = makeAttr(c.attr.fg(), bg)
	c.mu.Unlock()
	c.Clear()
}

// Cursor returns the cursor position, zero based.
func (c *Console) Cursor() (row, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.row, c.col
}

// Cell returns the cell at row, col. Out of range positions return a zero
// Cell.
func (c *Console) Cell(row, col int) Cell {
	if row < 0 || row >= Rows || col < 0 || col >= Columns {
		return Cell{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ac := c.cells[row*Columns+col]
	return Cell{Rune: ac.r, FG: ac.a.fg(), BG: ac.a.bg()}
}

// Line returns the text of row with trailing blanks removed.
func (c *Console) Line(row int) string {
	if row < 0 || row >= Rows {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	for _, ac := range c.cells[row*Columns : (row+1)*Columns] {
		b.WriteRune(ac.r)
	}
	return strings.TrimRight(b.String(), " ")
}

// Text returns all rows joined by newlines, with trailing blank rows removed.
func (c *Console) Text() string {
	lines := make([]string, Rows)
	for i := range lines {
		lines[i] = c.Line(i)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func (c *Console) putRune(r rune) {
	switch r {
	case '\n':
		c.newlineLocked()
		c.mirrorString(c.newline)
		return
	case '\r':
		c.col = 0
		c.mirrorString("\r")
		return
	case '\b':
		c.backspace()
		return
	case '\t':
		for {
			c.putGlyph(' ')
			if c.col%tabWidth == 0 {
				return
			}
		}
	}
	if r < 0x20 || r == 0x7F || r == utf8.RuneError {
		// the VGA font would draw these as symbols, skip them
		return
	}
	c.putGlyph(r)
}

func (c *Console) putGlyph(r rune) {
	if c.col >= Columns {
		c.newlineLocked()
		c.mirrorString(c.newline)
	}
	c.cells[c.row*Columns+c.col] = attrCell{r: r, a: c.attr}
	c.col++
	if c.mirror != nil {
		if c.plain {
			_, _ = io.WriteString(c.mirror, string(r))
		} else {
			c.color(c.attr).Fprint(c.mirror, string(r))
		}
	}
}

func (c *Console) newlineLocked() {
	c.col = 0
	if c.row < Rows-1 {
		c.row++
		return
	}
	c.scroll()
}

// scroll moves every row up by one and blanks the last.
func (c *Console) scroll() {
	copy(c.cells[:], c.cells[Columns:])
	blank := attrCell{r: ' ', a: c.attr}
	for i := (Rows - 1) * Columns; i < len(c.cells); i++ {
		c.cells[i] = blank
	}
}

func (c *Console) backspace() {
	if c.col == 0 {
		return
	}
	c.col--
	c.cells[c.row*Columns+c.col] = attrCell{r: ' ', a: c.attr}
	c.mirrorString("\b \b")
}

func (c *Console) clear() {
	blank := attrCell{r: ' ', a: c.attr}
	for i := range c.cells {
		c.cells[i] = blank
	}
	c.row, c.col = 0, 0
}

func (c *Console) mirrorString(s string) {
	if c.mirror != nil {
		_, _ = io.WriteString(c.mirror, s)
	}
}

// color returns the cached ANSI color for a.
func (c *Console) color(a attr) *color.Color {
	if v, ok := c.ansi[a]; ok {
		return v
	}
	v := color.New(ansiFg[a.fg()], ansiBg[a.bg()])
	// a mirror is explicitly requested, honor it even when stdout is not a tty
	v.EnableColor()
	c.ansi[a] = v
	return v
}
