package console

import (
	"github.com/fatih/color"
)

// Color is one of the 16 VGA text mode colors.
type Color uint8

// VGA text mode palette, in attribute order.
const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	Pink
	Yellow
	White

	// NumColors is the size of the palette.
	NumColors = 16
)

var colorNames = [NumColors]string{
	"Black", "Blue", "Green", "Cyan", "Red", "Magenta", "Brown", "LightGray",
	"DarkGray", "LightBlue", "LightGreen", "LightCyan", "LightRed", "Pink", "Yellow", "White",
}

func (c Color) String() string {
	if c < NumColors {
		return colorNames[c]
	}
	return "Unknown"
}

// Next returns the following palette color, wrapping around.
func (c Color) Next() Color {
	return (c + 1) % NumColors
}

// Prev returns the preceding palette color, wrapping around.
func (c Color) Prev() Color {
	return (c + NumColors - 1) % NumColors
}

// ansi maps the palette onto the 16 ANSI terminal colors. Brown is the
// VGA name for dark yellow.
var (
	ansiFg = [NumColors]color.Attribute{
		color.FgBlack, color.FgBlue, color.FgGreen, color.FgCyan,
		color.FgRed, color.FgMagenta, color.FgYellow, color.FgWhite,
		color.FgHiBlack, color.FgHiBlue, color.FgHiGreen, color.FgHiCyan,
		color.FgHiRed, color.FgHiMagenta, color.FgHiYellow, color.FgHiWhite,
	}
	ansiBg = [NumColors]color.Attribute{
		color.BgBlack, color.BgBlue, color.BgGreen, color.BgCyan,
		color.BgRed, color.BgMagenta, color.BgYellow, color.BgWhite,
		color.BgHiBlack, color.BgHiBlue, color.BgHiGreen, color.BgHiCyan,
		color.BgHiRed, color.BgHiMagenta, color.BgHiYellow, color.BgHiWhite,
	}
)

// attr packs a foreground and background color the way VGA text mode does.
type attr uint8

func makeAttr(fg, bg Color) attr {
	return attr(bg&0x0F)<<4 | attr(fg&0x0F)
}

func (a attr) fg() Color { return Color(a & 0x0F) }
func (a attr) bg() Color { return Color(a >> 4) }
