// Package hostkbd turns bytes read from a host terminal in raw mode into the
// scancode set 1 bytes a PS/2 keyboard would have sent.
package hostkbd

import (
	"github.com/joeycumines/go-kexec/keyboard"
)

// Interrupt is the byte a raw terminal sends for Ctrl+C.
const Interrupt = 0x03

type state uint8

const (
	stateGround state = iota
	stateEscape
	stateCSI
)

// csiKeys maps the final byte of "ESC [ x" sequences.
var csiKeys = map[byte]keyboard.KeyCode{
	'A': keyboard.KeyArrowUp,
	'B': keyboard.KeyArrowDown,
	'C': keyboard.KeyArrowRight,
	'D': keyboard.KeyArrowLeft,
	'H': keyboard.KeyHome,
	'F': keyboard.KeyEnd,
}

// Translator holds the escape sequence state between reads. The zero value
// is ready to use.
type Translator struct {
	layout  keyboard.Us104Key
	state   state
	dropped uint64
}

// Translate appends the scancodes for b to dst.
func (t *Translator) Translate(dst []byte, b byte) []byte {
	switch t.state {
	case stateEscape:
		if b == '[' {
			t.state = stateCSI
			return dst
		}
		t.state = stateGround
		dst = keyboard.AppendKeyPress(dst, keyboard.KeyEscape)
		return t.Translate(dst, b)

	case stateCSI:
		if b >= 0x20 && b < 0x40 {
			// parameter or intermediate byte, e.g. "ESC [ 1 ; 5 A"
			return dst
		}
		t.state = stateGround
		if code, ok := csiKeys[b]; ok {
			return keyboard.AppendKeyPress(dst, code)
		}
		t.dropped++
		return dst
	}

	var r rune
	switch {
	case b == 0x1B:
		t.state = stateEscape
		return dst
	case b == '\r':
		r = '\n'
	case b == 0x7F:
		r = '\b'
	case b >= 0x80:
		t.dropped++
		return dst
	default:
		r = rune(b)
	}
	out, err := t.layout.Encode(r)
	if err != nil {
		t.dropped++
		return dst
	}
	return append(dst, out...)
}

// Flush completes a lone escape at the end of a read, which can only be the
// Escape key.
func (t *Translator) Flush(dst []byte) []byte {
	if t.state == stateEscape {
		t.state = stateGround
		dst = keyboard.AppendKeyPress(dst, keyboard.KeyEscape)
	}
	return dst
}

// Dropped returns the number of bytes that had no key.
func (t *Translator) Dropped() uint64 {
	return t.dropped
}
