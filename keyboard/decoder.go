// Package keyboard decodes PS/2 scancode set 1 into key events and
// characters, using a US 104-key layout.
//
// Decoding happens in two steps, mirroring the hardware: AddByte turns raw
// bytes into KeyEvents (tracking the E0 prefix), and ProcessKeyEvent turns
// KeyEvents into DecodedKeys (tracking modifier state).
package keyboard

import (
	"errors"
	"fmt"
)

const (
	prefixExtended byte = 0xE0
	breakBit       byte = 0x80
)

// ErrUnknownKeyCode is returned by AddByte for bytes that map to no key.
var ErrUnknownKeyCode = errors.New("keyboard: unknown key code")

// KeyState is whether a key went down or up.
type KeyState uint8

const (
	Up KeyState = iota
	Down
)

func (s KeyState) String() string {
	if s == Down {
		return "Down"
	}
	return "Up"
}

// KeyEvent is a single press or release of a physical key.
type KeyEvent struct {
	Code  KeyCode
	State KeyState
}

// DecodedKey is the result of processing a KeyEvent: either a character, or
// a key with no character meaning (arrows, function keys, modifiers).
type DecodedKey struct {
	Rune rune
	Code KeyCode
	Raw  bool
}

// Unicode returns a DecodedKey for the character r.
func Unicode(r rune) DecodedKey {
	return DecodedKey{Rune: r}
}

// RawKey returns a DecodedKey for a key with no character meaning.
func RawKey(code KeyCode) DecodedKey {
	return DecodedKey{Code: code, Raw: true}
}

// IsUnicode reports whether k carries a character.
func (k DecodedKey) IsUnicode() bool {
	return !k.Raw
}

func (k DecodedKey) String() string {
	if k.Raw {
		return fmt.Sprintf("RawKey(%s)", k.Code)
	}
	return fmt.Sprintf("Unicode(%q)", k.Rune)
}

// HandleControl selects what Ctrl+letter produces.
type HandleControl uint8

const (
	// Ignore makes Ctrl+letter produce the plain letter.
	Ignore HandleControl = iota
	// MapLettersToUnicode makes Ctrl+A..Ctrl+Z produce U+0001..U+001A.
	MapLettersToUnicode
)

// Modifiers is the state of the modifier and lock keys.
type Modifiers struct {
	LShift   bool
	RShift   bool
	LCtrl    bool
	RCtrl    bool
	Alt      bool
	AltGr    bool
	CapsLock bool
	NumLock  bool
}

// IsShifted reports whether either shift key is held.
func (m Modifiers) IsShifted() bool {
	return m.LShift || m.RShift
}

// IsCtrl reports whether either control key is held.
func (m Modifiers) IsCtrl() bool {
	return m.LCtrl || m.RCtrl
}

// IsCaps reports whether letters should be upper case.
func (m Modifiers) IsCaps() bool {
	return m.IsShifted() != m.CapsLock
}

// Decoder turns scancode set 1 bytes into decoded keys. It is not safe for
// concurrent use; it belongs to the keyboard task.
type Decoder struct {
	layout   Layout
	mods     Modifiers
	control  HandleControl
	extended bool
}

// NewDecoder returns a Decoder with Num Lock on, as after a PC reset.
func NewDecoder(layout Layout, control HandleControl) *Decoder {
	return &Decoder{
		layout:  layout,
		control: control,
		mods:    Modifiers{NumLock: true},
	}
}

// Modifiers returns the current modifier state.
func (d *Decoder) Modifiers() Modifiers {
	return d.mods
}

// AddByte consumes a single byte. It returns ok=false while a multi-byte
// sequence is incomplete, and ErrUnknownKeyCode for unmapped codes.
func (d *Decoder) AddByte(b byte) (ev KeyEvent, ok bool, err error) {
	if b == prefixExtended {
		d.extended = true
		return KeyEvent{}, false, nil
	}

	extended := d.extended
	d.extended = false

	state := Down
	if b&breakBit != 0 {
		state = Up
		b &^= breakBit
	}

	table := &set1
	if extended {
		// E0 2A / E0 AA are fake shifts sent around some extended keys
		if b == 0x2A || b == 0x36 {
			return KeyEvent{}, false, nil
		}
		table = &set1Extended
	}

	code := table[b]
	if code == KeyUnknown {
		return KeyEvent{}, false, fmt.Errorf("%w: %#02x (extended=%t)", ErrUnknownKeyCode, b, extended)
	}
	return KeyEvent{Code: code, State: state}, true, nil
}

// ProcessKeyEvent updates modifier state and returns the key the event
// produces, if any. Releases produce nothing, modifier presses produce the
// raw modifier key.
func (d *Decoder) ProcessKeyEvent(ev KeyEvent) (DecodedKey, bool) {
	down := ev.State == Down
	switch ev.Code {
	case KeyLShift:
		d.mods.LShift = down
	case KeyRShift:
		d.mods.RShift = down
	case KeyLControl:
		d.mods.LCtrl = down
	case KeyRControl:
		d.mods.RCtrl = down
	case KeyLAlt:
		d.mods.Alt = down
	case KeyRAltGr:
		d.mods.AltGr = down
	case KeyCapsLock:
		if down {
			d.mods.CapsLock = !d.mods.CapsLock
		}
	case KeyNumLock:
		if down {
			d.mods.NumLock = !d.mods.NumLock
		}
	default:
		if !down {
			return DecodedKey{}, false
		}
		return d.layout.MapKeycode(ev.Code, d.mods, d.control), true
	}
	if !down {
		return DecodedKey{}, false
	}
	return RawKey(ev.Code), true
}

// Feed is AddByte followed by ProcessKeyEvent, for callers that only care
// about decoded keys. Unknown codes are reported but leave the decoder
// usable.
func (d *Decoder) Feed(b byte) (DecodedKey, bool, error) {
	ev, ok, err := d.AddByte(b)
	if err != nil || !ok {
		return DecodedKey{}, false, err
	}
	key, ok := d.ProcessKeyEvent(ev)
	return key, ok, nil
}
