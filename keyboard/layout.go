package keyboard

import (
	"errors"
	"fmt"
)

// ErrNotEncodable is returned when a rune has no key on the layout.
var ErrNotEncodable = errors.New("keyboard: rune has no key")

// Layout maps key codes to characters.
type Layout interface {
	MapKeycode(code KeyCode, mods Modifiers, control HandleControl) DecodedKey
}

// Us104Key is the standard US 104-key layout.
type Us104Key struct{}

var _ Layout = Us104Key{}

// us104 holds the unshifted and shifted characters for non-letter keys.
var us104 = map[KeyCode][2]rune{
	KeyBackTick:     {'`', '~'},
	Key1:            {'1', '!'},
	Key2:            {'2', '@'},
	Key3:            {'3', '#'},
	Key4:            {'4', '$'},
	Key5:            {'5', '%'},
	Key6:            {'6', '^'},
	Key7:            {'7', '&'},
	Key8:            {'8', '*'},
	Key9:            {'9', '('},
	Key0:            {'0', ')'},
	KeyMinus:        {'-', '_'},
	KeyEquals:       {'=', '+'},
	KeyBracketLeft:  {'[', '{'},
	KeyBracketRight: {']', '}'},
	KeyBackSlash:    {'\\', '|'},
	KeySemicolon:    {';', ':'},
	KeyQuote:        {'\'', '"'},
	KeyComma:        {',', '<'},
	KeyFullStop:     {'.', '>'},
	KeySlash:        {'/', '?'},
	KeySpacebar:     {' ', ' '},
	KeyTab:          {'\t', '\t'},
	KeyEnter:        {'\n', '\n'},
	KeyBackspace:    {'\b', '\b'},
	KeyEscape:       {0x1B, 0x1B},
	KeyDelete:       {0x7F, 0x7F},
	KeyNumpadStar:   {'*', '*'},
	KeyNumpadMinus:  {'-', '-'},
	KeyNumpadPlus:   {'+', '+'},
	KeyNumpadSlash:  {'/', '/'},
	KeyNumpadEnter:  {'\n', '\n'},
}

var us104Letters = map[KeyCode]rune{
	KeyA: 'a', KeyB: 'b', KeyC: 'c', KeyD: 'd', KeyE: 'e', KeyF: 'f', KeyG: 'g',
	KeyH: 'h', KeyI: 'i', KeyJ: 'j', KeyK: 'k', KeyL: 'l', KeyM: 'm', KeyN: 'n',
	KeyO: 'o', KeyP: 'p', KeyQ: 'q', KeyR: 'r', KeyS: 's', KeyT: 't', KeyU: 'u',
	KeyV: 'v', KeyW: 'w', KeyX: 'x', KeyY: 'y', KeyZ: 'z',
}

// numpad maps each numpad key to its Num Lock character and the key it
// acts as with Num Lock off.
var numpad = map[KeyCode]struct {
	r   rune
	alt KeyCode
}{
	KeyNumpad7:      {'7', KeyHome},
	KeyNumpad8:      {'8', KeyArrowUp},
	KeyNumpad9:      {'9', KeyPageUp},
	KeyNumpad4:      {'4', KeyArrowLeft},
	KeyNumpad5:      {'5', KeyNumpad5},
	KeyNumpad6:      {'6', KeyArrowRight},
	KeyNumpad1:      {'1', KeyEnd},
	KeyNumpad2:      {'2', KeyArrowDown},
	KeyNumpad3:      {'3', KeyPageDown},
	KeyNumpad0:      {'0', KeyInsert},
	KeyNumpadPeriod: {'.', KeyDelete},
}

// MapKeycode implements Layout.
func (Us104Key) MapKeycode(code KeyCode, mods Modifiers, control HandleControl) DecodedKey {
	if r, ok := us104Letters[code]; ok {
		if control == MapLettersToUnicode && mods.IsCtrl() {
			return Unicode(r - 'a' + 1)
		}
		if mods.IsCaps() {
			return Unicode(r - 'a' + 'A')
		}
		return Unicode(r)
	}
	if pair, ok := us104[code]; ok {
		if mods.IsShifted() {
			return Unicode(pair[1])
		}
		return Unicode(pair[0])
	}
	if np, ok := numpad[code]; ok {
		if mods.NumLock {
			return Unicode(np.r)
		}
		if np.alt == KeyDelete {
			return Unicode(0x7F)
		}
		return RawKey(np.alt)
	}
	return RawKey(code)
}

type stroke struct {
	code  KeyCode
	shift bool
	ctrl  bool
}

// us104Strokes is the inverse of MapKeycode. Main block keys win over their
// numpad duplicates, and Enter, Tab and Backspace win over the equivalent
// Ctrl+letter.
var us104Strokes = func() map[rune]stroke {
	numpadOnly := map[KeyCode]bool{
		KeyNumpadStar:  true,
		KeyNumpadMinus: true,
		KeyNumpadPlus:  true,
		KeyNumpadSlash: true,
		KeyNumpadEnter: true,
	}
	m := make(map[rune]stroke, 128)
	for code, pair := range us104 {
		if numpadOnly[code] {
			continue
		}
		m[pair[0]] = stroke{code: code}
		if pair[1] != pair[0] {
			m[pair[1]] = stroke{code: code, shift: true}
		}
	}
	for code, r := range us104Letters {
		m[r] = stroke{code: code}
		m[r-'a'+'A'] = stroke{code: code, shift: true}
		if _, ok := m[r-'a'+1]; !ok {
			m[r-'a'+1] = stroke{code: code, ctrl: true}
		}
	}
	return m
}()

// Encode returns the scancode set 1 bytes produced by typing r: press and
// release of its key, wrapped in Shift or Ctrl as needed.
func (Us104Key) Encode(r rune) ([]byte, error) {
	s, ok := us104Strokes[r]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotEncodable, r)
	}
	var out []byte
	switch {
	case s.shift:
		out = AppendKeyEvent(out, KeyEvent{Code: KeyLShift, State: Down})
	case s.ctrl:
		out = AppendKeyEvent(out, KeyEvent{Code: KeyLControl, State: Down})
	}
	out = AppendKeyPress(out, s.code)
	switch {
	case s.shift:
		out = AppendKeyEvent(out, KeyEvent{Code: KeyLShift, State: Up})
	case s.ctrl:
		out = AppendKeyEvent(out, KeyEvent{Code: KeyLControl, State: Up})
	}
	return out, nil
}

// AppendKeyEvent appends the bytes of a single make or break code.
func AppendKeyEvent(dst []byte, ev KeyEvent) []byte {
	if ev.Code >= keyCodeCount || ev.Code == KeyUnknown {
		return dst
	}
	mc := makeCodes[ev.Code]
	if mc.extended {
		dst = append(dst, prefixExtended)
	}
	b := mc.code
	if ev.State == Up {
		b |= breakBit
	}
	return append(dst, b)
}

// AppendKeyPress appends the make code then the break code of code.
func AppendKeyPress(dst []byte, code KeyCode) []byte {
	dst = AppendKeyEvent(dst, KeyEvent{Code: code, State: Down})
	return AppendKeyEvent(dst, KeyEvent{Code: code, State: Up})
}
