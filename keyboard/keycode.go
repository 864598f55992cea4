package keyboard

// KeyCode identifies a physical key, independent of layout and modifiers.
type KeyCode uint8

const (
	KeyUnknown KeyCode = iota
	KeyEscape
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	Key0
	KeyMinus
	KeyEquals
	KeyBackspace
	KeyTab
	KeyQ
	KeyW
	KeyE
	KeyR
	KeyT
	KeyY
	KeyU
	KeyI
	KeyO
	KeyP
	KeyBracketLeft
	KeyBracketRight
	KeyEnter
	KeyLControl
	KeyA
	KeyS
	KeyD
	KeyF
	KeyG
	KeyH
	KeyJ
	KeyK
	KeyL
	KeySemicolon
	KeyQuote
	KeyBackTick
	KeyLShift
	KeyBackSlash
	KeyZ
	KeyX
	KeyC
	KeyV
	KeyB
	KeyN
	KeyM
	KeyComma
	KeyFullStop
	KeySlash
	KeyRShift
	KeyNumpadStar
	KeyLAlt
	KeySpacebar
	KeyCapsLock
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyNumLock
	KeyScrollLock
	KeyNumpad7
	KeyNumpad8
	KeyNumpad9
	KeyNumpadMinus
	KeyNumpad4
	KeyNumpad5
	KeyNumpad6
	KeyNumpadPlus
	KeyNumpad1
	KeyNumpad2
	KeyNumpad3
	KeyNumpad0
	KeyNumpadPeriod
	KeyF11
	KeyF12

	// E0 prefixed
	KeyNumpadEnter
	KeyRControl
	KeyNumpadSlash
	KeyRAltGr
	KeyHome
	KeyArrowUp
	KeyPageUp
	KeyArrowLeft
	KeyArrowRight
	KeyEnd
	KeyArrowDown
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyLWin
	KeyRWin
	KeyApps

	keyCodeCount
)

var keyNames = [keyCodeCount]string{
	KeyUnknown: "Unknown", KeyEscape: "Escape",
	Key1: "1", Key2: "2", Key3: "3", Key4: "4", Key5: "5",
	Key6: "6", Key7: "7", Key8: "8", Key9: "9", Key0: "0",
	KeyMinus: "Minus", KeyEquals: "Equals", KeyBackspace: "Backspace", KeyTab: "Tab",
	KeyQ: "Q", KeyW: "W", KeyE: "E", KeyR: "R", KeyT: "T",
	KeyY: "Y", KeyU: "U", KeyI: "I", KeyO: "O", KeyP: "P",
	KeyBracketLeft: "BracketLeft", KeyBracketRight: "BracketRight",
	KeyEnter: "Enter", KeyLControl: "LControl",
	KeyA: "A", KeyS: "S", KeyD: "D", KeyF: "F", KeyG: "G",
	KeyH: "H", KeyJ: "J", KeyK: "K", KeyL: "L",
	KeySemicolon: "Semicolon", KeyQuote: "Quote", KeyBackTick: "BackTick",
	KeyLShift: "LShift", KeyBackSlash: "BackSlash",
	KeyZ: "Z", KeyX: "X", KeyC: "C", KeyV: "V", KeyB: "B", KeyN: "N", KeyM: "M",
	KeyComma: "Comma", KeyFullStop: "FullStop", KeySlash: "Slash", KeyRShift: "RShift",
	KeyNumpadStar: "NumpadStar", KeyLAlt: "LAlt", KeySpacebar: "Spacebar", KeyCapsLock: "CapsLock",
	KeyF1: "F1", KeyF2: "F2", KeyF3: "F3", KeyF4: "F4", KeyF5: "F5",
	KeyF6: "F6", KeyF7: "F7", KeyF8: "F8", KeyF9: "F9", KeyF10: "F10",
	KeyNumLock: "NumLock", KeyScrollLock: "ScrollLock",
	KeyNumpad7: "Numpad7", KeyNumpad8: "Numpad8", KeyNumpad9: "Numpad9", KeyNumpadMinus: "NumpadMinus",
	KeyNumpad4: "Numpad4", KeyNumpad5: "Numpad5", KeyNumpad6: "Numpad6", KeyNumpadPlus: "NumpadPlus",
	KeyNumpad1: "Numpad1", KeyNumpad2: "Numpad2", KeyNumpad3: "Numpad3",
	KeyNumpad0: "Numpad0", KeyNumpadPeriod: "NumpadPeriod",
	KeyF11: "F11", KeyF12: "F12",
	KeyNumpadEnter: "NumpadEnter", KeyRControl: "RControl", KeyNumpadSlash: "NumpadSlash",
	KeyRAltGr: "RAltGr", KeyHome: "Home", KeyArrowUp: "ArrowUp", KeyPageUp: "PageUp",
	KeyArrowLeft: "ArrowLeft", KeyArrowRight: "ArrowRight", KeyEnd: "End",
	KeyArrowDown: "ArrowDown", KeyPageDown: "PageDown", KeyInsert: "Insert", KeyDelete: "Delete",
	KeyLWin: "LWin", KeyRWin: "RWin", KeyApps: "Apps",
}

func (k KeyCode) String() string {
	if k < keyCodeCount {
		return keyNames[k]
	}
	return "Unknown"
}

// set1 maps scancode set 1 make codes to key codes, for codes without the
// E0 prefix.
var set1 = [0x80]KeyCode{
	0x01: KeyEscape,
	0x02: Key1, 0x03: Key2, 0x04: Key3, 0x05: Key4, 0x06: Key5,
	0x07: Key6, 0x08: Key7, 0x09: Key8, 0x0A: Key9, 0x0B: Key0,
	0x0C: KeyMinus, 0x0D: KeyEquals, 0x0E: KeyBackspace, 0x0F: KeyTab,
	0x10: KeyQ, 0x11: KeyW, 0x12: KeyE, 0x13: KeyR, 0x14: KeyT,
	0x15: KeyY, 0x16: KeyU, 0x17: KeyI, 0x18: KeyO, 0x19: KeyP,
	0x1A: KeyBracketLeft, 0x1B: KeyBracketRight, 0x1C: KeyEnter, 0x1D: KeyLControl,
	0x1E: KeyA, 0x1F: KeyS, 0x20: KeyD, 0x21: KeyF, 0x22: KeyG,
	0x23: KeyH, 0x24: KeyJ, 0x25: KeyK, 0x26: KeyL,
	0x27: KeySemicolon, 0x28: KeyQuote, 0x29: KeyBackTick,
	0x2A: KeyLShift, 0x2B: KeyBackSlash,
	0x2C: KeyZ, 0x2D: KeyX, 0x2E: KeyC, 0x2F: KeyV, 0x30: KeyB, 0x31: KeyN, 0x32: KeyM,
	0x33: KeyComma, 0x34: KeyFullStop, 0x35: KeySlash, 0x36: KeyRShift,
	0x37: KeyNumpadStar, 0x38: KeyLAlt, 0x39: KeySpacebar, 0x3A: KeyCapsLock,
	0x3B: KeyF1, 0x3C: KeyF2, 0x3D: KeyF3, 0x3E: KeyF4, 0x3F: KeyF5,
	0x40: KeyF6, 0x41: KeyF7, 0x42: KeyF8, 0x43: KeyF9, 0x44: KeyF10,
	0x45: KeyNumLock, 0x46: KeyScrollLock,
	0x47: KeyNumpad7, 0x48: KeyNumpad8, 0x49: KeyNumpad9, 0x4A: KeyNumpadMinus,
	0x4B: KeyNumpad4, 0x4C: KeyNumpad5, 0x4D: KeyNumpad6, 0x4E: KeyNumpadPlus,
	0x4F: KeyNumpad1, 0x50: KeyNumpad2, 0x51: KeyNumpad3,
	0x52: KeyNumpad0, 0x53: KeyNumpadPeriod,
	0x57: KeyF11, 0x58: KeyF12,
}

// set1Extended maps the byte following an E0 prefix.
var set1Extended = [0x80]KeyCode{
	0x1C: KeyNumpadEnter,
	0x1D: KeyRControl,
	0x35: KeyNumpadSlash,
	0x38: KeyRAltGr,
	0x47: KeyHome,
	0x48: KeyArrowUp,
	0x49: KeyPageUp,
	0x4B: KeyArrowLeft,
	0x4D: KeyArrowRight,
	0x4F: KeyEnd,
	0x50: KeyArrowDown,
	0x51: KeyPageDown,
	0x52: KeyInsert,
	0x53: KeyDelete,
	0x5B: KeyLWin,
	0x5C: KeyRWin,
	0x5D: KeyApps,
}

// makeCode is the inverse of set1/set1Extended.
type makeCode struct {
	code     byte
	extended bool
}

var makeCodes = func() (m [keyCodeCount]makeCode) {
	for b, k := range set1 {
		if k != KeyUnknown {
			m[k] = makeCode{code: byte(b)}
		}
	}
	for b, k := range set1Extended {
		if k != KeyUnknown {
			m[k] = makeCode{code: byte(b), extended: true}
		}
	}
	return
}()
