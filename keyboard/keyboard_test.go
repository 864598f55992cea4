package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, d *Decoder, bs ...byte) []DecodedKey {
	t.Helper()
	var keys []DecodedKey
	for _, b := range bs {
		k, ok, err := d.Feed(b)
		require.NoError(t, err)
		if ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestDecoder_AddByte(t *testing.T) {
	d := NewDecoder(Us104Key{}, Ignore)

	ev, ok, err := d.AddByte(0x1E)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KeyEvent{Code: KeyA, State: Down}, ev)

	ev, ok, err = d.AddByte(0x9E)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KeyEvent{Code: KeyA, State: Up}, ev)

	_, ok, err = d.AddByte(0xE0)
	require.NoError(t, err)
	require.False(t, ok)
	ev, ok, err = d.AddByte(0x48)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KeyEvent{Code: KeyArrowUp, State: Down}, ev)

	_, _, err = d.AddByte(0x7F)
	assert.ErrorIs(t, err, ErrUnknownKeyCode)
}

func TestDecoder_letters(t *testing.T) {
	d := NewDecoder(Us104Key{}, Ignore)
	// a down/up, b down/up, c down/up
	keys := feedAll(t, d, 0x1E, 0x9E, 0x30, 0xB0, 0x2E, 0xAE)
	assert.Equal(t, []DecodedKey{Unicode('a'), Unicode('b'), Unicode('c')}, keys)
}

func TestDecoder_shiftAndCaps(t *testing.T) {
	d := NewDecoder(Us104Key{}, Ignore)

	keys := feedAll(t, d, 0x2A, 0x1E, 0x9E, 0x02, 0x82, 0xAA, 0x1E)
	assert.Equal(t, []DecodedKey{RawKey(KeyLShift), Unicode('A'), Unicode('!'), Unicode('a')}, keys)

	keys = feedAll(t, d, 0x3A, 0xBA, 0x1E, 0x02)
	assert.Equal(t, []DecodedKey{RawKey(KeyCapsLock), Unicode('A'), Unicode('1')}, keys)
	assert.True(t, d.Modifiers().CapsLock)

	// shift cancels caps lock for letters
	keys = feedAll(t, d, 0x36, 0x1E)
	assert.Equal(t, []DecodedKey{RawKey(KeyRShift), Unicode('a')}, keys)
}

func TestDecoder_control(t *testing.T) {
	d := NewDecoder(Us104Key{}, Ignore)
	keys := feedAll(t, d, 0x1D, 0x2E)
	assert.Equal(t, []DecodedKey{RawKey(KeyLControl), Unicode('c')}, keys)

	d = NewDecoder(Us104Key{}, MapLettersToUnicode)
	keys = feedAll(t, d, 0x1D, 0x2E)
	assert.Equal(t, []DecodedKey{RawKey(KeyLControl), Unicode(0x03)}, keys)
}

func TestDecoder_specialKeys(t *testing.T) {
	d := NewDecoder(Us104Key{}, Ignore)
	keys := feedAll(t, d,
		0x1C, 0x9C, // enter
		0x0E, 0x8E, // backspace
		0xE0, 0x4B, 0xE0, 0xCB, // left
		0xE0, 0x2A, 0xE0, 0x53, // fake shift, delete
		0x3B, // F1
	)
	assert.Equal(t, []DecodedKey{
		Unicode('\n'),
		Unicode('\b'),
		RawKey(KeyArrowLeft),
		Unicode(0x7F),
		RawKey(KeyF1),
	}, keys)
	assert.False(t, d.Modifiers().IsShifted())
}

func TestDecoder_numpad(t *testing.T) {
	d := NewDecoder(Us104Key{}, Ignore)
	assert.True(t, d.Modifiers().NumLock)
	keys := feedAll(t, d, 0x48, 0x45, 0x48, 0x53)
	assert.Equal(t, []DecodedKey{
		Unicode('8'),
		RawKey(KeyNumLock),
		RawKey(KeyArrowUp),
		Unicode(0x7F),
	}, keys)
}

func TestUs104Key_EncodeRoundTrip(t *testing.T) {
	const text = "Hello, World! ~`[]{}|\\;:'\"<>?/ 0123456789\n\b\t"
	var layout Us104Key
	var bs []byte
	for _, r := range text {
		enc, err := layout.Encode(r)
		require.NoError(t, err, "%q", r)
		bs = append(bs, enc...)
	}

	d := NewDecoder(layout, Ignore)
	var got []rune
	for _, k := range feedAll(t, d, bs...) {
		if k.IsUnicode() {
			got = append(got, k.Rune)
		}
	}
	assert.Equal(t, text, string(got))
	assert.False(t, d.Modifiers().IsShifted())
}

func TestUs104Key_Encode(t *testing.T) {
	var layout Us104Key

	bs, err := layout.Encode('a')
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1E, 0x9E}, bs)

	bs, err = layout.Encode('A')
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2A, 0x1E, 0x9E, 0xAA}, bs)

	bs, err = layout.Encode(0x03)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1D, 0x2E, 0xAE, 0x9D}, bs)

	_, err = layout.Encode('é')
	assert.ErrorIs(t, err, ErrNotEncodable)
}

func TestAppendKeyPress_extended(t *testing.T) {
	assert.Equal(t, []byte{0xE0, 0x4D, 0xE0, 0xCD}, AppendKeyPress(nil, KeyArrowRight))
	assert.Nil(t, AppendKeyPress(nil, KeyUnknown))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "ArrowUp", KeyArrowUp.String())
	assert.Equal(t, "Unknown", KeyCode(250).String())
	assert.Equal(t, "RawKey(F1)", RawKey(KeyF1).String())
	assert.Equal(t, "Unicode('x')", Unicode('x').String())
	assert.Equal(t, "Down", Down.String())
}
