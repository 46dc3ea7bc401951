package xkb

import (
	"testing"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysymFromRune(t *testing.T) {
	tests := []struct {
		name string
		in   rune
		want Keysym
	}{
		{"ascii letter", 'a', 0x61},
		{"ascii punctuation", '~', 0x7e},
		{"latin1", 'é', 0xe9},
		{"nbsp", 0xa0, 0xa0},
		{"backspace", '\b', XK_BackSpace},
		{"tab", '\t', XK_Tab},
		{"linefeed", '\n', XK_Linefeed},
		{"clear", '\v', XK_Clear},
		{"return", '\r', XK_Return},
		{"escape", 0x1b, XK_Escape},
		{"delete", 0x7f, XK_Delete},
		{"other control", 0x01, NoSymbol},
		{"c1 control", 0x85, NoSymbol},
		{"euro uses the legacy keysym", '€', XK_EuroSign},
		{"bmp", 'ẞ', 0x01001e9e},
		{"astral", '😀', 0x0101f600},
		{"surrogate", 0xdc00, NoSymbol},
		{"out of range", 0x110000, NoSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeysymFromRune(tt.in))
		})
	}
}

func TestKeysymRune(t *testing.T) {
	for _, c := range []rune{'a', 'Z', ' ', 'é', '€', 'ẞ', '😀'} {
		got, ok := KeysymFromRune(c).Rune()
		assert.True(t, ok, "%q", c)
		assert.Equal(t, c, got)
	}

	_, ok := XK_Return.Rune()
	assert.False(t, ok)
	_, ok = XK_Shift_L.Rune()
	assert.False(t, ok)
}

func TestNewKeymap(t *testing.T) {
	assert.Equal(t, []string{"fr", "us"}, Layouts())

	_, err := NewKeymap("dvorak")
	assert.ErrorContains(t, err, "unknown keyboard layout")

	km, err := NewKeymap("us")
	require.NoError(t, err)
	assert.Equal(t, "us", km.Layout())
	assert.Equal(t, Keysym('a'), km.Symbol(uint32(evdev.KEY_A)+Offset, Level1))
	assert.Equal(t, Keysym('A'), km.Symbol(uint32(evdev.KEY_A)+Offset, Level2))
	assert.Equal(t, XK_F1+11, km.Symbol(uint32(evdev.KEY_F12)+Offset, Level1))
	assert.Equal(t, XK_Escape, km.Symbol(uint32(evdev.KEY_ESC)+Offset, Level2), "one-level keys repeat on every level")
	assert.Equal(t, NoSymbol, km.Symbol(Offset-1, Level1), "key codes below 8 are not in the keymap")
	assert.Equal(t, NoSymbol, km.Symbol(0, Level1))
	assert.Equal(t, NoSymbol, km.Symbol(uint32(evdev.KEY_A)+Offset, 9))
}

func TestKeymapText(t *testing.T) {
	us, err := NewKeymap("us")
	require.NoError(t, err)
	assert.Contains(t, us.Text(), `include "pc+us+inet(evdev)"`)
	assert.Contains(t, us.Text(), `include "evdev+aliases(qwerty)"`)

	fr, err := NewKeymap("fr")
	require.NoError(t, err)
	assert.Contains(t, fr.Text(), `include "pc+fr+inet(evdev)"`)
	assert.Contains(t, fr.Text(), `include "evdev+aliases(azerty)"`)
}
