package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bnema/waydo/internal/wayland"
	"github.com/bnema/waydo/internal/xkb"
	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClick(t *testing.T) {
	tests := []struct {
		in      string
		want    click
		wantErr bool
	}{
		{in: "0xC0", want: click{button: uint32(evdev.BTN_LEFT), down: true, up: true}},
		{in: "0x41", want: click{button: uint32(evdev.BTN_RIGHT), down: true}},
		{in: "0x81", want: click{button: uint32(evdev.BTN_RIGHT), up: true}},
		{in: "0x02", want: click{button: uint32(evdev.BTN_LEFT) + 2}},
		{in: "192", want: click{button: uint32(evdev.BTN_LEFT), down: true, up: true}},
		{in: "0x1ff", wantErr: true},
		{in: "left", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseClick(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeyPress(t *testing.T) {
	tests := []struct {
		in      string
		want    keyPress
		wantErr string
	}{
		{in: "29:1", want: keyPress{code: uint32(evdev.KEY_LEFTCTRL), dir: xkb.Down}},
		{in: "46:0", want: keyPress{code: uint32(evdev.KEY_C), dir: xkb.Up}},
		{in: "29", wantErr: "expected <code>:<state>"},
		{in: "x:1", wantErr: "invalid keycode"},
		{in: "29:2", wantErr: "must be 0 or 1"},
		{in: "300:1", wantErr: "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseKeyPress(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadTypeInput(t *testing.T) {
	text, err := readTypeInput(strings.NewReader("first\nsecond"), "-")
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", text)

	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0600))
	text, err = readTypeInput(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", text)

	_, err = readTypeInput(nil, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRenderOutputs(t *testing.T) {
	out := renderOutputs(outputsReport{
		Outputs: []wayland.Output{
			{Handle: 3, Name: "DP-1", Width: 2560, Height: 1440},
			{Handle: 4, X: 2560, Width: 1920, Height: 1080},
		},
		Width:  4480,
		Height: 1440,
	})

	for _, want := range []string{"DP-1", "2560x1440", "2560,0", "wl_output#4", "4480x1440"} {
		assert.Contains(t, out, want)
	}
}
