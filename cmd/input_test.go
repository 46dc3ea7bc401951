package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bnema/waydo/internal/device"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noSession points the compositor socket and the session bus at paths that
// do not exist, so both backends fail to come up.
func noSession(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("WAYLAND_DISPLAY", "missing-0")
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path="+filepath.Join(dir, "missing-bus"))
	t.Setenv("WAYDO_FORCE_PORTAL", "")
	viper.Reset()
	return filepath.Join(dir, "waydo.toml")
}

func TestInputCommandsWithoutSession(t *testing.T) {
	textFile := filepath.Join(t.TempDir(), "text.txt")
	require.NoError(t, os.WriteFile(textFile, []byte("hello\n"), 0600))

	tests := []struct {
		name string
		args []string
	}{
		{"type", []string{"type", "hi"}},
		{"type from file", []string{"type", "-F", textFile}},
		{"type forced portal", []string{"type", "-f", "hi"}},
		{"type with escapes", []string{"type", "-e", "0", "a\\nb"}},
		{"key", []string{"key", "29:1", "46:1", "46:0", "29:0"}},
		{"click", []string{"click", "0xC0"}},
		{"mousemove", []string{"mousemove", "-x", "10", "-y", "-5"}},
		{"mousemove absolute", []string{"mousemove", "-a", "-x", "100", "-y", "200"}},
		{"mousemove wheel", []string{"mousemove", "-w", "-y", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile := noSession(t)

			args := append([]string{"--config", configFile}, tt.args...)
			_, err := executeCommand(rootCmd, args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, device.ErrBackendUnavailable)
		})
	}
}

func TestInputCommandArgumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"type without text", []string{"type"}, "nothing to type"},
		{"type bad escape", []string{"type", "-e", "2", "x"}, "--escape must be 0 or 1"},
		{"type missing file", []string{"type", "-F", "/nonexistent/waydo-input"}, "failed to open"},
		{"key without state", []string{"key", "29"}, "expected <code>:<state>"},
		{"click bad button", []string{"click", "left"}, "invalid button"},
		{"wheel is relative", []string{"mousemove", "-w", "-a"}, "--absolute does not apply"},
		{"negative absolute", []string{"mousemove", "-a", "-x", "-1"}, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile := noSession(t)

			args := append([]string{"--config", configFile}, tt.args...)
			_, err := executeCommand(rootCmd, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NotErrorIs(t, err, device.ErrBackendUnavailable)
		})
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`a\nb`, "a\nb"},
		{`tab\there`, "tab\there"},
		{`\\n`, `\n`},
		{`\q`, `\q`},
		{`trailing\`, `trailing\`},
		{`\e[`, "\x1b["},
	}

	for _, tt := range tests {
		t.Run(strings.ReplaceAll(tt.in, `\`, "_"), func(t *testing.T) {
			assert.Equal(t, tt.want, unescape(tt.in))
		})
	}
}
