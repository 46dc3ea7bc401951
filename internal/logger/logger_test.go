package logger

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Level
		wantErr bool
	}{
		{"", log.WarnLevel, false},
		{"debug", log.DebugLevel, false},
		{" INFO ", log.InfoLevel, false},
		{"warning", log.WarnLevel, false},
		{"error", log.ErrorLevel, false},
		{"fatal", log.FatalLevel, false},
		{"verbose", log.WarnLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetLevel(t *testing.T) {
	prev := Logger.GetLevel()
	t.Cleanup(func() { Logger.SetLevel(prev) })

	require.NoError(t, SetLevel("error"))
	assert.Equal(t, log.ErrorLevel, Logger.GetLevel())

	// empty keeps the current level
	require.NoError(t, SetLevel(""))
	assert.Equal(t, log.ErrorLevel, Logger.GetLevel())

	assert.Error(t, SetLevel("nope"))
	assert.Equal(t, log.ErrorLevel, Logger.GetLevel())
}
