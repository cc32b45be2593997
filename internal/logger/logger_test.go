package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   zerolog.Level
	}{
		{"default", Config{}, zerolog.InfoLevel},
		{"explicit", Config{Level: "warn"}, zerolog.WarnLevel},
		{"debug wins", Config{Level: "error", Debug: true}, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config, &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.GetLevel())
		})
	}

	_, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Format: "auto"}, &buf)
	require.NoError(t, err)
	l.Info().Str("component", "merge").Msg("merged")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "non-terminal writers get JSON lines")
	assert.Equal(t, "merged", entry["message"])
	assert.Equal(t, "merge", entry["component"])

	buf.Reset()
	l, err = New(Config{Format: "console"}, &buf)
	require.NoError(t, err)
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestInitFileOutput(t *testing.T) {
	path := t.TempDir() + "/usbmap.log"
	require.NoError(t, Init(Config{Output: path, Format: "json"}))
	t.Cleanup(func() { _ = Init(Config{Format: "json"}) })

	l := WithComponent("test")
	l.Info().Msg("written")
	assert.FileExists(t, path)
}
