package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{input: "debug", expected: zerolog.DebugLevel},
		{input: "INFO", expected: zerolog.InfoLevel},
		{input: "", expected: zerolog.InfoLevel},
		{input: "warning", expected: zerolog.WarnLevel},
		{input: "error", expected: zerolog.ErrorLevel},
		{input: "verbose", expected: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestInit_FileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radio.log")

	closer, err := Init(Config{Output: path, File: path, Level: "info"})
	require.NoError(t, err)

	zlog.Info().Msgf("playback: status changed: %s -> %s", "idle", "connecting")
	zlog.Debug().Msg("filtered out at info level")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "playback: status changed: idle -> connecting", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestInit_Discard(t *testing.T) {
	closer, err := Init(Config{Output: "discard"})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
}

func TestInit_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "radio.log")
	_, err := Init(Config{Output: path, File: path})
	assert.Error(t, err)
}
