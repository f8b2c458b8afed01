package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/splitkb/internal/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{input: "trace", expected: log.LevelTrace},
		{input: "DEBUG", expected: slog.LevelDebug},
		{input: "", expected: slog.LevelInfo},
		{input: "warn", expected: slog.LevelWarn},
		{input: "error", expected: slog.LevelError},
		{input: "bogus", expected: slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, log.ParseLevel(tt.input))
		})
	}
}

func TestSetupLoggerQuietWritesFileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splitkb.log")
	logger, closers, err := log.SetupLogger(log.Options{Level: "trace", File: path, Quiet: true})
	require.NoError(t, err)

	logger.Log(context.Background(), log.LevelTrace, "frame", "n", 1)
	logger.Debug("hello")
	for _, c := range closers {
		require.NoError(t, c.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "level=TRACE msg=frame n=1")
	assert.Contains(t, string(data), "msg=hello")
}

func TestRawLogger(t *testing.T) {
	var b bytes.Buffer
	raw := log.NewRaw(&b)
	link := log.Labeled(raw, "link")

	link.Log(true, []byte{'P', 0x01, 0x0a, '\n'})
	link.Log(false, nil)
	raw.Log(false, []byte{0xff})

	out := b.String()
	assert.Contains(t, out, "link rx 4 bytes: 50 01 0a 0a\n")
	assert.Contains(t, out, "raw tx 1 bytes: ff\n")
	assert.Equal(t, 2, bytes.Count(b.Bytes(), []byte("\n")))
}
