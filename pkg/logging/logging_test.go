package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, ParseLevel("INFO"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelDebug, ParseLevel(""))
	assert.Equal(t, slog.LevelDebug, ParseLevel("verbose"))
}

func TestSetup_WritesRotatedFile(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer := Setup(Options{FilePath: path, Level: "info"})
	require.NotNil(t, closer)

	logger.Info("Session started", "sessionId", "s-1")
	logger.Debug("filtered out")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Session started"`)
	assert.Contains(t, string(data), `"sessionId":"s-1"`)
	assert.NotContains(t, string(data), "filtered out")
}

func TestSetup_StdoutOnly(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	logger, closer := Setup(Options{})
	assert.NotNil(t, logger)
	assert.Nil(t, closer)
}
