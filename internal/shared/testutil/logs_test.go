package testutil

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogCapture(t *testing.T) {
	t.Run("captures records and attributes", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.With(slog.String("component", "ranker")).Info("ranked", slog.Int("matches", 3))
		logger.Error("failed", slog.Int("code", 500))

		require.Len(t, logs.Records(), 2)
		assert.True(t, logs.ContainsMessage("rank"))
		assert.True(t, logs.ContainsAttr("component", "ranker"))
		assert.True(t, logs.ContainsAttr("matches", int64(3)))
		assert.False(t, logs.ContainsAttr("component", "loader"))
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.Debug("debug")
		logger.Warn("warn")
		logger.Warn("warn again")

		assert.Len(t, logs.RecordsAt(slog.LevelDebug), 1)
		assert.Len(t, logs.RecordsAt(slog.LevelWarn), 2)
		assert.Empty(t, logs.RecordsAt(slog.LevelError))
	})

	t.Run("groups prefix keys", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.WithGroup("query").Info("served", slog.String("metric", "cosine"))
		assert.True(t, logs.ContainsAttr("query.metric", "cosine"))
	})

	t.Run("reset", func(t *testing.T) {
		logger, logs := NewTestLogger(t)
		logger.Info("one")
		logs.Reset()
		assert.Empty(t, logs.Records())
	})
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path := WriteFile(t, dir, "players.csv", PlayersCSV)
	assert.Equal(t, filepath.Join(dir, "players.csv"), path)
	assert.FileExists(t, path)
}
