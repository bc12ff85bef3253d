package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogFileName(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	name := LogFileName("logs", "test", ts)

	assert.Equal(t, filepath.Join("logs", "test_2024-03-05_14-07-09.log"), name)
}

func TestInitLogger_WritesConsoleAndFile(t *testing.T) {
	logsDir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer

	logger, err := InitLogger("test", Options{
		LogsDir: logsDir,
		Console: zapcore.AddSync(&console),
	})
	require.NoError(t, err)

	logger.Debug("debug only in file", zap.Int("timeslot", 3))
	logger.Info("tick complete", zap.String("run_id", "run-1"))
	_ = logger.Sync()

	assert.Contains(t, console.String(), "tick complete")
	assert.NotContains(t, console.String(), "debug only in file")

	entries, err := os.ReadDir(logsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "test_"))

	data, err := os.ReadFile(filepath.Join(logsDir, entries[0].Name()))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "debug only in file", first["msg"])
	assert.Equal(t, float64(3), first["timeslot"])
	assert.Contains(t, first, "timestamp")
}

func TestInitLogger_ConsoleLevel(t *testing.T) {
	var console bytes.Buffer

	logger, err := InitLogger("test", Options{
		LogsDir:      t.TempDir(),
		ConsoleLevel: zapcore.WarnLevel,
		Console:      zapcore.AddSync(&console),
	})
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")
	_ = logger.Sync()

	assert.NotContains(t, console.String(), "quiet")
	assert.Contains(t, console.String(), "loud")
}

func TestInitLogger_UnwritableLogsDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := InitLogger("test", Options{LogsDir: filepath.Join(blocker, "logs")})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create logs directory")
}
