package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"maintenance_lock", "maintenance_lock"},
		{"lock screen/v2", "lock_screen_v2"},
		{"", "run"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitize(tt.in))
	}

	long := sanitize(string(make([]byte, 100)))
	assert.Len(t, long, 60)
}

func TestLoggerAdapter_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Dir = dir
	cfg.Console = false

	l, err := NewLoggerAdapter("maintenance_lock", cfg)
	require.NoError(t, err)

	l.WithField("run_id", "abc").WithFields(map[string]any{"step": 3}).Info("Step completed", "duration_ms", 12)
	l.Debug("below level")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "*_maintenance_lock.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.Len(t, lines, 1)

	entry := lines[0]
	assert.Equal(t, "Step completed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "abc", entry["run_id"])
	assert.EqualValues(t, 3, entry["step"])
	assert.EqualValues(t, 12, entry["duration_ms"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLoggerAdapter_BadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.Level = "loud"

	_, err := NewLoggerAdapter("x", cfg)
	assert.Error(t, err)
}

func TestNopAdapter_Close(t *testing.T) {
	l := NewNopAdapter()
	l.Named("runner").Warn("ignored")
	assert.NoError(t, l.Close())
}
