package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus.log")
	l := NewIsolatedLogger(path)

	l.With(map[string]interface{}{"client_id": "c1"}).Info("WS", "client connected", map[string]interface{}{"remote": "127.0.0.1"})
	l.Debug("WS", "not at info level", nil)
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"message":"client connected"`)
	assert.Contains(t, out, `"module":"WS"`)
	assert.Contains(t, out, `"client_id":"c1"`)
	assert.NotContains(t, out, "not at info level")
	assert.Equal(t, path, l.FilePath())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Error("X", "ignored", map[string]interface{}{"error": "e"})
		l.With(nil).Warn("X", "ignored", nil)
	})
	assert.Empty(t, l.FilePath())
}
