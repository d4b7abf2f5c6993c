// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/ares-cli/internal/config"
)

// resetGlobalLogger ensures test isolation, since the logger is a global
// singleton guarded by a sync.Once.
func resetGlobalLogger() {
	globalLogger.Store(nil)
	once = sync.Once{}
}

// testWriteSyncer is an in-memory zapcore.WriteSyncer.
type testWriteSyncer struct {
	buf bytes.Buffer
}

func (w *testWriteSyncer) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *testWriteSyncer) Sync() error                 { return nil }

func TestInitializeConsoleFormat(t *testing.T) {
	resetGlobalLogger()
	t.Cleanup(resetGlobalLogger)

	sink := &testWriteSyncer{}
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "ares-test",
	}, sink)

	GetLogger().Info("console message")

	out := sink.buf.String()
	assert.Contains(t, out, "console message")
	assert.Contains(t, out, colorGreen, "info level is colorized on the console")
	assert.Contains(t, out, "ares-test.")
}

func TestInitializeJSONFormat(t *testing.T) {
	resetGlobalLogger()
	t.Cleanup(resetGlobalLogger)

	sink := &testWriteSyncer{}
	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "ares-test",
	}, sink)

	GetLogger().Info("structured message")

	line := strings.TrimSpace(sink.buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "structured message", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeRespectsLevel(t *testing.T) {
	resetGlobalLogger()
	t.Cleanup(resetGlobalLogger)

	sink := &testWriteSyncer{}
	Initialize(config.LoggerConfig{
		Level:       "warn",
		Format:      "json",
		ServiceName: "ares-test",
	}, sink)

	GetLogger().Info("filtered out")
	GetLogger().Warn("kept")

	out := sink.buf.String()
	assert.NotContains(t, out, "filtered out")
	assert.Contains(t, out, "kept")
}

func TestInitializeInvalidLevelFallsBackToInfo(t *testing.T) {
	resetGlobalLogger()
	t.Cleanup(resetGlobalLogger)

	sink := &testWriteSyncer{}
	Initialize(config.LoggerConfig{
		Level:       "chatty",
		Format:      "json",
		ServiceName: "ares-test",
	}, sink)

	GetLogger().Debug("below info")
	GetLogger().Info("at info")

	out := sink.buf.String()
	assert.NotContains(t, out, "below info")
	assert.Contains(t, out, "at info")
}

func TestInitializeOnlyOnce(t *testing.T) {
	resetGlobalLogger()
	t.Cleanup(resetGlobalLogger)

	first := &testWriteSyncer{}
	second := &testWriteSyncer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"}, first)
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "second"}, second)

	GetLogger().Info("single home")

	assert.Contains(t, first.buf.String(), "single home")
	assert.Empty(t, second.buf.String(), "second Initialize call is a no-op")
}

func TestFileOutputIsJSON(t *testing.T) {
	resetGlobalLogger()
	t.Cleanup(resetGlobalLogger)

	logPath := filepath.Join(t.TempDir(), "ares.log")
	sink := &testWriteSyncer{}
	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "ares-test",
		LogFile:     logPath,
		MaxSize:     1,
	}, sink)

	GetLogger().Info("to file")
	Sync()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.Split(string(data), "\n")[0])), &entry))
	assert.Equal(t, "to file", entry["msg"])
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetGlobalLogger()
	t.Cleanup(resetGlobalLogger)

	logger := GetLogger()
	require.NotNil(t, logger, "fallback logger must always be usable")
}

func TestLevelColorMappingComplete(t *testing.T) {
	for level := zapcore.DebugLevel; level <= zapcore.ErrorLevel; level++ {
		_, ok := levelColors[level]
		assert.True(t, ok, "level %s should have a color", level)
	}
}
