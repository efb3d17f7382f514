package logger

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
)

func TestModuleLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     LogLevel
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{name: "debug passes everything", level: LogLevelDebug, wantDebug: true, wantInfo: true, wantWarn: true},
		{name: "info hides debug", level: LogLevelInfo, wantInfo: true, wantWarn: true},
		{name: "warn hides info", level: LogLevelWarn, wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := &bytes.Buffer{}
			log := NewSlogLogger(buf, tt.level, time.UTC)

			log.Debug("debug-line")
			log.Info("info-line")
			log.Warn("warn-line")

			out := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug-line"))
			assert.Equal(t, tt.wantInfo, strings.Contains(out, "info-line"))
			assert.Equal(t, tt.wantWarn, strings.Contains(out, "warn-line"))
		})
	}
}

func TestModuleLogger_ModuleAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelTrace, time.UTC).
		Module("acquisition").
		Module("rtlsdr").
		With(Int("device", 1))

	log.Trace("Read power", Float64("power_dbfs", -63.123456), Duration("elapsed", 1500*time.Microsecond))

	out := buf.String()
	assert.Contains(t, out, "level=TRACE")
	assert.Contains(t, out, "module=acquisition.rtlsdr")
	assert.Contains(t, out, "device=1")
	assert.Contains(t, out, "power_dbfs=-63.123")
	assert.Contains(t, out, "elapsed=2ms")
	assert.NotContains(t, out, "time=", "console output carries no timestamps")
}

func TestModuleLogger_WithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	ctx := WithTraceID(t.Context(), "session-42")
	log.WithContext(ctx).Info("Started")
	log.WithContext(t.Context()).Info("No trace")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=session-42")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "error", Error(nil).Key)
	assert.Nil(t, Error(nil).Value)
	assert.Equal(t, assert.AnError.Error(), Error(assert.AnError).Value)
}

func TestCentralLogger_FileOutputIsJSON(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "nested", "rfdetect.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: logPath, Level: "debug"},
		ModuleLevels: map[string]string{"quiet": "error"},
	})
	require.NoError(t, err)

	cl.Module("monitor").Info("Tick", Int("tick", 7), Bool("detected", true))
	cl.Module("quiet").Warn("suppressed")
	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())

	content, err := os.ReadFile(logPath) //nolint:gosec // test file path from t.TempDir()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1, "module level should suppress the warn line")

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "Tick", record["msg"])
	assert.Equal(t, "monitor", record["module"])
	assert.InDelta(t, 7, record["tick"], 0)
	assert.Equal(t, true, record["detected"])
	assert.True(t, strings.HasSuffix(record["time"].(string), "Z"), "timestamps use the configured zone")
}

func TestCentralLogger_RejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus_Mons"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}

func TestGlobalFallback(t *testing.T) {
	// Global is process wide, not parallel
	assert.NotNil(t, Global())
	assert.NotNil(t, Global().Module("test"))
}
