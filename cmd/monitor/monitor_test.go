package monitor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfdetect/internal/conf"
)

func simulatedSettings(t *testing.T) *conf.Settings {
	t.Helper()
	s := conf.Defaults()
	s.Mode = conf.ModeSimulated
	s.Detection.ScanInterval = 10 * time.Millisecond
	s.EventLog.Dir = t.TempDir()
	s.Display.UseColors = false
	return s
}

func TestRunSimulated(t *testing.T) {
	settings := simulatedSettings(t)

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, Run(ctx, settings, &out))

	text := out.String()
	assert.Contains(t, text, "RFDETECT")
	assert.Contains(t, text, "(SIMULATED)")
	assert.Contains(t, text, "Detector stopped")
	assert.GreaterOrEqual(t, strings.Count(text, "\r"), 2, "several ticks rendered")
}

func TestRunWritesDetections(t *testing.T) {
	settings := simulatedSettings(t)
	// Every simulated reading is above this
	settings.Detection.Mode = "fixed"
	settings.Detection.Threshold = -75

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, Run(ctx, settings, &bytes.Buffer{}))

	name := time.Now().Format(settings.EventLog.Filename)
	data, err := os.ReadFile(filepath.Join(settings.EventLog.Dir, name))
	if err != nil {
		// The run straddled midnight
		name = time.Now().Add(-time.Hour).Format(settings.EventLog.Filename)
		data, err = os.ReadFile(filepath.Join(settings.EventLog.Dir, name))
	}
	require.NoError(t, err)
	assert.Contains(t, string(data), "SESSION_START devices=")
	assert.Contains(t, string(data), "DETECTION device=Tetra Mobile")
	assert.Contains(t, string(data), "SESSION_STOP detections=")
}

func TestRunFailsOnInvalidTelemetryAddress(t *testing.T) {
	settings := simulatedSettings(t)
	settings.Telemetry.Enabled = true
	settings.Telemetry.Listen = "256.0.0.1:0"

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := Run(ctx, settings, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Detector stopped", "loop finalizes when the endpoint fails")
}

func TestFlagsAreBound(t *testing.T) {
	cmd := Command(conf.Defaults())
	for _, name := range []string{"simulated", "fallback-simulated", "fixed", "threshold", "interval", "window", "margin", "frequency", "no-color"} {
		f := cmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.NotEmpty(t, f.Annotations[conf.FlagKeyAnnotation], name)
	}
}
