package conf

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("simulated", false, "")
	fs.Bool("fixed", false, "")
	fs.Bool("no-color", false, "")
	fs.Float64("threshold", 0, "")
	fs.Duration("interval", 0, "")
	fs.Int("window", 0, "")
	fs.Float64("frequency", 0, "")
	fs.String("unbound", "", "")

	require.NoError(t, BindFlag(fs, "simulated", "mode", ModeSimulated))
	require.NoError(t, BindFlag(fs, "fixed", "detection.mode", "fixed"))
	require.NoError(t, BindFlag(fs, "no-color", "display.usecolors", "false"))
	require.NoError(t, BindFlag(fs, "threshold", "detection.threshold"))
	require.NoError(t, BindFlag(fs, "interval", "detection.scaninterval"))
	require.NoError(t, BindFlag(fs, "window", "detection.adaptive.windowsize"))
	require.NoError(t, BindFlag(fs, "frequency", FrequencyOverrideKey))
	return fs
}

func TestLoadWithFlagsDefaultsWhenUnchanged(t *testing.T) {
	fs := newFlagSet(t)
	require.NoError(t, fs.Parse(nil))

	settings, err := LoadWithFlags(writeConfig(t, ""), fs)
	require.NoError(t, err)
	assert.Equal(t, ModeLive, settings.Mode)
	assert.InDelta(t, -50.0, settings.Detection.Threshold, 1e-9)
	assert.True(t, settings.Display.UseColors)
}

func TestLoadWithFlagsOverrides(t *testing.T) {
	fs := newFlagSet(t)
	require.NoError(t, fs.Parse([]string{
		"--simulated", "--fixed", "--no-color",
		"--threshold=-42.5", "--interval=250ms", "--window=30",
		"--frequency=390.1", "--unbound=x",
	}))

	settings, err := LoadWithFlags(writeConfig(t, ""), fs)
	require.NoError(t, err)

	assert.Equal(t, ModeSimulated, settings.Mode)
	assert.Equal(t, "fixed", settings.Detection.Mode)
	assert.False(t, settings.Display.UseColors)
	assert.InDelta(t, -42.5, settings.Detection.Threshold, 1e-9)
	assert.Equal(t, 250*time.Millisecond, settings.Detection.ScanInterval)
	assert.Equal(t, 30, settings.Detection.Adaptive.WindowSize)

	require.Len(t, settings.Devices, 1)
	assert.InDelta(t, 390.1, settings.Devices[0].Frequency, 1e-9)
	assert.Equal(t, DefaultDeviceName, settings.Devices[0].Name)
}

func TestLoadWithFlagsValidatesOverrides(t *testing.T) {
	fs := newFlagSet(t)
	require.NoError(t, fs.Parse([]string{"--window=2"}))

	_, err := LoadWithFlags(writeConfig(t, ""), fs)
	require.Error(t, err, "window smaller than minsamples")
}
