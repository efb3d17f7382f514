package eventlog

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/rfdetect/internal/conf"
	"github.com/tphakala/rfdetect/internal/detection"
	"github.com/tphakala/rfdetect/internal/monitor"
)

func event(ts time.Time, floor detection.Floor) monitor.DetectionEvent {
	return monitor.DetectionEvent{
		DeviceIndex: 0,
		DeviceName:  "Tetra Mobile",
		FrequencyHz: 382.5e6,
		Power:       -45.04,
		Threshold:   -62.5,
		Floor:       floor,
		Peak:        -41.26,
		Timestamp:   ts,
	}
}

func readLines(t *testing.T, fs afero.Fs, path string) []string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestFormatLine(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	assert.Equal(t,
		"2026-03-14 09:26:53 DETECTION device=Tetra Mobile freq_mhz=382.5000 power=-45.0 threshold=-62.5 noise_floor=-70.5 peak=-41.3",
		FormatLine(event(ts, detection.Established(-70.5)), time.UTC))

	assert.Equal(t,
		"2026-03-14 09:26:53 DETECTION device=Tetra Mobile freq_mhz=382.5000 power=-45.0 threshold=-62.5 peak=-41.3",
		FormatLine(event(ts, detection.Unset), time.UTC),
		"noise_floor is omitted while the floor is unset")
}

func TestDailyLogAppends(t *testing.T) {
	fs := afero.NewMemMapFs()
	log := New(fs, "logs", "rfdetect_20060102.log", WithLocation(time.UTC))

	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, log.Emit(t.Context(), event(ts, detection.Unset)))
	require.NoError(t, log.Emit(t.Context(), event(ts.Add(time.Minute), detection.Established(-70))))

	path := filepath.Join("logs", "rfdetect_20260314.log")
	assert.Equal(t, path, log.Path())

	lines := readLines(t, fs, path)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "2026-03-14 09:00:00 DETECTION"))
	assert.Contains(t, lines[1], "noise_floor=-70.0")

	require.NoError(t, log.Close())
}

func TestDailyLogRollsOverAtMidnight(t *testing.T) {
	fs := afero.NewMemMapFs()
	log := New(fs, "logs", "rfdetect_20060102.log", WithLocation(time.UTC))
	t.Cleanup(func() { _ = log.Close() })

	before := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
	after := before.Add(2 * time.Second)

	require.NoError(t, log.Emit(t.Context(), event(before, detection.Unset)))
	require.NoError(t, log.Emit(t.Context(), event(after, detection.Unset)))

	assert.Len(t, readLines(t, fs, filepath.Join("logs", "rfdetect_20260314.log")), 1)
	assert.Len(t, readLines(t, fs, filepath.Join("logs", "rfdetect_20260315.log")), 1)
	assert.Equal(t, filepath.Join("logs", "rfdetect_20260315.log"), log.Path())
}

func TestDailyLogUsesLocalDate(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	log := New(afero.NewMemMapFs(), "logs", "rfdetect_20060102.log", WithLocation(loc))

	// 22:30 UTC is already the next day three hours east
	ts := time.Date(2026, 3, 14, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join("logs", "rfdetect_20260315.log"), log.PathFor(ts))
}

func TestDailyLogAppendsToExistingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.Join("logs", "rfdetect_20260314.log")
	require.NoError(t, afero.WriteFile(fs, path, []byte("earlier\n"), 0o644))

	log := New(fs, "logs", "rfdetect_20060102.log", WithLocation(time.UTC))
	require.NoError(t, log.Emit(t.Context(), event(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), detection.Unset)))
	require.NoError(t, log.Close())

	lines := readLines(t, fs, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "earlier", lines[0])
}

func TestDailyLogRejectsAfterClose(t *testing.T) {
	log := New(afero.NewMemMapFs(), "logs", "x.log")
	require.NoError(t, log.Close())
	require.NoError(t, log.Close(), "close is idempotent")

	err := log.Emit(t.Context(), event(time.Now(), detection.Unset))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDailyLogReadOnlyFs(t *testing.T) {
	log := New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "logs", "x.log")
	t.Cleanup(func() { _ = log.Close() })

	err := log.Emit(t.Context(), event(time.Now(), detection.Unset))
	require.Error(t, err)
}

func TestNewFromSettings(t *testing.T) {
	s := conf.Defaults().EventLog
	assert.NotNil(t, NewFromSettings(s))

	s.Enabled = false
	assert.Nil(t, NewFromSettings(s))
}

func TestFormatSessionStart(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	cfg := detection.DefaultConfig()
	assert.Equal(t,
		"2026-03-14 09:00:00 SESSION_START devices=2 mode=adaptive margin=8.0 window=20 initial_threshold=-50.0 pulse_window=4s",
		FormatSessionStart(ts, 2, cfg, time.UTC))

	cfg.Mode = detection.ModeFixed
	cfg.FixedThreshold = -75
	assert.Equal(t,
		"2026-03-14 09:00:00 SESSION_START devices=1 mode=fixed threshold=-75.0 pulse_window=4s",
		FormatSessionStart(ts, 1, cfg, time.UTC))
}

func TestDailyLogRecordsSession(t *testing.T) {
	fs := afero.NewMemMapFs()
	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	log := New(fs, "logs", "rfdetect_20060102.log",
		WithLocation(time.UTC),
		WithClock(func() time.Time { return started }))

	devices := []detection.Device{
		{Index: 0, Name: "Tetra Mobile", FrequencyHz: 382.5e6},
		{Index: 1, Name: "Tetra Base", FrequencyHz: 392.5e6},
	}
	log.Header(devices, detection.DefaultConfig())
	log.Render(detection.AggregateResult{Seq: 1, Timestamp: started})
	require.NoError(t, log.Emit(t.Context(), event(started.Add(time.Minute), detection.Unset)))
	log.Summary(monitor.Summary{
		Devices:      devices,
		DeviceTotals: []uint64{1, 0},
		Total:        1,
		Ticks:        600,
		Started:      started,
		Stopped:      started.Add(5 * time.Minute),
	})
	require.NoError(t, log.Close())

	lines := readLines(t, fs, filepath.Join("logs", "rfdetect_20260314.log"))
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "2026-03-14 09:00:00 SESSION_START devices=2 mode=adaptive"))
	assert.Equal(t, "2026-03-14 09:00:00 DEVICE index=0 name=Tetra Mobile freq_mhz=382.5000", lines[1])
	assert.Equal(t, "2026-03-14 09:00:00 DEVICE index=1 name=Tetra Base freq_mhz=392.5000", lines[2])
	assert.Contains(t, lines[3], "DETECTION")
	assert.Equal(t, "2026-03-14 09:05:00 SESSION_STOP detections=1 ticks=600 runtime=5m0s", lines[4])
}

func TestDailyLogSummaryAfterCloseIsDropped(t *testing.T) {
	fs := afero.NewMemMapFs()
	log := New(fs, "logs", "x.log")
	require.NoError(t, log.Close())

	log.Summary(monitor.Summary{Stopped: time.Now()})

	exists, err := afero.Exists(fs, filepath.Join("logs", "x.log"))
	require.NoError(t, err)
	assert.False(t, exists)
}
