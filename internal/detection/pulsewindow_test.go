package detection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return t0.Add(time.Duration(seconds * float64(time.Second)))
}

func TestPulseWindowEvictsByTime(t *testing.T) {
	pw := NewPulseWindow(4 * time.Second)

	peak, _ := pw.Observe(Reading{Timestamp: at(0), Power: -50})
	assert.InDelta(t, -50.0, peak, 1e-9)

	peak, _ = pw.Observe(Reading{Timestamp: at(1), Power: -40})
	assert.InDelta(t, -40.0, peak, 1e-9)

	peak, _ = pw.Observe(Reading{Timestamp: at(5), Power: -65})
	assert.InDelta(t, -40.0, peak, 1e-9, "t=1 is still inside [1,5]")
	assert.Equal(t, 2, pw.Len())
}

func TestPulseWindowPeakRevertsAfterHorizon(t *testing.T) {
	pw := NewPulseWindow(2 * time.Second)

	pw.Observe(Reading{Timestamp: at(0), Power: -20})
	for i, p := range []float64{-60, -62, -61, -63, -64} {
		ts := at(0.5 * float64(i+1))
		peak, _ := pw.Observe(Reading{Timestamp: ts, Power: p})
		if ts.Sub(at(0)) <= 2*time.Second {
			assert.InDelta(t, -20.0, peak, 1e-9, "high reading still inside the window at %v", ts)
		} else {
			assert.Greater(t, -20.0, peak, "high reading evicted at %v", ts)
		}
	}

	// At t=2.5 the window is [0.5, 2.5]: -60 -62 -61 -63 -64
	assert.InDelta(t, -60.0, pw.Peak(), 1e-9)
}

func TestPulseWindowTrendHysteresis(t *testing.T) {
	pw := NewPulseWindow(time.Second)

	_, trend := pw.Observe(Reading{Timestamp: at(0), Power: -60})
	assert.Equal(t, TrendFlat, trend, "first observation is flat")

	_, trend = pw.Observe(Reading{Timestamp: at(2), Power: -59.5})
	assert.Equal(t, TrendFlat, trend, "within the hysteresis band")

	_, trend = pw.Observe(Reading{Timestamp: at(4), Power: -50})
	assert.Equal(t, TrendRising, trend)
	assert.InDelta(t, -59.5, pw.PreviousPeak(), 1e-9)

	_, trend = pw.Observe(Reading{Timestamp: at(6), Power: -55})
	assert.Equal(t, TrendFalling, trend)
	assert.Equal(t, "falling", trend.String())
}

func TestPulseWindowOutOfOrderReading(t *testing.T) {
	pw := NewPulseWindow(10 * time.Second)

	pw.Observe(Reading{Timestamp: at(0), Power: -70})
	pw.Observe(Reading{Timestamp: at(4), Power: -60})
	pw.Observe(Reading{Timestamp: at(2), Power: -50})

	require.Equal(t, 3, pw.Len())
	for i := pw.head + 1; i < len(pw.entries); i++ {
		assert.False(t, pw.entries[i].Timestamp.Before(pw.entries[i-1].Timestamp))
	}
	assert.InDelta(t, -50.0, pw.Peak(), 1e-9)
}

func TestPulseWindowCompactsBackingArray(t *testing.T) {
	pw := NewPulseWindow(time.Second)

	for i := range 1000 {
		pw.Observe(Reading{Timestamp: at(float64(i) * 0.25), Power: -60})
	}

	assert.Equal(t, 5, pw.Len(), "readings at 0.25s spacing inside a closed 1s window")
	assert.LessOrEqual(t, len(pw.entries), 10, "evicted prefix is reclaimed")
}
