package detection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateHoldsDetectionThroughGracePeriod(t *testing.T) {
	window := 4 * time.Second
	s := NewState(window)

	s.Record(-42, at(10))

	v, st := s.Display(at(10).Add(window+500*time.Millisecond), Established(-70))
	assert.Equal(t, RecentDetection, st)
	assert.InDelta(t, -42.0, v, 1e-9)

	v, st = s.Display(at(10).Add(window+GracePeriod), Established(-70))
	assert.Equal(t, RecentDetection, st, "boundary is inclusive")
	assert.InDelta(t, -42.0, v, 1e-9)

	v, st = s.Display(at(10).Add(window+1500*time.Millisecond), Established(-70))
	assert.Equal(t, Quiescent, st)
	assert.InDelta(t, -70.0, v, 1e-9)
}

func TestStateColdStart(t *testing.T) {
	s := NewState(4 * time.Second)

	v, st := s.Display(at(0), Unset)
	assert.Equal(t, ColdStart, st)
	assert.InDelta(t, BaselineFloor, v, 1e-9)

	_, _, ok := s.Last()
	assert.False(t, ok)

	s.Record(-30, at(1))
	v, st = s.Display(at(2), Unset)
	assert.Equal(t, RecentDetection, st)
	assert.InDelta(t, -30.0, v, 1e-9)

	// Timed out with the floor still unset
	v, st = s.Display(at(20), Unset)
	assert.Equal(t, ColdStart, st)
	assert.InDelta(t, BaselineFloor, v, 1e-9)
}

func TestStateNewDetectionReplacesOld(t *testing.T) {
	s := NewState(time.Second)
	s.Record(-30, at(0))
	s.Record(-45, at(1))

	peak, ts, ok := s.Last()
	assert.True(t, ok)
	assert.InDelta(t, -45.0, peak, 1e-9)
	assert.Equal(t, at(1), ts)
	assert.Equal(t, "recent_detection", RecentDetection.String())
}
