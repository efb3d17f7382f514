package detection

import "time"

// DisplayState is the phase of a device's displayed signal level
type DisplayState int

const (
	ColdStart       DisplayState = iota // no floor and no recent detection
	Quiescent                           // floor established, no recent detection
	RecentDetection                     // a detection inside the window plus grace period
)

func (s DisplayState) String() string {
	switch s {
	case Quiescent:
		return "quiescent"
	case RecentDetection:
		return "recent_detection"
	default:
		return "cold_start"
	}
}

// State remembers the last detection of a device and derives the level shown
// between detections.
type State struct {
	hold time.Duration // window plus GracePeriod

	peak float64
	at   time.Time
	has  bool
}

// NewState creates detection state for a pulse window of the given length
func NewState(window time.Duration) *State {
	return &State{hold: window + GracePeriod}
}

// Record stores a detection. peak is the window peak, not the raw power, so a
// dip inside an ongoing pulse keeps the displayed strength.
func (s *State) Record(peak float64, now time.Time) {
	s.peak = peak
	s.at = now
	s.has = true
}

// Last returns the stored detection, if any
func (s *State) Last() (peak float64, at time.Time, ok bool) {
	return s.peak, s.at, s.has
}

// Display returns the value to show at now and the phase it came from
func (s *State) Display(now time.Time, floor Floor) (float64, DisplayState) {
	if s.has && now.Sub(s.at) <= s.hold {
		return s.peak, RecentDetection
	}
	if v, ok := floor.Value(); ok {
		return v, Quiescent
	}
	return BaselineFloor, ColdStart
}
