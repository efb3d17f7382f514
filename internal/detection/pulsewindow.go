package detection

import (
	"slices"
	"time"
)

// Trend is the direction of the window peak between two observations
type Trend int

const (
	TrendFlat Trend = iota
	TrendRising
	TrendFalling
)

func (t Trend) String() string {
	switch t {
	case TrendRising:
		return "rising"
	case TrendFalling:
		return "falling"
	default:
		return "flat"
	}
}

// Reading is one power measurement of one device
type Reading struct {
	DeviceIndex int
	Timestamp   time.Time
	Power       float64 // dBFS
}

// PulseWindow keeps the readings of a trailing time horizon and reports the
// strongest one, so a pulse that falls between ticks still shows up on the
// following ones.
type PulseWindow struct {
	window  time.Duration
	entries []Reading // timestamp ordered, live entries start at head
	head    int

	peak     float64
	prevPeak float64
	trend    Trend
	observed bool
}

// NewPulseWindow creates a tracker over the given horizon
func NewPulseWindow(window time.Duration) *PulseWindow {
	return &PulseWindow{window: window}
}

// Observe adds r, evicts readings older than r.Timestamp minus the window and
// recomputes the peak and trend.
func (p *PulseWindow) Observe(r Reading) (peak float64, trend Trend) {
	p.insert(r)
	p.evict(r.Timestamp.Add(-p.window))

	previous := p.peak
	p.peak = r.Power
	if live := p.entries[p.head:]; len(live) > 0 {
		p.peak = live[0].Power
		for _, e := range live[1:] {
			p.peak = max(p.peak, e.Power)
		}
	}

	if !p.observed {
		previous = p.peak
		p.observed = true
	}
	p.prevPeak = previous

	switch {
	case p.peak > previous+TrendHysteresis:
		p.trend = TrendRising
	case p.peak < previous-TrendHysteresis:
		p.trend = TrendFalling
	default:
		p.trend = TrendFlat
	}

	return p.peak, p.trend
}

// insert appends r, keeping the queue timestamp ordered if r arrives late
func (p *PulseWindow) insert(r Reading) {
	n := len(p.entries)
	if n == p.head || !r.Timestamp.Before(p.entries[n-1].Timestamp) {
		p.entries = append(p.entries, r)
		return
	}
	i, _ := slices.BinarySearchFunc(p.entries[p.head:], r.Timestamp, func(e Reading, ts time.Time) int {
		return e.Timestamp.Compare(ts)
	})
	p.entries = slices.Insert(p.entries, p.head+i, r)
}

// evict drops entries with a timestamp before cutoff
func (p *PulseWindow) evict(cutoff time.Time) {
	for p.head < len(p.entries) && p.entries[p.head].Timestamp.Before(cutoff) {
		p.entries[p.head] = Reading{}
		p.head++
	}

	// Reclaim the evicted prefix once it dominates the backing array
	if p.head > 0 && p.head*2 >= len(p.entries) {
		n := copy(p.entries, p.entries[p.head:])
		clear(p.entries[n:])
		p.entries = p.entries[:n]
		p.head = 0
	}
}

// Peak returns the strongest reading inside the window
func (p *PulseWindow) Peak() float64 {
	return p.peak
}

// PreviousPeak returns the peak before the last observation
func (p *PulseWindow) PreviousPeak() float64 {
	return p.prevPeak
}

// Trend returns the trend computed by the last observation
func (p *PulseWindow) Trend() Trend {
	return p.trend
}

// Len returns the number of readings in the window
func (p *PulseWindow) Len() int {
	return len(p.entries) - p.head
}

// Window returns the tracked horizon
func (p *PulseWindow) Window() time.Duration {
	return p.window
}
