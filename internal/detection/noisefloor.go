package detection

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// NoiseFloor estimates a device's ambient power from its most recent
// non-signal readings. The estimate is the median of the buffer, so isolated
// bursts that reach the buffer do not move it.
type NoiseFloor struct {
	buf        []float64 // ring storage, len == capacity
	start      int       // index of the oldest entry
	count      int
	minSamples int
	margin     float64

	floor     Floor
	threshold float64

	scratch []float64
}

// NewNoiseFloor creates an estimator keeping windowSize readings and
// establishing a floor once minSamples are buffered.
func NewNoiseFloor(windowSize, minSamples int, margin float64) *NoiseFloor {
	windowSize = max(windowSize, 1)
	minSamples = min(max(minSamples, 1), windowSize)
	return &NoiseFloor{
		buf:        make([]float64, windowSize),
		minSamples: minSamples,
		margin:     margin,
		scratch:    make([]float64, 0, windowSize),
	}
}

// Observe records power unless it was classified as signal, then recomputes
// the estimate.
func (n *NoiseFloor) Observe(power float64, isSignal bool) {
	if !isSignal {
		n.push(power)
	}
	n.recompute()
}

func (n *NoiseFloor) push(power float64) {
	capacity := len(n.buf)
	if n.count < capacity {
		n.buf[(n.start+n.count)%capacity] = power
		n.count++
		return
	}
	// Full: overwrite the oldest entry
	n.buf[n.start] = power
	n.start = (n.start + 1) % capacity
}

// recompute leaves the previous estimate in place until enough readings exist
func (n *NoiseFloor) recompute() {
	if n.count < n.minSamples {
		return
	}
	n.scratch = n.appendSamples(n.scratch[:0])
	slices.Sort(n.scratch)

	mid := len(n.scratch) / 2
	median := n.scratch[mid]
	if len(n.scratch)%2 == 0 {
		median = (n.scratch[mid-1] + n.scratch[mid]) / 2
	}

	n.floor = Established(median)
	n.threshold = median + n.margin
}

func (n *NoiseFloor) appendSamples(dst []float64) []float64 {
	capacity := len(n.buf)
	for i := range n.count {
		dst = append(dst, n.buf[(n.start+i)%capacity])
	}
	return dst
}

// Floor returns the current estimate
func (n *NoiseFloor) Floor() Floor {
	return n.floor
}

// Threshold returns the dynamic threshold, ok is false while the floor is unset
func (n *NoiseFloor) Threshold() (threshold float64, ok bool) {
	return n.threshold, n.floor.IsSet()
}

// Margin returns the configured margin above the floor
func (n *NoiseFloor) Margin() float64 {
	return n.margin
}

// Len returns the number of buffered readings
func (n *NoiseFloor) Len() int {
	return n.count
}

// Capacity returns the buffer size
func (n *NoiseFloor) Capacity() int {
	return len(n.buf)
}

// Samples returns a copy of the buffered readings, oldest first
func (n *NoiseFloor) Samples() []float64 {
	return n.appendSamples(make([]float64, 0, n.count))
}

// Spread returns the population standard deviation of the buffer, or 0 with
// fewer than two readings.
func (n *NoiseFloor) Spread() float64 {
	if n.count < 2 {
		return 0
	}
	n.scratch = n.appendSamples(n.scratch[:0])
	return stat.PopStdDev(n.scratch, nil)
}
