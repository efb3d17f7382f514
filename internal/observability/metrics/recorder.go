// Package metrics provides custom Prometheus metrics for rfdetect.
package metrics

import "github.com/tphakala/rfdetect/internal/detection"

// Recorder defines what the sampling loop reports per tick.
// Components depend on this interface so tests can run without a registry.
type Recorder interface {
	// RecordOutcome records one device's readings and verdict for a tick.
	RecordOutcome(o detection.Outcome)

	// RecordAcquisitionError counts a failed power reading.
	RecordAcquisitionError(device string)

	// RecordSinkError counts a failed event delivery.
	RecordSinkError(sink string)

	// ObserveTickDuration records how long one tick took, in seconds.
	ObserveTickDuration(seconds float64)
}

// NoOpRecorder discards everything
type NoOpRecorder struct{}

func (NoOpRecorder) RecordOutcome(detection.Outcome) {}
func (NoOpRecorder) RecordAcquisitionError(string)   {}
func (NoOpRecorder) RecordSinkError(string)          {}
func (NoOpRecorder) ObserveTickDuration(float64)     {}

var (
	_ Recorder = NoOpRecorder{}
	_ Recorder = (*DetectionMetrics)(nil)
)
