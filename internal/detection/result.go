package detection

import "time"

// Outcome is the result of one tick for one device
type Outcome struct {
	Device            Device
	Timestamp         time.Time
	Power             float64 // raw reading, SentinelPower when acquisition failed
	Threshold         float64 // effective threshold
	Floor             Floor
	Detected          bool
	Peak              float64 // strongest reading inside the pulse window
	Trend             Trend
	Display           float64 // level to show for the device
	DisplayState      DisplayState
	AcquisitionFailed bool
}

// AggregateResult is the result of one tick over all devices
type AggregateResult struct {
	Seq          uint64 // tick number, starting at 1
	Timestamp    time.Time
	Outcomes     []Outcome // in device configuration order
	DeviceTotals []uint64  // detections per device since start, parallel to Outcomes
	Total        uint64    // detections over all devices since start
}

// Detections returns the outcomes that raised a detection this tick
func (a AggregateResult) Detections() []Outcome {
	var out []Outcome
	for i := range a.Outcomes {
		if a.Outcomes[i].Detected {
			out = append(out, a.Outcomes[i])
		}
	}
	return out
}
