package monitor

import (
	"github.com/tphakala/rfdetect/internal/detection"
	"github.com/tphakala/rfdetect/internal/logger"
)

// Channel is the detection state of one device. Only the loop touches it.
type Channel struct {
	Device detection.Device

	floor  *detection.NoiseFloor
	window *detection.PulseWindow
	state  *detection.State

	detections uint64
}

func newChannel(dev detection.Device, cfg detection.Config) *Channel {
	return &Channel{
		Device: dev,
		floor:  detection.NewNoiseFloor(cfg.WindowSize, cfg.MinSamples, cfg.Margin),
		window: detection.NewPulseWindow(cfg.PulseWindow),
		state:  detection.NewState(cfg.PulseWindow),
	}
}

// process runs decision, floor update, window update and state update for r
func (c *Channel) process(decider detection.Decider, r detection.Reading, failed bool) detection.Outcome {
	established := c.floor.Floor().IsSet()

	dec := decider.Decide(r.Power, c.floor)
	// A sentinel is not a measurement of the band
	c.floor.Observe(r.Power, dec.Detected || failed)
	peak, trend := c.window.Observe(r)
	if dec.Detected {
		c.state.Record(peak, r.Timestamp)
	}
	display, phase := c.state.Display(r.Timestamp, c.floor.Floor())

	if !established && c.floor.Floor().IsSet() {
		GetLogger().Info("Noise floor established",
			logger.String("device", c.Device.Name),
			logger.Float64("noise_floor_dbfs", c.floor.Floor().Or(detection.BaselineFloor)),
			logger.Float64("spread_db", c.floor.Spread()),
			logger.Int("samples", c.floor.Len()))
	}

	return detection.Outcome{
		Device:            c.Device,
		Timestamp:         r.Timestamp,
		Power:             r.Power,
		Threshold:         dec.Threshold,
		Floor:             dec.Floor,
		Detected:          dec.Detected,
		Peak:              peak,
		Trend:             trend,
		Display:           display,
		DisplayState:      phase,
		AcquisitionFailed: failed,
	}
}

// Detections returns the number of detections on this channel
func (c *Channel) Detections() uint64 {
	return c.detections
}

// NoiseFloor returns the channel's current estimate
func (c *Channel) NoiseFloor() detection.Floor {
	return c.floor.Floor()
}
