// Package detection implements the per-device RF power detection engine:
// noise floor estimation, dynamic thresholds, pulse window peak tracking and
// the detection state shown between detections.
//
// Every type here holds state for exactly one device and is not safe for
// concurrent use. The sampling loop owns one set per device and drives them
// sequentially.
package detection

import (
	"fmt"
	"time"

	"github.com/tphakala/rfdetect/internal/errors"
)

// GracePeriod is how long a detection stays displayed after it has left the
// pulse window.
// TODO: expose as a configuration option alongside detection.pulsewindow.
const GracePeriod = time.Second

// BaselineFloor is the display value used before any noise floor exists, in dBFS.
const BaselineFloor = -80.0

// TrendHysteresis is the peak change in dB required to report a rising or falling trend.
const TrendHysteresis = 1.0

// Mode selects how the detection threshold is derived
type Mode string

const (
	ModeFixed    Mode = "fixed"    // operator configured threshold only
	ModeAdaptive Mode = "adaptive" // noise floor plus margin once the floor is established
)

// SourceMode tells where a device's readings come from
type SourceMode string

const (
	SourceLive      SourceMode = "live"
	SourceSimulated SourceMode = "simulated"
)

// Device identifies one receiver. It is immutable after construction.
type Device struct {
	Index        int        // receiver index, also the rtl_sdr -d argument
	Name         string     // display name
	FrequencyHz  float64    // tuned centre frequency
	SampleRateHz float64    // IQ sample rate
	ManualGain   bool       // false for automatic gain control
	GainDB       float64    // tuner gain when ManualGain is set
	PPM          float64    // oscillator correction in parts per million
	Source       SourceMode // live or simulated
}

// CorrectedFrequencyHz returns the tuning frequency with PPM correction applied
func (d Device) CorrectedFrequencyHz() float64 {
	return d.FrequencyHz * (1 + d.PPM/1e6)
}

// FrequencyMHz returns the nominal frequency in MHz
func (d Device) FrequencyMHz() float64 {
	return d.FrequencyHz / 1e6
}

// String returns the device label used in log output
func (d Device) String() string {
	return fmt.Sprintf("%s (#%d, %.4f MHz)", d.Name, d.Index, d.FrequencyMHz())
}

// Config is the detection parameter snapshot for one run
type Config struct {
	Mode           Mode
	FixedThreshold float64       // dBFS, used in fixed mode and before the floor is established
	WindowSize     int           // non-signal readings kept for the noise floor
	MinSamples     int           // readings needed before the floor is established
	Margin         float64       // dB added to the floor to form the dynamic threshold
	PulseWindow    time.Duration // trailing horizon for peak tracking
	ScanInterval   time.Duration // delay between ticks
}

// DefaultConfig returns the stock detection parameters
func DefaultConfig() Config {
	return Config{
		Mode:           ModeAdaptive,
		FixedThreshold: -50,
		WindowSize:     20,
		MinSamples:     5,
		Margin:         8,
		PulseWindow:    4 * time.Second,
		ScanInterval:   500 * time.Millisecond,
	}
}

// Adaptive reports whether the dynamic threshold is in use
func (c Config) Adaptive() bool {
	return c.Mode == ModeAdaptive
}

// Validate checks the snapshot for values the engine cannot run with
func (c Config) Validate() error {
	var problem string
	switch {
	case c.Mode != ModeFixed && c.Mode != ModeAdaptive:
		problem = fmt.Sprintf("unknown detection mode %q", c.Mode)
	case c.MinSamples < 1:
		problem = "minimum noise floor samples must be at least 1"
	case c.WindowSize < c.MinSamples:
		problem = fmt.Sprintf("noise floor window %d is smaller than minimum samples %d", c.WindowSize, c.MinSamples)
	case c.Margin < 0:
		problem = "threshold margin must not be negative"
	case c.PulseWindow <= 0:
		problem = "pulse window must be positive"
	case c.ScanInterval <= 0:
		problem = "scan interval must be positive"
	default:
		return nil
	}

	return errors.Newf("invalid detection config: %s", problem).
		Component("detection").
		Category(errors.CategoryValidation).
		Build()
}
