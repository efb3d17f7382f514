package detection

// Decision is the verdict for one reading
type Decision struct {
	Power     float64
	Threshold float64 // effective threshold the power was compared against
	Floor     Floor   // floor behind the threshold, Unset when the fixed threshold was used
	Detected  bool
}

// Decider compares readings against the fixed or dynamic threshold
type Decider struct {
	mode  Mode
	fixed float64
}

// NewDecider creates a decider for the configured mode
func NewDecider(cfg Config) Decider {
	return Decider{mode: cfg.Mode, fixed: cfg.FixedThreshold}
}

// Decide classifies power using est. It must run before est observes the same
// reading, and its Detected flag is what est.Observe takes as isSignal, so
// detections never raise the floor.
func (d Decider) Decide(power float64, est *NoiseFloor) Decision {
	dec := Decision{Power: power, Threshold: d.fixed, Floor: Unset}

	if d.mode == ModeAdaptive && est != nil {
		if threshold, ok := est.Threshold(); ok {
			dec.Threshold = threshold
			dec.Floor = est.Floor()
		}
	}

	dec.Detected = power > dec.Threshold
	return dec
}
