package detection

import "strconv"

// Floor is a noise floor estimate that may not exist yet
type Floor struct {
	value float64
	set   bool
}

// Unset is the floor of a device with too few non-signal readings
var Unset = Floor{}

// Established returns a floor holding value
func Established(value float64) Floor {
	return Floor{value: value, set: true}
}

// Value returns the estimate and whether it is established
func (f Floor) Value() (float64, bool) {
	return f.value, f.set
}

// IsSet reports whether the floor is established
func (f Floor) IsSet() bool {
	return f.set
}

// Or returns the estimate, or fallback when unset
func (f Floor) Or(fallback float64) float64 {
	if f.set {
		return f.value
	}
	return fallback
}

func (f Floor) String() string {
	if !f.set {
		return "unset"
	}
	return strconv.FormatFloat(f.value, 'f', 1, 64)
}
