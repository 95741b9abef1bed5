package input

import "math"

// Native axis range reported by joystick drivers.
const (
	AxisMin int32 = math.MinInt16
	AxisMax int32 = math.MaxInt16
)

// NormalizeAxis maps raw from [lo, hi] onto [-1, 1]. Values outside the
// range are clamped, so lo and hi map to exactly -1 and 1.
func NormalizeAxis(raw, lo, hi int32) float64 {
	if hi <= lo {
		return 0
	}
	if raw <= lo {
		return -1
	}
	if raw >= hi {
		return 1
	}
	v := float64(int64(raw)-int64(lo))/float64(int64(hi)-int64(lo))*2 - 1
	return clamp(v)
}

// ApplyDeadZone zeroes |v| < dz and rescales the rest so ±1 stay ±1.
func ApplyDeadZone(v, dz float64) float64 {
	if dz <= 0 {
		return v
	}
	if dz >= 1 {
		return 0
	}
	mag := math.Abs(v)
	if mag < dz {
		return 0
	}
	return math.Copysign((mag-dz)/(1-dz), v)
}

func clamp(v float64) float64 {
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	default:
		return v
	}
}
