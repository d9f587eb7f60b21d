package shadow

import (
	"fmt"
	"math"
)

// SplitMode selects how the camera depth range is divided into cascades.
type SplitMode int

const (
	// SplitUniform divides the range into equal depth intervals. Wastes
	// resolution far away.
	SplitUniform SplitMode = iota
	// SplitLogarithmic divides the range geometrically. Under-resolves the
	// far cascades relative to scene detail.
	SplitLogarithmic
	// SplitPractical blends uniform and logarithmic splits by lambda, the
	// standard mitigation for perspective aliasing.
	SplitPractical
)

// ParseSplitMode converts a configuration string into a SplitMode.
//
// Parameters:
//   - s: one of "uniform", "logarithmic", "practical"
//
// Returns:
//   - SplitMode: the parsed mode
//   - error: when the string matches no mode
func ParseSplitMode(s string) (SplitMode, error) {
	switch s {
	case "uniform":
		return SplitUniform, nil
	case "logarithmic":
		return SplitLogarithmic, nil
	case "practical":
		return SplitPractical, nil
	default:
		return 0, fmt.Errorf("shadow: unknown split mode %q", s)
	}
}

func (m SplitMode) String() string {
	switch m {
	case SplitUniform:
		return "uniform"
	case SplitLogarithmic:
		return "logarithmic"
	default:
		return "practical"
	}
}

// splitDepths returns the far depth of each cascade over [near, far]. The
// last entry is exactly far. Lambda weighs the logarithmic term in the
// practical mode: 0 behaves uniform, 1 fully logarithmic.
func splitDepths(mode SplitMode, count int, near, far, lambda float32) []float32 {
	if count < 1 {
		panic(fmt.Sprintf("shadow: cascade count must be at least 1, got %d", count))
	}
	if near <= 0 || far <= near {
		panic(fmt.Sprintf("shadow: split range must satisfy 0 < near < far, got [%v, %v]", near, far))
	}

	depths := make([]float32, count)
	for i := 1; i < count; i++ {
		p := float32(i) / float32(count)
		uniform := near + (far-near)*p
		logarithmic := near * float32(math.Pow(float64(far/near), float64(p)))

		switch mode {
		case SplitUniform:
			depths[i-1] = uniform
		case SplitLogarithmic:
			depths[i-1] = logarithmic
		default:
			depths[i-1] = lambda*logarithmic + (1-lambda)*uniform
		}
	}
	depths[count-1] = far
	return depths
}
