package noise

import "fmt"

// Field3 is any tileable 3D noise field in cell units with the given tiling
// period. Both Perlin.Noise3 and Worley.InvertedNoise3 satisfy it.
type Field3 func(x, y, z float64, period int) float64

// FBMParams configures a fractal Brownian motion accumulator: octaves of a
// base field at increasing frequency and decreasing amplitude.
type FBMParams struct {
	// Frequency is the base octave's frequency in cells across the unit cube.
	Frequency float64
	// Amplitude is the base octave's weight.
	Amplitude float64
	// Lacunarity is the per-octave frequency multiplier.
	Lacunarity float64
	// Gain is the per-octave amplitude multiplier.
	Gain float64
	// Octaves is the number of octaves to sum, at least 1.
	Octaves int
}

// DefaultFBMParams returns the accumulator settings used for cloud shape
// noise: five octaves, doubling frequency, halving amplitude.
//
// Returns:
//   - FBMParams: the default accumulator settings
func DefaultFBMParams() FBMParams {
	return FBMParams{
		Frequency:  4,
		Amplitude:  1,
		Lacunarity: 2,
		Gain:       0.5,
		Octaves:    5,
	}
}

func (p *FBMParams) validate() {
	if p.Octaves < 1 {
		panic("noise: fbm octave count must be at least 1")
	}
	if p.Frequency <= 0 || p.Lacunarity <= 0 {
		panic(fmt.Sprintf("noise: fbm frequency and lacunarity must be positive, got %v and %v", p.Frequency, p.Lacunarity))
	}
}

// FBM sums octaves of the field at (u, v, w) in normalized [0, 1] coordinates
// and normalizes by the total amplitude, keeping the output in the field's
// own range. Tileability is preserved when Frequency and Lacunarity are
// integers: every octave's period stays integral.
//
// Parameters:
//   - field: the tileable base field
//   - params: octave accumulator settings
//   - u, v, w: normalized sample position in [0, 1]
//
// Returns:
//   - float64: normalized octave sum, in the base field's range
func FBM(field Field3, params FBMParams, u, v, w float64) float64 {
	params.validate()

	frequency := params.Frequency
	amplitude := params.Amplitude
	sum := 0.0
	totalAmplitude := 0.0

	for i := 0; i < params.Octaves; i++ {
		period := int(frequency + 0.5)
		if period < 1 {
			period = 1
		}
		sum += amplitude * field(u*frequency, v*frequency, w*frequency, period)
		totalAmplitude += amplitude
		frequency *= params.Lacunarity
		amplitude *= params.Gain
	}
	if totalAmplitude == 0 {
		return 0
	}
	return sum / totalAmplitude
}

// Smoothstep remaps x through the Hermite smoothstep between edge0 and edge1,
// clamping outside. A degenerate edge pair acts as a hard threshold.
//
// Parameters:
//   - edge0: lower remap edge
//   - edge1: upper remap edge
//   - x: value to remap
//
// Returns:
//   - float64: remapped value in [0, 1]
func Smoothstep(edge0, edge1, x float64) float64 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := (x - edge0) / (edge1 - edge0)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}
