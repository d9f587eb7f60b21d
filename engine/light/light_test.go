package light

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSunDefaults(t *testing.T) {
	s := NewSun()

	assert.Equal(t, [3]float32{0, 1, 0}, s.Direction())
	assert.InDelta(t, 1.474, float64(s.Irradiance()[0]), 1e-6)
	assert.InDelta(t, 0.004675, float64(s.AngularRadius()), 1e-9)
	assert.Equal(t, float32(1.0), s.Intensity())
	assert.InDelta(t, math.Pi/2, float64(s.Elevation()), 1e-5)
}

func TestSunSetDirectionNormalizes(t *testing.T) {
	s := NewSun()
	s.SetDirection(3, 0, 4)

	d := s.Direction()
	assert.InDelta(t, 0.6, float64(d[0]), 1e-6)
	assert.InDelta(t, 0.0, float64(d[1]), 1e-6)
	assert.InDelta(t, 0.8, float64(d[2]), 1e-6)
}

func TestSunZeroDirectionFallsBackToUp(t *testing.T) {
	s := NewSun()
	s.SetDirection(0, 0, 0)
	assert.Equal(t, [3]float32{0, 1, 0}, s.Direction())
}

func TestSunElevationAzimuth(t *testing.T) {
	s := NewSun()

	// Sun on the horizon, due +Z.
	s.SetElevationAzimuth(0, 0)
	d := s.Direction()
	assert.InDelta(t, 0, float64(d[0]), 1e-6)
	assert.InDelta(t, 0, float64(d[1]), 1e-6)
	assert.InDelta(t, 1, float64(d[2]), 1e-6)
	assert.InDelta(t, 0, float64(s.Elevation()), 1e-6)

	// 30 degrees up, 90 degrees around.
	s.SetElevationAzimuth(math.Pi/6, math.Pi/2)
	d = s.Direction()
	assert.InDelta(t, math.Cos(math.Pi/6), float64(d[0]), 1e-6)
	assert.InDelta(t, 0.5, float64(d[1]), 1e-6)
	assert.InDelta(t, 0, float64(d[2]), 1e-6)
	assert.InDelta(t, math.Pi/6, float64(s.Elevation()), 1e-5)

	// Below the horizon reports negative elevation.
	s.SetElevationAzimuth(-0.1, 0)
	assert.InDelta(t, -0.1, float64(s.Elevation()), 1e-5)
}

func TestSunBuilderOptions(t *testing.T) {
	s := NewSun(
		WithDirection(0, 0, 2),
		WithIrradiance(1, 1, 1),
		WithAngularRadius(0.01),
		WithIntensity(2.5),
	)

	assert.Equal(t, [3]float32{0, 0, 1}, s.Direction())
	assert.Equal(t, [3]float32{1, 1, 1}, s.Irradiance())
	assert.Equal(t, float32(0.01), s.AngularRadius())
	assert.Equal(t, float32(2.5), s.Intensity())
}

func TestGPUSunLightMarshal(t *testing.T) {
	s := NewSun(
		WithDirection(0, 1, 0),
		WithIrradiance(1.5, 2.0, 2.5),
		WithAngularRadius(0.005),
		WithIntensity(3.0),
	)

	g := s.GPU()
	require.Equal(t, 32, g.Size())

	buf := g.Marshal()
	require.Len(t, buf, 32)

	assert.InDelta(t, 1.0, float64(readF32(buf, 4)), 1e-6)    // direction.y
	assert.InDelta(t, 0.005, float64(readF32(buf, 12)), 1e-9) // angular radius
	assert.InDelta(t, 2.0, float64(readF32(buf, 20)), 1e-6)   // irradiance.g
	assert.InDelta(t, 3.0, float64(readF32(buf, 28)), 1e-6)   // intensity
}

func TestGPUSunLightSourceEmbedded(t *testing.T) {
	assert.Contains(t, GPUSunLightSource, "struct SunLight")
	assert.Contains(t, GPUSunLightSource, "angular_radius")
}

func readF32(buf []byte, off int) float32 {
	bits := uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
	return math.Float32frombits(bits)
}
