package shadow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSplitMode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want SplitMode
	}{
		{"uniform", SplitUniform},
		{"logarithmic", SplitLogarithmic},
		{"practical", SplitPractical},
	} {
		mode, err := ParseSplitMode(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, mode)
		assert.Equal(t, tc.in, mode.String())
	}

	_, err := ParseSplitMode("exponential")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exponential")
}

func TestSplitDepthsMonotonic(t *testing.T) {
	for _, mode := range []SplitMode{SplitUniform, SplitLogarithmic, SplitPractical} {
		depths := splitDepths(mode, 4, 0.1, 500, 0.5)
		require.Len(t, depths, 4)
		prev := float32(0.1)
		for _, d := range depths {
			assert.Greater(t, d, prev, "mode %s", mode)
			prev = d
		}
		assert.Equal(t, float32(500), depths[3], "last split must land exactly on far")
	}
}

func TestSplitDepthsUniform(t *testing.T) {
	depths := splitDepths(SplitUniform, 4, 10, 90, 0)
	assert.InDelta(t, 30, depths[0], 1e-4)
	assert.InDelta(t, 50, depths[1], 1e-4)
	assert.InDelta(t, 70, depths[2], 1e-4)
	assert.Equal(t, float32(90), depths[3])
}

func TestSplitDepthsLogarithmic(t *testing.T) {
	depths := splitDepths(SplitLogarithmic, 3, 1, 1000, 0)
	assert.InDelta(t, 10, depths[0], 1e-2)
	assert.InDelta(t, 100, depths[1], 1e-1)
	assert.Equal(t, float32(1000), depths[2])
}

func TestSplitDepthsPracticalBlend(t *testing.T) {
	uniform := splitDepths(SplitUniform, 4, 0.5, 400, 0)
	logarithmic := splitDepths(SplitLogarithmic, 4, 0.5, 400, 0)
	practical := splitDepths(SplitPractical, 4, 0.5, 400, 0.5)

	for i := 0; i < 3; i++ {
		lo := float32(math.Min(float64(uniform[i]), float64(logarithmic[i])))
		hi := float32(math.Max(float64(uniform[i]), float64(logarithmic[i])))
		assert.GreaterOrEqual(t, practical[i], lo)
		assert.LessOrEqual(t, practical[i], hi)
	}

	assert.InDeltaSlice(t, toF64(uniform), toF64(splitDepths(SplitPractical, 4, 0.5, 400, 0)), 1e-4)
	assert.InDeltaSlice(t, toF64(logarithmic), toF64(splitDepths(SplitPractical, 4, 0.5, 400, 1)), 1e-4)
}

func toF64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func TestSplitDepthsPanics(t *testing.T) {
	assert.Panics(t, func() { splitDepths(SplitUniform, 0, 0.1, 100, 0) })
	assert.Panics(t, func() { splitDepths(SplitUniform, 4, 0, 100, 0) })
	assert.Panics(t, func() { splitDepths(SplitUniform, 4, 100, 100, 0) })
	assert.Panics(t, func() { splitDepths(SplitUniform, 4, 200, 100, 0) })
}

func TestFrustumCorners(t *testing.T) {
	var f FrustumCorners
	fovY := float32(math.Pi / 2)
	f.SetFromCamera(fovY, 1, 1, 10)

	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(-1), f.Points[i][2], "near plane corner %d", i)
		assert.Equal(t, float32(-10), f.Points[i+4][2], "far plane corner %d", i)
	}
	// 90 degree square frustum: half extents equal the plane depth.
	assert.InDelta(t, -1, float64(f.Points[0][0]), 1e-5)
	assert.InDelta(t, 10, float64(f.Points[6][0]), 1e-4)
	assert.InDelta(t, 10, float64(f.Points[6][1]), 1e-4)

	center := f.Center()
	assert.InDelta(t, 0, float64(center[0]), 1e-5)
	assert.InDelta(t, 0, float64(center[1]), 1e-5)
	assert.InDelta(t, -5.5, float64(center[2]), 1e-4)
}

func TestFrustumTransformTranslation(t *testing.T) {
	var f FrustumCorners
	f.SetFromCamera(float32(math.Pi/3), 16.0/9.0, 0.1, 50)
	before := f.Points

	m := [16]float32{}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	m[12], m[13], m[14] = 3, -2, 7
	f.Transform(m[:])

	for i := range f.Points {
		assert.InDelta(t, float64(before[i][0]+3), float64(f.Points[i][0]), 1e-4)
		assert.InDelta(t, float64(before[i][1]-2), float64(f.Points[i][1]), 1e-4)
		assert.InDelta(t, float64(before[i][2]+7), float64(f.Points[i][2]), 1e-4)
	}
}

func TestFrustumRadius(t *testing.T) {
	var f FrustumCorners
	f.SetFromCamera(float32(math.Pi/2), 1, 1, 10)

	farDiagonal := dist(f.Points[4], f.Points[6])
	crossDiagonal := dist(f.Points[6], f.Points[0])
	want := float32(math.Max(float64(farDiagonal), float64(crossDiagonal))) / 2
	assert.Equal(t, want, f.Radius())

	// The sphere centered at the centroid covers every corner with slack for
	// the centroid not being the exact circumcenter.
	center := f.Center()
	for i, p := range f.Points {
		assert.LessOrEqual(t, dist(center, p), f.Radius()*1.1, "corner %d", i)
	}
}
