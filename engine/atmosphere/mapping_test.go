package atmosphere

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureCoordRoundTrip(t *testing.T) {
	for _, size := range []int{16, 64, 256} {
		for i := 0; i <= 10; i++ {
			x := float64(i) / 10
			u := TextureCoordFromUnitRange(x, size)
			assert.InDelta(t, x, UnitRangeFromTextureCoord(u, size), 1e-12)
			assert.GreaterOrEqual(t, u, 0.5/float64(size))
			assert.LessOrEqual(t, u, 1-0.5/float64(size))
		}
	}
}

func TestDistanceUnitRangeDegenerate(t *testing.T) {
	// A zero-width distance range maps to coordinate 0 instead of NaN.
	assert.Equal(t, 0.0, distanceUnitRange(5, 5, 5))
	assert.False(t, math.IsNaN(distanceUnitRange(0, 0, 0)))
}

func TestTransmittanceMappingRoundTrip(t *testing.T) {
	p := EarthParameters()
	for _, tc := range []struct{ r, mu float64 }{
		{p.BottomRadius + 1000, 1},
		{p.BottomRadius + 1000, 0.1},
		{(p.BottomRadius + p.TopRadius) / 2, 0.5},
		{p.TopRadius - 1, 0.02},
		{p.BottomRadius + 10, 0.9},
	} {
		u, v := p.TransmittanceTextureUVFromRMu(tc.r, tc.mu)
		r, mu := p.RMuFromTransmittanceTextureUV(u, v)
		assert.InDelta(t, tc.r, r, 1.0, "r for mu=%v", tc.mu)
		assert.InDelta(t, tc.mu, mu, 1e-3, "mu for r=%v", tc.r)
	}
}

func TestScatteringMappingRoundTrip(t *testing.T) {
	p := EarthParameters()
	for _, tc := range []struct {
		r, mu, muS, nu   float64
		intersectsGround bool
	}{
		{p.BottomRadius + 2000, 0.8, 0.6, 0.5, false},
		{p.BottomRadius + 2000, -0.3, 0.6, 0.2, true},
		{p.BottomRadius + 50000, 0.1, 0.9, 0.0, false},
		{p.TopRadius - 100, -0.9, -0.1, -0.5, true},
	} {
		uNu, uMuS, uMu, uR := p.ScatteringTextureUVWZFromRMuMuSNu(tc.r, tc.mu, tc.muS, tc.nu, tc.intersectsGround)
		r, mu, muS, nu, ig := p.RMuMuSNuFromScatteringTextureUVWZ(uNu, uMuS, uMu, uR)
		assert.Equal(t, tc.intersectsGround, ig)
		assert.InDelta(t, tc.r, r, 10.0)
		assert.InDelta(t, tc.mu, mu, 1e-2)
		assert.InDelta(t, tc.muS, muS, 1e-2)
		assert.InDelta(t, tc.nu, nu, 1e-6)
	}
}

func TestScatteringTexelMappingInRange(t *testing.T) {
	p := EarthParameters()
	// Every texel of the packed 3D table must map to physically valid
	// coordinates, including the corners.
	for _, x := range []int{0, ScatteringTextureMuSSize - 1, ScatteringTextureMuSSize, ScatteringTextureWidth - 1} {
		for _, y := range []int{0, ScatteringTextureHeight/2 - 1, ScatteringTextureHeight / 2, ScatteringTextureHeight - 1} {
			for _, z := range []int{0, ScatteringTextureDepth - 1} {
				r, mu, muS, nu, _ := p.rMuMuSNuFromScatteringTexel(x, y, z)
				require.False(t, math.IsNaN(mu) || math.IsNaN(muS) || math.IsNaN(nu), "texel (%d,%d,%d)", x, y, z)
				assert.GreaterOrEqual(t, r, p.BottomRadius)
				assert.LessOrEqual(t, r, p.TopRadius)
				assert.GreaterOrEqual(t, mu, -1.0)
				assert.LessOrEqual(t, mu, 1.0)
				// nu is clamped into the range physically reachable for the
				// texel's mu and muS.
				s := math.Sqrt((1 - mu*mu) * (1 - muS*muS))
				assert.GreaterOrEqual(t, nu, mu*muS-s-1e-9)
				assert.LessOrEqual(t, nu, mu*muS+s+1e-9)
			}
		}
	}
}

func TestIrradianceMappingRoundTrip(t *testing.T) {
	p := EarthParameters()
	for _, tc := range []struct{ r, muS float64 }{
		{p.BottomRadius, 1},
		{p.BottomRadius + 30000, 0.2},
		{p.TopRadius, -0.4},
	} {
		u, v := p.IrradianceTextureUVFromRMuS(tc.r, tc.muS)
		r, muS := p.RMuSFromIrradianceTextureUV(u, v)
		assert.InDelta(t, tc.r, r, 1e-3)
		assert.InDelta(t, tc.muS, muS, 1e-9)
	}
}

func TestRayIntersectsGround(t *testing.T) {
	p := EarthParameters()
	r := p.BottomRadius + 1000

	assert.False(t, p.RayIntersectsGround(r, 0.5))
	assert.True(t, p.RayIntersectsGround(r, -0.5))
	// Just above the horizon grazing angle the ray escapes.
	muHorizon := -math.Sqrt(1 - (p.BottomRadius/r)*(p.BottomRadius/r))
	assert.False(t, p.RayIntersectsGround(r, muHorizon+1e-4))
	assert.True(t, p.RayIntersectsGround(r, muHorizon-1e-4))
}

func TestDistanceToBoundaries(t *testing.T) {
	p := EarthParameters()

	// Straight up from the ground crosses exactly the atmosphere shell.
	assert.InDelta(t, p.TopRadius-p.BottomRadius, p.DistanceToTopAtmosphereBoundary(p.BottomRadius, 1), 1e-6)
	// Straight down from the top as well.
	assert.InDelta(t, p.TopRadius-p.BottomRadius, p.DistanceToBottomAtmosphereBoundary(p.TopRadius, -1), 1e-6)
	// Slant paths are longer than vertical ones.
	assert.Greater(t,
		p.DistanceToTopAtmosphereBoundary(p.BottomRadius, 0.1),
		p.DistanceToTopAtmosphereBoundary(p.BottomRadius, 1.0))
}
