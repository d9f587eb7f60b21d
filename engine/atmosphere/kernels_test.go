package atmosphere

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// integratePhaseOverSphere integrates a phase function over all directions.
// A normalized phase function integrates to 1.
func integratePhaseOverSphere(phase func(nu float64) float64) float64 {
	const n = 2048
	sum := 0.0
	for i := 0; i < n; i++ {
		theta := (float64(i) + 0.5) * math.Pi / n
		sum += phase(math.Cos(theta)) * math.Sin(theta) * (math.Pi / n) * 2 * math.Pi
	}
	return sum
}

func TestPhaseFunctionsNormalized(t *testing.T) {
	assert.InDelta(t, 1.0, integratePhaseOverSphere(RayleighPhaseFunction), 1e-3)
	assert.InDelta(t, 1.0, integratePhaseOverSphere(func(nu float64) float64 {
		return MiePhaseFunction(0.8, nu)
	}), 1e-2)
	// Forward scattering dominates for positive g.
	assert.Greater(t, MiePhaseFunction(0.8, 1), MiePhaseFunction(0.8, -1))
}

func TestDensityProfiles(t *testing.T) {
	p := EarthParameters()

	// Rayleigh and Mie densities decay exponentially with altitude.
	assert.InDelta(t, 1.0, p.RayleighDensity.density(0), 1e-12)
	assert.InDelta(t, math.Exp(-1), p.RayleighDensity.density(8000), 1e-9)
	assert.Greater(t, p.MieDensity.density(0), p.MieDensity.density(1200))

	// The ozone tent peaks at 25 km and vanishes at the ground and at 40 km.
	assert.InDelta(t, 1.0, p.AbsorptionDensity.density(25000), 1e-9)
	assert.InDelta(t, 0.0, p.AbsorptionDensity.density(0), 1e-9)
	assert.InDelta(t, 0.0, p.AbsorptionDensity.density(40000), 1e-9)

	// Density is clamped to [0, 1] outside the profile's valid band.
	assert.LessOrEqual(t, p.AbsorptionDensity.density(100000), 1.0)
	assert.GreaterOrEqual(t, p.AbsorptionDensity.density(100000), 0.0)
}

func TestComputeTransmittance(t *testing.T) {
	p := EarthParameters()
	r := p.BottomRadius + 1000

	vertical := p.computeTransmittanceToTopAtmosphereBoundary(r, 1)
	slant := p.computeTransmittanceToTopAtmosphereBoundary(r, 0.05)

	for c := 0; c < 3; c++ {
		require.Greater(t, vertical[c], 0.0)
		require.LessOrEqual(t, vertical[c], 1.0)
		// Longer optical paths extinct more.
		assert.Less(t, slant[c], vertical[c])
	}
	// Rayleigh extinction grows toward short wavelengths, so the vertical
	// transmittance is redder than it is blue.
	assert.Greater(t, vertical[0], vertical[2])
}

func TestTransmittanceMonotonicWithRadius(t *testing.T) {
	p := EarthParameters()

	// Rising toward the top boundary with a ray pitched down far enough to
	// cross the dense lower atmosphere from every radius only lengthens the
	// path, so each channel's transmittance must never increase with the
	// viewer radius. Near-horizontal rays are excluded: from high altitude
	// they can clear the dense layers entirely.
	for _, mu := range []float64{-0.2, -0.5, -1} {
		prev := mgl64.Vec3{2, 2, 2}
		const steps = 20
		for i := 0; i <= steps; i++ {
			r := p.BottomRadius + (p.TopRadius-p.BottomRadius)*float64(i)/steps
			tr := p.computeTransmittanceToTopAtmosphereBoundary(r, mu)
			for c := 0; c < 3; c++ {
				assert.LessOrEqual(t, tr[c], prev[c]+1e-9, "mu %g step %d channel %d", mu, i, c)
			}
			prev = tr
		}
	}
}

func TestComputeSingleScatteringBlueSky(t *testing.T) {
	p := EarthParameters()
	trans := bakeTransmittanceTable(t, &p)

	// Looking sideways with the sun overhead: Rayleigh in-scatter must be
	// blue-dominant and the Mie term non-negative.
	r := p.BottomRadius + 500
	rayleigh, mie := p.computeSingleScattering(trans, r, 0.05, 0.95, 0.05, false)
	assert.Greater(t, rayleigh[2], rayleigh[0])
	for c := 0; c < 3; c++ {
		assert.GreaterOrEqual(t, rayleigh[c], 0.0)
		assert.GreaterOrEqual(t, mie[c], 0.0)
	}

	// No sun, no in-scatter to speak of.
	night, _ := p.computeSingleScattering(trans, r, 0.05, -0.95, -0.05, false)
	assert.Less(t, night.Len(), rayleigh.Len()*1e-3)
}

func TestComputeDirectIrradiance(t *testing.T) {
	p := EarthParameters()
	trans := bakeTransmittanceTable(t, &p)

	overhead := p.computeDirectIrradiance(trans, p.BottomRadius, 1)
	low := p.computeDirectIrradiance(trans, p.BottomRadius, 0.1)
	below := p.computeDirectIrradiance(trans, p.BottomRadius, -0.1)

	assert.Greater(t, overhead.Len(), low.Len())
	assert.Equal(t, mgl64.Vec3{}, below)
	// Never exceeds the top-of-atmosphere irradiance.
	for c := 0; c < 3; c++ {
		assert.LessOrEqual(t, overhead[c], p.SolarIrradiance[c])
	}
}

func TestExtrapolateSingleMie(t *testing.T) {
	p := EarthParameters()

	// Below the floor the extrapolation is zero, avoiding a division blowup.
	assert.Equal(t, mgl64.Vec3{}, extrapolateSingleMie(&p, mgl64.Vec4{1e-6, 1, 1, 1}))

	// A pure round trip: packing mie.r into alpha and extrapolating with the
	// profile's spectral ratios recovers the original red channel.
	combined := mgl64.Vec4{0.02, 0.03, 0.05, 0.004}
	mie := extrapolateSingleMie(&p, combined)
	assert.InDelta(t, 0.004, mie[0], 1e-12)
	for c := 0; c < 3; c++ {
		assert.GreaterOrEqual(t, mie[c], 0.0)
	}
}

// bakeTransmittanceTable bakes only the transmittance stage, which is cheap
// enough for unit tests.
func bakeTransmittanceTable(t *testing.T, p *Parameters) *Texture2D {
	t.Helper()
	tex := NewTexture2D(TransmittanceTextureWidth, TransmittanceTextureHeight)
	for y := 0; y < TransmittanceTextureHeight; y++ {
		v := (float64(y) + 0.5) / TransmittanceTextureHeight
		for x := 0; x < TransmittanceTextureWidth; x++ {
			u := (float64(x) + 0.5) / TransmittanceTextureWidth
			r, mu := p.RMuFromTransmittanceTextureUV(u, v)
			tr := p.computeTransmittanceToTopAtmosphereBoundary(r, mu)
			tex.Set(x, y, mgl64.Vec4{tr[0], tr[1], tr[2], 1})
		}
	}
	return tex
}

func TestGetTransmittanceFromTable(t *testing.T) {
	p := EarthParameters()
	trans := bakeTransmittanceTable(t, &p)

	r := p.BottomRadius + 1000
	mu := 0.3

	// Table lookup agrees with the direct integral.
	direct := p.computeTransmittanceToTopAtmosphereBoundary(r, mu)
	looked := getTransmittanceToTopAtmosphereBoundary(&p, trans, r, mu)
	for c := 0; c < 3; c++ {
		assert.InDelta(t, direct[c], looked[c], 2e-3)
	}

	// Segment transmittances compose: T(0, d1+d2) == T(0, d1) * T(d1, d2).
	d1, d2 := 5000.0, 20000.0
	full := getTransmittance(&p, trans, r, mu, d1+d2, false)
	first := getTransmittance(&p, trans, r, mu, d1, false)
	r1 := math.Sqrt(d1*d1 + 2*r*mu*d1 + r*r)
	mu1 := (r*mu + d1) / r1
	second := getTransmittance(&p, trans, r1, mu1, d2, false)
	for c := 0; c < 3; c++ {
		assert.InDelta(t, full[c], first[c]*second[c], 1e-3)
	}
}
