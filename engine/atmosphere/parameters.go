package atmosphere

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DensityProfileLayer describes the density of an atmosphere constituent over a
// vertical slice of the atmosphere as a function of altitude h (in meters above
// the planet surface):
//
//	density(h) = ExpTerm * exp(ExpScale * h) + LinearTerm * h + ConstantTerm
//
// clamped to [0, 1]. Width is the vertical extent of the layer; the last layer
// of a profile extends to the top of the atmosphere regardless of its width.
type DensityProfileLayer struct {
	Width        float64
	ExpTerm      float64
	ExpScale     float64
	LinearTerm   float64
	ConstantTerm float64
}

// DensityProfile is an atmosphere constituent density profile made of at most
// two layers, ordered bottom to top. Constituents needing a single layer leave
// the first layer zeroed (a zero layer of width 0 contributes nothing below
// altitude 0).
type DensityProfile struct {
	Layers [2]DensityProfileLayer
}

// Parameters holds the physical description of an atmosphere. All distances
// are in meters, all angles in radians, all spectral quantities as linear RGB
// triples. Parameters are immutable once a Model is constructed from them;
// changing a profile means building (and baking) a new Model.
type Parameters struct {
	// SolarIrradiance is the solar irradiance at the top of the atmosphere.
	SolarIrradiance mgl64.Vec3

	// SunAngularRadius is the angular radius of the sun disk.
	SunAngularRadius float64

	// BottomRadius is the distance from the planet center to the surface.
	BottomRadius float64

	// TopRadius is the distance from the planet center to the top of the atmosphere.
	TopRadius float64

	// RayleighDensity is the air molecule density profile.
	RayleighDensity DensityProfile

	// RayleighScattering is the scattering coefficient of air molecules at the
	// altitude where their density is maximum.
	RayleighScattering mgl64.Vec3

	// MieDensity is the aerosol density profile.
	MieDensity DensityProfile

	// MieScattering is the scattering coefficient of aerosols at the altitude
	// where their density is maximum.
	MieScattering mgl64.Vec3

	// MieExtinction is the extinction coefficient of aerosols at the altitude
	// where their density is maximum. Must be >= MieScattering component-wise.
	MieExtinction mgl64.Vec3

	// MiePhaseFunctionG is the asymmetry parameter of the Cornette-Shanks
	// phase function used for aerosols.
	MiePhaseFunctionG float64

	// AbsorptionDensity is the density profile of absorbing molecules (ozone).
	AbsorptionDensity DensityProfile

	// AbsorptionExtinction is the extinction coefficient of absorbing molecules
	// at the altitude where their density is maximum.
	AbsorptionExtinction mgl64.Vec3

	// GroundAlbedo is the average albedo of the planet surface, used by the
	// multiple-scattering and indirect-irradiance integrals.
	GroundAlbedo mgl64.Vec3

	// MuSMin is the cosine of the maximum sun zenith angle for which scattering
	// is precomputed. Rays with a lower sun cosine sample the table edge.
	MuSMin float64
}

// validate panics with a descriptive message when a construction-time invariant
// is violated. Invalid atmosphere parameters are a contract violation, not a
// recoverable condition: silently clamping them would bake corrupt tables.
func (p *Parameters) validate() {
	if p.BottomRadius <= 0 || p.TopRadius <= 0 {
		panic(fmt.Sprintf("atmosphere: radii must be positive (bottom=%g, top=%g)", p.BottomRadius, p.TopRadius))
	}
	if p.BottomRadius >= p.TopRadius {
		panic(fmt.Sprintf("atmosphere: bottom radius %g must be below top radius %g", p.BottomRadius, p.TopRadius))
	}
	if p.SunAngularRadius <= 0 {
		panic(fmt.Sprintf("atmosphere: sun angular radius must be positive, got %g", p.SunAngularRadius))
	}
	if p.MuSMin < -1 || p.MuSMin > 1 {
		panic(fmt.Sprintf("atmosphere: mu_s_min %g outside [-1, 1]", p.MuSMin))
	}
	if p.MiePhaseFunctionG <= -1 || p.MiePhaseFunctionG >= 1 {
		panic(fmt.Sprintf("atmosphere: mie phase g %g outside (-1, 1)", p.MiePhaseFunctionG))
	}
	for i := 0; i < 3; i++ {
		if p.SolarIrradiance[i] < 0 {
			panic(fmt.Sprintf("atmosphere: negative solar irradiance channel %d", i))
		}
		if p.RayleighScattering[i] < 0 || p.MieScattering[i] < 0 || p.MieExtinction[i] < 0 || p.AbsorptionExtinction[i] < 0 {
			panic(fmt.Sprintf("atmosphere: negative scattering/extinction coefficient channel %d", i))
		}
		if p.GroundAlbedo[i] < 0 || p.GroundAlbedo[i] > 1 {
			panic(fmt.Sprintf("atmosphere: ground albedo channel %d outside [0, 1]", i))
		}
		if p.MieExtinction[i] < p.MieScattering[i] {
			panic(fmt.Sprintf("atmosphere: mie extinction channel %d below mie scattering", i))
		}
	}
	for _, prof := range []DensityProfile{p.RayleighDensity, p.MieDensity, p.AbsorptionDensity} {
		for _, layer := range prof.Layers {
			if layer.Width < 0 {
				panic(fmt.Sprintf("atmosphere: negative density layer width %g", layer.Width))
			}
		}
	}
}

// EarthParameters returns the reference Earth atmosphere: a Rayleigh layer with
// an 8 km scale height, a Mie layer with a 1.2 km scale height, and a tent-
// shaped ozone absorption layer centered at 25 km. Values follow the published
// precomputed-scattering reference implementation.
//
// Returns:
//   - Parameters: the Earth atmosphere description
func EarthParameters() Parameters {
	const (
		rayleighScaleHeight = 8000.0
		mieScaleHeight      = 1200.0
		maxSunZenithAngle   = 102.0 * math.Pi / 180.0
	)
	return Parameters{
		SolarIrradiance:  mgl64.Vec3{1.474, 1.8504, 1.91198},
		SunAngularRadius: 0.004675,
		BottomRadius:     6360000,
		TopRadius:        6420000,
		RayleighDensity: DensityProfile{Layers: [2]DensityProfileLayer{
			{},
			{Width: 0, ExpTerm: 1, ExpScale: -1 / rayleighScaleHeight},
		}},
		RayleighScattering: mgl64.Vec3{5.802e-6, 13.558e-6, 33.1e-6},
		MieDensity: DensityProfile{Layers: [2]DensityProfileLayer{
			{},
			{Width: 0, ExpTerm: 1, ExpScale: -1 / mieScaleHeight},
		}},
		MieScattering:     mgl64.Vec3{3.996e-6, 3.996e-6, 3.996e-6},
		MieExtinction:     mgl64.Vec3{4.40e-6, 4.40e-6, 4.40e-6},
		MiePhaseFunctionG: 0.8,
		AbsorptionDensity: DensityProfile{Layers: [2]DensityProfileLayer{
			{Width: 25000, LinearTerm: 1.0 / 15000.0, ConstantTerm: -2.0 / 3.0},
			{Width: 0, LinearTerm: -1.0 / 15000.0, ConstantTerm: 8.0 / 3.0},
		}},
		AbsorptionExtinction: mgl64.Vec3{0.650e-6, 1.881e-6, 0.085e-6},
		GroundAlbedo:         mgl64.Vec3{0.1, 0.1, 0.1},
		MuSMin:               math.Cos(maxSunZenithAngle),
	}
}
