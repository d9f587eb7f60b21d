package atmosphere

import (
	"context"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// modelImpl is the implementation of the Model interface.
type modelImpl struct {
	params Parameters
	tables *Tables

	scatteringOrders  int
	bakeWorkers       int
	maxRayleighShadow float64
	horizonNudge      float64
}

// Model owns one atmosphere profile and its baked lookup tables, and exposes
// the sky / aerial-perspective evaluator over them. The profile is immutable;
// a changed atmosphere means a new Model and a new bake. All evaluator
// operations are pure functions of the tables and their arguments, safe for
// concurrent use once Bake has completed.
//
// Positions are in meters relative to the planet center, directions are unit
// vectors, spectra are linear RGB.
type Model interface {
	// Parameters returns the atmosphere profile this model was built from.
	//
	// Returns:
	//   - Parameters: the immutable atmosphere description
	Parameters() Parameters

	// Tables returns the baked lookup tables, or nil before Bake has run.
	//
	// Returns:
	//   - *Tables: the baked table set or nil
	Tables() *Tables

	// Bake precomputes the transmittance, scattering, and irradiance tables
	// for the model's profile. Deterministic for a given profile. Expensive:
	// meant for startup or profile changes, never per frame. Texel rows are
	// evaluated in parallel; the context is checked between rows so a profile
	// change can abandon an in-flight bake.
	//
	// Parameters:
	//   - ctx: cancellation context for the bake
	//
	// Returns:
	//   - error: ctx.Err() if cancelled, nil on completion
	Bake(ctx context.Context) error

	// TransmittanceToTop returns the transmittance from radius r along the
	// ray with view-zenith cosine mu to the top atmosphere boundary.
	//
	// Parameters:
	//   - r: distance from planet center in meters
	//   - mu: cosine of the view zenith angle
	//
	// Returns:
	//   - mgl64.Vec3: transmittance per channel in [0, 1]
	TransmittanceToTop(r, mu float64) mgl64.Vec3

	// Transmittance returns the transmittance over the finite segment of
	// length d along the ray (r, mu).
	//
	// Parameters:
	//   - r: distance from planet center in meters
	//   - mu: cosine of the view zenith angle
	//   - d: segment length in meters
	//   - intersectsGround: whether the ray hits the planet surface
	//
	// Returns:
	//   - mgl64.Vec3: transmittance per channel in [0, 1]
	Transmittance(r, mu, d float64, intersectsGround bool) mgl64.Vec3

	// TransmittanceToSun returns the transmittance toward the sun from radius
	// r with sun-zenith cosine muS, with a smooth horizon fade over the sun's
	// angular radius.
	//
	// Parameters:
	//   - r: distance from planet center in meters
	//   - muS: cosine of the sun zenith angle
	//
	// Returns:
	//   - mgl64.Vec3: transmittance per channel in [0, 1]
	TransmittanceToSun(r, muS float64) mgl64.Vec3

	// SkyRadiance evaluates the in-scattered sky radiance seen from camera
	// along viewRay out to the edge of the atmosphere, and the transmittance
	// along that ray. A non-zero shadowLength removes the in-scatter of the
	// last shadowLength meters of the ray, correlating the sky with volumetric
	// cloud shadows.
	//
	// Parameters:
	//   - camera: position relative to planet center
	//   - viewRay: unit view direction
	//   - shadowLength: length of the sun-shadowed ray suffix in meters (0 = fully lit)
	//   - sunDirection: unit direction toward the sun
	//
	// Returns:
	//   - radiance: in-scattered radiance per channel
	//   - transmittance: transmittance to the top boundary (zero if the ray hits the ground)
	SkyRadiance(camera, viewRay mgl64.Vec3, shadowLength float64, sunDirection mgl64.Vec3) (radiance, transmittance mgl64.Vec3)

	// SkyRadianceToPoint evaluates the in-scattered radiance between camera
	// and a scene point, and the transmittance over that segment. Used for
	// aerial perspective on terrain and clouds.
	//
	// Parameters:
	//   - camera: position relative to planet center
	//   - point: segment end position relative to planet center
	//   - shadowLength: length of the sun-shadowed ray suffix in meters (0 = fully lit)
	//   - sunDirection: unit direction toward the sun
	//
	// Returns:
	//   - radiance: in-scattered radiance per channel over the segment
	//   - transmittance: transmittance over the segment
	SkyRadianceToPoint(camera, point mgl64.Vec3, shadowLength float64, sunDirection mgl64.Vec3) (radiance, transmittance mgl64.Vec3)

	// SunAndSkyIrradiance evaluates the direct sun irradiance and the
	// indirect sky irradiance arriving at a surface point with the given
	// normal.
	//
	// Parameters:
	//   - point: surface position relative to planet center
	//   - normal: unit surface normal
	//   - sunDirection: unit direction toward the sun
	//
	// Returns:
	//   - sun: direct sun irradiance per channel
	//   - sky: indirect sky irradiance per channel
	SunAndSkyIrradiance(point, normal, sunDirection mgl64.Vec3) (sun, sky mgl64.Vec3)
}

var _ Model = &modelImpl{}

func (m *modelImpl) Parameters() Parameters {
	return m.params
}

func (m *modelImpl) Tables() *Tables {
	return m.tables
}

func (m *modelImpl) TransmittanceToTop(r, mu float64) mgl64.Vec3 {
	return getTransmittanceToTopAtmosphereBoundary(&m.params, m.tables.Transmittance, m.params.clampRadius(r), clampCosine(mu))
}

func (m *modelImpl) Transmittance(r, mu, d float64, intersectsGround bool) mgl64.Vec3 {
	return getTransmittance(&m.params, m.tables.Transmittance, r, mu, d, intersectsGround)
}

func (m *modelImpl) TransmittanceToSun(r, muS float64) mgl64.Vec3 {
	return getTransmittanceToSun(&m.params, m.tables.Transmittance, m.params.clampRadius(r), clampCosine(muS))
}

func (m *modelImpl) SkyRadiance(camera, viewRay mgl64.Vec3, shadowLength float64, sunDirection mgl64.Vec3) (radiance, transmittance mgl64.Vec3) {
	p := &m.params

	r := camera.Len()
	rmu := camera.Dot(viewRay)
	distanceToTop := -rmu - safeSqrt(rmu*rmu-r*r+p.TopRadius*p.TopRadius)

	if distanceToTop > 0 {
		// Viewer in space: advance to the point where the ray enters the
		// atmosphere.
		camera = camera.Add(viewRay.Mul(distanceToTop))
		r = p.TopRadius
		rmu += distanceToTop
	} else if r > p.TopRadius {
		// Ray misses the atmosphere entirely.
		return mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}
	}

	mu := clampCosine(rmu / r)
	muS := clampCosine(camera.Dot(sunDirection) / r)
	nu := clampCosine(viewRay.Dot(sunDirection))
	intersectsGround := p.RayIntersectsGround(r, mu)

	if intersectsGround {
		transmittance = mgl64.Vec3{}
	} else {
		transmittance = getTransmittanceToTopAtmosphereBoundary(p, m.tables.Transmittance, r, mu)
	}

	var combined, singleMie mgl64.Vec3
	if shadowLength == 0 {
		combined, singleMie = getCombinedScattering(p, m.tables.Scattering, r, mu, muS, nu, intersectsGround)
	} else {
		// The last shadowLength meters of the ray are in shadow and
		// contribute no in-scatter: look up the scattering past the shadowed
		// suffix and attenuate it back through it. The Rayleigh suffix is
		// clamped independently of Mie, which keeps long cloud shadows from
		// tinting the whole sky warm.
		shadowLength = clampDistance(shadowLength)
		dRayleigh := math.Min(shadowLength, m.maxRayleighShadow)
		dMie := shadowLength

		combined = m.shadowedScattering(camera, viewRay, sunDirection, r, mu, nu, dRayleigh, intersectsGround, false)
		singleMie = m.shadowedScattering(camera, viewRay, sunDirection, r, mu, nu, dMie, intersectsGround, true)
	}

	radiance = combined.Mul(RayleighPhaseFunction(nu)).
		Add(singleMie.Mul(MiePhaseFunction(p.MiePhaseFunctionG, nu)))
	return radiance, transmittance
}

// shadowedScattering looks up scattering at the RaySample offset by the
// shadowed suffix length d and attenuates it through that suffix's
// transmittance. Returns the combined spectrum or the single-Mie spectrum.
func (m *modelImpl) shadowedScattering(camera, viewRay, sunDirection mgl64.Vec3, r, mu, nu, d float64, intersectsGround, wantMie bool) mgl64.Vec3 {
	p := &m.params

	rP := p.clampRadius(math.Sqrt(d*d + 2*r*mu*d + r*r))
	muP := clampCosine((r*mu + d) / rP)
	muSP := clampCosine((camera.Add(viewRay.Mul(d)).Dot(sunDirection)) / rP)

	combined, singleMie := getCombinedScattering(p, m.tables.Scattering, rP, muP, muSP, nu, intersectsGround)
	shadowTransmittance := getTransmittance(p, m.tables.Transmittance, r, mu, d, intersectsGround)
	if wantMie {
		return mulv(singleMie, shadowTransmittance)
	}
	return mulv(combined, shadowTransmittance)
}

func (m *modelImpl) SkyRadianceToPoint(camera, point mgl64.Vec3, shadowLength float64, sunDirection mgl64.Vec3) (radiance, transmittance mgl64.Vec3) {
	p := &m.params

	viewRay := point.Sub(camera).Normalize()
	r := camera.Len()
	rmu := camera.Dot(viewRay)
	distanceToTop := -rmu - safeSqrt(rmu*rmu-r*r+p.TopRadius*p.TopRadius)

	if distanceToTop > 0 {
		camera = camera.Add(viewRay.Mul(distanceToTop))
		r = p.TopRadius
		rmu += distanceToTop
	}

	mu := clampCosine(rmu / r)
	muS := clampCosine(camera.Dot(sunDirection) / r)
	nu := clampCosine(viewRay.Dot(sunDirection))
	d := clampDistance(point.Sub(camera).Len())
	intersectsGround := p.RayIntersectsGround(r, mu)

	if !intersectsGround {
		// Interpolation across the horizon discontinuity in the mu axis
		// produces a dark band; nudging mu off the exact horizon hides it.
		muHorizon := -safeSqrt(1 - (p.BottomRadius/r)*(p.BottomRadius/r))
		mu = math.Max(mu, muHorizon+m.horizonNudge)
	}

	transmittance = getTransmittance(p, m.tables.Transmittance, r, mu, d, intersectsGround)

	combined, singleMie := getCombinedScattering(p, m.tables.Scattering, r, mu, muS, nu, intersectsGround)

	// Scattering at the far end of the segment, attenuated back through the
	// (possibly shadow-shortened) segment; the in-scatter over the segment is
	// the difference of the two lookups.
	rP := p.clampRadius(math.Sqrt(d*d + 2*r*mu*d + r*r))
	muP := clampCosine((r*mu + d) / rP)
	muSP := clampCosine((camera.Add(viewRay.Mul(d)).Dot(sunDirection)) / rP)
	combinedP, singleMieP := getCombinedScattering(p, m.tables.Scattering, rP, muP, muSP, nu, intersectsGround)

	shadowTransmittance := transmittance
	if shadowLength > 0 {
		dLit := clampDistance(d - shadowLength)
		shadowTransmittance = getTransmittance(p, m.tables.Transmittance, r, mu, dLit, intersectsGround)
	}

	combined = combined.Sub(mulv(shadowTransmittance, combinedP))
	singleMie = singleMie.Sub(mulv(shadowTransmittance, singleMieP))

	// Re-extrapolate Mie from the differenced combined spectrum, then fade it
	// out as the sun reaches the horizon (the difference goes slightly
	// negative there).
	singleMie = extrapolateSingleMie(p, mgl64.Vec4{combined[0], combined[1], combined[2], singleMie[0]})
	singleMie = singleMie.Mul(smoothstep64(0, 0.01, muS))

	radiance = combined.Mul(RayleighPhaseFunction(nu)).
		Add(singleMie.Mul(MiePhaseFunction(p.MiePhaseFunctionG, nu)))
	return radiance, transmittance
}

func (m *modelImpl) SunAndSkyIrradiance(point, normal, sunDirection mgl64.Vec3) (sun, sky mgl64.Vec3) {
	p := &m.params

	r := point.Len()
	muS := clampCosine(point.Dot(sunDirection) / r)

	// Indirect irradiance, approximated from the hemisphere table with a
	// cosine factor for surface orientation.
	sky = getIrradiance(p, m.tables.Irradiance, r, muS).Mul((1 + point.Normalize().Dot(normal)) / 2)

	// Direct irradiance.
	sun = mulv(p.SolarIrradiance, getTransmittanceToSun(p, m.tables.Transmittance, r, muS)).
		Mul(math.Max(normal.Dot(sunDirection), 0))
	return sun, sky
}
