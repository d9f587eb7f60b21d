package atmosphere

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// kernels.go holds the per-texel integration kernels evaluated during the
// bake. Each kernel is a pure function of the atmosphere parameters, the
// already-baked intermediate tables, and the RaySample a texel stands for.
// Integration sample counts follow the reference implementation; they trade
// bake time against table accuracy and are not exposed as configuration.

const (
	transmittanceIntegralSamples      = 500
	singleScatteringIntegralSamples   = 50
	scatteringDensityIntegralSamples  = 16
	irradianceIntegralSamples         = 32
	multipleScatteringIntegralSamples = 50
)

// density evaluates one profile layer at the given altitude above the surface.
func (l *DensityProfileLayer) density(altitude float64) float64 {
	d := l.ExpTerm*math.Exp(l.ExpScale*altitude) + l.LinearTerm*altitude + l.ConstantTerm
	return math.Max(0, math.Min(1, d))
}

// density evaluates a two-layer profile at the given altitude above the surface.
func (prof *DensityProfile) density(altitude float64) float64 {
	if altitude < prof.Layers[0].Width {
		return prof.Layers[0].density(altitude)
	}
	return prof.Layers[1].density(altitude)
}

// RayleighPhaseFunction returns the Rayleigh phase function value for the
// cosine nu of the scattering angle.
//
// Parameters:
//   - nu: cosine of the view-sun angle
//
// Returns:
//   - float64: phase function value in sr^-1
func RayleighPhaseFunction(nu float64) float64 {
	k := 3.0 / (16.0 * math.Pi)
	return k * (1 + nu*nu)
}

// MiePhaseFunction returns the Cornette-Shanks phase function value for
// asymmetry parameter g and scattering angle cosine nu.
//
// Parameters:
//   - g: asymmetry parameter in (-1, 1)
//   - nu: cosine of the view-sun angle
//
// Returns:
//   - float64: phase function value in sr^-1
func MiePhaseFunction(g, nu float64) float64 {
	k := 3.0 / (8.0 * math.Pi) * (1 - g*g) / (2 + g*g)
	return k * (1 + nu*nu) / math.Pow(1+g*g-2*g*nu, 1.5)
}

// computeOpticalLengthToTopAtmosphereBoundary integrates a density profile
// along the ray (r, mu) to the top boundary using the trapezoidal rule.
func (p *Parameters) computeOpticalLengthToTopAtmosphereBoundary(profile *DensityProfile, r, mu float64) float64 {
	dx := p.DistanceToTopAtmosphereBoundary(r, mu) / transmittanceIntegralSamples
	result := 0.0
	for i := 0; i <= transmittanceIntegralSamples; i++ {
		dI := float64(i) * dx
		// Radius at the current sample point.
		rI := math.Sqrt(dI*dI + 2*r*mu*dI + r*r)
		yI := profile.density(rI - p.BottomRadius)
		weight := 1.0
		if i == 0 || i == transmittanceIntegralSamples {
			weight = 0.5
		}
		result += yI * weight * dx
	}
	return result
}

// computeTransmittanceToTopAtmosphereBoundary evaluates the transmittance
// bake kernel for the ray (r, mu), combining the Rayleigh, Mie, and absorption
// optical lengths.
func (p *Parameters) computeTransmittanceToTopAtmosphereBoundary(r, mu float64) mgl64.Vec3 {
	rayleigh := p.computeOpticalLengthToTopAtmosphereBoundary(&p.RayleighDensity, r, mu)
	mie := p.computeOpticalLengthToTopAtmosphereBoundary(&p.MieDensity, r, mu)
	absorption := p.computeOpticalLengthToTopAtmosphereBoundary(&p.AbsorptionDensity, r, mu)

	var t mgl64.Vec3
	for i := 0; i < 3; i++ {
		t[i] = math.Exp(-(p.RayleighScattering[i]*rayleigh + p.MieExtinction[i]*mie + p.AbsorptionExtinction[i]*absorption))
	}
	return t
}

// computeSingleScatteringIntegrand evaluates the Rayleigh and Mie integrand of
// the single-scattering integral at distance d along the ray.
func (p *Parameters) computeSingleScatteringIntegrand(trans *Texture2D, r, mu, muS, nu, d float64, intersectsGround bool) (rayleigh, mie mgl64.Vec3) {
	rD := p.clampRadius(math.Sqrt(d*d + 2*r*mu*d + r*r))
	muSD := clampCosine((r*muS + d*nu) / rD)
	transmittance := mulv(
		getTransmittance(p, trans, r, mu, d, intersectsGround),
		getTransmittanceToSun(p, trans, rD, muSD))
	rayleigh = transmittance.Mul(p.RayleighDensity.density(rD - p.BottomRadius))
	mie = transmittance.Mul(p.MieDensity.density(rD - p.BottomRadius))
	return rayleigh, mie
}

// computeSingleScattering evaluates the single-scattering bake kernel for a
// RaySample, returning the Rayleigh and Mie contributions without their phase
// functions (applied at lookup time).
func (p *Parameters) computeSingleScattering(trans *Texture2D, r, mu, muS, nu float64, intersectsGround bool) (rayleigh, mie mgl64.Vec3) {
	dx := p.distanceToNearestAtmosphereBoundary(r, mu, intersectsGround) / singleScatteringIntegralSamples
	var rayleighSum, mieSum mgl64.Vec3
	for i := 0; i <= singleScatteringIntegralSamples; i++ {
		dI := float64(i) * dx
		rayleighI, mieI := p.computeSingleScatteringIntegrand(trans, r, mu, muS, nu, dI, intersectsGround)
		weight := 1.0
		if i == 0 || i == singleScatteringIntegralSamples {
			weight = 0.5
		}
		rayleighSum = rayleighSum.Add(rayleighI.Mul(weight))
		mieSum = mieSum.Add(mieI.Mul(weight))
	}
	rayleigh = mulv(rayleighSum.Mul(dx), mulv(p.SolarIrradiance, p.RayleighScattering))
	mie = mulv(mieSum.Mul(dx), mulv(p.SolarIrradiance, p.MieScattering))
	return rayleigh, mie
}

// getScattering returns the order-th scattering radiance for a RaySample:
// order 1 combines the delta Rayleigh/Mie tables with their phase functions,
// higher orders sample the accumulated multiple-scattering table directly.
func getScattering(p *Parameters, singleRayleigh, singleMie, multiple *Texture3D, r, mu, muS, nu float64, intersectsGround bool, order int) mgl64.Vec3 {
	if order == 1 {
		rayleigh := sampleScattering(p, singleRayleigh, r, mu, muS, nu, intersectsGround)
		mie := sampleScattering(p, singleMie, r, mu, muS, nu, intersectsGround)
		return rayleigh.Vec3().Mul(RayleighPhaseFunction(nu)).
			Add(mie.Vec3().Mul(MiePhaseFunction(p.MiePhaseFunctionG, nu)))
	}
	return sampleScattering(p, multiple, r, mu, muS, nu, intersectsGround).Vec3()
}

// computeScatteringDensity evaluates the radiance scattered at a point toward
// the view direction, integrating the previous-order radiance arriving from
// every direction of the sphere, including the light reflected by the ground.
func (p *Parameters) computeScatteringDensity(trans *Texture2D, singleRayleigh, singleMie, multiple *Texture3D, irradiance *Texture2D, r, mu, muS, nu float64, order int) mgl64.Vec3 {
	// Orthonormal frame with the view direction in the x-z plane.
	zenith := mgl64.Vec3{0, 0, 1}
	omega := mgl64.Vec3{math.Sqrt(1 - mu*mu), 0, mu}
	sunDirX := 0.0
	if omega[0] != 0 {
		sunDirX = (nu - mu*muS) / omega[0]
	}
	sunDirY := math.Sqrt(math.Max(1-sunDirX*sunDirX-muS*muS, 0))
	omegaS := mgl64.Vec3{sunDirX, sunDirY, muS}

	const dAngle = math.Pi / scatteringDensityIntegralSamples
	var radiance mgl64.Vec3

	for l := 0; l < scatteringDensityIntegralSamples; l++ {
		theta := (float64(l) + 0.5) * dAngle
		cosTheta := math.Cos(theta)
		sinTheta := math.Sin(theta)
		thetaIntersectsGround := p.RayIntersectsGround(r, cosTheta)

		// Ground reflection terms are constant over phi, hoisted out of the
		// inner loop.
		distanceToGround := 0.0
		var transmittanceToGround, groundAlbedo mgl64.Vec3
		if thetaIntersectsGround {
			distanceToGround = p.DistanceToBottomAtmosphereBoundary(r, cosTheta)
			transmittanceToGround = getTransmittance(p, trans, r, cosTheta, distanceToGround, true)
			groundAlbedo = p.GroundAlbedo
		}

		for m := 0; m < 2*scatteringDensityIntegralSamples; m++ {
			phi := (float64(m) + 0.5) * dAngle
			omegaI := mgl64.Vec3{math.Cos(phi) * sinTheta, math.Sin(phi) * sinTheta, cosTheta}
			dOmegaI := dAngle * dAngle * sinTheta

			// Radiance arriving from omega_i after order-1 scattering events.
			nu1 := omegaS.Dot(omegaI)
			incident := getScattering(p, singleRayleigh, singleMie, multiple, r, omegaI[2], muS, nu1, thetaIntersectsGround, order-1)

			// Plus the radiance reflected by the ground seen in that direction.
			groundNormal := zenith.Mul(r).Add(omegaI.Mul(distanceToGround)).Normalize()
			groundIrradiance := getIrradiance(p, irradiance, p.BottomRadius, groundNormal.Dot(omegaS))
			incident = incident.Add(mulv(transmittanceToGround, mulv(groundAlbedo.Mul(1/math.Pi), groundIrradiance)))

			nu2 := omega.Dot(omegaI)
			rayleighDensity := p.RayleighDensity.density(r - p.BottomRadius)
			mieDensity := p.MieDensity.density(r - p.BottomRadius)
			scatter := p.RayleighScattering.Mul(rayleighDensity * RayleighPhaseFunction(nu2)).
				Add(p.MieScattering.Mul(mieDensity * MiePhaseFunction(p.MiePhaseFunctionG, nu2)))
			radiance = radiance.Add(mulv(incident, scatter).Mul(dOmegaI))
		}
	}
	return radiance
}

// computeMultipleScattering integrates the scattering density along the view
// ray, attenuated by transmittance, producing the next scattering order.
func (p *Parameters) computeMultipleScattering(trans *Texture2D, scatteringDensity *Texture3D, r, mu, muS, nu float64, intersectsGround bool) mgl64.Vec3 {
	dx := p.distanceToNearestAtmosphereBoundary(r, mu, intersectsGround) / multipleScatteringIntegralSamples
	var sum mgl64.Vec3
	for i := 0; i <= multipleScatteringIntegralSamples; i++ {
		dI := float64(i) * dx

		// RaySample at the current integration point.
		rI := p.clampRadius(math.Sqrt(dI*dI + 2*r*mu*dI + r*r))
		muI := clampCosine((r*mu + dI) / rI)
		muSI := clampCosine((r*muS + dI*nu) / rI)

		density := sampleScattering(p, scatteringDensity, rI, muI, muSI, nu, intersectsGround).Vec3()
		transmittance := getTransmittance(p, trans, r, mu, dI, intersectsGround)
		weight := 1.0
		if i == 0 || i == multipleScatteringIntegralSamples {
			weight = 0.5
		}
		sum = sum.Add(mulv(density, transmittance).Mul(weight * dx))
	}
	return sum
}

// computeDirectIrradiance evaluates the direct sun irradiance on a horizontal
// surface at radius r, averaging the visible fraction of the sun disk across
// the horizon.
func (p *Parameters) computeDirectIrradiance(trans *Texture2D, r, muS float64) mgl64.Vec3 {
	alphaS := p.SunAngularRadius

	// Average cosine factor over the part of the sun disk above the horizon.
	var averageCosineFactor float64
	switch {
	case muS < -alphaS:
		averageCosineFactor = 0
	case muS > alphaS:
		averageCosineFactor = muS
	default:
		averageCosineFactor = (muS + alphaS) * (muS + alphaS) / (4 * alphaS)
	}

	return mulv(p.SolarIrradiance, getTransmittanceToTopAtmosphereBoundary(p, trans, r, muS)).Mul(averageCosineFactor)
}

// computeIndirectIrradiance integrates the order-th scattered radiance over
// the upper hemisphere, weighted by the cosine of the incidence angle.
func (p *Parameters) computeIndirectIrradiance(singleRayleigh, singleMie, multiple *Texture3D, r, muS float64, order int) mgl64.Vec3 {
	const dAngle = math.Pi / irradianceIntegralSamples
	omegaS := mgl64.Vec3{math.Sqrt(1 - muS*muS), 0, muS}

	var result mgl64.Vec3
	for j := 0; j < irradianceIntegralSamples/2; j++ {
		theta := (float64(j) + 0.5) * dAngle
		for i := 0; i < 2*irradianceIntegralSamples; i++ {
			phi := (float64(i) + 0.5) * dAngle
			omega := mgl64.Vec3{
				math.Cos(phi) * math.Sin(theta),
				math.Sin(phi) * math.Sin(theta),
				math.Cos(theta),
			}
			dOmega := dAngle * dAngle * math.Sin(theta)
			nu := omega.Dot(omegaS)
			scattering := getScattering(p, singleRayleigh, singleMie, multiple, r, omega[2], muS, nu, false, order)
			result = result.Add(scattering.Mul(omega[2] * dOmega))
		}
	}
	return result
}

// mulv is the component-wise (Hadamard) product of two spectra.
func mulv(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
