package atmosphere

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// evaluate.go holds the lookup side of the model: pure functions of the baked
// tables and a RaySample. The bake kernels reuse the same lookups, which is
// what keeps the two sides of the texture-coordinate contract in one place.
// Every mu/mu_s entering these functions is clamped to [-1, 1] and every
// distance to >= 0 before touching the quadratic boundary formulas; those
// formulas are only valid in that domain.

// singleMieExtrapolationFloor is the minimum combined red channel below which
// the single-Mie contribution is defined as zero. The ratio trick recovering
// Mie from the packed alpha channel divides by this channel; below the floor
// the division amplifies bake noise into visible fireworks.
const singleMieExtrapolationFloor = 1e-5

// getTransmittanceToTopAtmosphereBoundary samples the transmittance table for
// the ray (r, mu) to the top boundary.
func getTransmittanceToTopAtmosphereBoundary(p *Parameters, trans *Texture2D, r, mu float64) mgl64.Vec3 {
	u, v := p.TransmittanceTextureUVFromRMu(r, mu)
	return trans.Sample(u, v).Vec3()
}

// getTransmittance computes the transmittance over the finite segment of
// length d along the ray (r, mu), as the ratio of two to-boundary lookups,
// clamped to [0, 1] component-wise so bake quantization cannot push the ratio
// above 1.
func getTransmittance(p *Parameters, trans *Texture2D, r, mu, d float64, intersectsGround bool) mgl64.Vec3 {
	r = p.clampRadius(r)
	mu = clampCosine(mu)
	d = clampDistance(d)

	rD := p.clampRadius(math.Sqrt(d*d + 2*r*mu*d + r*r))
	muD := clampCosine((r*mu + d) / rD)

	var near, far mgl64.Vec3
	if intersectsGround {
		// Both lookups taken along the upward-pointing reversed ray, which
		// stays in the table's valid (non-ground-intersecting) half.
		near = getTransmittanceToTopAtmosphereBoundary(p, trans, rD, -muD)
		far = getTransmittanceToTopAtmosphereBoundary(p, trans, r, -mu)
	} else {
		near = getTransmittanceToTopAtmosphereBoundary(p, trans, r, mu)
		far = getTransmittanceToTopAtmosphereBoundary(p, trans, rD, muD)
	}

	var t mgl64.Vec3
	for i := 0; i < 3; i++ {
		if far[i] > 0 {
			t[i] = math.Min(near[i]/far[i], 1)
		}
	}
	return t
}

// getTransmittanceToSun computes the transmittance toward the sun from radius
// r, fading the sun disk smoothly across the horizon using the sun's angular
// radius instead of hard-clipping at the geometric horizon.
func getTransmittanceToSun(p *Parameters, trans *Texture2D, r, muS float64) mgl64.Vec3 {
	sinThetaH := p.BottomRadius / r
	cosThetaH := -math.Sqrt(math.Max(1-sinThetaH*sinThetaH, 0))
	visible := smoothstep64(-sinThetaH*p.SunAngularRadius, sinThetaH*p.SunAngularRadius, muS-cosThetaH)
	return getTransmittanceToTopAtmosphereBoundary(p, trans, r, muS).Mul(visible)
}

// getIrradiance samples the irradiance table at (r, mu_s).
func getIrradiance(p *Parameters, irradiance *Texture2D, r, muS float64) mgl64.Vec3 {
	u, v := p.IrradianceTextureUVFromRMuS(r, muS)
	return irradiance.Sample(u, v).Vec3()
}

// sampleScattering samples a packed 4D scattering texture, bilinearly
// interpolating between the two nearest nu slices. The table stores a finite
// nu resolution; skipping this interpolation produces visible banding in the
// sun aureole.
func sampleScattering(p *Parameters, tex *Texture3D, r, mu, muS, nu float64, intersectsGround bool) mgl64.Vec4 {
	uNu, uMuS, uMu, uR := p.ScatteringTextureUVWZFromRMuMuSNu(r, mu, muS, nu, intersectsGround)

	texCoordX := uNu * (ScatteringTextureNuSize - 1)
	texX := math.Floor(texCoordX)
	l := texCoordX - texX
	u0 := (texX + uMuS) / ScatteringTextureNuSize
	u1 := (texX + 1 + uMuS) / ScatteringTextureNuSize

	return lerp4(tex.Sample(u0, uMu, uR), tex.Sample(u1, uMu, uR), l)
}

// extrapolateSingleMie recovers the single-Mie spectrum from a combined
// scattering texel (Rayleigh+multiple in RGB, single-Mie red in alpha) using
// the scattering coefficient ratios. Defined as zero below the red-channel
// floor.
func extrapolateSingleMie(p *Parameters, combined mgl64.Vec4) mgl64.Vec3 {
	if combined[0] < singleMieExtrapolationFloor {
		return mgl64.Vec3{}
	}
	scale := combined[3] / combined[0] * (p.RayleighScattering[0] / p.MieScattering[0])
	ratio := mgl64.Vec3{
		p.MieScattering[0] / p.RayleighScattering[0],
		p.MieScattering[1] / p.RayleighScattering[1],
		p.MieScattering[2] / p.RayleighScattering[2],
	}
	return mulv(combined.Vec3(), ratio).Mul(scale)
}

// getCombinedScattering returns the combined (Rayleigh + multiple) scattering
// and the extrapolated single-Mie scattering for a RaySample.
func getCombinedScattering(p *Parameters, scattering *Texture3D, r, mu, muS, nu float64, intersectsGround bool) (combined, singleMie mgl64.Vec3) {
	texel := sampleScattering(p, scattering, r, mu, muS, nu, intersectsGround)
	return texel.Vec3(), extrapolateSingleMie(p, texel)
}

func smoothstep64(edge0, edge1, x float64) float64 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := math.Max(0, math.Min(1, (x-edge0)/(edge1-edge0)))
	return t * t * (3 - 2*t)
}
