package atmosphere

import (
	"math"
)

// mapping.go implements the texture coordinate parameterization of the
// precomputed tables. The mappings are part of the bake/sample contract, not
// an internal detail: the bake kernels invert exactly what the evaluator (and
// any GPU shader sampling the uploaded tables) computes, so both sides must
// agree bit-for-bit. The zenith-cosine axis bifurcates at the horizon into a
// ray-hits-ground half and a ray-escapes half, each parameterized by distance
// to the respective boundary; this is what keeps the tables stable at grazing
// angles and it must not be simplified away.

// TextureCoordFromUnitRange maps a unit-range value to a texture coordinate
// that lands on texel centers: 0.5/size + x*(1 - 1/size). Used both when
// baking and when sampling so table lookups never interpolate past the edge
// texels.
//
// Parameters:
//   - x: value in [0, 1]
//   - size: texture size in texels along the mapped axis
//
// Returns:
//   - float64: the texture coordinate in [0.5/size, 1 - 0.5/size]
func TextureCoordFromUnitRange(x float64, size int) float64 {
	return 0.5/float64(size) + x*(1.0-1.0/float64(size))
}

// UnitRangeFromTextureCoord is the exact inverse of TextureCoordFromUnitRange.
//
// Parameters:
//   - u: texture coordinate
//   - size: texture size in texels along the mapped axis
//
// Returns:
//   - float64: the unit-range value
func UnitRangeFromTextureCoord(u float64, size int) float64 {
	return (u - 0.5/float64(size)) / (1.0 - 1.0/float64(size))
}

func clampCosine(mu float64) float64 {
	return math.Max(-1, math.Min(1, mu))
}

func clampDistance(d float64) float64 {
	return math.Max(d, 0)
}

func (p *Parameters) clampRadius(r float64) float64 {
	return math.Max(p.BottomRadius, math.Min(p.TopRadius, r))
}

func safeSqrt(a float64) float64 {
	return math.Sqrt(math.Max(a, 0))
}

// distanceUnitRange maps a distance d in [dMin, dMax] to [0, 1]. The
// degenerate dMax == dMin interval is defined as coordinate 0 so the quadratic
// root formulas feeding d can never produce NaN here.
func distanceUnitRange(d, dMin, dMax float64) float64 {
	if dMax == dMin {
		return 0
	}
	return (d - dMin) / (dMax - dMin)
}

// DistanceToTopAtmosphereBoundary returns the distance along the ray (r, mu)
// to the top atmosphere boundary. The ray must not be below the surface
// pointing into it; the result is clamped to be non-negative.
//
// Parameters:
//   - r: distance from planet center (bottom <= r <= top)
//   - mu: cosine of the view zenith angle, in [-1, 1]
//
// Returns:
//   - float64: the distance to the top boundary in meters
func (p *Parameters) DistanceToTopAtmosphereBoundary(r, mu float64) float64 {
	discriminant := r*r*(mu*mu-1) + p.TopRadius*p.TopRadius
	return clampDistance(-r*mu + safeSqrt(discriminant))
}

// DistanceToBottomAtmosphereBoundary returns the distance along the ray
// (r, mu) to the planet surface. Only meaningful when the ray intersects the
// ground; the result is clamped to be non-negative.
//
// Parameters:
//   - r: distance from planet center (bottom <= r <= top)
//   - mu: cosine of the view zenith angle, in [-1, 1]
//
// Returns:
//   - float64: the distance to the bottom boundary in meters
func (p *Parameters) DistanceToBottomAtmosphereBoundary(r, mu float64) float64 {
	discriminant := r*r*(mu*mu-1) + p.BottomRadius*p.BottomRadius
	return clampDistance(-r*mu - safeSqrt(discriminant))
}

// distanceToNearestAtmosphereBoundary returns the distance to the surface when
// the ray hits it, otherwise to the top boundary.
func (p *Parameters) distanceToNearestAtmosphereBoundary(r, mu float64, intersectsGround bool) float64 {
	if intersectsGround {
		return p.DistanceToBottomAtmosphereBoundary(r, mu)
	}
	return p.DistanceToTopAtmosphereBoundary(r, mu)
}

// RayIntersectsGround reports whether the ray (r, mu) hits the planet surface.
//
// Parameters:
//   - r: distance from planet center (bottom <= r <= top)
//   - mu: cosine of the view zenith angle, in [-1, 1]
//
// Returns:
//   - bool: true if the ray intersects the ground
func (p *Parameters) RayIntersectsGround(r, mu float64) bool {
	return mu < 0 && r*r*(mu*mu-1)+p.BottomRadius*p.BottomRadius >= 0
}

// TransmittanceTextureUVFromRMu maps (r, mu) to transmittance table UV
// coordinates. The mu axis is parameterized by distance to the top boundary
// between its minimum (looking straight up) and maximum (grazing the horizon)
// values, which distributes precision toward the horizon.
//
// Parameters:
//   - r: distance from planet center (bottom <= r <= top)
//   - mu: cosine of the view zenith angle, in [-1, 1]
//
// Returns:
//   - u, v: normalized transmittance texture coordinates
func (p *Parameters) TransmittanceTextureUVFromRMu(r, mu float64) (u, v float64) {
	// Distances to the top boundary for a horizontal ray at ground level and
	// from radius r, both measured from the horizon tangent point.
	H := safeSqrt(p.TopRadius*p.TopRadius - p.BottomRadius*p.BottomRadius)
	rho := safeSqrt(r*r - p.BottomRadius*p.BottomRadius)

	d := p.DistanceToTopAtmosphereBoundary(r, mu)
	dMin := p.TopRadius - r
	dMax := rho + H
	xMu := distanceUnitRange(d, dMin, dMax)
	xR := rho / H
	return TextureCoordFromUnitRange(xMu, TransmittanceTextureWidth),
		TextureCoordFromUnitRange(xR, TransmittanceTextureHeight)
}

// RMuFromTransmittanceTextureUV is the inverse of TransmittanceTextureUVFromRMu,
// used by the bake kernel to recover the (r, mu) pair a texel stands for.
//
// Parameters:
//   - u, v: normalized transmittance texture coordinates
//
// Returns:
//   - r: distance from planet center
//   - mu: cosine of the view zenith angle
func (p *Parameters) RMuFromTransmittanceTextureUV(u, v float64) (r, mu float64) {
	xMu := UnitRangeFromTextureCoord(u, TransmittanceTextureWidth)
	xR := UnitRangeFromTextureCoord(v, TransmittanceTextureHeight)

	H := safeSqrt(p.TopRadius*p.TopRadius - p.BottomRadius*p.BottomRadius)
	rho := H * xR
	r = math.Sqrt(rho*rho + p.BottomRadius*p.BottomRadius)

	dMin := p.TopRadius - r
	dMax := rho + H
	d := dMin + xMu*(dMax-dMin)
	if d == 0 {
		mu = 1
	} else {
		mu = (H*H - rho*rho - d*d) / (2 * r * d)
	}
	return r, clampCosine(mu)
}

// ScatteringTextureUVWZFromRMuMuSNu maps a RaySample (r, mu, mu_s, nu) to the
// four normalized coordinates of the packed scattering table. The mu axis
// splits at the horizon: rays hitting the ground map into [0, 0.5) by distance
// to the surface, escaping rays map into (0.5, 1] by distance to the top
// boundary.
//
// Parameters:
//   - r: distance from planet center (bottom <= r <= top)
//   - mu: cosine of the view zenith angle, in [-1, 1]
//   - muS: cosine of the sun zenith angle, in [-1, 1]
//   - nu: cosine of the view-sun angle, in [-1, 1]
//   - intersectsGround: whether the view ray hits the surface
//
// Returns:
//   - uNu, uMuS, uMu, uR: normalized coordinates (nu, mu_s, mu, r axes)
func (p *Parameters) ScatteringTextureUVWZFromRMuMuSNu(r, mu, muS, nu float64, intersectsGround bool) (uNu, uMuS, uMu, uR float64) {
	H := safeSqrt(p.TopRadius*p.TopRadius - p.BottomRadius*p.BottomRadius)
	rho := safeSqrt(r*r - p.BottomRadius*p.BottomRadius)
	uR = TextureCoordFromUnitRange(rho/H, ScatteringTextureRSize)

	// Discriminant of the intersection of the ray (r, mu) with the ground.
	rMu := r * mu
	discriminant := rMu*rMu - r*r + p.BottomRadius*p.BottomRadius
	if intersectsGround {
		// Distance to the ground, between its minimum (straight down) and
		// maximum (horizon-grazing) values over all mu for this r.
		d := -rMu - safeSqrt(discriminant)
		dMin := r - p.BottomRadius
		dMax := rho
		uMu = 0.5 - 0.5*TextureCoordFromUnitRange(distanceUnitRange(d, dMin, dMax), ScatteringTextureMuSize/2)
	} else {
		// Distance to the top boundary, same construction on the other side of
		// the horizon.
		d := -rMu + safeSqrt(discriminant+H*H)
		dMin := p.TopRadius - r
		dMax := rho + H
		uMu = 0.5 + 0.5*TextureCoordFromUnitRange(distanceUnitRange(d, dMin, dMax), ScatteringTextureMuSize/2)
	}

	d := p.DistanceToTopAtmosphereBoundary(p.BottomRadius, muS)
	dMin := p.TopRadius - p.BottomRadius
	dMax := H
	a := distanceUnitRange(d, dMin, dMax)
	bigD := p.DistanceToTopAtmosphereBoundary(p.BottomRadius, p.MuSMin)
	bigA := distanceUnitRange(bigD, dMin, dMax)
	// A non-linear mapping concentrating texels toward mu_s = 1, with the
	// table edge pinned at mu_s_min.
	uMuS = TextureCoordFromUnitRange(math.Max(1-a/bigA, 0)/(1+a), ScatteringTextureMuSSize)

	uNu = (nu + 1) / 2
	return uNu, uMuS, uMu, uR
}

// RMuMuSNuFromScatteringTextureUVWZ inverts ScatteringTextureUVWZFromRMuMuSNu.
//
// Parameters:
//   - uNu, uMuS, uMu, uR: normalized coordinates (nu, mu_s, mu, r axes)
//
// Returns:
//   - r, mu, muS, nu: the reconstructed RaySample
//   - intersectsGround: whether the reconstructed ray hits the surface
func (p *Parameters) RMuMuSNuFromScatteringTextureUVWZ(uNu, uMuS, uMu, uR float64) (r, mu, muS, nu float64, intersectsGround bool) {
	H := safeSqrt(p.TopRadius*p.TopRadius - p.BottomRadius*p.BottomRadius)
	rho := H * UnitRangeFromTextureCoord(uR, ScatteringTextureRSize)
	r = math.Sqrt(rho*rho + p.BottomRadius*p.BottomRadius)

	if uMu < 0.5 {
		dMin := r - p.BottomRadius
		dMax := rho
		d := dMin + (dMax-dMin)*UnitRangeFromTextureCoord(1-2*uMu, ScatteringTextureMuSize/2)
		if d == 0 {
			mu = -1
		} else {
			mu = clampCosine(-(rho*rho + d*d) / (2 * r * d))
		}
		intersectsGround = true
	} else {
		dMin := p.TopRadius - r
		dMax := rho + H
		d := dMin + (dMax-dMin)*UnitRangeFromTextureCoord(2*uMu-1, ScatteringTextureMuSize/2)
		if d == 0 {
			mu = 1
		} else {
			mu = clampCosine((H*H - rho*rho - d*d) / (2 * r * d))
		}
		intersectsGround = false
	}

	xMuS := UnitRangeFromTextureCoord(uMuS, ScatteringTextureMuSSize)
	dMin := p.TopRadius - p.BottomRadius
	dMax := H
	bigD := p.DistanceToTopAtmosphereBoundary(p.BottomRadius, p.MuSMin)
	bigA := distanceUnitRange(bigD, dMin, dMax)
	a := (bigA - xMuS*bigA) / (1 + xMuS*bigA)
	d := dMin + math.Min(a, bigA)*(dMax-dMin)
	if d == 0 {
		muS = 1
	} else {
		muS = clampCosine((H*H - d*d) / (2 * p.BottomRadius * d))
	}

	nu = clampCosine(uNu*2 - 1)
	return r, mu, muS, nu, intersectsGround
}

// rMuMuSNuFromScatteringTexel recovers the RaySample for a bake texel. The nu
// and mu_s axes share the texture width (nu-major); nu is additionally clamped
// to the range physically consistent with (mu, mu_s), which resolves the sign
// ambiguity in reconstructing the view-sun angle.
func (p *Parameters) rMuMuSNuFromScatteringTexel(x, y, z int) (r, mu, muS, nu float64, intersectsGround bool) {
	texelNu := math.Floor(float64(x) / ScatteringTextureMuSSize)
	texelMuS := math.Mod(float64(x), ScatteringTextureMuSSize)

	uNu := texelNu / (ScatteringTextureNuSize - 1)
	uMuS := (texelMuS + 0.5) / ScatteringTextureMuSSize
	uMu := (float64(y) + 0.5) / ScatteringTextureMuSize
	uR := (float64(z) + 0.5) / ScatteringTextureRSize

	r, mu, muS, nu, intersectsGround = p.RMuMuSNuFromScatteringTextureUVWZ(uNu, uMuS, uMu, uR)
	s := math.Sqrt((1 - mu*mu) * (1 - muS*muS))
	nu = math.Max(mu*muS-s, math.Min(mu*muS+s, nu))
	return r, mu, muS, nu, intersectsGround
}

// IrradianceTextureUVFromRMuS maps (r, mu_s) to irradiance table UV coordinates.
//
// Parameters:
//   - r: distance from planet center (bottom <= r <= top)
//   - muS: cosine of the sun zenith angle, in [-1, 1]
//
// Returns:
//   - u, v: normalized irradiance texture coordinates
func (p *Parameters) IrradianceTextureUVFromRMuS(r, muS float64) (u, v float64) {
	xR := (r - p.BottomRadius) / (p.TopRadius - p.BottomRadius)
	xMuS := muS*0.5 + 0.5
	return TextureCoordFromUnitRange(xMuS, IrradianceTextureWidth),
		TextureCoordFromUnitRange(xR, IrradianceTextureHeight)
}

// RMuSFromIrradianceTextureUV is the inverse of IrradianceTextureUVFromRMuS.
//
// Parameters:
//   - u, v: normalized irradiance texture coordinates
//
// Returns:
//   - r: distance from planet center
//   - muS: cosine of the sun zenith angle
func (p *Parameters) RMuSFromIrradianceTextureUV(u, v float64) (r, muS float64) {
	xMuS := UnitRangeFromTextureCoord(u, IrradianceTextureWidth)
	xR := UnitRangeFromTextureCoord(v, IrradianceTextureHeight)
	r = p.BottomRadius + xR*(p.TopRadius-p.BottomRadius)
	muS = clampCosine(2*xMuS - 1)
	return r, muS
}
