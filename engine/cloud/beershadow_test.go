package cloud

import (
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeerShadowMapAllocation(t *testing.T) {
	b := NewBeerShadowMap(64, 3)
	assert.Equal(t, 64, b.Size())
	assert.Equal(t, 3, b.Cascades())

	assert.Panics(t, func() { NewBeerShadowMap(0, 1) })
	assert.Panics(t, func() { NewBeerShadowMap(64, 0) })
	assert.Panics(t, func() { NewBeerShadowMap(64, MaxCascades+1) })
}

func TestBeerShadowMapTransmittance(t *testing.T) {
	b := NewBeerShadowMap(4, 1)
	b.texels[0] = Result{FrontDepth: 1000, MeanExtinction: 0.01, MaxOpticalDepth: 5, Valid: 1}

	// Lit before the recorded front depth.
	assert.Equal(t, 1.0, b.Transmittance(0, 0, 0, 500))
	// Penumbra: optical depth ramps with the mean extinction past the front.
	assert.InDelta(t, math.Exp(-0.01*100), b.Transmittance(0, 0, 0, 1100), 1e-12)
	// Saturates at the recorded maximum optical depth.
	assert.InDelta(t, math.Exp(-5), b.Transmittance(0, 0, 0, 1e6), 1e-12)

	// Invalid texels are fully lit.
	assert.Equal(t, 1.0, b.Transmittance(0, 1, 0, 1e6))
}

func TestBeerShadowMapShadowLength(t *testing.T) {
	b := NewBeerShadowMap(4, 1)
	b.texels[0] = Result{FrontDepth: 1000, MeanExtinction: 0.01, MaxOpticalDepth: 5, Valid: 1}

	assert.Equal(t, 0.0, b.ShadowLength(0, 0, 0, 800))
	assert.InDelta(t, 200, b.ShadowLength(0, 0, 0, 1200), 1e-12)
	// Capped at the span the march actually observed.
	assert.InDelta(t, 500, b.ShadowLength(0, 0, 0, 1e6), 1e-12)
	assert.Equal(t, 0.0, b.ShadowLength(0, 1, 0, 1e6))
}

func TestBeerShadowMapRender(t *testing.T) {
	// Sun directly overhead, orthographic footprint over the layer.
	m := NewMarcher(WithMaxRayDistance(30000))
	layer := NewLayer(1000, 3000)
	field := &uniformField{density: 1e-3}
	b := NewBeerShadowMap(8, 2)

	// The inverse view-projection drops texels onto a plane above the band,
	// rays then march down along -sunDir.
	invViewProj := orthoPlacementMatrix(20000, testBottomRadius+5000)
	cascade := &Cascade{Near: 0, Far: 30000, InvViewProj: invViewProj}

	b.Render(cascade, 1, m, layer, field, testBottomRadius, mgl64.Vec3{0, 0, 1}, 2)

	// Every texel marched through the uniform band and found cloud matter.
	for y := 0; y < b.Size(); y++ {
		for x := 0; x < b.Size(); x++ {
			r := b.At(1, x, y)
			require.Equal(t, 1.0, r.Valid, "texel (%d,%d)", x, y)
			assert.Greater(t, r.MaxOpticalDepth, 0.0)
		}
	}
	// The untouched layer stays zeroed.
	assert.Equal(t, Result{}, b.At(0, 0, 0))

	assert.Panics(t, func() {
		b.Render(cascade, 2, m, layer, field, testBottomRadius, mgl64.Vec3{0, 0, 1}, 1)
	})
}

// orthoPlacementMatrix builds an inverse view-projection that maps NDC
// (x, y, 0) to world points on the z = height plane over a footprint of the
// given extent.
func orthoPlacementMatrix(extent, height float64) mgl64.Mat4 {
	m := mgl64.Ident4()
	m.Set(0, 0, extent)
	m.Set(1, 1, extent)
	m.Set(2, 3, height)
	return m
}

func TestBeerShadowMapStaging(t *testing.T) {
	b := NewBeerShadowMap(4, 2)
	b.texels[5] = Result{FrontDepth: 1, MeanExtinction: 2, MaxOpticalDepth: 3, Valid: 1}

	staging := b.Staging()
	require.Equal(t, wgpu.TextureFormatRGBA32Float, staging.Format)
	assert.Equal(t, wgpu.TextureDimension2D, staging.Dimension)
	assert.Equal(t, uint32(2), staging.DepthOrLayers)
	require.Len(t, staging.Texels, 4*4*2*16)
}
