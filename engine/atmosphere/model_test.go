package atmosphere

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constantTables builds a table set with uniform values, enough to exercise
// the evaluator's geometry without a full bake.
func constantTables(scattering mgl64.Vec4, transmittance, irradiance mgl64.Vec3) *Tables {
	trans := NewTexture2D(TransmittanceTextureWidth, TransmittanceTextureHeight)
	for i := range trans.texels {
		trans.texels[i] = mgl64.Vec4{transmittance[0], transmittance[1], transmittance[2], 1}
	}
	irr := NewTexture2D(IrradianceTextureWidth, IrradianceTextureHeight)
	for i := range irr.texels {
		irr.texels[i] = mgl64.Vec4{irradiance[0], irradiance[1], irradiance[2], 1}
	}
	scat := NewTexture3D(ScatteringTextureWidth, ScatteringTextureHeight, ScatteringTextureDepth)
	for i := range scat.texels {
		scat.texels[i] = scattering
	}
	return &Tables{Transmittance: trans, Scattering: scat, Irradiance: irr}
}

func newTestModel(t *testing.T) *modelImpl {
	t.Helper()
	m := NewModel().(*modelImpl)
	m.tables = constantTables(
		mgl64.Vec4{0.01, 0.02, 0.04, 0.002},
		mgl64.Vec3{0.8, 0.7, 0.5},
		mgl64.Vec3{0.1, 0.1, 0.12},
	)
	return m
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel().(*modelImpl)
	assert.Equal(t, 4, m.scatteringOrders)
	assert.Equal(t, 0.004, m.horizonNudge)
	assert.Nil(t, m.Tables())
	assert.Equal(t, EarthParameters().BottomRadius, m.Parameters().BottomRadius)
}

func TestNewModelOptions(t *testing.T) {
	m := NewModel(
		WithScatteringOrders(2),
		WithWorkers(3),
		WithHorizonNudge(0.01),
		WithMaxRayleighShadowLength(50000),
	).(*modelImpl)
	assert.Equal(t, 2, m.scatteringOrders)
	assert.Equal(t, 3, m.bakeWorkers)
	assert.Equal(t, 0.01, m.horizonNudge)
	assert.Equal(t, 50000.0, m.maxRayleighShadow)
}

func TestNewModelRejectsInvalidProfile(t *testing.T) {
	bad := EarthParameters()
	bad.TopRadius = bad.BottomRadius - 1
	assert.Panics(t, func() { NewModel(WithParameters(bad)) })
	assert.Panics(t, func() { NewModel(WithScatteringOrders(0)) })
}

func TestSkyRadianceAboveAtmosphere(t *testing.T) {
	m := newTestModel(t)
	p := m.Parameters()

	// A ray that never enters the atmosphere sees nothing and attenuates
	// nothing.
	camera := mgl64.Vec3{0, 0, p.TopRadius * 2}
	radiance, transmittance := m.SkyRadiance(camera, mgl64.Vec3{0, 0, 1}, 0, mgl64.Vec3{0, 0, 1})
	assert.Equal(t, mgl64.Vec3{}, radiance)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, transmittance)

	// A downward ray from space enters the shell and picks up in-scatter.
	radiance, _ = m.SkyRadiance(camera, mgl64.Vec3{0, 0, -1}, 0, mgl64.Vec3{0, 0, 1})
	assert.Greater(t, radiance.Len(), 0.0)
}

func TestSkyRadianceGroundRayZeroTransmittance(t *testing.T) {
	m := newTestModel(t)
	p := m.Parameters()

	camera := mgl64.Vec3{0, 0, p.BottomRadius + 1000}
	_, transmittance := m.SkyRadiance(camera, mgl64.Vec3{0, 0, -1}, 0, mgl64.Vec3{0, 0, 1})
	assert.Equal(t, mgl64.Vec3{}, transmittance)

	_, transmittance = m.SkyRadiance(camera, mgl64.Vec3{0, 0, 1}, 0, mgl64.Vec3{0, 0, 1})
	assert.Greater(t, transmittance.Len(), 0.0)
}

func TestSkyRadianceShadowLengthDimsSky(t *testing.T) {
	m := newTestModel(t)
	p := m.Parameters()

	camera := mgl64.Vec3{0, 0, p.BottomRadius + 1000}
	view := mgl64.Vec3{1, 0, 0.2}.Normalize()
	sun := mgl64.Vec3{0, 0, 1}

	lit, _ := m.SkyRadiance(camera, view, 0, sun)
	shadowed, _ := m.SkyRadiance(camera, view, 30000, sun)
	// The shadowed suffix contributes no in-scatter, so the shadowed sky is
	// never brighter than the lit one.
	assert.LessOrEqual(t, shadowed.Len(), lit.Len()+1e-12)
}

func TestSkyRadianceToPointSegment(t *testing.T) {
	m := newTestModel(t)
	p := m.Parameters()

	camera := mgl64.Vec3{0, 0, p.BottomRadius + 1000}
	point := mgl64.Vec3{20000, 0, p.BottomRadius + 1500}
	sun := mgl64.Vec3{0, 0, 1}

	radiance, transmittance := m.SkyRadianceToPoint(camera, point, 0, sun)
	for c := 0; c < 3; c++ {
		assert.GreaterOrEqual(t, radiance[c], 0.0)
		assert.GreaterOrEqual(t, transmittance[c], 0.0)
		assert.LessOrEqual(t, transmittance[c], 1.0)
	}
}

func TestSunAndSkyIrradiance(t *testing.T) {
	m := newTestModel(t)
	p := m.Parameters()

	point := mgl64.Vec3{0, 0, p.BottomRadius}
	up := mgl64.Vec3{0, 0, 1}
	sun := mgl64.Vec3{0, 0, 1}

	sunIrr, skyIrr := m.SunAndSkyIrradiance(point, up, sun)
	assert.Greater(t, sunIrr.Len(), 0.0)
	assert.Greater(t, skyIrr.Len(), 0.0)

	// A surface facing away from the sun gets no direct light, and a
	// downward-facing surface sees no sky dome.
	sunIrr, skyIrr = m.SunAndSkyIrradiance(point, mgl64.Vec3{0, 0, -1}, sun)
	assert.Equal(t, mgl64.Vec3{}, sunIrr)
	assert.InDelta(t, 0.0, skyIrr.Len(), 1e-12)
}

func TestBakeCancellation(t *testing.T) {
	m := NewModel(WithWorkers(1)).(*modelImpl)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Bake(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, m.Tables())
}
