package shadow

import (
	"math"
	"testing"

	"github.com/strato-gfx/strato-go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCamera(x, y, z float32) CameraState {
	cam := CameraState{
		FovY:   float32(math.Pi / 3),
		Aspect: 16.0 / 9.0,
		Near:   0.1,
		Far:    1000,
	}
	common.Identity(cam.InvView[:])
	cam.InvView[12], cam.InvView[13], cam.InvView[14] = x, y, z
	return cam
}

func normalize(v [3]float32) [3]float32 {
	l := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}

func TestNewCSMDefaults(t *testing.T) {
	c := NewCSM()
	assert.Equal(t, MaxCascades, c.Count())
	assert.Equal(t, DefaultMapSize, c.MapSize())
	assert.False(t, c.NeedsReallocation())
	assert.False(t, c.DisableLastCascadeCutoff())

	impl := c.(*csmImpl)
	assert.Equal(t, SplitPractical, impl.mode)
	assert.Equal(t, float32(0.5), impl.lambda)
	assert.True(t, impl.fade)
}

func TestNewCSMOptions(t *testing.T) {
	c := NewCSM(
		WithCascadeCount(2),
		WithMapSize(512),
		WithSplitMode(SplitUniform),
		WithLambda(0.8),
		WithMargin(10),
		WithFade(false),
		WithMaxShadowDistance(200),
		WithDisableLastCascadeCutoff(true),
	)
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, 512, c.MapSize())
	assert.True(t, c.DisableLastCascadeCutoff())

	impl := c.(*csmImpl)
	assert.Equal(t, SplitUniform, impl.mode)
	assert.Equal(t, float32(200), impl.maxFar)
	assert.False(t, impl.fade)
}

func TestNewCSMPanics(t *testing.T) {
	assert.Panics(t, func() { NewCSM(WithCascadeCount(0)) })
	assert.Panics(t, func() { NewCSM(WithCascadeCount(MaxCascades + 1)) })
	assert.Panics(t, func() { NewCSM(WithMapSize(0)) })
	assert.Panics(t, func() { NewCSM(WithLambda(1.5)) })
	assert.Panics(t, func() { NewCSM(WithMargin(-1)) })
	assert.Panics(t, func() { NewCSM(WithMaxShadowDistance(0)) })
}

func TestCSMUpdateFitsCascades(t *testing.T) {
	c := NewCSM(WithMapSize(1024), WithFade(false))
	cam := testCamera(0, 100, 0)
	light := normalize([3]float32{0.3, 0.9, 0.2})
	c.Update(cam, light)

	cascades := c.Cascades()
	require.Len(t, cascades, MaxCascades)

	// The shadowed range is capped below the camera far plane.
	assert.Equal(t, float32(500), cascades[MaxCascades-1].SplitDepth)
	prev := cam.Near
	for i, cas := range cascades {
		assert.Greater(t, cas.SplitDepth, prev, "cascade %d", i)
		assert.Greater(t, cas.TexelSize, float32(0), "cascade %d", i)
		prev = cas.SplitDepth
	}

	// Every corner of each cascade's world-space sub-frustum must land inside
	// the light's clip box. Texel snapping can push the fit off by up to one
	// texel on every axis, depth included.
	near := cam.Near
	for i, cas := range cascades {
		var f FrustumCorners
		f.SetFromCamera(cam.FovY, cam.Aspect, near, cas.SplitDepth)
		f.Transform(cam.InvView[:])

		eps := 2.0/1024.0 + 1e-4
		for j, p := range f.Points {
			x, y, z, w := common.TransformPoint4(cas.ViewProj[:], p[0], p[1], p[2])
			require.NotZero(t, w)
			x, y, z = x/w, y/w, z/w
			assert.LessOrEqual(t, float64(x), 1+eps, "cascade %d corner %d", i, j)
			assert.GreaterOrEqual(t, float64(x), -1-eps, "cascade %d corner %d", i, j)
			assert.LessOrEqual(t, float64(y), 1+eps, "cascade %d corner %d", i, j)
			assert.GreaterOrEqual(t, float64(y), -1-eps, "cascade %d corner %d", i, j)
			assert.LessOrEqual(t, float64(z), 1+eps, "cascade %d corner %d", i, j)
			assert.GreaterOrEqual(t, float64(z), -1e-4, "cascade %d corner %d", i, j)
		}
		near = cas.SplitDepth
	}
}

func TestCSMTexelSnapping(t *testing.T) {
	c := NewCSM(WithMapSize(1024))
	light := [3]float32{0, 1, 0}

	c.Update(testCamera(0, 50, 0), light)
	first := c.Cascades()[0]
	texel := first.TexelSize

	// Shift the camera by a fraction of a texel perpendicular to the light.
	c.Update(testCamera(0.37*texel, 50, 0), light)
	second := c.Cascades()[0]

	// The projection of a fixed world point may only move by whole texels.
	px, _, _, pw := common.TransformPoint4(first.ViewProj[:], 1, 2, 3)
	qx, _, _, qw := common.TransformPoint4(second.ViewProj[:], 1, 2, 3)
	ndcTexel := 2.0 / 1024.0
	shift := float64(px/pw-qx/qw) / ndcTexel
	assert.InDelta(t, math.Round(shift), shift, 1e-3, "sub-texel camera motion must not move shadow texels")

	// Shift the camera by a fraction of a texel along the light axis. Depth
	// snapping quantizes the eye placement too, so the shadow camera's world
	// position may only move by whole texels along the light.
	c.Update(testCamera(0, 50+0.4*texel, 0), light)
	third := c.Cascades()[0]
	assert.Equal(t, first.LightPosition[0], third.LightPosition[0])
	assert.Equal(t, first.LightPosition[2], third.LightPosition[2])
	axial := float64((third.LightPosition[1] - first.LightPosition[1]) / texel)
	assert.InDelta(t, math.Round(axial), axial, 1e-3, "sub-texel motion along the light must not move the shadow camera")
}

func TestCSMCasterFrustum(t *testing.T) {
	c := NewCSM(WithMapSize(1024))
	cam := testCamera(0, 100, 0)
	light := normalize([3]float32{0.2, 0.9, 0.1})
	c.Update(cam, light)

	near := cam.Near
	for i, cas := range c.Cascades() {
		f := c.CasterFrustum(i)

		// The midpoint of the cascade's view slice sits inside its frustum.
		mid := -(near + cas.SplitDepth) / 2
		assert.True(t, f.ContainsSphere(0, 100, mid, 1), "cascade %d", i)

		// A caster far behind the camera, opposite the shadowed range, is out.
		assert.False(t, f.ContainsSphere(0, 100, 100000, 1), "cascade %d", i)
		near = cas.SplitDepth
	}

	assert.Panics(t, func() { c.CasterFrustum(-1) })
	assert.Panics(t, func() { c.CasterFrustum(c.Count()) })
}

func TestCSMReallocation(t *testing.T) {
	c := NewCSM()
	assert.False(t, c.NeedsReallocation())

	c.SetMapSize(1024)
	assert.True(t, c.NeedsReallocation())
	c.AckReallocation()
	assert.False(t, c.NeedsReallocation())

	c.SetCascadeCount(2)
	assert.True(t, c.NeedsReallocation())
	c.AckReallocation()

	// Same values and non-allocating settings leave the flag clear.
	c.SetMapSize(1024)
	c.SetCascadeCount(2)
	c.SetLambda(0.3)
	c.SetSplitMode(SplitUniform)
	c.SetMargin(20)
	assert.False(t, c.NeedsReallocation())
}

func TestCSMSettingsInvalidateSplits(t *testing.T) {
	c := NewCSM(WithSplitMode(SplitPractical))
	cam := testCamera(0, 10, 0)
	light := [3]float32{0, 1, 0}

	c.Update(cam, light)
	assert.False(t, c.(*csmImpl).needsUpdateFrusta)
	before := c.Cascades()[0].SplitDepth

	c.SetLambda(0)
	assert.True(t, c.(*csmImpl).needsUpdateFrusta)
	c.Update(cam, light)
	after := c.Cascades()[0].SplitDepth
	assert.NotEqual(t, before, after, "lambda change must reshape the splits")

	// A camera projection change also invalidates the cached frusta.
	wide := cam
	wide.Far = 300
	c.Update(wide, light)
	assert.Equal(t, float32(300), c.Cascades()[c.Count()-1].SplitDepth)
}

func TestCSMSetterPanics(t *testing.T) {
	c := NewCSM()
	assert.Panics(t, func() { c.SetCascadeCount(0) })
	assert.Panics(t, func() { c.SetMapSize(-1) })
	assert.Panics(t, func() { c.SetLambda(-0.5) })
	assert.Panics(t, func() { c.SetMargin(-3) })
}
