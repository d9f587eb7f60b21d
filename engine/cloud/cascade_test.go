package cloud

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCascadeSetInvariants(t *testing.T) {
	set := NewCascadeSet([]Cascade{
		{Near: 0, Far: 1000},
		{Near: 1000, Far: 5000},
		{Near: 5000, Far: 30000},
	})
	assert.Equal(t, 3, set.Count())
	assert.Equal(t, 1000.0, set.Cascade(1).Near)

	// Empty, oversized, inverted, and gapped sets all violate construction
	// invariants.
	assert.Panics(t, func() { NewCascadeSet(nil) })
	assert.Panics(t, func() {
		NewCascadeSet([]Cascade{{0, 1, mgl64.Mat4{}, mgl64.Mat4{}, mgl64.Mat4{}, 0}, {1, 2, mgl64.Mat4{}, mgl64.Mat4{}, mgl64.Mat4{}, 0}, {2, 3, mgl64.Mat4{}, mgl64.Mat4{}, mgl64.Mat4{}, 0}, {3, 4, mgl64.Mat4{}, mgl64.Mat4{}, mgl64.Mat4{}, 0}, {4, 5, mgl64.Mat4{}, mgl64.Mat4{}, mgl64.Mat4{}, 0}})
	})
	assert.Panics(t, func() { NewCascadeSet([]Cascade{{Near: 100, Far: 100}}) })
	assert.Panics(t, func() {
		NewCascadeSet([]Cascade{{Near: 0, Far: 1000}, {Near: 2000, Far: 3000}})
	})
}

func TestCascadeUpdateCapturesReprojection(t *testing.T) {
	set := NewCascadeSet([]Cascade{{Near: 0, Far: 1000}})

	first := mgl64.Ident4()
	set.Update(0, first)
	second := mgl64.Scale3D(2, 2, 2).Mul4(mgl64.Ident4())
	set.Update(0, second)

	c := set.Cascade(0)
	assert.Equal(t, first, c.Reprojection)
	assert.Equal(t, second, c.ViewProj)
	// The inverse is kept in sync for ray generation.
	assert.Equal(t, second.Inv(), c.InvViewProj)
}

func TestVelocity(t *testing.T) {
	c := &Cascade{Reprojection: mgl64.Ident4()}

	// Identity reprojection puts the world origin at screen center; the
	// velocity is the UV delta from there.
	v, ok := Velocity(c, mgl64.Vec2{0.6, 0.5}, mgl64.Vec3{0, 0, 0})
	require.True(t, ok)
	assert.InDelta(t, 0.1, v[0], 1e-12)
	assert.InDelta(t, 0.0, v[1], 1e-12)

	// A point behind the previous camera rejects history.
	behind := &Cascade{}
	behind.Reprojection.Set(3, 3, -1)
	_, ok = Velocity(behind, mgl64.Vec2{0.5, 0.5}, mgl64.Vec3{0, 0, 0})
	assert.False(t, ok)
}

func TestDepthOccluder(t *testing.T) {
	// Camera at the origin looking down -Z with an orthographic [0, 1] depth
	// range over view depths [1, 101]; the depth buffer reads a constant 0.5,
	// placing opaque geometry at view depth 51.
	proj := mgl64.Ident4()
	proj.Set(0, 0, 1.0/10)
	proj.Set(1, 1, 1.0/10)
	proj.Set(2, 2, -1.0/100)
	proj.Set(2, 3, -1.0/100)
	o := NewDepthOccluder(mgl64.Ident4(), proj, func(u, v float64) float64 { return 0.5 })

	// Behind the recorded depth: occluded.
	assert.True(t, o.Occluded(mgl64.Vec3{0, 0, -60}))
	// In front of it: visible.
	assert.False(t, o.Occluded(mgl64.Vec3{0, 0, -40}))
	// Outside the frustum: never occluded, the march continues off-screen.
	assert.False(t, o.Occluded(mgl64.Vec3{200, 0, -60}))
	// Behind the camera: never occluded.
	assert.False(t, o.Occluded(mgl64.Vec3{0, 0, 60}))
}
