package camera

import (
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strato-gfx/strato-go/common"
)

func TestNewCameraDefaults(t *testing.T) {
	c := NewCamera()

	x, y, z := c.Position()
	assert.Equal(t, float32(0), x)
	assert.Equal(t, float32(0), y)
	assert.Equal(t, float32(0), z)

	assert.InDelta(t, 45.0*(math.Pi/180.0), float64(c.Fov()), 1e-6)
	assert.Equal(t, float32(1.0), c.Aspect())
	assert.Equal(t, float32(0.1), c.Near())
	assert.Equal(t, float32(50000.0), c.Far())
	assert.NotNil(t, c.BindGroupProvider())
}

func TestCameraLookAt(t *testing.T) {
	c := NewCamera()
	c.LookAt(0, 2, 10, 0, 0, 0)

	x, y, z := c.Position()
	assert.Equal(t, float32(0), x)
	assert.Equal(t, float32(2), y)
	assert.Equal(t, float32(10), z)

	tx, ty, tz := c.Target()
	assert.Equal(t, float32(0), tx)
	assert.Equal(t, float32(0), ty)
	assert.Equal(t, float32(0), tz)

	// The eye must map to the view-space origin.
	view := c.ViewMatrix()
	px, py, pz, _ := common.TransformPoint4(view[:], 0, 2, 10)
	assert.InDelta(t, 0, float64(px), 1e-5)
	assert.InDelta(t, 0, float64(py), 1e-5)
	assert.InDelta(t, 0, float64(pz), 1e-5)
}

func TestCameraViewProjectionConsistency(t *testing.T) {
	c := NewCamera(
		WithPosition(3, 1, 8),
		WithTarget(0, 0, 0),
		WithAspect(16.0/9.0),
	)

	view := c.ViewMatrix()
	proj := c.ProjectionMatrix()
	var expected [16]float32
	common.Mul4(expected[:], proj[:], view[:])

	got := c.ViewProjectionMatrix()
	for i := range expected {
		assert.InDelta(t, float64(expected[i]), float64(got[i]), 1e-5)
	}
}

func TestCameraInverseViewMatrix(t *testing.T) {
	c := NewCamera(
		WithPosition(5, 3, -2),
		WithTarget(1, 0, 4),
	)

	view := c.ViewMatrix()
	inv := c.InverseViewMatrix()

	var product [16]float32
	common.Mul4(product[:], inv[:], view[:])

	for i := range 16 {
		want := 0.0
		if i%5 == 0 {
			want = 1.0
		}
		assert.InDelta(t, want, float64(product[i]), 1e-4)
	}
}

func TestCameraInverseViewProjectionRoundTrip(t *testing.T) {
	c := NewCamera(
		WithPosition(0, 500, 0),
		WithTarget(1000, 400, 0),
		WithNear(1),
		WithFar(40000),
	)

	vp := c.ViewProjectionMatrix()
	inv := c.InverseViewProjectionMatrix()

	// A world point in front of the camera must survive the clip round trip.
	wx, wy, wz := float32(800), float32(450), float32(30)
	cx, cy, cz, cw := common.TransformPoint4(vp[:], wx, wy, wz)
	require.NotZero(t, cw)

	rx, ry, rz, rw := common.TransformPoint4(inv[:], cx/cw, cy/cw, cz/cw)
	require.NotZero(t, rw)
	assert.InDelta(t, float64(wx), float64(rx/rw), 0.5)
	assert.InDelta(t, float64(wy), float64(ry/rw), 0.5)
	assert.InDelta(t, float64(wz), float64(rz/rw), 0.5)
}

func TestCameraSettersRecompute(t *testing.T) {
	c := NewCamera()
	before := c.ProjectionMatrix()

	c.SetFov(60.0 * (math.Pi / 180.0))
	after := c.ProjectionMatrix()
	assert.NotEqual(t, before, after)

	before = c.ViewMatrix()
	c.SetPosition(0, 10, 0)
	after = c.ViewMatrix()
	assert.NotEqual(t, before, after)
}

func TestCameraGeocentricPosition(t *testing.T) {
	c := NewCamera(WithPosition(100, 250, -40))

	p := c.GeocentricPosition(6360000.0)
	assert.InDelta(t, 100, p[0], 1e-9)
	assert.InDelta(t, 6360250, p[1], 1e-9)
	assert.InDelta(t, -40, p[2], 1e-9)
}

func TestGPUCameraUniformLayout(t *testing.T) {
	var u GPUCameraUniform
	require.Equal(t, 160, u.Size())

	assert.Equal(t, uintptr(0), unsafe.Offsetof(u.ViewProj))
	assert.Equal(t, uintptr(64), unsafe.Offsetof(u.InvViewProj))
	assert.Equal(t, uintptr(128), unsafe.Offsetof(u.CameraPosition))
	assert.Equal(t, uintptr(140), unsafe.Offsetof(u.Near))
	assert.Equal(t, uintptr(144), unsafe.Offsetof(u.Far))
}

func TestGPUCameraUniformMarshal(t *testing.T) {
	c := NewCamera(
		WithPosition(10, 20, 30),
		WithNear(0.5),
		WithFar(12000),
	)
	u := c.GPU()

	buf := u.Marshal()
	require.Len(t, buf, 160)

	assert.InDelta(t, 10, float64(readF32(buf, 128)), 1e-6)
	assert.InDelta(t, 20, float64(readF32(buf, 132)), 1e-6)
	assert.InDelta(t, 30, float64(readF32(buf, 136)), 1e-6)
	assert.InDelta(t, 0.5, float64(readF32(buf, 140)), 1e-6)
	assert.InDelta(t, 12000, float64(readF32(buf, 144)), 1e-6)

	vp := c.ViewProjectionMatrix()
	assert.InDelta(t, float64(vp[0]), float64(readF32(buf, 0)), 1e-6)
	assert.InDelta(t, float64(vp[15]), float64(readF32(buf, 60)), 1e-6)
}

func TestGPUCameraUniformSourceEmbedded(t *testing.T) {
	assert.Contains(t, GPUCameraUniformSource, "struct CameraUniform")
	assert.Contains(t, GPUCameraUniformSource, "inv_view_proj")
}

func readF32(buf []byte, off int) float32 {
	bits := uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
	return math.Float32frombits(bits)
}
