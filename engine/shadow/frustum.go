package shadow

import (
	"math"

	"github.com/strato-gfx/strato-go/common"
)

// FrustumCorners holds the 8 corner points of one cascade's sub-frustum,
// near plane first: bottom-left, bottom-right, top-right, top-left, then the
// same order on the far plane. Recomputed every update, never retained.
type FrustumCorners struct {
	Points [8][3]float32
}

// SetFromCamera fills the corners in camera view space for the perspective
// defined by the vertical field of view and aspect ratio, over the cascade's
// [near, far] depth interval.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: width over height
//   - near, far: cascade depth interval, 0 < near < far
func (f *FrustumCorners) SetFromCamera(fovY, aspect, near, far float32) {
	tanHalf := float32(math.Tan(float64(fovY) / 2))
	plane := func(base int, d float32) {
		halfH := d * tanHalf
		halfW := halfH * aspect
		// Camera looks down -Z in view space.
		f.Points[base+0] = [3]float32{-halfW, -halfH, -d}
		f.Points[base+1] = [3]float32{halfW, -halfH, -d}
		f.Points[base+2] = [3]float32{halfW, halfH, -d}
		f.Points[base+3] = [3]float32{-halfW, halfH, -d}
	}
	plane(0, near)
	plane(4, far)
}

// Transform applies a matrix to all corners in place.
//
// Parameters:
//   - m: column-major 4x4 matrix (16 elements)
func (f *FrustumCorners) Transform(m []float32) {
	for i, p := range f.Points {
		x, y, z, w := common.TransformPoint4(m, p[0], p[1], p[2])
		if w != 0 {
			x, y, z = x/w, y/w, z/w
		}
		f.Points[i] = [3]float32{x, y, z}
	}
}

// Center returns the centroid of the 8 corners.
//
// Returns:
//   - [3]float32: the centroid
func (f *FrustumCorners) Center() [3]float32 {
	var c [3]float32
	for _, p := range f.Points {
		c[0] += p[0]
		c[1] += p[1]
		c[2] += p[2]
	}
	c[0] /= 8
	c[1] /= 8
	c[2] /= 8
	return c
}

func dist(a, b [3]float32) float32 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
}

// Radius returns the bounding-sphere radius of the sub-frustum: half the
// larger of the far-plane diagonal and the far-corner-to-near-corner
// diagonal. The first dominates wide-far shapes, the second oblique ones.
//
// Returns:
//   - float32: bounding-sphere radius
func (f *FrustumCorners) Radius() float32 {
	farDiagonal := dist(f.Points[4], f.Points[6])
	crossDiagonal := dist(f.Points[6], f.Points[0])
	return float32(math.Max(float64(farDiagonal), float64(crossDiagonal))) / 2
}
