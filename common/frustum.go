package common

import (
	"math"
)

// Plane is ax + by + cz + d = 0 with (a, b, c) in Normal and d in Distance.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Frustum holds the six planes of a view frustum, oriented so the positive
// half-space of every plane is inside.
type Frustum struct {
	Planes [6]Plane
}

// Plane indices into Frustum.Planes.
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustumFromMatrix derives the six normalized frustum planes from a
// combined view-projection matrix using Gribb/Hartmann row combinations.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the column-major view-projection matrix, 16 elements
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	// Each plane is row 3 of the matrix plus or minus one of rows 0-2.
	// Column-major storage puts row r of column c at index c*4+r.
	combos := [6]struct {
		row  int
		sign float32
	}{
		FrustumLeft:   {0, +1},
		FrustumRight:  {0, -1},
		FrustumBottom: {1, +1},
		FrustumTop:    {1, -1},
		FrustumNear:   {2, +1},
		FrustumFar:    {2, -1},
	}

	var f Frustum
	for i, c := range combos {
		f.Planes[i] = Plane{
			Normal: [3]float32{
				viewProj[3] + c.sign*viewProj[c.row],
				viewProj[7] + c.sign*viewProj[4+c.row],
				viewProj[11] + c.sign*viewProj[8+c.row],
			},
			Distance: viewProj[15] + c.sign*viewProj[12+c.row],
		}
		f.Planes[i].normalize()
	}
	return f
}

// ContainsSphere tests a bounding sphere against all six frustum planes.
// Used by the shadow system to cull cloud shadow casters per cascade.
//
// Parameters:
//   - x, y, z: sphere center in world space
//   - radius: sphere radius
//
// Returns:
//   - bool: false if the sphere is entirely outside any plane, true otherwise
func (f *Frustum) ContainsSphere(x, y, z, radius float32) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		dist := p.Normal[0]*x + p.Normal[1]*y + p.Normal[2]*z + p.Distance
		if dist < -radius {
			return false
		}
	}
	return true
}

// normalize scales the plane so its normal has unit length. A degenerate
// zero-normal plane is left as is.
func (p *Plane) normalize() {
	n := p.Normal
	length := float32(math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])))
	if length == 0 {
		return
	}
	invLen := 1.0 / length
	p.Normal[0] *= invLen
	p.Normal[1] *= invLen
	p.Normal[2] *= invLen
	p.Distance *= invLen
}
