package common

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Identity overwrites a flat column-major 4x4 matrix with the identity.
//
// Parameters:
//   - m: destination slice, at least 16 elements
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// SliceToBytes reinterprets a slice as raw bytes for GPU buffer uploads.
// The result aliases the input's memory; the caller must not mutate the
// input while the byte view is live.
//
// Returns:
//   - []byte: a byte view over the input data, nil for an empty input
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// PutFloat32 writes a float32 into the buffer in little-endian byte order,
// the layout GPU staging buffers expect.
//
// Parameters:
//   - buf: destination slice (must be at least 4 bytes)
//   - v: value to write
func PutFloat32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}

// Mul4 stores a * b into out. All three are column-major 16-element
// matrices; out may alias a or b.
//
// Parameters:
//   - out: destination slice, at least 16 elements
//   - a: left-hand matrix
//   - b: right-hand matrix
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			buf[col*4+row] = sum
		}
	}
	copy(out, buf[:])
}

// Perspective writes a perspective projection with a finite far plane,
// mapping depth to WebGPU's [0, 1] clip range.
//
// Parameters:
//   - out: destination slice, at least 16 elements
//   - fovY: vertical field of view in radians
//   - aspect: width over height
//   - near, far: clip plane distances, 0 < near < far
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	out[15] = 0.0
}

// Ortho creates an orthographic projection matrix mapping the box
// [left,right]x[bottom,top]x[near,far] to WebGPU clip space ([-1,1] in XY,
// [0,1] in Z, looking down -Z).
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - left, right: X extents of the view volume
//   - bottom, top: Y extents of the view volume
//   - near, far: Z extents of the view volume (near < far)
func Ortho(out []float32, left, right, bottom, top, near, far float32) {
	Identity(out)

	out[0] = 2.0 / (right - left)
	out[5] = 2.0 / (top - bottom)
	out[10] = 1.0 / (near - far)
	out[12] = (left + right) / (left - right)
	out[13] = (bottom + top) / (bottom - top)
	out[14] = near / (near - far)
}

// TransformPoint4 transforms a 3D point by a 4x4 column-major matrix with an
// implicit w of 1, returning the transformed point and its clip-space w.
// Callers needing NDC coordinates divide by the returned w themselves so the
// degenerate w == 0 case stays visible.
//
// Parameters:
//   - m: source matrix (16 elements, column-major)
//   - x, y, z: point components
//
// Returns:
//   - px, py, pz: transformed point components (not perspective-divided)
//   - w: the resulting clip-space w component
func TransformPoint4(m []float32, x, y, z float32) (px, py, pz, w float32) {
	px = m[0]*x + m[4]*y + m[8]*z + m[12]
	py = m[1]*x + m[5]*y + m[9]*z + m[13]
	pz = m[2]*x + m[6]*y + m[10]*z + m[14]
	w = m[3]*x + m[7]*y + m[11]*z + m[15]
	return px, py, pz, w
}

// Invert4 writes the inverse of a column-major 4x4 matrix into out by
// cofactor expansion. A singular matrix leaves out untouched.
//
// Parameters:
//   - out: destination slice, at least 16 elements
//   - m: source matrix, column-major
//
// Returns:
//   - bool: false when the determinant is zero and no inverse exists
func Invert4(out, m []float32) bool {
	// 2x2 sub-determinants of the upper-left and lower-right quadrants.
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return false
	}

	invDet := 1.0 / det

	out[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * invDet
	out[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * invDet
	out[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * invDet
	out[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * invDet

	out[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * invDet
	out[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * invDet
	out[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * invDet
	out[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * invDet

	out[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * invDet
	out[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * invDet
	out[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * invDet
	out[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * invDet

	out[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * invDet
	out[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * invDet
	out[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * invDet
	out[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * invDet

	return true
}

// LookAt writes the view matrix for a camera at eye looking toward center
// with the given up vector. The matrix takes world coordinates to view
// space. Degenerate inputs (eye at center, up parallel to the view
// direction) fall back to unnormalized axes rather than dividing by zero.
//
// Parameters:
//   - out: destination slice, at least 16 elements
//   - eyeX, eyeY, eyeZ: camera position in world space
//   - centerX, centerY, centerZ: the point looked at
//   - upX, upY, upZ: approximate up direction
func LookAt(out []float32, eyeX, eyeY, eyeZ, centerX, centerY, centerZ, upX, upY, upZ float32) {
	normalize := func(x, y, z float32) (float32, float32, float32) {
		sq := float64(x*x + y*y + z*z)
		if sq == 0 {
			return x, y, z
		}
		inv := 1.0 / float32(math.Sqrt(sq))
		return x * inv, y * inv, z * inv
	}

	// Camera basis: z points from center back toward the eye, x is the
	// right vector, y the recomputed orthogonal up.
	z0, z1, z2 := normalize(eyeX-centerX, eyeY-centerY, eyeZ-centerZ)
	x0, x1, x2 := normalize(upY*z2-upZ*z1, upZ*z0-upX*z2, upX*z1-upY*z0)
	y0 := z1*x2 - z2*x1
	y1 := z2*x0 - z0*x2
	y2 := z0*x1 - z1*x0

	out[0], out[4], out[8], out[12] = x0, x1, x2, -(x0*eyeX + x1*eyeY + x2*eyeZ)
	out[1], out[5], out[9], out[13] = y0, y1, y2, -(y0*eyeX + y1*eyeY + y2*eyeZ)
	out[2], out[6], out[10], out[14] = z0, z1, z2, -(z0*eyeX + z1*eyeY + z2*eyeZ)
	out[3], out[7], out[11], out[15] = 0, 0, 0, 1
}
