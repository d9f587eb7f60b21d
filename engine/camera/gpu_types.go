package camera

import (
	_ "embed"
	"unsafe"

	"github.com/strato-gfx/strato-go/common"
)

//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the std140-compatible camera block shared by the sky
// composite, cloud raymarch, and shadow sampling shaders.
type GPUCameraUniform struct {
	ViewProj       [16]float32 // offset 0
	InvViewProj    [16]float32 // offset 64
	CameraPosition [3]float32  // offset 128
	Near           float32     // offset 140
	Far            float32     // offset 144
	_pad           [3]float32  // offset 148
}

// Size returns the byte size of the uniform block.
//
// Returns:
//   - int: size in bytes
func (u *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the uniform block into little-endian bytes matching the
// WGSL struct layout.
//
// Returns:
//   - []byte: the serialized block
func (u *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, u.Size())
	off := 0

	putF := func(v float32) {
		common.PutFloat32(buf[off:], v)
		off += 4
	}

	for _, v := range u.ViewProj {
		putF(v)
	}
	for _, v := range u.InvViewProj {
		putF(v)
	}
	for _, v := range u.CameraPosition {
		putF(v)
	}
	putF(u.Near)
	putF(u.Far)
	putF(0)
	putF(0)
	putF(0)

	return buf
}
