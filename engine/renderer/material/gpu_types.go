package material

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialParamsSource is the canonical WGSL definition of the MaterialParams struct.
// Matches GPUMaterialParams layout exactly (32 bytes, std430 aligned).
//
//go:embed assets/material_params.wgsl
var GPUMaterialParamsSource string

// GPUOccluderSource is the canonical occluder surface shader: Lambert sun
// shading attenuated by the cascaded shadow maps. Expects the camera_uniform,
// sun_light, material_params, and shadow_sampling includes to be registered.
//
//go:embed assets/occluder.wgsl
var GPUOccluderSource string

// GPUOccluderDepthSource is the depth-only vertex shader that renders
// occluders into a cascade's shadow map.
//
//go:embed assets/occluder_depth.wgsl
var GPUOccluderDepthSource string

// GPUMaterialParams is the GPU-aligned uniform for occluder surface shading.
// Matches the WGSL MaterialParams struct layout exactly (see GPUMaterialParamsSource).
// Size: 32 bytes (vec4 + 4 floats, std430 aligned).
type GPUMaterialParams struct {
	BaseColor      [4]float32 // offset 0: albedo RGBA (16 bytes)
	Roughness      float32    // offset 16: surface roughness (4 bytes)
	ShadowStrength float32    // offset 20: received-shadow attenuation (4 bytes)
	_pad           [2]float32 // offset 24: padding to 32 bytes
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i, v := range g.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(g.Roughness))
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(g.ShadowStrength))
	return buf
}
