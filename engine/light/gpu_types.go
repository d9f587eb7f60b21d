package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUSunLightSource is the canonical WGSL definition of the SunLight struct.
// Matches GPUSunLight layout exactly (32 bytes).
//
//go:embed assets/sun.wgsl
var GPUSunLightSource string

// GPUSunLight is the GPU-aligned representation of the directional sun.
// Matches the WGSL SunLight struct layout exactly (see GPUSunLightSource).
// Size: 32 bytes.
type GPUSunLight struct {
	Direction     [3]float32 // offset  0: unit vector toward the sun
	AngularRadius float32    // offset 12: angular radius in radians
	Irradiance    [3]float32 // offset 16: top-of-atmosphere irradiance RGB
	Intensity     float32    // offset 28: scalar multiplier
}

// Size returns the size of the GPUSunLight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUSunLight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSunLight struct into a byte buffer suitable for
// GPU uniform upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUSunLight) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Direction[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Direction[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Direction[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.AngularRadius))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Irradiance[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Irradiance[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Irradiance[2]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Intensity))
	return buf
}

// GPU packs the current sun state into the shader uniform struct.
//
// Returns:
//   - GPUSunLight: the packed uniform
func (s *sunImpl) GPU() GPUSunLight {
	return GPUSunLight{
		Direction:     s.direction,
		AngularRadius: s.angularRadius,
		Irradiance:    s.irradiance,
		Intensity:     s.intensity,
	}
}
