package sky

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUComposeSource is the WGSL source for the full-screen sky composition
// pass. It expects the atmosphere, camera_uniform, and sun_light includes to
// be registered, and compiles with or without the CLOUDS_ENABLED variant.
//
//go:embed assets/compose.wgsl
var GPUComposeSource string

// GPUComposeParams is the uniform block for the composition pass. Must match
// the ComposeParams struct in compose.wgsl.
type GPUComposeParams struct {
	Exposure      float32
	PlanetCenterY float32
	_pad0         float32
	_pad1         float32
}

// Size returns the byte size of the uniform block.
//
// Returns:
//   - uint64: the size in bytes
func (g *GPUComposeParams) Size() uint64 {
	return uint64(unsafe.Sizeof(*g))
}

// Marshal serializes the uniform block to little-endian bytes in WGSL field
// order.
//
// Returns:
//   - []byte: the serialized uniform data
func (g *GPUComposeParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(g.Exposure))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(g.PlanetCenterY))
	return buf
}

// GPUCompose returns the composition pass uniform for the composer's current
// exposure and atmosphere.
//
// Returns:
//   - GPUComposeParams: the packed uniform block
func (c *composerImpl) GPUCompose() GPUComposeParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUComposeParams{
		Exposure:      float32(c.exposure),
		PlanetCenterY: float32(-c.model.Parameters().BottomRadius),
	}
}
