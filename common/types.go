// Package common holds the plain data types and math helpers shared across
// the engine. Nothing here is interface-wrapped; these are value types that
// travel between packages.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds raw texel data for a texture binding pending GPU upload.
// Generalized over the 2D RGBA8 case: the precomputed scattering tables upload as
// RGBA32Float 3D textures and the Beer shadow map uploads as an RGBA16Float 2D
// array texture, so the format and depth/layer count travel with the data.
type TextureStagingData struct {
	// Texels is the byte slice holding the raw texel data, row-major, tightly
	// packed: BytesPerTexel*Width bytes per row, Height rows per layer/slice.
	Texels []byte
	// Width is the width of the texture in texels.
	Width uint32
	// Height is the height of the texture in texels.
	Height uint32
	// DepthOrLayers is the depth (3D textures) or array layer count (2D array
	// textures). A value of 0 is treated as 1.
	DepthOrLayers uint32
	// Format is the wgpu texture format. Zero value defaults to RGBA8UnormSrgb.
	Format wgpu.TextureFormat
	// BytesPerTexel is the tightly-packed texel stride matching Format.
	// Zero value defaults to 4 (RGBA8).
	BytesPerTexel uint32
	// Dimension selects 2D (incl. array) or 3D. Zero value defaults to 2D.
	Dimension wgpu.TextureDimension
}

// SamplerStagingData describes a sampler binding before the GPU sampler is
// created. Zero-valued fields fall back to the renderer's defaults (repeat
// addressing, linear filtering, LOD clamp 0 to 32, anisotropy 1).
type SamplerStagingData struct {
	// Addressing outside [0, 1] per texture coordinate axis.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	MagFilter, MinFilter                     wgpu.FilterMode
	MipmapFilter                             wgpu.MipmapFilterMode
	LodMinClamp, LodMaxClamp                 float32
	// Compare turns the sampler into a comparison sampler. The shadow map
	// is sampled through one.
	Compare       wgpu.CompareFunction
	MaxAnisotropy uint16
}
