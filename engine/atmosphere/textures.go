package atmosphere

import (
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/strato-gfx/strato-go/common"
)

// Table texture dimensions. These are part of the bake/sample contract: the
// texture coordinate mappings quantize against them, so downstream consumers
// sampling the uploaded GPU textures must use the same sizes.
const (
	TransmittanceTextureWidth  = 256
	TransmittanceTextureHeight = 64

	ScatteringTextureRSize   = 32
	ScatteringTextureMuSize  = 128
	ScatteringTextureMuSSize = 32
	ScatteringTextureNuSize  = 8

	// The 4D scattering table is packed into a 3D texture: nu and mu_s share
	// the width axis (nu-major), mu is the height axis, r the depth axis.
	ScatteringTextureWidth  = ScatteringTextureNuSize * ScatteringTextureMuSSize
	ScatteringTextureHeight = ScatteringTextureMuSize
	ScatteringTextureDepth  = ScatteringTextureRSize

	IrradianceTextureWidth  = 64
	IrradianceTextureHeight = 16
)

// Texture2D is a CPU-resident 2D texture of RGBA float64 texels used during
// the bake and by the CPU evaluator. Sampling is bilinear with texel-center
// convention and clamp-to-edge addressing, matching GPU linear sampling of the
// uploaded tables.
type Texture2D struct {
	Width  int
	Height int

	texels []mgl64.Vec4
}

// NewTexture2D creates a zero-filled 2D texture.
//
// Parameters:
//   - width: texture width in texels (must be > 0)
//   - height: texture height in texels (must be > 0)
//
// Returns:
//   - *Texture2D: the newly allocated texture
func NewTexture2D(width, height int) *Texture2D {
	return &Texture2D{
		Width:  width,
		Height: height,
		texels: make([]mgl64.Vec4, width*height),
	}
}

// Get returns the texel at (x, y) with clamp-to-edge addressing.
//
// Parameters:
//   - x, y: texel coordinates
//
// Returns:
//   - mgl64.Vec4: the texel value
func (t *Texture2D) Get(x, y int) mgl64.Vec4 {
	x = clampInt(x, 0, t.Width-1)
	y = clampInt(y, 0, t.Height-1)
	return t.texels[y*t.Width+x]
}

// Set stores a texel at (x, y). Out-of-range coordinates panic (bake kernels
// only ever write in-range texels; a miss is a programming error).
//
// Parameters:
//   - x, y: texel coordinates
//   - v: the texel value
func (t *Texture2D) Set(x, y int, v mgl64.Vec4) {
	t.texels[y*t.Width+x] = v
}

// Sample performs bilinear filtering at normalized coordinates (u, v) using
// the texel-center convention.
//
// Parameters:
//   - u, v: normalized texture coordinates in [0, 1]
//
// Returns:
//   - mgl64.Vec4: the filtered texel value
func (t *Texture2D) Sample(u, v float64) mgl64.Vec4 {
	x := u*float64(t.Width) - 0.5
	y := v*float64(t.Height) - 0.5
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - math.Floor(x)
	fy := y - math.Floor(y)

	s00 := t.Get(x0, y0)
	s10 := t.Get(x0+1, y0)
	s01 := t.Get(x0, y0+1)
	s11 := t.Get(x0+1, y0+1)

	return lerp4(lerp4(s00, s10, fx), lerp4(s01, s11, fx), fy)
}

// Staging converts the texture to RGBA32Float staging data for GPU upload
// through the renderer.
//
// Returns:
//   - common.TextureStagingData: the staging payload (copies the texel data)
func (t *Texture2D) Staging() common.TextureStagingData {
	return common.TextureStagingData{
		Texels:        packFloat32RGBA(t.texels),
		Width:         uint32(t.Width),
		Height:        uint32(t.Height),
		DepthOrLayers: 1,
		Format:        wgpu.TextureFormatRGBA32Float,
		BytesPerTexel: 16,
		Dimension:     wgpu.TextureDimension2D,
	}
}

// Texture3D is the 3D analogue of Texture2D, used for the packed 4D scattering
// tables. Sampling is trilinear with texel-center convention and clamp-to-edge
// addressing.
type Texture3D struct {
	Width  int
	Height int
	Depth  int

	texels []mgl64.Vec4
}

// NewTexture3D creates a zero-filled 3D texture.
//
// Parameters:
//   - width: texture width in texels (must be > 0)
//   - height: texture height in texels (must be > 0)
//   - depth: texture depth in texels (must be > 0)
//
// Returns:
//   - *Texture3D: the newly allocated texture
func NewTexture3D(width, height, depth int) *Texture3D {
	return &Texture3D{
		Width:  width,
		Height: height,
		Depth:  depth,
		texels: make([]mgl64.Vec4, width*height*depth),
	}
}

// Get returns the texel at (x, y, z) with clamp-to-edge addressing.
//
// Parameters:
//   - x, y, z: texel coordinates
//
// Returns:
//   - mgl64.Vec4: the texel value
func (t *Texture3D) Get(x, y, z int) mgl64.Vec4 {
	x = clampInt(x, 0, t.Width-1)
	y = clampInt(y, 0, t.Height-1)
	z = clampInt(z, 0, t.Depth-1)
	return t.texels[(z*t.Height+y)*t.Width+x]
}

// Set stores a texel at (x, y, z).
//
// Parameters:
//   - x, y, z: texel coordinates
//   - v: the texel value
func (t *Texture3D) Set(x, y, z int, v mgl64.Vec4) {
	t.texels[(z*t.Height+y)*t.Width+x] = v
}

// Sample performs trilinear filtering at normalized coordinates (u, v, w)
// using the texel-center convention.
//
// Parameters:
//   - u, v, w: normalized texture coordinates in [0, 1]
//
// Returns:
//   - mgl64.Vec4: the filtered texel value
func (t *Texture3D) Sample(u, v, w float64) mgl64.Vec4 {
	x := u*float64(t.Width) - 0.5
	y := v*float64(t.Height) - 0.5
	z := w*float64(t.Depth) - 0.5
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	z0 := int(math.Floor(z))
	fx := x - math.Floor(x)
	fy := y - math.Floor(y)
	fz := z - math.Floor(z)

	front := lerp4(
		lerp4(t.Get(x0, y0, z0), t.Get(x0+1, y0, z0), fx),
		lerp4(t.Get(x0, y0+1, z0), t.Get(x0+1, y0+1, z0), fx), fy)
	back := lerp4(
		lerp4(t.Get(x0, y0, z0+1), t.Get(x0+1, y0, z0+1), fx),
		lerp4(t.Get(x0, y0+1, z0+1), t.Get(x0+1, y0+1, z0+1), fx), fy)

	return lerp4(front, back, fz)
}

// Staging converts the texture to RGBA32Float staging data for GPU upload
// through the renderer.
//
// Returns:
//   - common.TextureStagingData: the staging payload (copies the texel data)
func (t *Texture3D) Staging() common.TextureStagingData {
	return common.TextureStagingData{
		Texels:        packFloat32RGBA(t.texels),
		Width:         uint32(t.Width),
		Height:        uint32(t.Height),
		DepthOrLayers: uint32(t.Depth),
		Format:        wgpu.TextureFormatRGBA32Float,
		BytesPerTexel: 16,
		Dimension:     wgpu.TextureDimension3D,
	}
}

// Tables holds the complete baked lookup table set for one atmosphere profile.
type Tables struct {
	// Transmittance maps (r, mu) to transmittance to the top atmosphere boundary.
	Transmittance *Texture2D

	// Scattering is the packed 4D combined scattering table: Rayleigh (and
	// multiple) scattering in RGB, single Mie scattering red channel in alpha.
	Scattering *Texture3D

	// Irradiance maps (r, mu_s) to ground irradiance from the sky dome.
	Irradiance *Texture2D
}

func packFloat32RGBA(texels []mgl64.Vec4) []byte {
	out := make([]float32, 0, len(texels)*4)
	for _, t := range texels {
		out = append(out, float32(t[0]), float32(t[1]), float32(t[2]), float32(t[3]))
	}
	return common.SliceToBytes(out)
}

func lerp4(a, b mgl64.Vec4, t float64) mgl64.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
