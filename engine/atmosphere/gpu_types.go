package atmosphere

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl64"
)

// GPUAtmosphereSource is the canonical WGSL definition of the Atmosphere
// uniform struct and the table lookup helpers that shade against the baked
// textures. Matches GPUAtmosphereParams layout exactly (288 bytes, std140
// aligned).
//
//go:embed assets/atmosphere.wgsl
var GPUAtmosphereSource string

// GPUDensityLayer is the GPU-aligned representation of one density profile
// layer. Matches the WGSL DensityLayer struct layout exactly.
// Size: 32 bytes (std140 aligned).
type GPUDensityLayer struct {
	Width        float32 // offset  0: layer width in meters
	ExpTerm      float32 // offset  4
	ExpScale     float32 // offset  8: 1/m
	LinearTerm   float32 // offset 12: 1/m
	ConstantTerm float32 // offset 16
	_pad0        float32 // offset 20
	_pad1        float32 // offset 24
	_pad2        float32 // offset 28: padding to 32-byte alignment
}

// GPUAtmosphereParams is the GPU-aligned representation of an atmosphere
// profile, uploaded once per bake as a uniform buffer. Matches the WGSL
// Atmosphere struct layout exactly (see GPUAtmosphereSource).
// Size: 288 bytes (std140 aligned).
type GPUAtmosphereParams struct {
	SolarIrradiance      [3]float32         // offset   0: top-of-atmosphere solar irradiance, W/m^2 per channel
	SunAngularRadius     float32            // offset  12: radians
	RayleighScattering   [3]float32         // offset  16: 1/m per channel
	BottomRadius         float32            // offset  28: meters
	MieScattering        [3]float32         // offset  32: 1/m per channel
	TopRadius            float32            // offset  44: meters
	MieExtinction        [3]float32         // offset  48: 1/m per channel
	MiePhaseFunctionG    float32            // offset  60
	AbsorptionExtinction [3]float32         // offset  64: 1/m per channel
	MuSMin               float32            // offset  76: smallest baked sun-zenith cosine
	GroundAlbedo         [3]float32         // offset  80
	_pad                 float32            // offset  92: padding to vec4 alignment
	RayleighDensity      [2]GPUDensityLayer // offset  96
	MieDensity           [2]GPUDensityLayer // offset 160
	AbsorptionDensity    [2]GPUDensityLayer // offset 224
}

// GPU converts the profile into its GPU-aligned uniform representation.
//
// Returns:
//   - GPUAtmosphereParams: the profile narrowed to float32 in GPU layout
func (p *Parameters) GPU() GPUAtmosphereParams {
	vec := func(v mgl64.Vec3) [3]float32 {
		return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
	}
	layers := func(prof DensityProfile) [2]GPUDensityLayer {
		var out [2]GPUDensityLayer
		for i, l := range prof.Layers {
			out[i] = GPUDensityLayer{
				Width:        float32(l.Width),
				ExpTerm:      float32(l.ExpTerm),
				ExpScale:     float32(l.ExpScale),
				LinearTerm:   float32(l.LinearTerm),
				ConstantTerm: float32(l.ConstantTerm),
			}
		}
		return out
	}
	return GPUAtmosphereParams{
		SolarIrradiance:      vec(p.SolarIrradiance),
		SunAngularRadius:     float32(p.SunAngularRadius),
		RayleighScattering:   vec(p.RayleighScattering),
		BottomRadius:         float32(p.BottomRadius),
		MieScattering:        vec(p.MieScattering),
		TopRadius:            float32(p.TopRadius),
		MieExtinction:        vec(p.MieExtinction),
		MiePhaseFunctionG:    float32(p.MiePhaseFunctionG),
		AbsorptionExtinction: vec(p.AbsorptionExtinction),
		MuSMin:               float32(p.MuSMin),
		GroundAlbedo:         vec(p.GroundAlbedo),
		RayleighDensity:      layers(p.RayleighDensity),
		MieDensity:           layers(p.MieDensity),
		AbsorptionDensity:    layers(p.AbsorptionDensity),
	}
}

// Size returns the size of the GPUAtmosphereParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (288)
func (g *GPUAtmosphereParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUAtmosphereParams struct into a byte buffer
// suitable for GPU upload.
//
// Returns:
//   - []byte: 288-byte buffer ready for GPU upload
func (g *GPUAtmosphereParams) Marshal() []byte {
	buf := make([]byte, 288)
	off := 0
	putF := func(f float32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
		off += 4
	}
	putV := func(v [3]float32) {
		putF(v[0])
		putF(v[1])
		putF(v[2])
	}
	putLayers := func(ls [2]GPUDensityLayer) {
		for _, l := range ls {
			putF(l.Width)
			putF(l.ExpTerm)
			putF(l.ExpScale)
			putF(l.LinearTerm)
			putF(l.ConstantTerm)
			putF(0)
			putF(0)
			putF(0)
		}
	}

	putV(g.SolarIrradiance)
	putF(g.SunAngularRadius)
	putV(g.RayleighScattering)
	putF(g.BottomRadius)
	putV(g.MieScattering)
	putF(g.TopRadius)
	putV(g.MieExtinction)
	putF(g.MiePhaseFunctionG)
	putV(g.AbsorptionExtinction)
	putF(g.MuSMin)
	putV(g.GroundAlbedo)
	putF(0) // padding
	putLayers(g.RayleighDensity)
	putLayers(g.MieDensity)
	putLayers(g.AbsorptionDensity)
	return buf
}
