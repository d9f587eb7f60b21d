package cloud

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCloudSource is the canonical WGSL definition of the CloudParams struct
// and the raymarch kernel that consumes it. Matches GPUCloudParams layout
// exactly (80 bytes, std140 aligned).
//
//go:embed assets/cloud.wgsl
var GPUCloudSource string

// GPUCloudParams is the GPU-aligned representation of one cloud layer plus
// the march budget, uploaded per cascade dispatch. Matches the WGSL
// CloudParams struct layout exactly (see GPUCloudSource).
// Size: 80 bytes (std140 aligned).
type GPUCloudParams struct {
	MinHeight        float32    // offset  0: band bottom, meters above surface
	MaxHeight        float32    // offset  4: band top, meters above surface
	DensityScale     float32    // offset  8: shape density multiplier
	BottomRadius     float32    // offset 12: planet surface radius, meters
	ExpTerm          float32    // offset 16: vertical shape coefficients
	ExpScale         float32    // offset 20
	LinearTerm       float32    // offset 24
	ConstantTerm     float32    // offset 28
	WeatherOffset    [2]float32 // offset 32: coverage scroll, UV units
	MinStepSize      float32    // offset 40: meters
	MaxStepSize      float32    // offset 44: meters
	MinDensity       float32    // offset 48: skip threshold
	MinTransmittance float32    // offset 52: early-exit threshold
	MaxRayDistance   float32    // offset 56: meters
	MaxIterations    uint32     // offset 60: march budget
	BlueNoiseSize    [3]uint32  // offset 64: jitter texture tiling period
	FrameIndex       uint32     // offset 76: temporal jitter slice selector
}

// Size returns the size of the GPUCloudParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPUCloudParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCloudParams struct into a byte buffer suitable
// for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (g *GPUCloudParams) Marshal() []byte {
	buf := make([]byte, 80)
	putF := func(off int, f float32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
	}
	putF(0, g.MinHeight)
	putF(4, g.MaxHeight)
	putF(8, g.DensityScale)
	putF(12, g.BottomRadius)
	putF(16, g.ExpTerm)
	putF(20, g.ExpScale)
	putF(24, g.LinearTerm)
	putF(28, g.ConstantTerm)
	putF(32, g.WeatherOffset[0])
	putF(36, g.WeatherOffset[1])
	putF(40, g.MinStepSize)
	putF(44, g.MaxStepSize)
	putF(48, g.MinDensity)
	putF(52, g.MinTransmittance)
	putF(56, g.MaxRayDistance)
	binary.LittleEndian.PutUint32(buf[60:64], g.MaxIterations)
	binary.LittleEndian.PutUint32(buf[64:68], g.BlueNoiseSize[0])
	binary.LittleEndian.PutUint32(buf[68:72], g.BlueNoiseSize[1])
	binary.LittleEndian.PutUint32(buf[72:76], g.BlueNoiseSize[2])
	binary.LittleEndian.PutUint32(buf[76:80], g.FrameIndex)
	return buf
}

// Params converts a marcher and layer pair into the GPU uniform
// representation for one dispatch.
//
// Parameters:
//   - layer: the cloud band
//   - bottomRadius: planet surface radius in meters
//   - blueNoiseW, blueNoiseH, blueNoiseD: jitter texture tiling period
//   - frame: frame index for temporal jitter
//
// Returns:
//   - GPUCloudParams: the uniform payload
func (m *marcherImpl) Params(layer *Layer, bottomRadius float64, blueNoiseW, blueNoiseH, blueNoiseD, frame int) GPUCloudParams {
	return GPUCloudParams{
		MinHeight:        float32(layer.MinHeight),
		MaxHeight:        float32(layer.MaxHeight),
		DensityScale:     float32(layer.DensityScale),
		BottomRadius:     float32(bottomRadius),
		ExpTerm:          float32(layer.ExpTerm),
		ExpScale:         float32(layer.ExpScale),
		LinearTerm:       float32(layer.LinearTerm),
		ConstantTerm:     float32(layer.ConstantTerm),
		WeatherOffset:    [2]float32{float32(layer.WeatherOffsetU), float32(layer.WeatherOffsetV)},
		MinStepSize:      float32(m.minStepSize),
		MaxStepSize:      float32(m.maxStepSize),
		MinDensity:       float32(m.minDensity),
		MinTransmittance: float32(m.minTransmittance),
		MaxRayDistance:   float32(m.maxRayDistance),
		MaxIterations:    uint32(m.maxIterations),
		BlueNoiseSize:    [3]uint32{uint32(blueNoiseW), uint32(blueNoiseH), uint32(blueNoiseD)},
		FrameIndex:       uint32(frame),
	}
}
