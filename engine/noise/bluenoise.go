package noise

import (
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/strato-gfx/strato-go/common"
)

// Default spatio-temporal blue noise tiling period. Raymarch jitter wraps at
// these bounds: pixel coordinates modulo width/height, frame index modulo
// depth.
const (
	BlueNoiseWidth  = 64
	BlueNoiseHeight = 64
	BlueNoiseDepth  = 32
)

// goldenRatioConjugate decorrelates consecutive temporal slices; successive
// frames see a low-discrepancy rotation of the same spatial pattern.
const goldenRatioConjugate = 0.61803398874989484820

// BlueNoise is a single-channel spatio-temporal jitter texture. The spatial
// slices are high-frequency noise, the temporal axis steps each slice by the
// golden ratio so per-pixel jitter sequences are well distributed over time.
type BlueNoise struct {
	width  int
	height int
	depth  int
	values []float64
}

// GenerateBlueNoise procedurally fills a jitter texture using interleaved
// gradient noise per slice with a golden-ratio temporal offset. Not a true
// void-and-cluster blue noise, but spectrally close enough for raymarch
// start-offset decorrelation and fully deterministic.
//
// Parameters:
//   - width, height, depth: texture dimensions (must be > 0)
//
// Returns:
//   - *BlueNoise: the generated jitter texture
func GenerateBlueNoise(width, height, depth int) *BlueNoise {
	if width <= 0 || height <= 0 || depth <= 0 {
		panic(fmt.Sprintf("noise: blue noise dimensions must be positive, got %dx%dx%d", width, height, depth))
	}
	b := &BlueNoise{
		width:  width,
		height: height,
		depth:  depth,
		values: make([]float64, width*height*depth),
	}
	for z := 0; z < depth; z++ {
		temporal := float64(z) * goldenRatioConjugate
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				// Interleaved gradient noise (Jimenez 2014).
				spatial := 52.9829189 * math.Mod(0.06711056*float64(x)+0.00583715*float64(y), 1)
				b.values[(z*height+y)*width+x] = math.Mod(spatial+temporal, 1)
			}
		}
	}
	return b
}

// LoadBlueNoise wraps a precomputed flat texel buffer, one byte per texel,
// row-major with slices contiguous. Dimensions are given out-of-band.
//
// Parameters:
//   - texels: flat single-channel byte buffer, len == width*height*depth
//   - width, height, depth: texture dimensions (must be > 0)
//
// Returns:
//   - *BlueNoise: the wrapped jitter texture
//   - error: when the buffer length does not match the dimensions
func LoadBlueNoise(texels []byte, width, height, depth int) (*BlueNoise, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("noise: blue noise dimensions must be positive, got %dx%dx%d", width, height, depth)
	}
	if len(texels) != width*height*depth {
		return nil, fmt.Errorf("noise: blue noise buffer is %d bytes, want %d for %dx%dx%d", len(texels), width*height*depth, width, height, depth)
	}
	b := &BlueNoise{
		width:  width,
		height: height,
		depth:  depth,
		values: make([]float64, len(texels)),
	}
	for i, t := range texels {
		b.values[i] = float64(t) / 255
	}
	return b, nil
}

// Dimensions returns the texture's width, height and temporal depth.
//
// Returns:
//   - int: width in texels
//   - int: height in texels
//   - int: depth in frames
func (b *BlueNoise) Dimensions() (int, int, int) {
	return b.width, b.height, b.depth
}

// Jitter returns the jitter value for a pixel at a frame, wrapping all three
// coordinates at the texture's tiling period.
//
// Parameters:
//   - x, y: pixel coordinates
//   - frame: frame index
//
// Returns:
//   - float64: jitter value in [0, 1)
func (b *BlueNoise) Jitter(x, y, frame int) float64 {
	wrap := func(v, period int) int {
		return ((v % period) + period) % period
	}
	x = wrap(x, b.width)
	y = wrap(y, b.height)
	z := wrap(frame, b.depth)
	return b.values[(z*b.height+y)*b.width+x]
}

// Staging converts the texture to single-channel staging data for GPU upload.
//
// Returns:
//   - common.TextureStagingData: R8 3D staging payload
func (b *BlueNoise) Staging() common.TextureStagingData {
	texels := make([]byte, len(b.values))
	for i, v := range b.values {
		texels[i] = quantize(v)
	}
	return common.TextureStagingData{
		Texels:        texels,
		Width:         uint32(b.width),
		Height:        uint32(b.height),
		DepthOrLayers: uint32(b.depth),
		Format:        wgpu.TextureFormatR8Unorm,
		BytesPerTexel: 1,
		Dimension:     wgpu.TextureDimension3D,
	}
}
