package noise

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/strato-gfx/strato-go/common"
)

// ChannelSpec describes one output channel of a generated texture: a base
// field run through an fBm accumulator, then remapped with a smoothstep to
// control coverage sharpness. A zero RemapLo/RemapHi pair with RemapHi == 1
// passes the field through unchanged.
type ChannelSpec struct {
	Field   Field3
	FBM     FBMParams
	RemapLo float64
	RemapHi float64
}

// sample evaluates the channel at normalized (u, v, w).
func (c *ChannelSpec) sample(u, v, w float64) float64 {
	if c.Field == nil {
		return 0
	}
	return Smoothstep(c.RemapLo, c.RemapHi, FBM(c.Field, c.FBM, u, v, w))
}

// WeatherMapSpec describes a tileable 2D RGBA weather map. Channel convention
// follows the cloud layer contract: R coverage, G cloud type, B wetness,
// A extra detail. OffsetU/OffsetV shift the sampled field, animating weather
// drift without regenerating the underlying noise.
type WeatherMapSpec struct {
	Width    int
	Height   int
	Channels [4]ChannelSpec
	OffsetU  float64
	OffsetV  float64
}

// VolumeSpec describes a tileable 3D RGBA density texture (cloud shape or
// detail erosion).
type VolumeSpec struct {
	Size     int
	Channels [4]ChannelSpec
}

// GenerateWeatherMap evaluates the spec into RGBA8 staging data, one worker
// task per texel row.
//
// Parameters:
//   - spec: the weather map description (Width and Height must be > 0)
//   - workers: parallel worker count, at least 1
//
// Returns:
//   - common.TextureStagingData: RGBA8 2D staging payload
func GenerateWeatherMap(spec WeatherMapSpec, workers int) common.TextureStagingData {
	if spec.Width <= 0 || spec.Height <= 0 {
		panic(fmt.Sprintf("noise: weather map dimensions must be positive, got %dx%d", spec.Width, spec.Height))
	}

	texels := make([]byte, spec.Width*spec.Height*4)
	forEach(workers, spec.Height, func(y int) {
		v := (float64(y) + 0.5) / float64(spec.Height)
		for x := 0; x < spec.Width; x++ {
			u := (float64(x) + 0.5) / float64(spec.Width)
			base := (y*spec.Width + x) * 4
			for c := 0; c < 4; c++ {
				texels[base+c] = quantize(spec.Channels[c].sample(frac(u+spec.OffsetU), frac(v+spec.OffsetV), 0))
			}
		}
	})

	return common.TextureStagingData{
		Texels: texels,
		Width:  uint32(spec.Width),
		Height: uint32(spec.Height),
	}
}

// GenerateVolume evaluates the spec into a cubic RGBA8 3D texture, one worker
// task per depth slice.
//
// Parameters:
//   - spec: the volume description (Size must be > 0)
//   - workers: parallel worker count, at least 1
//
// Returns:
//   - common.TextureStagingData: RGBA8 3D staging payload
func GenerateVolume(spec VolumeSpec, workers int) common.TextureStagingData {
	if spec.Size <= 0 {
		panic(fmt.Sprintf("noise: volume size must be positive, got %d", spec.Size))
	}

	n := spec.Size
	texels := make([]byte, n*n*n*4)
	forEach(workers, n, func(z int) {
		w := (float64(z) + 0.5) / float64(n)
		for y := 0; y < n; y++ {
			v := (float64(y) + 0.5) / float64(n)
			for x := 0; x < n; x++ {
				u := (float64(x) + 0.5) / float64(n)
				base := ((z*n+y)*n + x) * 4
				for c := 0; c < 4; c++ {
					texels[base+c] = quantize(spec.Channels[c].sample(u, v, w))
				}
			}
		}
	})

	return common.TextureStagingData{
		Texels:        texels,
		Width:         uint32(n),
		Height:        uint32(n),
		DepthOrLayers: uint32(n),
		Dimension:     wgpu.TextureDimension3D,
	}
}

// CumulusShapeSpec returns the low-altitude cloud shape volume: inverted
// Worley fBm at rising frequencies per channel, the red channel carrying the
// base shape and the rest erosion detail.
//
// Parameters:
//   - seed: noise seed
//   - size: cubic texture edge length in texels
//
// Returns:
//   - VolumeSpec: the shape volume description
func CumulusShapeSpec(seed int64, size int) VolumeSpec {
	w := NewWorley(seed)
	channel := func(frequency float64) ChannelSpec {
		params := DefaultFBMParams()
		params.Frequency = frequency
		return ChannelSpec{Field: w.InvertedNoise3, FBM: params, RemapLo: 0.2, RemapHi: 0.9}
	}
	return VolumeSpec{
		Size:     size,
		Channels: [4]ChannelSpec{channel(4), channel(8), channel(16), channel(32)},
	}
}

// CirrusDetailSpec returns the high-altitude detail volume: Perlin fBm
// rescaled from [-1, 1] into [0, 1] through the remap edges.
//
// Parameters:
//   - seed: noise seed
//   - size: cubic texture edge length in texels
//
// Returns:
//   - VolumeSpec: the detail volume description
func CirrusDetailSpec(seed int64, size int) VolumeSpec {
	p := NewPerlin(seed)
	channel := func(frequency float64) ChannelSpec {
		params := DefaultFBMParams()
		params.Frequency = frequency
		params.Octaves = 4
		return ChannelSpec{Field: p.Noise3, FBM: params, RemapLo: -0.6, RemapHi: 0.6}
	}
	return VolumeSpec{
		Size:     size,
		Channels: [4]ChannelSpec{channel(8), channel(16), channel(24), channel(32)},
	}
}

// DefaultWeatherSpec returns a weather map with broad Worley coverage in red,
// Perlin cloud type in green, and sharper Worley wetness in blue.
//
// Parameters:
//   - seed: noise seed
//   - width, height: map dimensions in texels
//
// Returns:
//   - WeatherMapSpec: the weather map description
func DefaultWeatherSpec(seed int64, width, height int) WeatherMapSpec {
	w := NewWorley(seed)
	p := NewPerlin(seed + 1)

	coverage := DefaultFBMParams()
	coverage.Frequency = 2
	cloudType := DefaultFBMParams()
	cloudType.Frequency = 3
	cloudType.Octaves = 3
	wetness := DefaultFBMParams()
	wetness.Frequency = 6

	return WeatherMapSpec{
		Width:  width,
		Height: height,
		Channels: [4]ChannelSpec{
			{Field: w.InvertedNoise3, FBM: coverage, RemapLo: 0.35, RemapHi: 0.85},
			{Field: p.Noise3, FBM: cloudType, RemapLo: -0.5, RemapHi: 0.5},
			{Field: w.InvertedNoise3, FBM: wetness, RemapLo: 0.55, RemapHi: 0.95},
			{},
		},
	}
}

// forEach fans n index tasks out to a transient worker pool and waits for all
// of them.
func forEach(workers, n int, do func(i int)) {
	if workers < 1 {
		workers = 1
	}
	pool := worker.NewDynamicWorkerPool(workers, 256, 1*time.Second)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		idx := i
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				do(idx)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func quantize(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}

func frac(v float64) float64 {
	f := v - float64(int(v))
	if f < 0 {
		f++
	}
	return f
}
