package noise

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerlinDeterministicAndTileable(t *testing.T) {
	p := NewPerlin(42)
	same := NewPerlin(42)
	other := NewPerlin(43)

	a := p.Noise3(1.3, 2.7, 0.4, 4)
	assert.Equal(t, a, same.Noise3(1.3, 2.7, 0.4, 4))
	assert.NotEqual(t, a, other.Noise3(1.3, 2.7, 0.4, 4))

	// The field repeats every period cells along each axis.
	for _, period := range []int{2, 4, 8} {
		v := p.Noise3(0.37, 1.11, 0.9, period)
		assert.InDelta(t, v, p.Noise3(0.37+float64(period), 1.11, 0.9, period), 1e-12)
		assert.InDelta(t, v, p.Noise3(0.37, 1.11+float64(period), 0.9, period), 1e-12)
		assert.InDelta(t, v, p.Noise3(0.37, 1.11, 0.9+float64(period), period), 1e-12)
	}
}

func TestPerlinRange(t *testing.T) {
	p := NewPerlin(7)
	for i := 0; i < 1000; i++ {
		v := p.Noise3(float64(i)*0.173, float64(i)*0.311, float64(i)*0.059, 8)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestWorleyTileableAndBounded(t *testing.T) {
	w := NewWorley(42)
	for _, period := range []int{2, 4, 8} {
		v := w.Noise3(0.61, 1.43, 0.22, period)
		assert.InDelta(t, v, w.Noise3(0.61+float64(period), 1.43, 0.22, period), 1e-12)
		assert.InDelta(t, v, w.Noise3(0.61, 1.43+float64(period), 0.22, period), 1e-12)
	}
	for i := 0; i < 1000; i++ {
		x, y, z := float64(i)*0.137, float64(i)*0.291, float64(i)*0.073
		v := w.Noise3(x, y, z, 4)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		assert.InDelta(t, 1-v, w.InvertedNoise3(x, y, z, 4), 1e-12)
	}
}

func TestFBMNormalizedAndTileable(t *testing.T) {
	w := NewWorley(3)
	params := DefaultFBMParams()

	// Octave weights are normalized, so the sum stays in the base field's range.
	for i := 0; i < 200; i++ {
		v := FBM(w.InvertedNoise3, params, float64(i)*0.017, float64(i)*0.029, 0.5)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	// Integer frequency and lacunarity keep every octave tileable over [0, 1].
	v := FBM(w.InvertedNoise3, params, 0.013, 0.4, 0.7)
	assert.InDelta(t, v, FBM(w.InvertedNoise3, params, 1.013, 0.4, 0.7), 1e-12)

	assert.Panics(t, func() { FBM(w.InvertedNoise3, FBMParams{Frequency: 1, Lacunarity: 2, Octaves: 0}, 0, 0, 0) })
}

func TestSmoothstepRemap(t *testing.T) {
	assert.Equal(t, 0.0, Smoothstep(0.2, 0.8, 0.1))
	assert.Equal(t, 1.0, Smoothstep(0.2, 0.8, 0.9))
	assert.InDelta(t, 0.5, Smoothstep(0.2, 0.8, 0.5), 1e-12)

	// Degenerate edges act as a hard threshold, not a division by zero.
	assert.Equal(t, 0.0, Smoothstep(0.5, 0.5, 0.4))
	assert.Equal(t, 1.0, Smoothstep(0.5, 0.5, 0.6))
}

func TestGenerateWeatherMap(t *testing.T) {
	spec := DefaultWeatherSpec(11, 32, 16)
	staging := GenerateWeatherMap(spec, 2)

	assert.Equal(t, uint32(32), staging.Width)
	assert.Equal(t, uint32(16), staging.Height)
	require.Len(t, staging.Texels, 32*16*4)

	// Deterministic across runs and worker counts.
	again := GenerateWeatherMap(spec, 4)
	assert.Equal(t, staging.Texels, again.Texels)

	// The unused alpha channel stays empty.
	for i := 3; i < len(staging.Texels); i += 4 {
		assert.Equal(t, byte(0), staging.Texels[i])
	}

	// The weather offset shifts the field.
	shifted := spec
	shifted.OffsetU = 0.25
	assert.NotEqual(t, staging.Texels, GenerateWeatherMap(shifted, 2).Texels)
}

func TestGenerateVolume(t *testing.T) {
	staging := GenerateVolume(CumulusShapeSpec(5, 8), 2)
	require.Equal(t, wgpu.TextureDimension3D, staging.Dimension)
	assert.Equal(t, uint32(8), staging.DepthOrLayers)
	require.Len(t, staging.Texels, 8*8*8*4)

	// Inverted Worley through the remap must produce cloud mass somewhere and
	// clear air somewhere else.
	var hasDense, hasClear bool
	for i := 0; i < len(staging.Texels); i += 4 {
		if staging.Texels[i] > 200 {
			hasDense = true
		}
		if staging.Texels[i] < 50 {
			hasClear = true
		}
	}
	assert.True(t, hasDense, "expected dense texels in the shape volume")
	assert.True(t, hasClear, "expected clear texels in the shape volume")

	assert.Panics(t, func() { GenerateVolume(VolumeSpec{Size: 0}, 1) })
}

func TestBlueNoiseJitterWraps(t *testing.T) {
	b := GenerateBlueNoise(16, 16, 8)

	v := b.Jitter(3, 5, 2)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.Less(t, v, 1.0)
	// Pixel coordinates and frame index wrap at the tiling period.
	assert.Equal(t, v, b.Jitter(3+16, 5-16, 2+8))

	// Consecutive frames of one pixel differ: the temporal axis decorrelates.
	assert.NotEqual(t, b.Jitter(3, 5, 2), b.Jitter(3, 5, 3))
}

func TestLoadBlueNoise(t *testing.T) {
	texels := make([]byte, 4*4*2)
	texels[0] = 255
	b, err := LoadBlueNoise(texels, 4, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.Jitter(0, 0, 0))
	assert.Equal(t, 0.0, b.Jitter(1, 0, 0))

	_, err = LoadBlueNoise(texels, 4, 4, 3)
	require.Error(t, err)
	_, err = LoadBlueNoise(texels, 0, 4, 2)
	require.Error(t, err)
}

func TestBlueNoiseStaging(t *testing.T) {
	b := GenerateBlueNoise(BlueNoiseWidth, BlueNoiseHeight, BlueNoiseDepth)
	staging := b.Staging()
	assert.Equal(t, wgpu.TextureFormatR8Unorm, staging.Format)
	assert.Equal(t, uint32(1), staging.BytesPerTexel)
	assert.Len(t, staging.Texels, BlueNoiseWidth*BlueNoiseHeight*BlueNoiseDepth)
}
