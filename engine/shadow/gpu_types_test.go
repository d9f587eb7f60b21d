package shadow

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUShadowParamsLayout(t *testing.T) {
	var p GPUShadowParams
	assert.Equal(t, 336, p.Size())

	assert.Equal(t, uintptr(0), unsafe.Offsetof(p.Cascades))
	assert.Equal(t, uintptr(320), unsafe.Offsetof(p.CascadeCount))
	assert.Equal(t, uintptr(324), unsafe.Offsetof(p.MapSize))
	assert.Equal(t, uintptr(328), unsafe.Offsetof(p.FadeEnabled))
	assert.Equal(t, uintptr(332), unsafe.Offsetof(p.DisableLastCascadeCutoff))

	var c GPUCascade
	assert.Equal(t, uintptr(80), unsafe.Sizeof(c))
	assert.Equal(t, uintptr(64), unsafe.Offsetof(c.SplitDepth))
	assert.Equal(t, uintptr(68), unsafe.Offsetof(c.TexelSize))
}

func TestGPUShadowParamsMarshal(t *testing.T) {
	var p GPUShadowParams
	p.Cascades[1].ViewProj[0] = 2.5
	p.Cascades[1].SplitDepth = 120
	p.Cascades[1].TexelSize = 0.25
	p.CascadeCount = 2
	p.MapSize = 1024
	p.FadeEnabled = 1

	buf := p.Marshal()
	require.Len(t, buf, p.Size())

	f32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	assert.Equal(t, float32(2.5), f32(80))
	assert.Equal(t, float32(120), f32(80+64))
	assert.Equal(t, float32(0.25), f32(80+68))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[320:]))
	assert.Equal(t, uint32(1024), binary.LittleEndian.Uint32(buf[324:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[328:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[332:]))
}

func TestCSMGPUPacking(t *testing.T) {
	c := NewCSM(WithCascadeCount(2), WithMapSize(512), WithFade(true), WithDisableLastCascadeCutoff(true))
	c.Update(testCamera(0, 20, 0), [3]float32{0, 1, 0})

	p := c.GPU()
	assert.Equal(t, uint32(2), p.CascadeCount)
	assert.Equal(t, uint32(512), p.MapSize)
	assert.Equal(t, uint32(1), p.FadeEnabled)
	assert.Equal(t, uint32(1), p.DisableLastCascadeCutoff)

	for i := 0; i < 2; i++ {
		assert.Equal(t, c.Cascades()[i].ViewProj, p.Cascades[i].ViewProj)
		assert.Equal(t, c.Cascades()[i].SplitDepth, p.Cascades[i].SplitDepth)
	}
	// Unused slots stay zeroed.
	assert.Equal(t, GPUCascade{}, p.Cascades[2])
	assert.Equal(t, GPUCascade{}, p.Cascades[3])
}

func TestShadowShaderEmbedded(t *testing.T) {
	require.NotEmpty(t, GPUShadowSource)
	for _, decl := range []string{
		"struct Cascade",
		"struct ShadowParams",
		"fn select_cascade",
		"fn sample_cascade",
		"fn sample_shadow",
	} {
		assert.Contains(t, GPUShadowSource, decl)
	}
}
