package material

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaterialDefaults(t *testing.T) {
	m := NewMaterial("ground")

	assert.Equal(t, "ground", m.Name())
	p := m.Params()
	assert.Equal(t, [4]float32{1, 1, 1, 1}, p.BaseColor)
	assert.Equal(t, float32(1.0), p.Roughness)
	assert.Equal(t, float32(1.0), p.ShadowStrength)
	assert.Empty(t, m.Variants().Names())
}

func TestNewMaterialOptions(t *testing.T) {
	m := NewMaterial("terrain",
		WithBaseColor([4]float32{0.3, 0.5, 0.2, 1}),
		WithRoughness(0.8),
		WithShadowStrength(0.9),
		WithDefines("RECEIVE_SHADOWS", "FOG"),
		WithPipelineKey("terrain_lit"),
	)

	assert.Equal(t, [4]float32{0.3, 0.5, 0.2, 1}, m.Params().BaseColor)
	assert.Equal(t, float32(0.8), m.Params().Roughness)
	assert.Equal(t, "terrain_lit", m.PipelineKey())
	assert.Equal(t, []string{"FOG", "RECEIVE_SHADOWS"}, m.Variants().Names())
}

func TestMaterialOverlayApplyRestore(t *testing.T) {
	m := NewMaterial("caster", WithDefines("FOG"))

	strength := float32(0.5)
	m.Apply(Overlay{
		Name:           "cascade-shadows",
		Defines:        []string{"RECEIVE_SHADOWS", "PCF"},
		Undefines:      []string{"FOG"},
		ShadowStrength: &strength,
	})

	assert.True(t, m.Variants().Defined("RECEIVE_SHADOWS"))
	assert.True(t, m.Variants().Defined("PCF"))
	assert.False(t, m.Variants().Defined("FOG"))
	assert.Equal(t, float32(0.5), m.Params().ShadowStrength)

	require.NoError(t, m.Restore())
	assert.False(t, m.Variants().Defined("RECEIVE_SHADOWS"))
	assert.True(t, m.Variants().Defined("FOG"))
	assert.Equal(t, float32(1.0), m.Params().ShadowStrength)
}

func TestMaterialOverlayNilFieldsLeaveParams(t *testing.T) {
	m := NewMaterial("rock", WithBaseColor([4]float32{0.4, 0.4, 0.4, 1}), WithRoughness(0.7))

	m.Apply(Overlay{Name: "defines-only", Defines: []string{"DEBUG_CASCADES"}})
	assert.Equal(t, [4]float32{0.4, 0.4, 0.4, 1}, m.Params().BaseColor)
	assert.Equal(t, float32(0.7), m.Params().Roughness)
	require.NoError(t, m.Restore())
}

func TestMaterialNestedOverlays(t *testing.T) {
	m := NewMaterial("layered")

	r1 := float32(0.2)
	m.Apply(Overlay{Name: "first", Roughness: &r1})
	r2 := float32(0.9)
	m.Apply(Overlay{Name: "second", Roughness: &r2, Defines: []string{"INNER"}})

	assert.Equal(t, float32(0.9), m.Params().Roughness)
	require.NoError(t, m.Restore())
	assert.Equal(t, float32(0.2), m.Params().Roughness)
	assert.False(t, m.Variants().Defined("INNER"))
	require.NoError(t, m.Restore())
	assert.Equal(t, float32(1.0), m.Params().Roughness)
}

func TestMaterialRestoreWithoutApply(t *testing.T) {
	m := NewMaterial("plain")
	err := m.Restore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plain")
}

func TestGPUMaterialParamsLayout(t *testing.T) {
	var p GPUMaterialParams
	assert.Equal(t, 32, p.Size())
	assert.Equal(t, uintptr(0), unsafe.Offsetof(p.BaseColor))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(p.Roughness))
	assert.Equal(t, uintptr(20), unsafe.Offsetof(p.ShadowStrength))
}

func TestGPUMaterialParamsMarshal(t *testing.T) {
	p := GPUMaterialParams{
		BaseColor:      [4]float32{0.25, 0.5, 0.75, 1.0},
		Roughness:      0.5,
		ShadowStrength: 0.9,
	}
	buf := p.Marshal()
	require.Len(t, buf, 32)

	// 0.25 = 0x3E800000 little-endian
	assert.Equal(t, byte(0x3E), buf[3])
	// 0.5 = 0x3F000000
	assert.Equal(t, byte(0x3F), buf[19])
}

func TestMaterialShaderSourceEmbedded(t *testing.T) {
	assert.Contains(t, GPUMaterialParamsSource, "struct MaterialParams")
	assert.Contains(t, GPUMaterialParamsSource, "shadow_strength")
}

func TestOccluderShaderSourcesEmbedded(t *testing.T) {
	assert.Contains(t, GPUOccluderSource, "//#include <shadow_sampling>")
	assert.Contains(t, GPUOccluderSource, "//#ifdef SHADOWS_ENABLED")
	assert.Contains(t, GPUOccluderSource, "fn vs_main")
	assert.Contains(t, GPUOccluderSource, "fn fs_main")

	assert.Contains(t, GPUOccluderDepthSource, "struct CasterParams")
	assert.Contains(t, GPUOccluderDepthSource, "fn vs_main")
	assert.NotContains(t, GPUOccluderDepthSource, "fn fs_main")
}
