package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const composeTestSource = `
struct SkyUniform {
    inv_view_proj: mat4x4<f32>,
    camera_position: vec3<f32>,
    exposure: f32,
}

@group(0) @binding(0) var<uniform> sky: SkyUniform;
@group(0) @binding(1) var transmittance_lut: texture_2d<f32>;
@group(0) @binding(2) var scattering_lut: texture_3d<f32>;
@group(0) @binding(3) var lut_sampler: sampler;
@group(1) @binding(0) var shadow_maps: texture_depth_2d_array;
@group(1) @binding(1) var shadow_sampler: sampler_comparison;

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`

const raymarchTestSource = `
struct CloudUniform {
    density_scale: f32,
    coverage: f32,
    wind: vec2<f32>,
}

@group(0) @binding(0) var<uniform> clouds: CloudUniform;
@group(0) @binding(1) var shape_noise: texture_3d<f32>;
@group(0) @binding(2) var output: texture_storage_2d<rgba16float, write>;

@compute @workgroup_size(8, 8)
fn cs_main(@builtin(global_invocation_id) gid: vec3<u32>) {
}
`

func TestParseEntryPoints(t *testing.T) {
	assert.Equal(t, "vs_main", parseEntryPoint(composeTestSource, ShaderTypeVertex))
	assert.Equal(t, "fs_main", parseEntryPoint(composeTestSource, ShaderTypeFragment))
	assert.Equal(t, "", parseEntryPoint(composeTestSource, ShaderTypeCompute))
	assert.Equal(t, "cs_main", parseEntryPoint(raymarchTestSource, ShaderTypeCompute))
}

func TestParseWorkgroupSize(t *testing.T) {
	assert.Equal(t, [3]uint32{8, 8, 1}, parseWorkgroupSize(raymarchTestSource))
	assert.Equal(t, [3]uint32{1, 1, 1}, parseWorkgroupSize("fn main() {}"))
	assert.Equal(t, [3]uint32{4, 2, 3}, parseWorkgroupSize("@compute @workgroup_size(4, 2, 3) fn m() {}"))
	assert.Equal(t, [3]uint32{64, 1, 1}, parseWorkgroupSize("@compute @workgroup_size(64) fn m() {}"))
}

func TestParseBindGroupLayoutsBuffers(t *testing.T) {
	layouts, varNames := parseBindGroupLayouts(composeTestSource, wgpu.ShaderStageFragment)

	require.Contains(t, layouts, 0)
	entries := layouts[0].Entries
	require.Len(t, entries, 4)

	// Entries sorted by binding
	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	// mat4x4 (64) + vec3 at offset 64 (12) + f32 at 76, rounded to align 16 = 80
	assert.Equal(t, uint64(80), entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[0].Visibility)

	assert.Equal(t, "sky", varNames[0][0])
	assert.Equal(t, "lut_sampler", varNames[0][3])
}

func TestParseBindGroupLayoutsTextures(t *testing.T) {
	layouts, _ := parseBindGroupLayouts(composeTestSource, wgpu.ShaderStageFragment)

	entries := layouts[0].Entries
	assert.Equal(t, wgpu.TextureSampleTypeFloat, entries[1].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, entries[1].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureViewDimension3D, entries[2].Texture.ViewDimension)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entries[3].Sampler.Type)

	require.Contains(t, layouts, 1)
	shadowEntries := layouts[1].Entries
	require.Len(t, shadowEntries, 2)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, shadowEntries[0].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2DArray, shadowEntries[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.SamplerBindingTypeComparison, shadowEntries[1].Sampler.Type)
}

func TestParseBindGroupLayoutsStorageTexture(t *testing.T) {
	layouts, _ := parseBindGroupLayouts(raymarchTestSource, wgpu.ShaderStageCompute)

	require.Contains(t, layouts, 0)
	entries := layouts[0].Entries
	require.Len(t, entries, 3)

	// f32 + f32 + vec2<f32> = 16 bytes
	assert.Equal(t, uint64(16), entries[0].Buffer.MinBindingSize)

	storage := entries[2]
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, storage.StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, storage.StorageTexture.Access)
	assert.Equal(t, wgpu.TextureViewDimension2D, storage.StorageTexture.ViewDimension)
}

func TestParseVertexLayouts(t *testing.T) {
	src := `
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) world_normal: vec3<f32>,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    return out;
}
`
	layouts := parseVertexLayouts(src)
	require.Len(t, layouts, 1)

	layout := layouts[0][0]
	assert.Equal(t, uint64(32), layout.ArrayStride)
	require.Len(t, layout.Attributes, 3)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, layout.Attributes[0].Format)
	assert.Equal(t, uint64(0), layout.Attributes[0].Offset)
	assert.Equal(t, uint64(12), layout.Attributes[1].Offset)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, layout.Attributes[2].Format)
	assert.Equal(t, uint64(24), layout.Attributes[2].Offset)
}

func TestParseVertexLayoutsFullscreenShaderHasNone(t *testing.T) {
	layouts := parseVertexLayouts(composeTestSource)
	assert.Empty(t, layouts)
}

func TestResolveStructLayoutsNested(t *testing.T) {
	src := `
struct Cascade {
    view_proj: mat4x4<f32>,
    split_depth: f32,
    texel_size: f32,
}

struct ShadowParams {
    cascades: array<Cascade, 4>,
    cascade_count: u32,
}
`
	sizes := resolveStructLayouts(parseModule(src).structs)

	require.Contains(t, sizes, "Cascade")
	// 64 + 4 + 4 = 72, rounded to align 16 = 80
	assert.Equal(t, uint64(80), sizes["Cascade"].bytes)

	require.Contains(t, sizes, "ShadowParams")
	// 4 * 80 + 4 = 324, rounded to align 16 = 336
	assert.Equal(t, uint64(336), sizes["ShadowParams"].bytes)
}

func TestStripComments(t *testing.T) {
	src := "a // line comment\n/* block\ncomment */b\n/* outer /* nested */ still */c"
	out := stripComments(src)
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")
	assert.Contains(t, out, "c")
	assert.NotContains(t, out, "comment")
	assert.NotContains(t, out, "nested")
}
