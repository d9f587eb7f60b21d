package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mergeTestSource = `
struct SceneParams {
    view_proj: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> scene: SceneParams;
@group(0) @binding(1) var color_texture: texture_2d<f32>;
@group(0) @binding(2) var color_sampler: sampler;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return scene.view_proj * vec4<f32>(position, 1.0);
}

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return textureSample(color_texture, color_sampler, pos.xy);
}
`

func TestMergeBindGroupLayoutsSharedSource(t *testing.T) {
	vs := NewShader("merge_vs", ShaderTypeVertex, mergeTestSource)
	fs := NewShader("merge_fs", ShaderTypeFragment, mergeTestSource)

	merged := MergeBindGroupLayouts(vs.BindGroupLayoutDescriptors(), fs.BindGroupLayoutDescriptors())
	require.Contains(t, merged, 0)
	require.Len(t, merged[0].Entries, 3)

	// Both stages declare every binding, so visibility must be the union.
	for _, e := range merged[0].Entries {
		assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, e.Visibility,
			"binding %d", e.Binding)
	}

	// Entries come back sorted by binding index.
	for i, e := range merged[0].Entries {
		assert.Equal(t, uint32(i), e.Binding)
	}
}

func TestMergeBindGroupLayoutsDisjointGroups(t *testing.T) {
	vDescs := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageVertex},
		}},
	}
	fDescs := map[int]wgpu.BindGroupLayoutDescriptor{
		1: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageFragment},
		}},
	}

	merged := MergeBindGroupLayouts(vDescs, fDescs)
	require.Len(t, merged, 2)
	assert.Equal(t, wgpu.ShaderStageVertex, merged[0].Entries[0].Visibility)
	assert.Equal(t, wgpu.ShaderStageFragment, merged[1].Entries[0].Visibility)
}
