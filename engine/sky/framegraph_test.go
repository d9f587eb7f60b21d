package sky

import (
	"fmt"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strato-gfx/strato-go/common"
	"github.com/strato-gfx/strato-go/engine/atmosphere"
	"github.com/strato-gfx/strato-go/engine/camera"
	"github.com/strato-gfx/strato-go/engine/light"
	"github.com/strato-gfx/strato-go/engine/noise"
	"github.com/strato-gfx/strato-go/engine/renderer"
	"github.com/strato-gfx/strato-go/engine/renderer/bind_group_provider"
	"github.com/strato-gfx/strato-go/engine/renderer/material"
	"github.com/strato-gfx/strato-go/engine/renderer/pipeline"
	"github.com/strato-gfx/strato-go/engine/shadow"
)

type bufferWriteRecord struct {
	label   string
	binding int
	size    int
}

// fakeRenderer records the pipeline registrations, resource uploads, buffer
// writes, and pass sequence a frame graph issues, without touching a device.
type fakeRenderer struct {
	ops        []string
	pipelines  []string
	writes     []bufferWriteRecord
	dispatches [][3]uint32
}

func (f *fakeRenderer) Pipeline(key string) pipeline.Pipeline { return nil }

func (f *fakeRenderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		f.pipelines = append(f.pipelines, p.PipelineKey())
		f.ops = append(f.ops, "register:"+p.PipelineKey())
	}
	return nil
}

func (f *fakeRenderer) Resize(width, height int) {
	f.ops = append(f.ops, fmt.Sprintf("resize:%dx%d", width, height))
}

func (f *fakeRenderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	f.ops = append(f.ops, "mesh:"+provider.Label())
	return nil
}

func (f *fakeRenderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	f.ops = append(f.ops, "bind_group:"+provider.Label())
	return nil
}

func (f *fakeRenderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	f.ops = append(f.ops, fmt.Sprintf("texture:%s:%d", provider.Label(), bindingKey))
	return nil
}

func (f *fakeRenderer) InitStorageTexture(provider bind_group_provider.BindGroupProvider, bindingKey int, width, height, layers uint32, format wgpu.TextureFormat) error {
	f.ops = append(f.ops, fmt.Sprintf("storage:%s:%d", provider.Label(), bindingKey))
	return nil
}

func (f *fakeRenderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	f.ops = append(f.ops, fmt.Sprintf("sampler:%s:%d", provider.Label(), bindingKey))
	return nil
}

func (f *fakeRenderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	f.ops = append(f.ops, "write_buffers")
	for _, w := range writes {
		f.writes = append(f.writes, bufferWriteRecord{
			label:   w.Provider.Label(),
			binding: w.Binding,
			size:    len(w.Data),
		})
	}
}

func (f *fakeRenderer) BeginComputeFrame() error {
	f.ops = append(f.ops, "begin_compute")
	return nil
}

func (f *fakeRenderer) EndComputeFrame() { f.ops = append(f.ops, "end_compute") }

func (f *fakeRenderer) DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) {
	f.ops = append(f.ops, "dispatch:"+pipelineKey)
	f.dispatches = append(f.dispatches, workGroupCount)
}

func (f *fakeRenderer) BeginFrame() error {
	f.ops = append(f.ops, "begin_frame")
	return nil
}

func (f *fakeRenderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	f.ops = append(f.ops, fmt.Sprintf("draw:%s:%d", pipelineKey, len(bindGroups)))
	return nil
}

func (f *fakeRenderer) DrawFullscreen(pipelineKey string, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	f.ops = append(f.ops, fmt.Sprintf("fullscreen:%s:%d", pipelineKey, vertexCount))
	return nil
}

func (f *fakeRenderer) EndFrame() { f.ops = append(f.ops, "end_frame") }

func (f *fakeRenderer) Present() { f.ops = append(f.ops, "present") }

func (f *fakeRenderer) SetPresentMode(mode renderer.PresentMode) {}

func (f *fakeRenderer) CreateCascadeDepthArray(size, cascades int) ([]*wgpu.TextureView, *wgpu.TextureView, *wgpu.Texture, error) {
	f.ops = append(f.ops, fmt.Sprintf("cascade_array:%dx%d", size, cascades))
	return make([]*wgpu.TextureView, cascades), nil, nil, nil
}

func (f *fakeRenderer) CreateComparisonSampler() (*wgpu.Sampler, error) {
	f.ops = append(f.ops, "comparison_sampler")
	return nil, nil
}

func (f *fakeRenderer) RegisterShadowPipeline(p pipeline.Pipeline) error {
	f.pipelines = append(f.pipelines, p.PipelineKey())
	f.ops = append(f.ops, "register_shadow:"+p.PipelineKey())
	return nil
}

func (f *fakeRenderer) BeginShadowFrame() error {
	f.ops = append(f.ops, "begin_shadow_frame")
	return nil
}

func (f *fakeRenderer) BeginShadowPass(depthView *wgpu.TextureView) {
	f.ops = append(f.ops, "begin_shadow_pass")
}

func (f *fakeRenderer) ShadowDrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	f.ops = append(f.ops, "shadow_draw:"+pipelineKey)
	return nil
}

func (f *fakeRenderer) EndShadowPass() { f.ops = append(f.ops, "end_shadow_pass") }

func (f *fakeRenderer) EndShadowFrame() { f.ops = append(f.ops, "end_shadow_frame") }

var _ renderer.Renderer = &fakeRenderer{}

func (f *fakeRenderer) reset() {
	f.ops = nil
	f.writes = nil
	f.dispatches = nil
}

func (f *fakeRenderer) opIndex(op string) int {
	for i, o := range f.ops {
		if o == op {
			return i
		}
	}
	return -1
}

func (f *fakeRenderer) writesTo(label string, binding int) []bufferWriteRecord {
	var out []bufferWriteRecord
	for _, w := range f.writes {
		if w.label == label && w.binding == binding {
			out = append(out, w)
		}
	}
	return out
}

// newFrameGraphComposer builds a composer over a baked fake atmosphere with
// small tables, enough for Init to stage real texture uploads.
func newFrameGraphComposer(t *testing.T) Composer {
	t.Helper()
	model := newFakeModel(true)
	model.tables = &atmosphere.Tables{
		Transmittance: atmosphere.NewTexture2D(4, 2),
		Scattering:    atmosphere.NewTexture3D(4, 4, 4),
		Irradiance:    atmosphere.NewTexture2D(4, 2),
	}
	cam := camera.NewCamera(camera.WithAspect(16.0 / 9.0))
	sun := light.NewSun(light.WithElevationAzimuth(0.5, 1.0))
	return NewComposer(model, cam, sun,
		WithWorkers(2),
		WithBeerShadowMapSize(8),
		WithBlueNoise(noise.GenerateBlueNoise(8, 8, 2)),
		WithCSM(shadow.NewCSM(shadow.WithCascadeCount(2), shadow.WithMapSize(256))),
	)
}

func newTestFrameGraph(t *testing.T) (FrameGraph, *fakeRenderer) {
	t.Helper()
	fg := NewFrameGraph(newFrameGraphComposer(t),
		WithCloudResolution(100, 60),
		WithWeatherMapSize(16),
		WithShapeVolumeSize(8),
		WithGenerationWorkers(2),
	)
	r := &fakeRenderer{}
	require.NoError(t, fg.Init(r))
	return fg, r
}

func TestNewFrameGraphValidation(t *testing.T) {
	assert.Panics(t, func() { NewFrameGraph(nil) })
	c := newFrameGraphComposer(t)
	assert.Panics(t, func() { NewFrameGraph(c, WithCloudResolution(0, 60)) })
	assert.Panics(t, func() { NewFrameGraph(c, WithWeatherMapSize(0)) })
	assert.Panics(t, func() { NewFrameGraph(c, WithShapeVolumeSize(-1)) })
	assert.Panics(t, func() { NewFrameGraph(c, WithGenerationWorkers(0)) })
}

func TestFrameGraphRequiresBakedAtmosphere(t *testing.T) {
	model := newFakeModel(false)
	cam := camera.NewCamera(camera.WithAspect(16.0 / 9.0))
	sun := light.NewSun()
	fg := NewFrameGraph(NewComposer(model, cam, sun, WithWorkers(2), WithBeerShadowMapSize(8)))
	r := &fakeRenderer{}
	assert.Error(t, fg.Init(r))
	assert.Error(t, fg.Encode(r))
}

func TestFrameGraphInitBuildsResources(t *testing.T) {
	_, r := newTestFrameGraph(t)

	assert.Equal(t, []string{"cloud_march", "sky_compose"}, r.pipelines)

	// Weather, shape, and blue noise uploads plus the two storage targets.
	for _, op := range []string{
		"texture:cloud_march:2", "texture:cloud_march:3", "texture:cloud_march:4",
		"storage:cloud_march:7", "storage:cloud_march:8",
		"bind_group:cloud_march",
	} {
		assert.GreaterOrEqual(t, r.opIndex(op), 0, op)
	}

	// Baked table uploads and the compose bind group.
	for _, op := range []string{
		"texture:sky_compose:4", "texture:sky_compose:5", "texture:sky_compose:6",
		"sampler:sky_compose:7", "bind_group:sky_compose",
	} {
		assert.GreaterOrEqual(t, r.opIndex(op), 0, op)
	}

	// The march depth placeholder is cleared once during init.
	assert.GreaterOrEqual(t, r.opIndex("cascade_array:1x1"), 0)
	assert.Less(t, r.opIndex("begin_shadow_frame"), r.opIndex("end_shadow_frame"))

	// The static atmosphere uniform lands in the compose buffer.
	assert.NotEmpty(t, r.writesTo("sky_compose", 0))
}

func TestFrameGraphEncodeSequence(t *testing.T) {
	fg, r := newTestFrameGraph(t)
	r.reset()

	require.NoError(t, fg.Encode(r))

	// Uniform writes land before any pass begins.
	assert.Equal(t, "write_buffers", r.ops[0])
	assert.Less(t, r.opIndex("begin_compute"), r.opIndex("dispatch:cloud_march"))
	assert.Less(t, r.opIndex("dispatch:cloud_march"), r.opIndex("end_compute"))
	assert.Less(t, r.opIndex("end_compute"), r.opIndex("begin_frame"))
	assert.Less(t, r.opIndex("begin_frame"), r.opIndex("fullscreen:sky_compose:3"))
	assert.Less(t, r.opIndex("fullscreen:sky_compose:3"), r.opIndex("end_frame"))
	assert.Equal(t, "present", r.ops[len(r.ops)-1])

	// No casters were registered, so no cascade depth passes run.
	assert.Equal(t, -1, r.opIndex("begin_shadow_frame"))

	// Workgroup counts cover the 100x60 output at 8x8 threads per group.
	require.Len(t, r.dispatches, 1)
	assert.Equal(t, [3]uint32{13, 8, 1}, r.dispatches[0])

	// March uniforms and cascade matrices refresh every frame.
	require.Len(t, r.writesTo("cloud_march", 1), 1)
	assert.Equal(t, 6*64, r.writesTo("cloud_march", 1)[0].size)
	assert.NotEmpty(t, r.writesTo("cloud_march", 0))
	for _, binding := range []int{1, 2, 3} {
		assert.NotEmpty(t, r.writesTo("sky_compose", binding), "compose binding %d", binding)
	}
}

func TestFrameGraphShadowCastingAndSurfaces(t *testing.T) {
	fg, r := newTestFrameGraph(t)

	mesh := bind_group_provider.NewBindGroupProvider("terrain_mesh")
	assert.Error(t, fg.AddCaster("caster_depth", mesh))

	layout := wgpu.BindGroupLayoutDescriptor{}
	require.NoError(t, fg.EnableShadowCasting(r, layout, layout))
	require.NoError(t, fg.AddCaster("caster_depth", mesh))

	ground := material.NewMaterial("ground", material.WithPipelineKey("occluder"))
	require.NoError(t, fg.AddSurface(r, ground, mesh, layout, true))
	assert.NotNil(t, ground.BindGroupProvider())
	assert.NotEmpty(t, r.writesTo("ground_surface", 2))

	r.reset()
	require.NoError(t, fg.Encode(r))

	// Both cascades render the caster before the cloud march runs.
	assert.Less(t, r.opIndex("begin_shadow_frame"), r.opIndex("begin_compute"))
	var shadowDraws, shadowPasses int
	for _, op := range r.ops {
		switch op {
		case "shadow_draw:caster_depth":
			shadowDraws++
		case "begin_shadow_pass":
			shadowPasses++
		}
	}
	assert.Equal(t, 2, shadowPasses)
	assert.Equal(t, 2, shadowDraws)

	// Each cascade's light matrix is a single 4x4 in its own uniform buffer.
	casterWrites := r.writesTo("caster_depth", 0)
	require.Len(t, casterWrites, 2)
	for _, w := range casterWrites {
		assert.Equal(t, 64, w.size)
	}
	assert.NotEmpty(t, r.writesTo("shadow_sampling", 0))

	// The surface draws after the sky with its material and shadow groups.
	fullscreen := r.opIndex("fullscreen:sky_compose:3")
	surfaceDraw := r.opIndex("draw:occluder:2")
	assert.Greater(t, surfaceDraw, fullscreen)
	assert.Less(t, surfaceDraw, r.opIndex("end_frame"))

	// Camera and sun uniforms refresh on the surface every frame.
	assert.NotEmpty(t, r.writesTo("ground_surface", 0))
	assert.NotEmpty(t, r.writesTo("ground_surface", 1))
}

func TestFrameGraphShadowedSurfaceRequiresShadows(t *testing.T) {
	fg, r := newTestFrameGraph(t)
	ground := material.NewMaterial("ground", material.WithPipelineKey("occluder"))
	mesh := bind_group_provider.NewBindGroupProvider("terrain_mesh")
	assert.Error(t, fg.AddSurface(r, ground, mesh, wgpu.BindGroupLayoutDescriptor{}, true))
	require.NoError(t, fg.AddSurface(r, ground, mesh, wgpu.BindGroupLayoutDescriptor{}, false))
}
