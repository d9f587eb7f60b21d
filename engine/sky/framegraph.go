package sky

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/strato-gfx/strato-go/common"
	"github.com/strato-gfx/strato-go/engine/atmosphere"
	"github.com/strato-gfx/strato-go/engine/camera"
	"github.com/strato-gfx/strato-go/engine/cloud"
	"github.com/strato-gfx/strato-go/engine/light"
	"github.com/strato-gfx/strato-go/engine/noise"
	"github.com/strato-gfx/strato-go/engine/renderer"
	"github.com/strato-gfx/strato-go/engine/renderer/bind_group_provider"
	"github.com/strato-gfx/strato-go/engine/renderer/material"
	"github.com/strato-gfx/strato-go/engine/renderer/pipeline"
	"github.com/strato-gfx/strato-go/engine/renderer/shader"
)

const (
	cloudMarchKey = "cloud_march"
	skyComposeKey = "sky_compose"
)

// FrameGraph owns the GPU sky pipeline built on top of a composer: the cloud
// march compute pass, the full-screen compose pass, and optionally the
// cascade depth passes and shadowed scene surfaces. Init uploads the baked
// tables and procedural volumes once; Encode records one frame in pass order
// (shadow, compute, compose, surfaces) and presents it.
type FrameGraph interface {
	// Init registers the cloud march and sky compose pipelines and uploads
	// the static resources: baked atmosphere tables, weather map, shape
	// volume, blue noise, and the storage targets the march writes.
	//
	// Parameters:
	//   - r: the renderer to build resources on
	//
	// Returns:
	//   - error: if the composer is not baked or resource creation fails
	Init(r renderer.Renderer) error

	// EnableShadowCasting creates the cascade depth array, the comparison
	// sampler, and the per-cascade caster uniforms so that casters added
	// with AddCaster render into the cascades each frame.
	//
	// Parameters:
	//   - r: the renderer to build resources on
	//   - samplingLayout: the bind group layout surfaces sample shadows with
	//   - casterLayout: the bind group layout of the depth-only caster pass
	//
	// Returns:
	//   - error: if resource creation fails
	EnableShadowCasting(r renderer.Renderer, samplingLayout, casterLayout wgpu.BindGroupLayoutDescriptor) error

	// AddCaster adds a mesh drawn into every cascade depth map.
	//
	// Parameters:
	//   - pipelineKey: the registered shadow pipeline to draw with
	//   - mesh: the provider holding the mesh buffers
	//
	// Returns:
	//   - error: if shadow casting has not been enabled
	AddCaster(pipelineKey string, mesh bind_group_provider.BindGroupProvider) error

	// AddSurface adds a lit mesh drawn after the sky compose pass. The
	// material's bind group is created here and receives the camera, sun,
	// and material uniforms; shadowed surfaces also bind the cascade maps.
	//
	// Parameters:
	//   - r: the renderer to build resources on
	//   - mat: the surface material, drawn with its pipeline key
	//   - mesh: the provider holding the mesh buffers
	//   - surfaceLayout: the bind group layout of the surface pass
	//   - shadowed: whether the surface samples the cascade depth maps
	//
	// Returns:
	//   - error: if resource creation fails or shadows are required but
	//     not enabled
	AddSurface(r renderer.Renderer, mat material.Material, mesh bind_group_provider.BindGroupProvider,
		surfaceLayout wgpu.BindGroupLayoutDescriptor, shadowed bool) error

	// Encode writes the per-frame uniforms and records one frame: cascade
	// depth passes for registered casters, the cloud march dispatch, the
	// full-screen compose, the surface draws, then present.
	//
	// Parameters:
	//   - r: the renderer to encode on
	//
	// Returns:
	//   - error: if the graph is not initialized or a pass fails to begin
	Encode(r renderer.Renderer) error
}

type casterDraw struct {
	pipelineKey string
	mesh        bind_group_provider.BindGroupProvider
}

type surfaceDraw struct {
	mat      material.Material
	mesh     bind_group_provider.BindGroupProvider
	shadowed bool
}

type frameGraphImpl struct {
	composer Composer

	cloudWidth  int
	cloudHeight int
	weatherSize int
	shapeSize   int
	workers     int
	seed        int64

	marchCS   shader.Shader
	composeVS shader.Shader
	composeFS shader.Shader

	cloudProvider   bind_group_provider.BindGroupProvider
	composeProvider bind_group_provider.BindGroupProvider

	cascadeViews    []*wgpu.TextureView
	shadowProvider  bind_group_provider.BindGroupProvider
	casterProviders []bind_group_provider.BindGroupProvider

	casters  []casterDraw
	surfaces []surfaceDraw

	prevViewProj [16]float32
	initialized  bool
}

var _ FrameGraph = &frameGraphImpl{}

// NewFrameGraph creates a frame graph driven by the given composer. The
// composer supplies the camera, sun, marcher, shadow cascades, and jitter
// sequence; the graph owns everything GPU-side.
//
// Parameters:
//   - composer: the sky composer, must not be nil
//   - options: optional resolution and generation settings
//
// Returns:
//   - FrameGraph: the configured frame graph
func NewFrameGraph(composer Composer, options ...FrameGraphBuilderOption) FrameGraph {
	if composer == nil {
		panic("sky: composer must not be nil")
	}
	f := &frameGraphImpl{
		composer:    composer,
		cloudWidth:  960,
		cloudHeight: 540,
		weatherSize: 512,
		shapeSize:   128,
		workers:     4,
		seed:        1,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

func (f *frameGraphImpl) Init(r renderer.Renderer) error {
	tables := f.composer.Atmosphere().Tables()
	if tables == nil || tables.Transmittance == nil {
		return fmt.Errorf("sky: frame graph requires a baked atmosphere")
	}

	pp := shader.NewPreProcessor()
	pp.RegisterInclude("atmosphere", atmosphere.GPUAtmosphereSource)
	pp.RegisterInclude("camera_uniform", camera.GPUCameraUniformSource)
	pp.RegisterInclude("sun_light", light.GPUSunLightSource)
	variants := shader.NewVariantSet("CLOUDS_ENABLED")

	f.composeVS = shader.NewShader("sky_compose_vs", shader.ShaderTypeVertex, GPUComposeSource,
		shader.WithPreProcessor(pp), shader.WithVariants(variants))
	f.composeFS = shader.NewShader("sky_compose_fs", shader.ShaderTypeFragment, GPUComposeSource,
		shader.WithPreProcessor(pp), shader.WithVariants(variants))
	f.marchCS = shader.NewShader("cloud_march_cs", shader.ShaderTypeCompute, cloud.GPUCloudSource,
		shader.WithPreProcessor(pp))

	if err := r.RegisterPipelines(
		pipeline.NewPipeline(cloudMarchKey, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(f.marchCS),
		),
		pipeline.NewPipeline(skyComposeKey, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(f.composeVS),
			pipeline.WithFragmentShader(f.composeFS),
			pipeline.WithDepthTestEnabled(false),
			pipeline.WithDepthWriteEnabled(false),
			pipeline.WithCullMode(wgpu.CullModeNone),
		),
	); err != nil {
		return fmt.Errorf("sky: register pipelines: %w", err)
	}

	if err := f.initCloudResources(r); err != nil {
		return err
	}
	if err := f.initComposeResources(r, tables); err != nil {
		return err
	}

	f.prevViewProj = f.composer.Camera().ViewProjectionMatrix()
	f.initialized = true
	return nil
}

func (f *frameGraphImpl) initCloudResources(r renderer.Renderer) error {
	f.cloudProvider = bind_group_provider.NewBindGroupProvider(cloudMarchKey)

	weather := noise.GenerateWeatherMap(noise.DefaultWeatherSpec(f.seed, f.weatherSize, f.weatherSize), f.workers)
	shape := noise.GenerateVolume(noise.CumulusShapeSpec(f.seed+1, f.shapeSize), f.workers)
	if err := r.InitTextureView(f.cloudProvider, 2, weather); err != nil {
		return fmt.Errorf("sky: weather texture: %w", err)
	}
	if err := r.InitTextureView(f.cloudProvider, 3, shape); err != nil {
		return fmt.Errorf("sky: shape texture: %w", err)
	}
	if err := r.InitTextureView(f.cloudProvider, 4, f.composer.BlueNoise().Staging()); err != nil {
		return fmt.Errorf("sky: blue noise texture: %w", err)
	}
	if err := r.InitSampler(f.cloudProvider, 5, common.SamplerStagingData{}); err != nil {
		return fmt.Errorf("sky: linear sampler: %w", err)
	}

	// The march reads scene depth to stop at occluders. Without a scene
	// depth buffer it binds a 1x1 depth cleared to the far plane.
	dummyDepth, _, _, err := r.CreateCascadeDepthArray(1, 1)
	if err != nil {
		return fmt.Errorf("sky: march depth: %w", err)
	}
	if err := r.BeginShadowFrame(); err != nil {
		return fmt.Errorf("sky: clear march depth: %w", err)
	}
	r.BeginShadowPass(dummyDepth[0])
	r.EndShadowPass()
	r.EndShadowFrame()
	f.cloudProvider.SetTextureView(6, dummyDepth[0])

	if err := r.InitStorageTexture(f.cloudProvider, 7, uint32(f.cloudWidth), uint32(f.cloudHeight), 1, wgpu.TextureFormatRGBA32Float); err != nil {
		return fmt.Errorf("sky: cloud output: %w", err)
	}
	if err := r.InitStorageTexture(f.cloudProvider, 8, uint32(f.cloudWidth), uint32(f.cloudHeight), 1, wgpu.TextureFormatRG32Float); err != nil {
		return fmt.Errorf("sky: cloud velocity: %w", err)
	}
	if err := r.InitBindGroup(f.cloudProvider, f.marchCS.BindGroupLayoutDescriptor(0), nil, nil); err != nil {
		return fmt.Errorf("sky: cloud bind group: %w", err)
	}
	return nil
}

func (f *frameGraphImpl) initComposeResources(r renderer.Renderer, tables *atmosphere.Tables) error {
	f.composeProvider = bind_group_provider.NewBindGroupProvider(skyComposeKey)

	if err := r.InitTextureView(f.composeProvider, 4, tables.Transmittance.Staging()); err != nil {
		return fmt.Errorf("sky: transmittance texture: %w", err)
	}
	if err := r.InitTextureView(f.composeProvider, 5, tables.Scattering.Staging()); err != nil {
		return fmt.Errorf("sky: scattering texture: %w", err)
	}
	if err := r.InitTextureView(f.composeProvider, 6, tables.Irradiance.Staging()); err != nil {
		return fmt.Errorf("sky: irradiance texture: %w", err)
	}
	if err := r.InitSampler(f.composeProvider, 7, common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
	}); err != nil {
		return fmt.Errorf("sky: table sampler: %w", err)
	}
	f.composeProvider.SetTextureView(8, f.cloudProvider.TextureView(7))

	layouts := shader.MergeBindGroupLayouts(
		f.composeVS.BindGroupLayoutDescriptors(), f.composeFS.BindGroupLayoutDescriptors())
	if err := r.InitBindGroup(f.composeProvider, layouts[0], nil, nil); err != nil {
		return fmt.Errorf("sky: compose bind group: %w", err)
	}

	params := f.composer.Atmosphere().Parameters()
	atmParams := params.GPU()
	r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: f.composeProvider, Binding: 0, Data: atmParams.Marshal()},
	})
	return nil
}

func (f *frameGraphImpl) EnableShadowCasting(r renderer.Renderer, samplingLayout, casterLayout wgpu.BindGroupLayoutDescriptor) error {
	csm := f.composer.CSM()
	views, arrayView, _, err := r.CreateCascadeDepthArray(csm.MapSize(), csm.Count())
	if err != nil {
		return fmt.Errorf("sky: cascade depth array: %w", err)
	}
	f.cascadeViews = views

	f.shadowProvider = bind_group_provider.NewBindGroupProvider("shadow_sampling")
	f.shadowProvider.SetTextureView(1, arrayView)
	sampler, err := r.CreateComparisonSampler()
	if err != nil {
		return fmt.Errorf("sky: shadow sampler: %w", err)
	}
	f.shadowProvider.SetSampler(2, sampler)
	if err := r.InitBindGroup(f.shadowProvider, samplingLayout, nil, nil); err != nil {
		return fmt.Errorf("sky: shadow bind group: %w", err)
	}

	// Buffer writes execute ahead of submitted command buffers, so each
	// cascade holds its light matrix in its own uniform buffer.
	f.casterProviders = make([]bind_group_provider.BindGroupProvider, csm.Count())
	for i := range f.casterProviders {
		f.casterProviders[i] = bind_group_provider.NewBindGroupProvider("caster_depth")
		if err := r.InitBindGroup(f.casterProviders[i], casterLayout, nil, nil); err != nil {
			return fmt.Errorf("sky: caster bind group %d: %w", i, err)
		}
	}
	return nil
}

func (f *frameGraphImpl) AddCaster(pipelineKey string, mesh bind_group_provider.BindGroupProvider) error {
	if f.casterProviders == nil {
		return fmt.Errorf("sky: shadow casting is not enabled")
	}
	f.casters = append(f.casters, casterDraw{pipelineKey: pipelineKey, mesh: mesh})
	return nil
}

func (f *frameGraphImpl) AddSurface(r renderer.Renderer, mat material.Material, mesh bind_group_provider.BindGroupProvider,
	surfaceLayout wgpu.BindGroupLayoutDescriptor, shadowed bool) error {
	if shadowed && f.shadowProvider == nil {
		return fmt.Errorf("sky: shadow casting is not enabled")
	}
	provider := bind_group_provider.NewBindGroupProvider(mat.Name() + "_surface")
	if err := r.InitBindGroup(provider, surfaceLayout, nil, nil); err != nil {
		return fmt.Errorf("sky: surface bind group: %w", err)
	}
	matParams := mat.Params()
	r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: provider, Binding: 2, Data: matParams.Marshal()},
	})
	mat.SetBindGroupProvider(provider)
	f.surfaces = append(f.surfaces, surfaceDraw{mat: mat, mesh: mesh, shadowed: shadowed})
	return nil
}

func (f *frameGraphImpl) Encode(r renderer.Renderer) error {
	if !f.initialized {
		return fmt.Errorf("sky: frame graph is not initialized")
	}

	cam := f.composer.Camera()
	camUniform := cam.GPU()
	sunUniform := f.composer.Sun().GPU()
	composeParams := f.composer.GPUCompose()
	jw, jh, jd := f.composer.BlueNoise().Dimensions()
	cloudParams := f.composer.Marcher().Params(f.composer.Layer(),
		f.composer.Atmosphere().Parameters().BottomRadius,
		jw, jh, jd, int(f.composer.Frame()))
	viewProj := cam.ViewProjectionMatrix()
	matrices := cascadeMatricesBytes(cam, viewProj, f.prevViewProj)
	f.prevViewProj = viewProj

	writes := []bind_group_provider.BufferWrite{
		{Provider: f.cloudProvider, Binding: 0, Data: cloudParams.Marshal()},
		{Provider: f.cloudProvider, Binding: 1, Data: matrices},
		{Provider: f.composeProvider, Binding: 1, Data: camUniform.Marshal()},
		{Provider: f.composeProvider, Binding: 2, Data: sunUniform.Marshal()},
		{Provider: f.composeProvider, Binding: 3, Data: composeParams.Marshal()},
	}
	if f.shadowProvider != nil {
		shadowParams := f.composer.ShadowParams()
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: f.shadowProvider, Binding: 0, Data: shadowParams.Marshal(),
		})
		for i, cas := range f.composer.CSM().Cascades() {
			writes = append(writes, bind_group_provider.BufferWrite{
				Provider: f.casterProviders[i], Binding: 0, Data: common.SliceToBytes(cas.ViewProj[:]),
			})
		}
	}
	for _, s := range f.surfaces {
		writes = append(writes,
			bind_group_provider.BufferWrite{Provider: s.mat.BindGroupProvider(), Binding: 0, Data: camUniform.Marshal()},
			bind_group_provider.BufferWrite{Provider: s.mat.BindGroupProvider(), Binding: 1, Data: sunUniform.Marshal()},
		)
	}
	r.WriteBuffers(writes)

	if len(f.casters) > 0 {
		if err := r.BeginShadowFrame(); err != nil {
			return fmt.Errorf("sky: begin shadow frame: %w", err)
		}
		for i := range f.cascadeViews {
			r.BeginShadowPass(f.cascadeViews[i])
			for _, c := range f.casters {
				r.ShadowDrawCall(c.pipelineKey, c.mesh, 1,
					[]bind_group_provider.BindGroupProvider{f.casterProviders[i]})
			}
			r.EndShadowPass()
		}
		r.EndShadowFrame()
	}

	if err := r.BeginComputeFrame(); err != nil {
		return fmt.Errorf("sky: begin compute frame: %w", err)
	}
	r.DispatchCompute(cloudMarchKey, f.cloudProvider, [3]uint32{
		uint32(f.cloudWidth+7) / 8, uint32(f.cloudHeight+7) / 8, 1,
	})
	r.EndComputeFrame()

	if err := r.BeginFrame(); err != nil {
		return fmt.Errorf("sky: begin frame: %w", err)
	}
	var drawErr error
	if err := r.DrawFullscreen(skyComposeKey, 3,
		[]bind_group_provider.BindGroupProvider{f.composeProvider}); err != nil && drawErr == nil {
		drawErr = fmt.Errorf("sky: draw compose: %w", err)
	}
	for _, s := range f.surfaces {
		groups := []bind_group_provider.BindGroupProvider{s.mat.BindGroupProvider()}
		if s.shadowed {
			groups = append(groups, f.shadowProvider)
		}
		if err := r.DrawCall(s.mat.PipelineKey(), s.mesh, 1, groups); err != nil && drawErr == nil {
			drawErr = fmt.Errorf("sky: draw %s: %w", s.mat.Name(), err)
		}
	}
	r.EndFrame()
	r.Present()
	return drawErr
}

// cascadeMatricesBytes packs the CascadeMatrices uniform for the march
// kernel: the camera acts as the single view-space cascade, with last
// frame's view-projection as the reprojection matrix.
func cascadeMatricesBytes(cam camera.Camera, viewProj, prevViewProj [16]float32) []byte {
	var invViewProj, invProj [16]float32
	proj := cam.ProjectionMatrix()
	common.Invert4(invViewProj[:], viewProj[:])
	common.Invert4(invProj[:], proj[:])

	buf := make([]byte, 6*64)
	mats := [6][16]float32{viewProj, invViewProj, prevViewProj, cam.ViewMatrix(), proj, invProj}
	for i, m := range mats {
		for j, v := range m {
			common.PutFloat32(buf[i*64+j*4:], v)
		}
	}
	return buf
}
