package renderer

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/strato-gfx/strato-go/common"
	"github.com/strato-gfx/strato-go/engine/renderer/bind_group_provider"
	"github.com/strato-gfx/strato-go/engine/renderer/pipeline"
	"github.com/strato-gfx/strato-go/engine/window"
)

// renderer implements Renderer on top of a RendererBackend, adding the
// pipeline cache and its locking.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Builder option state consumed during construction.
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer is the GPU resource layer for the sky pipeline. It owns the device
// and queue, creates and uploads the lookup textures (scattering tables, noise
// volumes, Beer shadow maps, cascade depth maps), registers the compute and
// composite pipelines, and encodes the per-frame pass sequence.
type Renderer interface {
	// Pipeline returns the registered pipeline under key, or nil when no
	// pipeline with that key has been registered.
	//
	// Parameters:
	//   - key: the pipeline key to look up
	//
	// Returns:
	//   - pipeline.Pipeline: the registered pipeline, or nil
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines builds the GPU pipeline object for each given
	// pipeline description, dispatching on its type (render, compute, or
	// shadow), and caches it under its key. A key that is already cached
	// is left untouched rather than rebuilt.
	//
	// Parameters:
	//   - pipelines: the pipeline descriptions to register
	//
	// Returns:
	//   - error: an error if any GPU pipeline could not be created
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the surface for a new size. The engine calls this
	// from its window resize callback before the next frame is encoded.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height int)

	// InitMeshBuffers uploads raw vertex and index bytes into GPU buffers
	// and stores them on the provider, along with the index count used by
	// indexed draws.
	//
	// Parameters:
	//   - provider: the provider that will carry the mesh buffers
	//   - vertexData: vertex bytes matching the pipeline's vertex layout
	//   - indexData: uint32 index bytes
	//   - indexCount: the number of indices to draw
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates the buffers a layout descriptor calls for and
	// assembles the provider's bind group from them together with any
	// texture views and samplers already staged on the provider. Buffer
	// bindings default to the descriptor's MinBindingSize with uniform or
	// storage usage derived from the binding type; both can be overridden
	// per binding index through the nil-safe override maps.
	//
	// Parameters:
	//   - provider: the provider that will carry the bind group
	//   - descriptor: the bind group layout to satisfy
	//   - bufferUsageOverrides: extra buffer usage flags per binding index, or nil
	//   - bufferSizeOverrides: buffer sizes replacing MinBindingSize per binding index, or nil
	//
	// Returns:
	//   - error: an error if buffer or bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitTextureView uploads staged texel data into a new GPU texture and
	// stores its view on the provider under the binding index. The staging
	// data carries format, dimension, and depth or layer count, covering
	// the 3D scattering tables, the noise volumes, and the Beer shadow map
	// array alongside plain 2D textures.
	//
	// Parameters:
	//   - provider: the provider that will carry the texture view
	//   - bindingKey: the binding index within the provider's group
	//   - stagingData: texel bytes plus extent and format
	//
	// Returns:
	//   - error: an error if texture creation or upload fails
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitStorageTexture creates an empty texture with storage binding
	// usage and stores its view on the provider. Compute passes write into
	// these; the raymarched cloud buffer and the resolved shadow buffer
	// are both storage textures.
	//
	// Parameters:
	//   - provider: the provider that will carry the texture view
	//   - bindingKey: the binding index within the provider's group
	//   - width, height: texture extents in texels
	//   - layers: array layer count, 0 or 1 for a plain 2D texture
	//   - format: the texel format
	//
	// Returns:
	//   - error: an error if texture creation fails
	InitStorageTexture(provider bind_group_provider.BindGroupProvider, bindingKey int, width, height, layers uint32, format wgpu.TextureFormat) error

	// InitSampler creates a sampler from staging data and stores it on the
	// provider under the binding index. Sampler bindings must be staged
	// this way before InitBindGroup assembles the group.
	//
	// Parameters:
	//   - provider: the provider that will carry the sampler
	//   - bindingKey: the binding index within the provider's group
	//   - samplerStagingData: filter and address mode configuration
	//
	// Returns:
	//   - error: an error if sampler creation fails
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers queues every buffer write for upload. The frame graph
	// batches all per-frame uniform updates (camera, sun, march and
	// cascade parameters) into one call at the top of the frame.
	//
	// Parameters:
	//   - writes: the buffer writes to queue
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginComputeFrame opens a command encoder that collects every
	// compute dispatch of the frame into one submission. Pair with
	// EndComputeFrame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// EndComputeFrame finishes the compute encoder and submits its command
	// buffer to the queue.
	EndComputeFrame()

	// DispatchCompute encodes one compute pass in the current compute
	// frame, binding the provider's group to the cached pipeline under
	// pipelineKey. Unknown keys are ignored.
	//
	// Parameters:
	//   - pipelineKey: the cached compute pipeline to run
	//   - computeProvider: the provider whose bind group feeds the pass
	//   - workGroupCount: workgroups to dispatch in x, y, and z
	DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32)

	// BeginFrame acquires the swapchain texture and opens the scene render
	// pass. Pair with EndFrame once every draw of the frame is encoded.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// DrawCall encodes one indexed, instanced draw in the scene pass.
	//
	// Parameters:
	//   - pipelineKey: the cached render pipeline to draw with
	//   - meshProvider: the provider carrying vertex and index buffers
	//   - instanceCount: the number of instances to draw
	//   - bindGroups: providers whose bind groups are set on the pass, in group order
	//
	// Returns:
	//   - error: an error if no pipeline is cached under pipelineKey
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// DrawFullscreen encodes a draw with no vertex buffer in the scene
	// pass. The sky compose pass draws this way, synthesizing a fullscreen
	// triangle from the vertex index in the shader.
	//
	// Parameters:
	//   - pipelineKey: the cached render pipeline to draw with
	//   - vertexCount: vertices to emit, 3 for a fullscreen triangle
	//   - bindGroups: providers whose bind groups are set on the pass, in group order
	//
	// Returns:
	//   - error: an error if no pipeline is cached under pipelineKey
	DrawFullscreen(pipelineKey string, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame closes the scene pass and submits its command buffer. The
	// swapchain texture stays acquired until Present.
	EndFrame()

	// Present hands the swapchain texture to the display and releases it.
	// Call once per frame after EndFrame.
	Present()

	// SetPresentMode selects how finished frames reach the display. Takes
	// effect on the next Resize.
	//
	// Parameters:
	//   - mode: VSync or Uncapped
	SetPresentMode(mode PresentMode)

	// CreateCascadeDepthArray creates the Depth32Float array texture
	// backing the cascaded shadow maps: one render-target view per cascade
	// layer plus a whole-array view the lit shaders sample.
	//
	// Parameters:
	//   - size: shadow map edge length in texels
	//   - cascades: the number of array layers
	//
	// Returns:
	//   - []*wgpu.TextureView: one render-target view per cascade layer
	//   - *wgpu.TextureView: the whole-array sampling view
	//   - *wgpu.Texture: the backing texture, released by the caller
	//   - error: an error if texture creation fails
	CreateCascadeDepthArray(size, cascades int) ([]*wgpu.TextureView, *wgpu.TextureView, *wgpu.Texture, error)

	// CreateComparisonSampler creates the less-than comparison sampler the
	// lit shaders use for PCF taps into the cascade depth array.
	//
	// Returns:
	//   - *wgpu.Sampler: the comparison sampler
	//   - error: an error if sampler creation fails
	CreateComparisonSampler() (*wgpu.Sampler, error)

	// RegisterShadowPipeline registers one depth-only pipeline for the
	// cascade depth passes: vertex shader only, Depth32Float, with the
	// pipeline's depth bias applied.
	//
	// Parameters:
	//   - p: the shadow pipeline description
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterShadowPipeline(p pipeline.Pipeline) error

	// BeginShadowFrame opens a command encoder collecting the cascade
	// depth passes. Pair with EndShadowFrame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginShadowFrame() error

	// BeginShadowPass opens a depth-only pass rendering into one cascade
	// layer view.
	//
	// Parameters:
	//   - depthView: the cascade layer view to render into
	BeginShadowPass(depthView *wgpu.TextureView)

	// ShadowDrawCall encodes one indexed, instanced draw in the current
	// cascade depth pass.
	//
	// Parameters:
	//   - pipelineKey: the cached shadow pipeline to draw with
	//   - meshProvider: the provider carrying vertex and index buffers
	//   - instanceCount: the number of instances to draw
	//   - bindGroups: providers whose bind groups are set on the pass, in group order
	//
	// Returns:
	//   - error: an error if no pipeline is cached under pipelineKey
	ShadowDrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndShadowPass closes the current cascade depth pass.
	EndShadowPass()

	// EndShadowFrame finishes the shadow encoder and submits its command
	// buffer to the queue.
	EndShadowFrame()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer on the given backend. The window supplies
// the platform surface descriptor; a nil-surface window is valid for headless
// table baking and compute-only use.
//
// Parameters:
//   - backendType: the rendering backend to construct, currently WGPU
//   - window: the window whose surface the renderer presents to
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a renderer with its surface configured to the window size
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Options run before backend construction so forceFallbackAdapter is
	// in place when the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(window.Width(), window.Height())
	return r
}

// cachedPipeline looks up a registered pipeline by key.
func (r *renderer) cachedPipeline(key string) (pipeline.Pipeline, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, exists := r.pipelineCache[key]
	return p, exists
}

// registerLocked creates the GPU pipeline object for p according to its type
// and caches it. Already-registered keys are skipped. Caller holds the mutex.
func (r *renderer) registerLocked(p pipeline.Pipeline) error {
	key := p.PipelineKey()
	if _, exists := r.pipelineCache[key]; exists {
		return nil
	}

	var err error
	switch p.Type() {
	case pipeline.PipelineTypeCompute:
		err = r.backend.RegisterComputePipeline(p)
	case pipeline.PipelineTypeShadow:
		err = r.backend.RegisterShadowPipeline(p)
	default:
		err = r.backend.RegisterRenderPipeline(p)
	}
	if err != nil {
		return err
	}

	r.pipelineCache[key] = p
	return nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	p, _ := r.cachedPipeline(key)
	return p
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		if err := r.registerLocked(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) RegisterShadowPipeline(p pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(p)
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return r.backend.InitTextureView(provider, bindingKey, stagingData)
}

func (r *renderer) InitStorageTexture(provider bind_group_provider.BindGroupProvider, bindingKey int, width, height, layers uint32, format wgpu.TextureFormat) error {
	return r.backend.InitStorageTexture(provider, bindingKey, width, height, layers, format)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) {
	if p, exists := r.cachedPipeline(pipelineKey); exists {
		r.backend.DispatchCompute(p, computeProvider, workGroupCount)
	}
}

func (r *renderer) EndComputeFrame() {
	r.backend.EndComputeFrame()
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	p, exists := r.cachedPipeline(pipelineKey)
	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}
	r.backend.DrawCall(p, meshProvider, instanceCount, bindGroups)
	return nil
}

func (r *renderer) DrawFullscreen(pipelineKey string, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	p, exists := r.cachedPipeline(pipelineKey)
	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}
	r.backend.DrawFullscreen(p, vertexCount, bindGroups)
	return nil
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) CreateCascadeDepthArray(size, cascades int) ([]*wgpu.TextureView, *wgpu.TextureView, *wgpu.Texture, error) {
	return r.backend.CreateCascadeDepthArray(size, cascades)
}

func (r *renderer) CreateComparisonSampler() (*wgpu.Sampler, error) {
	return r.backend.CreateComparisonSampler()
}

func (r *renderer) BeginShadowFrame() error {
	return r.backend.BeginShadowFrame()
}

func (r *renderer) BeginShadowPass(depthView *wgpu.TextureView) {
	r.backend.BeginShadowPass(depthView)
}

func (r *renderer) ShadowDrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	p, exists := r.cachedPipeline(pipelineKey)
	if !exists {
		return fmt.Errorf("shadow pipeline %q not found in cache", pipelineKey)
	}
	r.backend.ShadowDrawCall(p, meshProvider, instanceCount, bindGroups)
	return nil
}

func (r *renderer) EndShadowPass() {
	r.backend.EndShadowPass()
}

func (r *renderer) EndShadowFrame() {
	r.backend.EndShadowFrame()
}
