package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/strato-gfx/strato-go/common"
	"github.com/strato-gfx/strato-go/engine/renderer/bind_group_provider"
	"github.com/strato-gfx/strato-go/engine/renderer/pipeline"
	"github.com/strato-gfx/strato-go/engine/renderer/shader"
)

// wgpuRendererBackend is the WebGPU backend contract. The Renderer interface
// carries the caller-facing documentation; entries here note only what the
// backend adds on top of the delegation.
type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface

	// ConfigureSurface reconfigures the swapchain and recreates the scene
	// depth buffer for a new surface size. A nil surface (headless bake-only
	// use) is a no-op.
	ConfigureSurface(width, height int)

	// SetPresentMode maps the renderer's present mode onto the wgpu one.
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline builds a render pipeline against the surface
	// format and the Depth24Plus scene depth buffer.
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline builds a compute pipeline from the pipeline's
	// compute shader.
	RegisterComputePipeline(p pipeline.Pipeline) error

	// RegisterShadowPipeline builds a depth-only pipeline: no fragment
	// stage, no color target, Depth32Float, with the pipeline's depth bias.
	RegisterShadowPipeline(p pipeline.Pipeline) error

	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error
	InitStorageTexture(provider bind_group_provider.BindGroupProvider, bindingKey int, width, height, layers uint32, format wgpu.TextureFormat) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	CreateCascadeDepthArray(size, cascades int) ([]*wgpu.TextureView, *wgpu.TextureView, *wgpu.Texture, error)
	CreateComparisonSampler() (*wgpu.Sampler, error)

	BeginComputeFrame() error
	DispatchCompute(p pipeline.Pipeline, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32)
	EndComputeFrame()

	BeginFrame() error
	DrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider)
	DrawFullscreen(p pipeline.Pipeline, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider)
	EndFrame()
	Present()

	BeginShadowFrame() error
	BeginShadowPass(depthView *wgpu.TextureView)
	ShadowDrawCall(p pipeline.Pipeline, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider)
	EndShadowPass()
	EndShadowFrame()
}

// wgpuBackend owns the wgpu device, queue, and surface, plus the in-flight
// encoders for the three batched frame kinds: the shadow cascades, the
// compute dispatches, and the scene pass.
type wgpuBackend struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat  *wgpu.TextureFormat
	sceneDepthView *wgpu.TextureView
	scenePassDesc  *wgpu.RenderPassDescriptor
	presentMode    wgpu.PresentMode // PresentModeFifo (VSync) until configured

	// Scene frame: one encoder and pass span BeginFrame through EndFrame,
	// with the acquired swapchain texture held until Present.
	sceneEncoder   *wgpu.CommandEncoder
	scenePass      *wgpu.RenderPassEncoder
	surfaceTexture *wgpu.Texture
	surfaceView    *wgpu.TextureView

	// Compute frame: the cloud march and any other dispatches batch into a
	// single submission.
	computeEncoder *wgpu.CommandEncoder

	// Shadow frame: per-cascade depth-only passes share one encoder.
	shadowEncoder *wgpu.CommandEncoder
	shadowPass    *wgpu.RenderPassEncoder
}

var _ RendererBackend = &wgpuBackend{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	b := &wgpuBackend{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}
	if surfaceDescriptor != nil {
		b.surface = b.instance.CreateSurface(surfaceDescriptor)
	}

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Sky Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = device
	b.queue = device.GetQueue()

	return b
}

func (b *wgpuBackend) Device() *wgpu.Device     { return b.device }
func (b *wgpuBackend) Queue() *wgpu.Queue       { return b.queue }
func (b *wgpuBackend) Instance() *wgpu.Instance { return b.instance }
func (b *wgpuBackend) Adapter() *wgpu.Adapter   { return b.adapter }
func (b *wgpuBackend) Surface() *wgpu.Surface   { return b.surface }

func (b *wgpuBackend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Scene Depth",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.sceneDepthView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	// The scene pass descriptor is cached across frames; only the color
	// attachment view changes, to whichever swapchain texture BeginFrame
	// acquires.
	b.scenePassDesc = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       nil, // set in BeginFrame
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{A: 1.0},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.sceneDepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuBackend) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if mode == PresentModeUncapped {
		b.presentMode = wgpu.PresentModeImmediate
		return
	}
	b.presentMode = wgpu.PresentModeFifo
}

// compileShader builds a wgpu shader module from a shader's preprocessed
// source.
func (b *wgpuBackend) compileShader(s shader.Shader) (*wgpu.ShaderModule, error) {
	return b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
}

// buildPipelineLayout creates bind group layouts for every group the shader
// declares and wraps them in a pipeline layout. Group indices may be sparse;
// the slice is sized to the highest index.
func (b *wgpuBackend) buildPipelineLayout(label string, groups map[int]wgpu.BindGroupLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	maxGroup := -1
	for g := range groups {
		if g > maxGroup {
			maxGroup = g
		}
	}
	layouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, desc := range groups {
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, fmt.Errorf("%s: bind group layout for group %d: %w", label, g, err)
		}
		layouts[g] = layout
	}
	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: layouts,
	})
}

// vertexBuffers flattens a shader's per-slot vertex layouts into the order
// the pipeline descriptor expects.
func vertexBuffers(s shader.Shader) []wgpu.VertexBufferLayout {
	flattened := make([]wgpu.VertexBufferLayout, 0, len(s.VertexLayouts()))
	for i := range s.VertexLayouts() {
		flattened = append(flattened, s.VertexLayout(i)...)
	}
	return flattened
}

// submitAndRelease finishes an encoder, submits the command buffer, and
// releases both. A Finish failure still releases the encoder.
func (b *wgpuBackend) submitAndRelease(encoder *wgpu.CommandEncoder) {
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()
}

// encodeIndexedDraw binds the pipeline, bind groups, and mesh buffers on a
// render pass and issues the indexed draw. Shared by the scene and shadow
// passes.
func encodeIndexedDraw(pass *wgpu.RenderPassEncoder, p pipeline.Pipeline, mesh bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) {
	pass.SetPipeline(p.Pipeline().(*wgpu.RenderPipeline))
	for i, bg := range bindGroups {
		pass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	pass.SetVertexBuffer(0, mesh.VertexBuffer(), 0, wgpu.WholeSize)
	pass.SetIndexBuffer(mesh.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(uint32(mesh.IndexCount()), instanceCount, 0, 0, 0)
}
