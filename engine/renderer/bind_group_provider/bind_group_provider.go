package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupProvider holds the GPU binding resources for one pass or draw
// participant. The cloud march pass, the sky compose pass, shadow cascades
// and scene surfaces each carry a provider; the Renderer populates it during
// initialization and reads it back when encoding draws and dispatches.
//
// Lifecycle:
//  1. The owning component creates a provider with a debug label.
//  2. Renderer.InitTextureView / InitStorageTexture / InitSampler stage
//     texture and sampler resources per binding index.
//  3. Renderer.InitBindGroup creates the remaining buffers and the bind
//     group itself from a bind group layout descriptor.
//  4. Renderer.WriteBuffers streams per-frame uniform data into the
//     provider's buffers.
//  5. The provider is handed to DrawCall, DrawFullscreen, ShadowDrawCall
//     or DispatchCompute, which bind its group for the pass.
type BindGroupProvider interface {
	// Label returns the debug label. The Renderer stamps it onto the GPU
	// resources it creates for this provider.
	Label() string

	// BindGroup returns the bind group created by InitBindGroup, or nil
	// before initialization. BindGroupLayout returns the layout it was
	// created against.
	BindGroup() *wgpu.BindGroup
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer, TextureView and Sampler return the resource staged at a
	// binding index, or nil when that slot is empty.
	Buffer(binding int) *wgpu.Buffer
	TextureView(binding int) *wgpu.TextureView
	Sampler(binding int) *wgpu.Sampler

	// VertexBuffer, IndexBuffer and IndexCount describe the mesh geometry
	// for indexed draws. Providers that only carry binding resources leave
	// the buffers nil.
	VertexBuffer() *wgpu.Buffer
	IndexBuffer() *wgpu.Buffer
	IndexCount() int

	// SetBindGroup and SetBindGroupLayout store the objects created by
	// Renderer.InitBindGroup.
	SetBindGroup(bg *wgpu.BindGroup)
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer stages a buffer at a binding index.
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView stages a texture view at a binding index. A view may
	// be shared between providers, as with the cloud march output sampled
	// by the compose pass; the first provider to release it owns it.
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler stages a sampler at a binding index.
	SetSampler(binding int, s *wgpu.Sampler)

	// SetVertexBuffer, SetIndexBuffer and SetIndexCount store the mesh
	// geometry created by Renderer.InitMeshBuffers.
	SetVertexBuffer(buf *wgpu.Buffer)
	SetIndexBuffer(buf *wgpu.Buffer)
	SetIndexCount(count int)

	// Release releases every GPU resource held by this provider and
	// clears the slots they occupied.
	Release()
}

// bindGroupProvider backs BindGroupProvider. The binding maps are allocated
// by the constructor and mutated only through the setters.
type bindGroupProvider struct {
	label string

	// Populated by the Renderer during initialization, released through
	// Release once the owning pass is torn down.
	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout
	buffers         map[int]*wgpu.Buffer
	textureViews    map[int]*wgpu.TextureView
	samplers        map[int]*wgpu.Sampler

	// Mesh geometry, set only for providers that feed indexed draws.
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   int
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider ready for the Renderer to
// populate.
//
// Parameters:
//   - label: a debug label stamped onto GPU resources created for this provider
//
// Returns:
//   - BindGroupProvider: a new provider holding no GPU resources yet
func NewBindGroupProvider(label string) BindGroupProvider {
	return &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
}

func (p *bindGroupProvider) Label() string { return p.label }

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup { return p.bindGroup }

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout { return p.bindGroupLayout }

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer { return p.buffers[binding] }

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler { return p.samplers[binding] }

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer { return p.vertexBuffer }

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer { return p.indexBuffer }

func (p *bindGroupProvider) IndexCount() int { return p.indexCount }

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) { p.bindGroup = bg }

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) { p.bindGroupLayout = bgl }

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer) { p.vertexBuffer = buf }

func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer) { p.indexBuffer = buf }

func (p *bindGroupProvider) SetIndexCount(count int) { p.indexCount = count }

func (p *bindGroupProvider) Release() {
	for i, tv := range p.textureViews {
		if tv != nil {
			tv.Release()
		}
		delete(p.textureViews, i)
	}
	for i, s := range p.samplers {
		if s != nil {
			s.Release()
		}
		delete(p.samplers, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
}
