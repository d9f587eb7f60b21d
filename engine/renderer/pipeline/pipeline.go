package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/strato-gfx/strato-go/engine/renderer/shader"
)

// PipelineType identifies whether a pipeline is a compute, render, or shadow pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry
	// point, as used by the cloud march pass.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader
	// entry points.
	PipelineTypeRender

	// PipelineTypeShadow indicates a depth-only render pipeline with a vertex shader and
	// no fragment stage, used for the cascade depth passes.
	PipelineTypeShadow
)

// Pipeline describes one GPU pipeline before and after creation. It carries the shaders
// and the fixed-function state (depth, blend, cull, topology) the backend needs to build
// the wgpu pipeline object, and stores that object back once built.
type Pipeline interface {
	// Type returns the pipeline type.
	//
	// Returns:
	//   - PipelineType: compute, render, or shadow
	Type() PipelineType

	// PipelineKey returns the unique key this pipeline is cached and looked up under.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// Shader returns the shader attached for the given stage, or nil if none is set.
	// Render pipelines carry vertex and fragment shaders, shadow pipelines only a
	// vertex shader, compute pipelines only a compute shader.
	//
	// Parameters:
	//   - shaderType: the shader stage to retrieve
	//
	// Returns:
	//   - shader.Shader: the shader for that stage, or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns the created wgpu pipeline object. The concrete type follows
	// Type(): *wgpu.RenderPipeline for render and shadow pipelines,
	// *wgpu.ComputePipeline for compute pipelines. Nil before registration.
	//
	// Returns:
	//   - any: the underlying pipeline object, or nil
	Pipeline() any

	// Fixed-function state read by the backend during pipeline creation.

	DepthTestEnabled() bool
	DepthWriteEnabled() bool
	DepthBias() int32
	DepthBiasSlopeScale() float32
	BlendEnabled() bool
	BlendState() *wgpu.BlendState
	CullMode() wgpu.CullMode
	Topology() wgpu.PrimitiveTopology
	FrontFace() wgpu.FrontFace
	WriteMask() wgpu.ColorWriteMask

	// SetRenderPipeline stores the created render pipeline. Called by the backend
	// when registering render and shadow pipelines.
	//
	// Parameters:
	//   - p: the created render pipeline
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline stores the created compute pipeline. Called by the backend
	// when registering compute pipelines.
	//
	// Parameters:
	//   - p: the created compute pipeline
	SetComputePipeline(p *wgpu.ComputePipeline)
}

// pipeline is the unexported implementation of Pipeline.
type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	// Stage shaders, set through builder options before registration.
	vertexShader, fragmentShader, computeShader shader.Shader

	// Exactly one of these is non-nil after registration, selected by pipelineType.
	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	// Fixed-function state. Compute pipelines hold the defaults but never read them.
	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthBias           int32
	depthBiasSlopeScale float32
	blendEnabled        bool
	blendState          *wgpu.BlendState
	cullMode            wgpu.CullMode
	topology            wgpu.PrimitiveTopology
	frontFace           wgpu.FrontFace
	writeMask           wgpu.ColorWriteMask
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a pipeline description under the given key. Defaults are depth
// test and write on, no blending, no culling, CCW triangle lists, all color channels
// writable; builder options override them.
//
// Parameters:
//   - pipelineKey: the unique key this pipeline is cached under
//   - pipelineType: compute, render, or shadow
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new pipeline description ready for registration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		pipelineType:      pipelineType,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType { return p.pipelineType }

func (p *pipeline) PipelineKey() string { return p.pipelineKey }

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender, PipelineTypeShadow:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) DepthTestEnabled() bool { return p.depthTestEnabled }

func (p *pipeline) DepthWriteEnabled() bool { return p.depthWriteEnabled }

func (p *pipeline) DepthBias() int32 { return p.depthBias }

func (p *pipeline) DepthBiasSlopeScale() float32 { return p.depthBiasSlopeScale }

func (p *pipeline) BlendEnabled() bool { return p.blendEnabled }

func (p *pipeline) BlendState() *wgpu.BlendState { return p.blendState }

func (p *pipeline) CullMode() wgpu.CullMode { return p.cullMode }

func (p *pipeline) Topology() wgpu.PrimitiveTopology { return p.topology }

func (p *pipeline) FrontFace() wgpu.FrontFace { return p.frontFace }

func (p *pipeline) WriteMask() wgpu.ColorWriteMask { return p.writeMask }

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) { p.renderPipeline = rp }

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) { p.computePipeline = cp }
