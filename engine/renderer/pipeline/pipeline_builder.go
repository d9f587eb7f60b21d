package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/strato-gfx/strato-go/engine/renderer/shader"
)

// PipelineBuilderOption mutates a pipeline during NewPipeline.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader attaches the vertex stage. Render and shadow pipelines
// require one.
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader attaches the fragment stage. Depth-only shadow
// pipelines may omit it.
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithComputeShader attaches the compute stage of a compute pipeline.
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeShader = s
	}
}

// WithDepthTestEnabled toggles depth testing against the depth attachment.
// The sky compose pass disables it; the composed sky is drawn behind the
// scene using the scene depth texture bound as a regular sampled texture
// instead.
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled toggles fragment writes to the depth attachment.
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthBias sets the constant and slope-scaled depth bias. Shadow
// pipelines use this to push cascade depth values away from the caster
// surface and reduce acne.
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = bias
		p.depthBiasSlopeScale = slopeScale
	}
}

// WithBlending enables alpha blending. Passing nil selects premultiplied
// alpha over blending, the convention the compose shader emits.
func WithBlending(state *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = true
		if state == nil {
			over := wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			}
			state = &wgpu.BlendState{Color: over, Alpha: over}
		}
		p.blendState = state
	}
}

// WithCullMode sets triangle face culling. The default culls nothing so the
// inside of the cloud shell stays visible from below.
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology overrides the default triangle list topology.
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace overrides the default counter-clockwise winding.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask restricts which color channels the pipeline writes.
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}
