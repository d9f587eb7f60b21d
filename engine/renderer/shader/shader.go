package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType selects which entry point attribute a shader is parsed for.
type ShaderType int

const (
	// ShaderTypeCompute marks a shader with a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex marks the vertex half of a render pipeline.
	ShaderTypeVertex

	// ShaderTypeFragment marks the fragment half of a render pipeline.
	ShaderTypeFragment
)

// shader carries the parsed metadata a pipeline needs from one WGSL module.
// Everything is extracted once at construction; the struct is read-only after.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              map[int][]wgpu.VertexBufferLayout
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor

	pp       PreProcessor
	variants VariantSet
}

// Shader is one pre-processed WGSL module plus the layout metadata parsed out
// of its source. The backend consumes the module descriptor and bind group
// layout descriptors when building pipelines; vertex shaders additionally
// expose vertex buffer layouts and compute shaders their workgroup size.
type Shader interface {
	// Key returns the identifier the pipeline cache files this shader under.
	Key() string

	// Source returns the WGSL source after include expansion and variant
	// resolution.
	Source() string

	// BindGroupLayoutDescriptor returns the descriptor parsed for one group
	// index, or the zero descriptor when the group does not appear in the
	// source.
	BindGroupLayoutDescriptor(bindingKey int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every parsed descriptor keyed by
	// group index. These are CPU-side; the backend turns them into
	// wgpu.BindGroupLayout objects.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName returns the WGSL variable name declared at a group
	// and binding, or "" when none is.
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName finds the binding index a variable name occupies
	// within a group.
	//
	// Returns:
	//   - int: the binding index, or -1 when the name is absent
	//   - bool: whether the name was found
	BindGroupFromVarName(group int, varName string) (int, bool)

	// VertexLayout returns the vertex buffer layout parsed for one
	// @location-annotated struct, or nil. Only vertex shaders have these.
	VertexLayout(key int) []wgpu.VertexBufferLayout

	// VertexLayouts returns all parsed vertex buffer layouts.
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	// EntryPoint returns the entry function name for this shader's stage.
	EntryPoint() string

	// WorkgroupSize returns the @workgroup_size dimensions of a compute
	// shader, [1, 1, 1] when unspecified, and [0, 0, 0] for render shaders.
	WorkgroupSize() [3]uint32

	// Module returns the descriptor handed to wgpu when the backend creates
	// the shader module.
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns which stage this shader was parsed as.
	ShaderType() ShaderType

	// Variants returns the variant set the pre-processor resolved
	// conditionals against, or nil.
	Variants() VariantSet
}

var _ Shader = &shader{}

// NewShader pre-processes embedded WGSL source and parses the metadata the
// given stage needs. Panics on empty source or a pre-processing failure, since
// shaders are compiled in at build time and a bad one cannot be recovered at
// runtime.
//
// Parameters:
//   - key: identifier for caching and pipeline lookups
//   - shaderType: the stage to parse the source as
//   - source: raw WGSL, typically a go:embed string
//   - opts: functional options (pre-processor, variants)
//
// Returns:
//   - Shader: the parsed shader
func NewShader(key string, shaderType ShaderType, source string, opts ...ShaderBuilderOption) Shader {
	if source == "" {
		panic(fmt.Sprintf("shader: %s must have non-empty source", key))
	}
	s := &shader{
		key:                        key,
		shaderType:                 shaderType,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[int]map[int]string),
		vertexLayouts:              make(map[int][]wgpu.VertexBufferLayout),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pp == nil {
		s.pp = NewPreProcessor()
	}
	s.parseSource(source)
	return s
}

func (s *shader) Key() string { return s.key }

func (s *shader) Source() string { return s.source }

func (s *shader) VertexLayout(key int) []wgpu.VertexBufferLayout {
	return s.vertexLayouts[key]
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) EntryPoint() string { return s.entryPoint }

func (s *shader) WorkgroupSize() [3]uint32 { return s.workGroupSize }

func (s *shader) BindGroupLayoutDescriptor(bindingKey int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[bindingKey]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor { return s.module }

func (s *shader) ShaderType() ShaderType { return s.shaderType }

func (s *shader) Variants() VariantSet { return s.variants }

// parseSource runs the pre-processor over the raw source, builds the module
// descriptor, and extracts the stage-appropriate metadata. Bind group layouts
// are parsed for every stage; vertex layouts and workgroup size only for the
// stages that carry them.
func (s *shader) parseSource(raw string) {
	processed, err := s.pp.Process(raw, s.variants)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to pre-process %q: %v", s.key, err))
	}
	s.source = processed
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	s.entryPoint = parseEntryPoint(s.source, s.shaderType)

	var visibility wgpu.ShaderStage
	switch s.shaderType {
	case ShaderTypeVertex:
		s.vertexLayouts = parseVertexLayouts(s.source)
		visibility = wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		visibility = wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		s.workGroupSize = parseWorkgroupSize(s.source)
		visibility = wgpu.ShaderStageCompute
	default:
		visibility = wgpu.ShaderStageNone
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(s.source, visibility)
}
