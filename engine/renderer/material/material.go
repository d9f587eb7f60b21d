package material

import (
	"fmt"

	"github.com/strato-gfx/strato-go/engine/renderer/bind_group_provider"
	"github.com/strato-gfx/strato-go/engine/renderer/shader"
)

// material is the implementation of the Material interface.
type material struct {
	name              string
	params            GPUMaterialParams
	variants          shader.VariantSet
	pipelineKey       string
	bindGroupProvider bind_group_provider.BindGroupProvider

	savedParams []GPUMaterialParams
}

// Material defines the interface for a surface configuration used when rendering occluder
// geometry into the main pass and the cascade depth maps. A material is a parameter set
// (uploaded as a uniform) plus a set of shader variant defines that select the compiled
// pipeline permutation.
//
// Overlays apply a tagged group of related parameter and define changes (for example the
// shadow configuration pushed onto every caster before a cascade pass) with explicit save
// and restore, so temporary state never leaks into the base material.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Params retrieves the current GPU parameter set for this material.
	//
	// Returns:
	//   - GPUMaterialParams: the current parameter values
	Params() GPUMaterialParams

	// SetParams replaces the GPU parameter set for this material.
	//
	// Parameters:
	//   - p: the new parameter values
	SetParams(p GPUMaterialParams)

	// Variants retrieves the shader variant define set for this material. Pipeline
	// selection should include Variants().Names() in the cache key.
	//
	// Returns:
	//   - shader.VariantSet: the material's variant defines
	Variants() shader.VariantSet

	// Apply merges an overlay into the material: the current parameters and defines are
	// saved, then the overlay's defines, undefines, and parameter overrides take effect.
	// Each Apply must be balanced by a Restore.
	//
	// Parameters:
	//   - o: the overlay to merge
	Apply(o Overlay)

	// Restore rolls back the parameter and define changes of the most recent Apply.
	//
	// Returns:
	//   - error: an error if there is no applied overlay to restore
	Restore() error

	// PipelineKey retrieves the key identifying the render pipeline this material uses.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// BindGroupProvider retrieves the bind group provider holding GPU-side resources for this material.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the bind group provider, or nil if not yet initialized
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetPipelineKey sets the render pipeline key for this material.
	//
	// Parameters:
	//   - key: the pipeline key to associate with this material
	SetPipelineKey(key string)

	// SetBindGroupProvider sets the bind group provider for this material.
	//
	// Parameters:
	//   - provider: the bind group provider containing GPU resources for this material
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

// Overlay is a tagged group of shader defines and parameter overrides merged into a
// material by Apply. Nil override fields leave the corresponding parameter unchanged.
type Overlay struct {
	// Name identifies the overlay in logs and errors (e.g. "cascade-shadows").
	Name string

	// Defines are variant names added while the overlay is applied.
	Defines []string

	// Undefines are variant names removed while the overlay is applied.
	Undefines []string

	// BaseColor overrides the material base color when non-nil.
	BaseColor *[4]float32

	// Roughness overrides the material roughness when non-nil.
	Roughness *float32

	// ShadowStrength overrides the received-shadow attenuation when non-nil.
	ShadowStrength *float32
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - name: the material identifier
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(name string, options ...MaterialBuilderOption) Material {
	m := &material{
		name: name,
		params: GPUMaterialParams{
			BaseColor:      [4]float32{1, 1, 1, 1},
			Roughness:      1.0,
			ShadowStrength: 1.0,
		},
		variants: shader.NewVariantSet(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Params() GPUMaterialParams {
	return m.params
}

func (m *material) SetParams(p GPUMaterialParams) {
	m.params = p
}

func (m *material) Variants() shader.VariantSet {
	return m.variants
}

func (m *material) Apply(o Overlay) {
	m.savedParams = append(m.savedParams, m.params)
	m.variants.Push()

	for _, d := range o.Defines {
		m.variants.Define(d)
	}
	for _, u := range o.Undefines {
		m.variants.Undefine(u)
	}
	if o.BaseColor != nil {
		m.params.BaseColor = *o.BaseColor
	}
	if o.Roughness != nil {
		m.params.Roughness = *o.Roughness
	}
	if o.ShadowStrength != nil {
		m.params.ShadowStrength = *o.ShadowStrength
	}
}

func (m *material) Restore() error {
	if len(m.savedParams) == 0 {
		return fmt.Errorf("material %q: restore without a matching apply", m.name)
	}
	m.params = m.savedParams[len(m.savedParams)-1]
	m.savedParams = m.savedParams[:len(m.savedParams)-1]
	m.variants.Pop()
	return nil
}

func (m *material) PipelineKey() string {
	return m.pipelineKey
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return m.bindGroupProvider
}

func (m *material) SetPipelineKey(key string) {
	m.pipelineKey = key
}

func (m *material) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	m.bindGroupProvider = provider
}
