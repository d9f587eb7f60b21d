package material

import (
	"github.com/strato-gfx/strato-go/engine/renderer/bind_group_provider"
)

// MaterialBuilderOption mutates a material during NewMaterial.
type MaterialBuilderOption func(*material)

// WithBaseColor sets the albedo as RGBA in linear space.
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.params.BaseColor = color
	}
}

// WithRoughness sets the roughness factor, 0 smooth to 1 rough.
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.params.Roughness = roughness
	}
}

// WithShadowStrength scales how strongly received shadows darken the
// surface. Zero ignores shadows entirely and one applies full attenuation.
func WithShadowStrength(strength float32) MaterialBuilderOption {
	return func(m *material) {
		m.params.ShadowStrength = strength
	}
}

// WithDefines adds names to the material's base variant set. The shaders
// compiled for this material see them as defined pre-processor symbols.
func WithDefines(names ...string) MaterialBuilderOption {
	return func(m *material) {
		for _, n := range names {
			m.variants.Define(n)
		}
	}
}

// WithPipelineKey selects which cached render pipeline draws this material.
func WithPipelineKey(key string) MaterialBuilderOption {
	return func(m *material) {
		m.pipelineKey = key
	}
}

// WithBindGroupProvider replaces the provider carrying the material's GPU
// resources.
func WithBindGroupProvider(provider bind_group_provider.BindGroupProvider) MaterialBuilderOption {
	return func(m *material) {
		m.bindGroupProvider = provider
	}
}
