package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithPreProcessor sets the pre-processor used to expand includes in the shader source.
// Sharing one pre-processor across shaders lets them resolve the same registered fragments.
//
// Parameters:
//   - pp: the PreProcessor to use
//
// Returns:
//   - ShaderBuilderOption: a function that sets the pre-processor for this shader
func WithPreProcessor(pp PreProcessor) ShaderBuilderOption {
	return func(s *shader) {
		s.pp = pp
	}
}

// WithVariants sets the variant define set used to resolve conditional directives when
// building this shader. Different variant sets over the same source yield different
// compiled shaders, so callers should include the variant names in the shader key.
//
// Parameters:
//   - variants: the VariantSet to resolve //#ifdef and //#ifndef against
//
// Returns:
//   - ShaderBuilderOption: a function that sets the variant set for this shader
func WithVariants(variants VariantSet) ShaderBuilderOption {
	return func(s *shader) {
		s.variants = variants
	}
}
