package renderer

// RendererBuilderOption mutates a renderer during NewRenderer, before the
// GPU backend is constructed.
type RendererBuilderOption func(*renderer)

// WithPresentMode selects how finished frames reach the display, vsync
// locked or uncapped.
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer requests the CPU fallback adapter instead of a
// hardware GPU. Requires a software Vulkan ICD such as SwiftShader or
// lavapipe. CI runs and headless table baking use this.
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
