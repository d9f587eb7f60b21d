package renderer

// RendererBackendType selects which GPU API implementation backs the
// Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU is the WebGPU backend, currently the only one.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode is how finished frames are handed to the display surface.
type PresentMode int

const (
	// PresentModeVSync presents on the vertical blank, capping the frame
	// rate at the monitor refresh rate with no tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents immediately. Frames can tear but reach
	// the screen with the least latency.
	PresentModeUncapped
)

// RendererBackend is what the Renderer drives. It embeds the interface of
// the concrete GPU API in use.
type RendererBackend interface {
	wgpuRendererBackend
}
