package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the platform window the viewer renders into. It hides the GLFW
// details behind a small surface the engine and renderer share.
type Window interface {
	// SetResizeCallback registers the function invoked on framebuffer size
	// changes.
	//
	// Parameters:
	//   - callback: receives the new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SurfaceDescriptor builds the platform surface descriptor the WebGPU
	// instance needs (HWND, Xlib, Wayland, or Metal depending on the
	// platform), bridged from the GLFW handle.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the surface descriptor, or nil before the window exists
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	//
	// Returns:
	//   - bool: false once the window has been closed
	IsRunning() bool

	// Close destroys the window and its platform resources.
	//
	// Returns:
	//   - error: an error if teardown fails
	Close() error

	// ProcessMessages pumps the platform event loop until the window
	// closes. The engine runs this on the main thread while tick and
	// render loops run on their own goroutines.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow backs the Window interface with configuration state and a
// platform handle.
type engineWindow struct {
	title string

	// Framebuffer size in pixels, kept current by the resize callback.
	width  int
	height int

	// internalWindow is the platform handle, a *glfwWindow on desktop.
	internalWindow any

	onResize func(width, height int)
}

var _ Window = &engineWindow{}

// NewWindow opens a window with the given options applied over the defaults
// (1280x720, titled "Sky Viewer"). Panics when the platform window cannot be
// created, since nothing downstream can run without one.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:  "Sky Viewer",
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if ok := platformProcessMessages(w); !ok {
			break
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
