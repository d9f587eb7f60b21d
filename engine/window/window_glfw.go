package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow is the GLFW-backed platform window.
type glfwWindow struct {
	handle *glfw.Window
	open   bool
}

// newPlatformWindow initializes GLFW, creates the window, and wires the
// close and resize callbacks. GLFW requires all window calls on one OS
// thread, so the calling goroutine is locked.
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %v", err)
	}

	// The surface is driven by WebGPU; no OpenGL context is wanted.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	handle, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("glfw create window: %v", err)
	}

	gw := &glfwWindow{handle: handle, open: true}
	w.internalWindow = gw

	// Escape closes the viewer.
	handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.open = false
			handle.SetShouldClose(true)
		}
	})

	// The renderer configures its surface in pixels, so resizes track the
	// framebuffer size rather than the window size. The two differ on
	// high-DPI displays.
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
	w.width, w.height = handle.GetFramebufferSize()

	return nil
}

// platformGetSurfaceDescriptor returns the wgpu surface descriptor for the
// GLFW window via the wgpuglfw bridge, or nil before initialization.
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.handle)
}

// platformIsRunningCheck reports whether the window is still open and GLFW
// has not flagged it for closing.
func platformIsRunningCheck(w *engineWindow) bool {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return false
	}
	return gw.open && !gw.handle.ShouldClose()
}

// platformCloseWindow destroys the window and shuts GLFW down.
//
// Returns:
//   - error: if the window was never initialized
func platformCloseWindow(w *engineWindow) error {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return fmt.Errorf("window is not initialized")
	}
	gw.open = false
	gw.handle.SetShouldClose(true)
	gw.handle.Destroy()
	glfw.Terminate()
	return nil
}

// platformProcessMessages polls pending GLFW events without blocking and
// reports whether the window should keep running.
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}
