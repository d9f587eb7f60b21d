package window

// WindowBuilderOption configures an engineWindow during NewWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle overrides the title bar text.
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize overrides the initial framebuffer size in pixels.
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
		w.height = height
	}
}
