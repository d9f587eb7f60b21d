package engine

import (
	"time"

	"github.com/strato-gfx/strato-go/engine/sky"
	"github.com/strato-gfx/strato-go/engine/window"
)

// EngineBuilderOption mutates an engine during NewEngine.
type EngineBuilderOption func(*engine)

// WithProfiling turns tick and render loop profiling on from startup.
// Both loops report section timings once per second while enabled.
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets how many times per second the composer update and tick
// callback run. Values at or below zero fall back to the 60 Hz default.
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow hands the engine a pre-built window instead of letting
// NewEngine create a default one.
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithComposer registers the sky composer. The tick loop advances it and
// the render loop hands its frame state to the frame graph.
func WithComposer(c sky.Composer) EngineBuilderOption {
	return func(e *engine) {
		e.composer = c
	}
}

// WithRenderFrameLimit caps the render loop in frames per second. Zero,
// the default, leaves it uncapped and pacing falls to the present mode.
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
