package engine

import (
	"log"
	"sync"
	"time"

	"github.com/strato-gfx/strato-go/engine/profiler"
	"github.com/strato-gfx/strato-go/engine/renderer"
	"github.com/strato-gfx/strato-go/engine/sky"
	"github.com/strato-gfx/strato-go/engine/window"
)

// engine coordinates the tick, render, and window goroutines behind the
// Engine interface.
type engine struct {
	// tickRateChannel carries live tick rate changes into the tick loop.
	tickRateChannel chan time.Duration

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	// quitOnce guards the single close of quitChannel.
	quitOnce sync.Once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	composer   sky.Composer
	renderer   renderer.Renderer
	frameGraph sky.FrameGraph

	// renderFrameLimit is the minimum frame duration; zero leaves the
	// render loop uncapped.
	renderFrameLimit time.Duration
}

// Engine is the main entry point to the sky pipeline's run loop.
// It drives the composer's fixed-rate updates, the render loop, and
// window management.
type Engine interface {
	// Window returns the window the engine was built with.
	//
	// Returns:
	//   - window.Window: the engine's window
	Window() window.Window

	// Composer returns the registered sky composer, or nil when none is set.
	//
	// Returns:
	//   - sky.Composer: the composer driven by the tick loop
	Composer() sky.Composer

	// SetComposer registers the sky composer the tick loop updates each tick.
	//
	// Parameters:
	//   - c: the composer to drive
	SetComposer(c sky.Composer)

	// Renderer returns the registered GPU renderer, or nil when none is set.
	//
	// Returns:
	//   - renderer.Renderer: the renderer frames encode into
	Renderer() renderer.Renderer

	// SetRenderer registers the GPU renderer. Window resizes propagate to it,
	// and a registered frame graph encodes into it each render frame.
	//
	// Parameters:
	//   - r: the renderer to register
	SetRenderer(r renderer.Renderer)

	// SetFrameGraph registers the frame graph encoded each render frame on
	// the registered renderer. When set, it takes the place of the render
	// callback.
	//
	// Parameters:
	//   - fg: the frame graph to encode
	SetFrameGraph(fg sky.FrameGraph)

	// EnableProfiler turns on periodic frame statistics in the log.
	EnableProfiler()

	// DisableProfiler stops the profiler output.
	DisableProfiler()

	// SetTickRate changes how many times per second the composer update
	// and tick callback run. Takes effect immediately on a running engine.
	//
	// Parameters:
	//   - fps: target ticks per second, values <= 0 fall back to 60
	SetTickRate(fps float64)

	// SetTickCallback registers a function called each engine tick, after the
	// composer update. Use this for sun animation, camera motion, and weather
	// changes.
	//
	// Parameters:
	//   - callback: runs at the tick rate with the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame.
	// Use this for GPU buffer updates and draw submission when encoding
	// frames by hand; a registered frame graph takes precedence over it.
	//
	// Parameters:
	//   - callback: runs each render frame with the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit caps the render loop. The default is uncapped.
	//
	// Parameters:
	//   - fps: maximum render frames per second, 0 removes the cap
	SetRenderFrameLimit(fps float64)

	// Run starts the loops and blocks on the window's message pump until
	// the window closes.
	Run()

	// Quit stops every engine goroutine. Calling it again is a no-op.
	Quit()
}

// NewEngine builds an engine with a 60 Hz default tick rate and profiling
// off, then applies the given options. When a window option is present, the
// resize callback is wired to keep the camera aspect and renderer surface in
// step with the framebuffer.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the configured engine, not yet running
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.composer != nil {
				e.composer.Camera().SetAspect(float32(width) / float32(height))
			}
			if e.renderer != nil {
				e.renderer.Resize(width, height)
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Composer() sky.Composer {
	return e.composer
}

func (e *engine) SetComposer(c sky.Composer) {
	e.composer = c
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) SetRenderer(r renderer.Renderer) {
	e.renderer = r
}

func (e *engine) SetFrameGraph(fg sky.FrameGraph) {
	e.frameGraph = fg
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel exactly once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the tick, render, and quit goroutines under the WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleTick()
	go e.handleRender()
	go e.handleQuit()
}

// handleTick runs the fixed-rate update loop in its own goroutine.
// Each tick advances the composer (weather drift, cascade fit, Beer shadow
// march) and then fires the tick callback. Listens for dynamic rate changes
// via tickRateChannel and exits when the quit channel is closed.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.composer != nil {
				e.composer.Update(dt)
			}
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own
// goroutine. A registered frame graph owns the frame (uniform uploads, pass
// encoding, present); otherwise the render callback does. Recovers from
// panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if e.frameGraph != nil && e.renderer != nil {
				if err := e.frameGraph.Encode(e.renderer); err != nil {
					log.Printf("frame graph encode: %v", err)
				}
			} else if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit parks until quit so the WaitGroup covers shutdown.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if !e.running {
		e.engineTickRate = newRate
		return
	}

	// A newer pending rate replaces any undelivered one.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
