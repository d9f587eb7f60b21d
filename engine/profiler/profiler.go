package profiler

import (
	"log"
	"runtime"
	"time"
)

const pauseRing = 256 // runtime keeps the last 256 GC pauses

// Profiler accumulates frame timing and heap statistics for the render loop
// and logs a summary line once per reporting interval. A frame's cost shows
// up twice: average frame time for throughput and worst frame time for
// hitches from table uploads or GC pauses.
type Profiler struct {
	interval time.Duration

	windowStart time.Time
	frameStart  time.Time
	frames      int
	worstFrame  time.Duration

	mem            runtime.MemStats
	prevGCCount    uint32
	prevTotalAlloc uint64
}

// NewProfiler creates a profiler reporting once per second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	now := time.Now()
	return &Profiler{
		interval:    time.Second,
		windowStart: now,
		frameStart:  now,
	}
}

// SetInterval sets the reporting interval.
//
// Parameters:
//   - interval: time between summary lines, minimum 1ms
func (p *Profiler) SetInterval(interval time.Duration) {
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	p.interval = interval
}

// Tick marks the end of a frame. When a reporting interval has elapsed it
// logs FPS, average and worst frame times, heap size, allocation rate, and
// GC pause figures for the window, then starts a new window.
//
// Returns:
//   - bool: true if a summary was logged this tick
func (p *Profiler) Tick() bool {
	now := time.Now()
	if frame := now.Sub(p.frameStart); frame > p.worstFrame {
		p.worstFrame = frame
	}
	p.frameStart = now
	p.frames++

	elapsed := now.Sub(p.windowStart)
	if elapsed < p.interval {
		return false
	}

	fps := float64(p.frames) / elapsed.Seconds()
	avgMs := elapsed.Seconds() * 1000 / float64(p.frames)

	runtime.ReadMemStats(&p.mem)
	heapMB := float64(p.mem.Alloc) / (1 << 20)
	sysMB := float64(p.mem.Sys) / (1 << 20)
	allocRateMB := float64(p.mem.TotalAlloc-p.prevTotalAlloc) / (1 << 20) / elapsed.Seconds()
	maxPause := p.maxPauseSince(p.prevGCCount)

	log.Printf("[Profiler] %.1f fps (avg %.2f ms, worst %.2f ms) | heap %.1f MB | alloc %.1f MB/s | GC %d (max pause %d µs) | sys %.1f MB",
		fps, avgMs, float64(p.worstFrame.Microseconds())/1000,
		heapMB, allocRateMB, p.mem.NumGC, maxPause.Microseconds(), sysMB)

	p.frames = 0
	p.worstFrame = 0
	p.windowStart = now
	p.prevGCCount = p.mem.NumGC
	p.prevTotalAlloc = p.mem.TotalAlloc
	return true
}

// maxPauseSince scans the GC pause ring for the longest pause between the
// given collection count and the current one.
func (p *Profiler) maxPauseSince(since uint32) time.Duration {
	count := p.mem.NumGC
	if count == 0 {
		return 0
	}
	if count-since > pauseRing {
		since = count - pauseRing
	}
	var longest uint64
	for i := since; i < count; i++ {
		if pause := p.mem.PauseNs[i%pauseRing]; pause > longest {
			longest = pause
		}
	}
	return time.Duration(longest)
}

// Section starts a named timing span for one-shot work like table bakes.
// Call the returned function when the work completes to log the elapsed time.
//
// Parameters:
//   - name: label for the span in the log output
//
// Returns:
//   - func(): completion function that logs the elapsed time
func (p *Profiler) Section(name string) func() {
	start := time.Now()
	return func() {
		log.Printf("[Profiler] %s took %s", name, time.Since(start).Round(time.Millisecond))
	}
}
