package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfilerTickReportsPerInterval(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(10 * time.Millisecond)

	assert.False(t, p.Tick())
	time.Sleep(15 * time.Millisecond)
	assert.True(t, p.Tick())

	// A fresh window starts after a report.
	assert.False(t, p.Tick())
	assert.Equal(t, 1, p.frames)
}

func TestProfilerWorstFrameResets(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(5 * time.Millisecond)

	time.Sleep(8 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.Zero(t, p.worstFrame)
}

func TestProfilerSetIntervalFloor(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(0)
	assert.Equal(t, time.Millisecond, p.interval)
}

func TestProfilerSection(t *testing.T) {
	p := NewProfiler()
	done := p.Section("bake")
	assert.NotPanics(t, done)
}
