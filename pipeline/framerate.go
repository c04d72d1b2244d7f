package pipeline

import (
	"sync"
	"time"
)

// framerate measures posted frames per second over a fixed window of frames.
type framerate struct {
	mu     sync.Mutex
	window int
	count  int
	start  time.Time
	fps    float64
	clock  TimeProvider
}

func newFramerate(window int, clock TimeProvider) *framerate {
	return &framerate{window: window, clock: clock}
}

// tick records one posted frame. It returns the measured rate and true once
// per window. The window is timed from the last reset, or from the first
// tick when reset was never called.
func (f *framerate) tick() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := getTimeProvider(f.clock).Now()
	if f.start.IsZero() {
		f.start = now
	}

	f.count++
	if f.count < f.window {
		return 0, false
	}

	elapsed := now.Sub(f.start)
	f.start = now
	f.count = 0
	if elapsed <= 0 {
		return 0, false
	}
	f.fps = float64(f.window) / elapsed.Seconds()
	return f.fps, true
}

// reset restarts measurement from now, keeping the last reported rate.
func (f *framerate) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count = 0
	f.start = getTimeProvider(f.clock).Now()
}

func (f *framerate) setClock(clock TimeProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = clock
}

func (f *framerate) last() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fps
}
