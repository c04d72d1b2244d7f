package interfaces

import (
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/retrocam/limits"
)

// Validation bounds for PipelineConfig.
const (
	// MaxFramerateWindow is the largest number of posted frames per fps sample.
	MaxFramerateWindow = 1000
	// MinClearPasses is the fewest neutral clears applied on a source swap.
	MinClearPasses = 1
	// MaxClearPasses is the most neutral clears applied on a source swap.
	MaxClearPasses = 8
	// MinWorkerIdleTimeout is the shortest time an idle worker is kept.
	MinWorkerIdleTimeout = time.Millisecond
)

var (
	// ErrInvalidConfig is wrapped by every PipelineConfig validation error.
	ErrInvalidConfig = errors.New("invalid pipeline config")
)

// PipelineConfig holds tuning values for the preview pipeline.
type PipelineConfig struct {
	// BufferCount is the number of raw buffers primed into each source.
	// Zero selects 1, or 2 on multi-core hosts.
	BufferCount int

	// FramerateWindow is the number of posted frames per framerate sample.
	FramerateWindow int

	// ClearPasses is how many times the surface is cleared on a source swap,
	// enough to flush every buffer of a multi-buffered surface.
	ClearPasses int

	// WorkerIdleTimeout is how long an idle worker goroutine waits for work
	// before exiting.
	WorkerIdleTimeout time.Duration

	// MaxPooledTasks caps the recycled task pool. Zero means unbounded.
	MaxPooledTasks int

	// UseSimulation selects the simulated camera and surface.
	UseSimulation bool
}

// Validate checks every field against its bounds.
func (c *PipelineConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if c.BufferCount < 0 || c.BufferCount > limits.MaxPrimedBuffers {
		return fmt.Errorf("%w: buffer count %d outside [0, %d]", ErrInvalidConfig, c.BufferCount, limits.MaxPrimedBuffers)
	}
	if c.FramerateWindow < 1 || c.FramerateWindow > MaxFramerateWindow {
		return fmt.Errorf("%w: framerate window %d outside [1, %d]", ErrInvalidConfig, c.FramerateWindow, MaxFramerateWindow)
	}
	if c.ClearPasses < MinClearPasses || c.ClearPasses > MaxClearPasses {
		return fmt.Errorf("%w: clear passes %d outside [%d, %d]", ErrInvalidConfig, c.ClearPasses, MinClearPasses, MaxClearPasses)
	}
	if c.WorkerIdleTimeout < MinWorkerIdleTimeout {
		return fmt.Errorf("%w: worker idle timeout %v below %v", ErrInvalidConfig, c.WorkerIdleTimeout, MinWorkerIdleTimeout)
	}
	if c.MaxPooledTasks < 0 {
		return fmt.Errorf("%w: max pooled tasks %d is negative", ErrInvalidConfig, c.MaxPooledTasks)
	}
	return nil
}
