package factory

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/opd-ai/retrocam/frame"
	"github.com/opd-ai/retrocam/interfaces"
	"github.com/opd-ai/retrocam/pipeline"
	"github.com/opd-ai/retrocam/real"
	simtest "github.com/opd-ai/retrocam/testing"
	"github.com/sirupsen/logrus"
)

// Environment variables read by NewPreviewFactory and
// NewPreviewFactoryFromFile. They override the config file. A value that
// fails to parse or falls outside its bounds is logged and ignored, leaving
// the previous setting in place.
const (
	EnvBufferCount       = "RETRO_BUFFER_COUNT"
	EnvFramerateWindow   = "RETRO_FRAMERATE_WINDOW"
	EnvClearPasses       = "RETRO_CLEAR_PASSES"
	EnvWorkerIdleTimeout = "RETRO_WORKER_IDLE_TIMEOUT"
	EnvMaxPooledTasks    = "RETRO_MAX_POOLED_TASKS"
	EnvUseSimulation     = "RETRO_USE_SIMULATION"
)

// MaxPooledTasksLimit bounds RETRO_MAX_POOLED_TASKS.
//
// Every pooled task keeps a frame.Buffer header alive, and the pool never
// needs more tasks than there are buffers in flight. 65536 is far above any
// realistic buffer count while still catching a mistyped value before it
// turns into a large idle allocation.
const MaxPooledTasksLimit = 1 << 16

var (
	// ErrNilConfig is returned by UpdateConfig for a nil config.
	ErrNilConfig = errors.New("config cannot be nil")

	// ErrNoInput is returned by CreateCamera in real mode without a stream.
	ErrNoInput = errors.New("input stream is required for the real camera")
)

// CameraOptions describes the camera to create.
type CameraOptions struct {
	Width  int
	Height int
	// Format defaults to NV21.
	Format frame.Format
	// Input is the raw video stream, required in real mode.
	Input io.Reader
	// FPS paces the real camera; zero reads as fast as the stream allows.
	FPS int
}

// SurfaceOptions describes the display surface to create.
type SurfaceOptions struct {
	Width  int
	Height int
	// Buffers is the real surface's back buffer count, 2 when zero.
	Buffers int
	// Presenter receives every frame posted to the real surface.
	Presenter real.Presenter
}

// PreviewFactory creates pipeline configuration and collaborators.
// It is safe for concurrent use.
type PreviewFactory struct {
	mu            sync.RWMutex
	defaultConfig *interfaces.PipelineConfig
}

// NewPreviewFactory creates a factory from the defaults and the environment.
//
// The camera and surface default to the real implementations. Set
// RETRO_USE_SIMULATION=true, or call SwitchToSimulation, to get the simulated
// camera and the recording surface instead.
func NewPreviewFactory() *PreviewFactory {
	config := pipeline.DefaultConfig()
	applyEnvironmentOverrides(config)
	logConfigurationInfo("NewPreviewFactory", config)

	return &PreviewFactory{defaultConfig: config}
}

// NewPreviewFactoryFromFile creates a factory from the defaults, the YAML
// file at path and the environment, in that order of precedence.
func NewPreviewFactoryFromFile(path string) (*PreviewFactory, error) {
	config, err := LoadConfigFile(path, pipeline.DefaultConfig())
	if err != nil {
		return nil, err
	}
	applyEnvironmentOverrides(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logConfigurationInfo("NewPreviewFactoryFromFile", config)

	return &PreviewFactory{defaultConfig: config}, nil
}

// applyEnvironmentOverrides updates config from the RETRO_* variables.
func applyEnvironmentOverrides(config *interfaces.PipelineConfig) {
	parseIntSetting(EnvBufferCount, 0, 2, &config.BufferCount)
	parseIntSetting(EnvFramerateWindow, 1, interfaces.MaxFramerateWindow, &config.FramerateWindow)
	parseIntSetting(EnvClearPasses, interfaces.MinClearPasses, interfaces.MaxClearPasses, &config.ClearPasses)
	parseIntSetting(EnvMaxPooledTasks, 0, MaxPooledTasksLimit, &config.MaxPooledTasks)
	parseDurationSetting(EnvWorkerIdleTimeout, interfaces.MinWorkerIdleTimeout, &config.WorkerIdleTimeout)
	parseBoolSetting(EnvUseSimulation, &config.UseSimulation)
}

// parseIntSetting stores the integer in env into target when it parses and
// lies within [min, max].
func parseIntSetting(env string, min, max int, target *int) {
	raw := os.Getenv(env)
	if raw == "" {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseIntSetting",
			"env_var":     env,
			"value":       raw,
			"error":       err.Error(),
			"using_value": *target,
		}).Warn("Failed to parse environment variable, using default")
		return
	}
	if value < min || value > max {
		logrus.WithFields(logrus.Fields{
			"function":    "parseIntSetting",
			"env_var":     env,
			"value":       value,
			"min":         min,
			"max":         max,
			"using_value": *target,
		}).Warn("Environment variable out of bounds, using default")
		return
	}
	*target = value
}

func parseDurationSetting(env string, min time.Duration, target *time.Duration) {
	raw := os.Getenv(env)
	if raw == "" {
		return
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseDurationSetting",
			"env_var":     env,
			"value":       raw,
			"error":       err.Error(),
			"using_value": target.String(),
		}).Warn("Failed to parse environment variable, using default")
		return
	}
	if value < min {
		logrus.WithFields(logrus.Fields{
			"function":    "parseDurationSetting",
			"env_var":     env,
			"value":       value.String(),
			"min":         min.String(),
			"using_value": target.String(),
		}).Warn("Environment variable out of bounds, using default")
		return
	}
	*target = value
}

func parseBoolSetting(env string, target *bool) {
	raw := os.Getenv(env)
	if raw == "" {
		return
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseBoolSetting",
			"env_var":     env,
			"value":       raw,
			"error":       err.Error(),
			"using_value": *target,
		}).Warn("Failed to parse environment variable, using default")
		return
	}
	*target = value
}

func logConfigurationInfo(function string, config *interfaces.PipelineConfig) {
	logrus.WithFields(logrus.Fields{
		"function":            function,
		"buffer_count":        config.BufferCount,
		"framerate_window":    config.FramerateWindow,
		"clear_passes":        config.ClearPasses,
		"worker_idle_timeout": config.WorkerIdleTimeout.String(),
		"max_pooled_tasks":    config.MaxPooledTasks,
		"use_simulation":      config.UseSimulation,
	}).Info("Created preview factory with configuration")
}

// GetConfig returns a copy of the current configuration.
func (f *PreviewFactory) GetConfig() *interfaces.PipelineConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	config := *f.defaultConfig
	return &config
}

// UpdateConfig validates and replaces the configuration.
func (f *PreviewFactory) UpdateConfig(config *interfaces.PipelineConfig) error {
	if config == nil {
		return ErrNilConfig
	}
	if err := config.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":       "UpdateConfig",
		"old_simulation": f.defaultConfig.UseSimulation,
		"new_simulation": config.UseSimulation,
		"old_buffers":    f.defaultConfig.BufferCount,
		"new_buffers":    config.BufferCount,
	}).Info("Updating factory configuration")

	copied := *config
	f.defaultConfig = &copied
	return nil
}

// SwitchToSimulation makes later Create calls return simulated collaborators.
func (f *PreviewFactory) SwitchToSimulation() {
	f.setSimulation(true)
}

// SwitchToReal makes later Create calls return real collaborators.
func (f *PreviewFactory) SwitchToReal() {
	f.setSimulation(false)
}

func (f *PreviewFactory) setSimulation(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "PreviewFactory.setSimulation",
		"previous": f.defaultConfig.UseSimulation,
		"current":  enabled,
	}).Info("Switching factory mode")

	f.defaultConfig.UseSimulation = enabled
}

// IsUsingSimulation reports whether simulated collaborators are selected.
func (f *PreviewFactory) IsUsingSimulation() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.defaultConfig.UseSimulation
}

// CreateCamera creates a simulated camera or a raw video camera reading
// opts.Input.
func (f *PreviewFactory) CreateCamera(opts CameraOptions) (interfaces.Camera, error) {
	if opts.Format == frame.FormatUnknown {
		opts.Format = frame.FormatNV21
	}
	if _, err := frame.BufferSize(opts.Width, opts.Height, opts.Format); err != nil {
		return nil, fmt.Errorf("camera options: %w", err)
	}

	if f.IsUsingSimulation() {
		logrus.WithFields(logrus.Fields{
			"function": "CreateCamera",
			"type":     "simulation",
		}).Info("Creating simulated camera")
		return simtest.NewSimulatedCamera(opts.Width, opts.Height, opts.Format), nil
	}

	if opts.Input == nil {
		return nil, ErrNoInput
	}

	logrus.WithFields(logrus.Fields{
		"function": "CreateCamera",
		"type":     "real",
		"fps":      opts.FPS,
	}).Info("Creating raw video camera")

	params := interfaces.SourceParams{Width: opts.Width, Height: opts.Height, Format: opts.Format}
	return real.NewRawVideoCamera(opts.Input, params, opts.FPS)
}

// CreateSurface creates a recording surface or an in-memory image surface.
func (f *PreviewFactory) CreateSurface(opts SurfaceOptions) interfaces.Surface {
	if f.IsUsingSimulation() {
		logrus.WithFields(logrus.Fields{
			"function": "CreateSurface",
			"type":     "simulation",
		}).Info("Creating recording surface")
		return simtest.NewRecordingSurface(opts.Width, opts.Height)
	}

	buffers := opts.Buffers
	if buffers <= 0 {
		buffers = 2
	}
	logrus.WithFields(logrus.Fields{
		"function": "CreateSurface",
		"type":     "real",
		"buffers":  buffers,
	}).Info("Creating image surface")
	return real.NewImageSurface(opts.Width, opts.Height, buffers, opts.Presenter)
}
