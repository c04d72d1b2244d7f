package factory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/opd-ai/retrocam/interfaces"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors PipelineConfig in YAML. Absent keys keep the base value.
type fileConfig struct {
	BufferCount       *int    `yaml:"buffer_count"`
	FramerateWindow   *int    `yaml:"framerate_window"`
	ClearPasses       *int    `yaml:"clear_passes"`
	WorkerIdleTimeout *string `yaml:"worker_idle_timeout"`
	MaxPooledTasks    *int    `yaml:"max_pooled_tasks"`
	UseSimulation     *bool   `yaml:"use_simulation"`
}

// LoadConfigFile reads a YAML configuration file over a copy of base. An
// empty file yields base unchanged; unknown keys are rejected.
func LoadConfigFile(path string, base *interfaces.PipelineConfig) (*interfaces.PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	config, err := ParseConfig(data, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "LoadConfigFile",
		"path":     path,
	}).Info("Loaded configuration file")
	return config, nil
}

// ParseConfig decodes YAML configuration over a copy of base and validates
// the result.
func ParseConfig(data []byte, base *interfaces.PipelineConfig) (*interfaces.PipelineConfig, error) {
	if base == nil {
		return nil, ErrNilConfig
	}
	config := *base

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrInvalidConfig, err)
	}

	if fc.BufferCount != nil {
		config.BufferCount = *fc.BufferCount
	}
	if fc.FramerateWindow != nil {
		config.FramerateWindow = *fc.FramerateWindow
	}
	if fc.ClearPasses != nil {
		config.ClearPasses = *fc.ClearPasses
	}
	if fc.WorkerIdleTimeout != nil {
		d, err := time.ParseDuration(*fc.WorkerIdleTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: worker_idle_timeout: %w", interfaces.ErrInvalidConfig, err)
		}
		config.WorkerIdleTimeout = d
	}
	if fc.MaxPooledTasks != nil {
		config.MaxPooledTasks = *fc.MaxPooledTasks
	}
	if fc.UseSimulation != nil {
		config.UseSimulation = *fc.UseSimulation
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
