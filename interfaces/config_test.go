package interfaces

import (
	"errors"
	"testing"
	"time"
)

func validConfig() PipelineConfig {
	return PipelineConfig{
		BufferCount:       0,
		FramerateWindow:   25,
		ClearPasses:       3,
		WorkerIdleTimeout: time.Minute,
	}
}

// TestPipelineConfigValidate tests the Validate method of PipelineConfig.
func TestPipelineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *PipelineConfig)
		wantErr bool
	}{
		{name: "valid defaults", mutate: func(c *PipelineConfig) {}},
		{name: "two buffers", mutate: func(c *PipelineConfig) { c.BufferCount = 2 }},
		{name: "capped pool with simulation", mutate: func(c *PipelineConfig) { c.MaxPooledTasks = 4; c.UseSimulation = true }},
		{name: "negative buffer count", mutate: func(c *PipelineConfig) { c.BufferCount = -1 }, wantErr: true},
		{name: "too many buffers", mutate: func(c *PipelineConfig) { c.BufferCount = 3 }, wantErr: true},
		{name: "zero framerate window", mutate: func(c *PipelineConfig) { c.FramerateWindow = 0 }, wantErr: true},
		{name: "huge framerate window", mutate: func(c *PipelineConfig) { c.FramerateWindow = MaxFramerateWindow + 1 }, wantErr: true},
		{name: "zero clear passes", mutate: func(c *PipelineConfig) { c.ClearPasses = 0 }, wantErr: true},
		{name: "too many clear passes", mutate: func(c *PipelineConfig) { c.ClearPasses = MaxClearPasses + 1 }, wantErr: true},
		{name: "zero idle timeout", mutate: func(c *PipelineConfig) { c.WorkerIdleTimeout = 0 }, wantErr: true},
		{name: "negative pool cap", mutate: func(c *PipelineConfig) { c.MaxPooledTasks = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

// TestPipelineConfigValidateNil tests that a nil config is rejected.
func TestPipelineConfigValidateNil(t *testing.T) {
	var config *PipelineConfig
	if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Validate() on nil = %v, want ErrInvalidConfig", err)
	}
}

// TestFacingString tests Facing names.
func TestFacingString(t *testing.T) {
	if FacingBack.String() != "back" || FacingFront.String() != "front" {
		t.Errorf("unexpected facing names: %s, %s", FacingBack, FacingFront)
	}
}
