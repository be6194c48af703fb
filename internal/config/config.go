// Package config holds the simulation's configuration surface: the four
// orchestrator rates, the sensor pass rate and runtime knobs.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/agentsim/internal/fsutil"
)

// Default rates in Hz.
const (
	DefaultPlannerHz    = 10.0
	DefaultControllerHz = 30.0
	DefaultEstimatorHz  = 50.0
	DefaultDynamicsHz   = 100.0
	DefaultSensorPassHz = 100.0
)

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// SimConfig is the root configuration. Every field is optional; the Get*
// accessors supply defaults for omitted fields, so partial files are safe.
type SimConfig struct {
	// Orchestrator rates (Hz)
	PlannerHz    *float64 `json:"planner_hz,omitempty" yaml:"planner_hz,omitempty"`
	ControllerHz *float64 `json:"controller_hz,omitempty" yaml:"controller_hz,omitempty"`
	EstimatorHz  *float64 `json:"estimator_hz,omitempty" yaml:"estimator_hz,omitempty"`
	DynamicsHz   *float64 `json:"dynamics_hz,omitempty" yaml:"dynamics_hz,omitempty"`
	SensorPassHz *float64 `json:"sensor_pass_hz,omitempty" yaml:"sensor_pass_hz,omitempty"`

	// Worker pool size for parallel passes
	Workers *int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Behaviour switches
	AsyncPlanning       *bool `json:"async_planning,omitempty" yaml:"async_planning,omitempty"`
	ControlFromEstimate *bool `json:"control_from_estimate,omitempty" yaml:"control_from_estimate,omitempty"`

	// Real-time loop
	FrameInterval *string `json:"frame_interval,omitempty" yaml:"frame_interval,omitempty"` // duration string like "10ms"
	MaxFrameDelta *string `json:"max_frame_delta,omitempty" yaml:"max_frame_delta,omitempty"`

	DiagnosticsCapacity *int `json:"diagnostics_capacity,omitempty" yaml:"diagnostics_capacity,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptySimConfig returns a SimConfig with every field unset.
func EmptySimConfig() *SimConfig {
	return &SimConfig{}
}

// DefaultSimConfig returns a SimConfig with every field set to its default.
func DefaultSimConfig() *SimConfig {
	return &SimConfig{
		PlannerHz:           ptrFloat64(DefaultPlannerHz),
		ControllerHz:        ptrFloat64(DefaultControllerHz),
		EstimatorHz:         ptrFloat64(DefaultEstimatorHz),
		DynamicsHz:          ptrFloat64(DefaultDynamicsHz),
		SensorPassHz:        ptrFloat64(DefaultSensorPassHz),
		Workers:             ptrInt(runtime.GOMAXPROCS(0)),
		AsyncPlanning:       ptrBool(false),
		ControlFromEstimate: ptrBool(false),
		FrameInterval:       ptrString("10ms"),
		MaxFrameDelta:       ptrString("250ms"),
		DiagnosticsCapacity: ptrInt(256),
	}
}

// LoadSimConfig loads a SimConfig from a .json, .yaml or .yml file. Unknown
// fields are rejected so typos in rate names do not silently fall back to
// defaults.
func LoadSimConfig(fsys fsutil.FileSystem, path string) (*SimConfig, error) {
	data, ext, err := fsutil.ReadBounded(fsys, path, maxConfigFileSize, ".json", ".yaml", ".yml")
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg := EmptySimConfig()
	switch ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *SimConfig) Validate() error {
	rates := []struct {
		name string
		v    *float64
	}{
		{"planner_hz", c.PlannerHz},
		{"controller_hz", c.ControllerHz},
		{"estimator_hz", c.EstimatorHz},
		{"dynamics_hz", c.DynamicsHz},
		{"sensor_pass_hz", c.SensorPassHz},
	}
	for _, r := range rates {
		if r.v != nil && !(*r.v > 0) {
			return fmt.Errorf("%s must be positive, got %v", r.name, *r.v)
		}
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	durations := []struct {
		name string
		v    *string
	}{
		{"frame_interval", c.FrameInterval},
		{"max_frame_delta", c.MaxFrameDelta},
	}
	for _, d := range durations {
		if d.v == nil || *d.v == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.v, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, *d.v)
		}
	}

	if c.DiagnosticsCapacity != nil && *c.DiagnosticsCapacity < 0 {
		return fmt.Errorf("diagnostics_capacity must be non-negative, got %d", *c.DiagnosticsCapacity)
	}
	return nil
}

// GetPlannerHz returns the planner_hz value or the default.
func (c *SimConfig) GetPlannerHz() float64 {
	if c.PlannerHz == nil {
		return DefaultPlannerHz
	}
	return *c.PlannerHz
}

// GetControllerHz returns the controller_hz value or the default.
func (c *SimConfig) GetControllerHz() float64 {
	if c.ControllerHz == nil {
		return DefaultControllerHz
	}
	return *c.ControllerHz
}

// GetEstimatorHz returns the estimator_hz value or the default.
func (c *SimConfig) GetEstimatorHz() float64 {
	if c.EstimatorHz == nil {
		return DefaultEstimatorHz
	}
	return *c.EstimatorHz
}

// GetDynamicsHz returns the dynamics_hz value or the default.
func (c *SimConfig) GetDynamicsHz() float64 {
	if c.DynamicsHz == nil {
		return DefaultDynamicsHz
	}
	return *c.DynamicsHz
}

// GetSensorPassHz returns the sensor_pass_hz value or the default.
func (c *SimConfig) GetSensorPassHz() float64 {
	if c.SensorPassHz == nil {
		return DefaultSensorPassHz
	}
	return *c.SensorPassHz
}

// GetWorkers returns the worker count, defaulting to GOMAXPROCS when unset
// or zero.
func (c *SimConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetAsyncPlanning returns the async_planning value or the default.
func (c *SimConfig) GetAsyncPlanning() bool {
	if c.AsyncPlanning == nil {
		return false
	}
	return *c.AsyncPlanning
}

// GetControlFromEstimate returns the control_from_estimate value or the default.
func (c *SimConfig) GetControlFromEstimate() bool {
	if c.ControlFromEstimate == nil {
		return false
	}
	return *c.ControlFromEstimate
}

// GetFrameInterval parses and returns FrameInterval as a time.Duration.
func (c *SimConfig) GetFrameInterval() time.Duration {
	return parseDurationOr(c.FrameInterval, 10*time.Millisecond)
}

// GetMaxFrameDelta parses and returns MaxFrameDelta as a time.Duration.
func (c *SimConfig) GetMaxFrameDelta() time.Duration {
	return parseDurationOr(c.MaxFrameDelta, 250*time.Millisecond)
}

// GetDiagnosticsCapacity returns the diagnostics_capacity value or the default.
func (c *SimConfig) GetDiagnosticsCapacity() int {
	if c.DiagnosticsCapacity == nil || *c.DiagnosticsCapacity == 0 {
		return 256
	}
	return *c.DiagnosticsCapacity
}

func parseDurationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil || d <= 0 {
		return def // default on parse error
	}
	return d
}
