// Package config loads the TOML configuration shared by the server and client
// binaries.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/ScottBrooks/deadreckon"
)

// FileConfig represents the TOML configuration file. Every field is optional;
// unset values keep their defaults.
type FileConfig struct {
	Clock      ClockConfig      `toml:"clock"`
	Replicator ReplicatorConfig `toml:"replicator"`
	Server     ServerConfig     `toml:"server"`
}

// ClockConfig maps network clock tunables.
type ClockConfig struct {
	DriftThreshold        *float64 `toml:"drift_threshold"`
	MaxDeltaTime          *float64 `toml:"max_delta_time"`
	SampleTarget          *int     `toml:"sample_target"`
	AutoAdjust            *bool    `toml:"auto_adjust"`
	SamplingDuration      *float64 `toml:"sampling_duration"`
	MinSamples            *int     `toml:"min_samples"`
	MaxSamples            *int     `toml:"max_samples"`
	DriftCompensationRate *float64 `toml:"drift_compensation_rate"`
}

// ReplicatorConfig maps prediction tunables.
type ReplicatorConfig struct {
	PredictionReduction *float64 `toml:"prediction_reduction"`
	CircleThreshold     *float64 `toml:"circle_threshold"`
	Motion              *string  `toml:"motion"`
}

// ServerConfig maps the simulation server settings.
type ServerConfig struct {
	Listen   *string     `toml:"listen"`
	TickRate *int        `toml:"tick_rate"`
	SendRate *int        `toml:"send_rate"`
	Ships    *int        `toml:"ships"`
	Bounds   *[2]float64 `toml:"bounds"`
	Seed     *int64      `toml:"seed"`
}

// maxWindowSamples bounds every sample count the clock accepts.
const maxWindowSamples = 1 << 16

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (fc FileConfig) Validate() error {
	if m := fc.Replicator.Motion; m != nil {
		switch deadreckon.MotionProfile(*m) {
		case deadreckon.MotionTransform, deadreckon.MotionRigidbody, deadreckon.MotionCircular:
		default:
			return fmt.Errorf("unknown motion %q", *m)
		}
	}
	if r := fc.Replicator.PredictionReduction; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("prediction_reduction %v outside [0,1]", *r)
	}
	c := fc.Clock
	for _, f := range []struct {
		name string
		v    *int
	}{{"sample_target", c.SampleTarget}, {"min_samples", c.MinSamples}, {"max_samples", c.MaxSamples}} {
		if f.v != nil && (*f.v <= 0 || *f.v > maxWindowSamples) {
			return fmt.Errorf("%s must be in [1,%d], got %d", f.name, maxWindowSamples, *f.v)
		}
	}
	if c.MinSamples != nil && c.MaxSamples != nil && *c.MinSamples > *c.MaxSamples {
		return fmt.Errorf("min_samples %d above max_samples %d", *c.MinSamples, *c.MaxSamples)
	}
	if r := c.DriftCompensationRate; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("drift_compensation_rate %v outside [0,1]", *r)
	}
	for name, v := range map[string]*float64{
		"drift_threshold":   c.DriftThreshold,
		"max_delta_time":    c.MaxDeltaTime,
		"sampling_duration": c.SamplingDuration,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, *v)
		}
	}
	for name, rate := range map[string]*int{"tick_rate": fc.Server.TickRate, "send_rate": fc.Server.SendRate} {
		if rate != nil && *rate <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, *rate)
		}
	}
	return nil
}
