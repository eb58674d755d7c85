package config

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ScottBrooks/deadreckon"
)

const (
	defaultListen          = "127.0.0.1:7777"
	defaultTickRate        = 60
	defaultSendRate        = 20
	defaultShips           = 8
	defaultCircleThreshold = 5
	defaultMotion          = deadreckon.MotionCircular
)

var defaultBounds = [2]float64{2048, 1024}

// ReplicatorSettings are the resolved prediction settings.
type ReplicatorSettings struct {
	PredictionReduction float32
	CircleThreshold     float32
	Motion              deadreckon.MotionProfile
}

func (rs ReplicatorSettings) Config() deadreckon.ReplicatorConfig {
	return deadreckon.ReplicatorConfig{
		PredictionReduction: rs.PredictionReduction,
		Predictor:           deadreckon.NewPredictor(rs.Motion, rs.CircleThreshold),
	}
}

// ServerSettings are the resolved simulation server settings.
type ServerSettings struct {
	Listen   string
	TickRate int
	SendRate int
	Ships    int
	Bounds   deadreckon.AABB
	Seed     int64
}

// ResolveClock merges the [clock] section over deadreckon.DefaultClockConfig.
func (fc FileConfig) ResolveClock() deadreckon.ClockConfig {
	cfg := deadreckon.DefaultClockConfig()
	c := fc.Clock
	if c.DriftThreshold != nil {
		cfg.DriftThreshold = *c.DriftThreshold
	}
	if c.MaxDeltaTime != nil {
		cfg.MaxDeltaTime = float32(*c.MaxDeltaTime)
	}
	if c.SampleTarget != nil {
		cfg.SampleTarget = uint32(*c.SampleTarget)
	}
	if c.AutoAdjust != nil {
		cfg.AutoAdjust = *c.AutoAdjust
	}
	if c.SamplingDuration != nil {
		cfg.SamplingDuration = float32(*c.SamplingDuration)
	}
	if c.MinSamples != nil {
		cfg.MinSamples = uint32(*c.MinSamples)
	}
	if c.MaxSamples != nil {
		cfg.MaxSamples = uint32(*c.MaxSamples)
	}
	if c.DriftCompensationRate != nil {
		cfg.DriftCompensationRate = *c.DriftCompensationRate
	}
	return cfg
}

func (fc FileConfig) ResolveReplicator() ReplicatorSettings {
	rs := ReplicatorSettings{
		CircleThreshold: defaultCircleThreshold,
		Motion:          defaultMotion,
	}
	r := fc.Replicator
	if r.PredictionReduction != nil {
		rs.PredictionReduction = float32(*r.PredictionReduction)
	}
	if r.CircleThreshold != nil {
		rs.CircleThreshold = float32(*r.CircleThreshold)
	}
	if r.Motion != nil {
		rs.Motion = deadreckon.MotionProfile(*r.Motion)
	}
	return rs
}

func (fc FileConfig) ResolveServer() ServerSettings {
	ss := ServerSettings{
		Listen:   defaultListen,
		TickRate: defaultTickRate,
		SendRate: defaultSendRate,
		Ships:    defaultShips,
		Seed:     1,
	}
	s := fc.Server
	if s.Listen != nil {
		ss.Listen = *s.Listen
	}
	if s.TickRate != nil {
		ss.TickRate = *s.TickRate
	}
	if s.SendRate != nil {
		ss.SendRate = *s.SendRate
	}
	if s.Ships != nil {
		ss.Ships = *s.Ships
	}
	if s.Seed != nil {
		ss.Seed = *s.Seed
	}
	bounds := defaultBounds
	if s.Bounds != nil {
		bounds = *s.Bounds
	}
	ss.Bounds = deadreckon.AABB{Max: mgl32.Vec2{float32(bounds[0]), float32(bounds[1])}}
	return ss
}
