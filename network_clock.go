package deadreckon

import (
	"fmt"
	"math"

	"github.com/EngoEngine/engo"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
)

// ResyncReason says why a NetworkClock snapped its offset.
type ResyncReason int

const (
	ResyncInitial ResyncReason = iota
	ResyncDrift
	ResyncLocalHitch
	ResyncManual
)

func (r ResyncReason) String() string {
	switch r {
	case ResyncInitial:
		return "initial"
	case ResyncDrift:
		return "drift"
	case ResyncLocalHitch:
		return "local hitch"
	case ResyncManual:
		return "manual"
	}
	return "unknown"
}

// ClockConfig tunes a NetworkClock.
type ClockConfig struct {
	// DriftThreshold is the largest error, in seconds, that is corrected by
	// averaging. Anything larger forces a resync. Zero disables the check.
	DriftThreshold float64
	// MaxDeltaTime marks a frame whose local delta is at least this long as
	// unreliable. Such a frame forces a resync. Zero disables the check.
	MaxDeltaTime float32
	// SampleTarget is the number of frames averaged into one window.
	SampleTarget uint32
	// AutoAdjust recomputes SampleTarget after each window so a window spans
	// SamplingDuration seconds at the current frame rate.
	AutoAdjust       bool
	SamplingDuration float32
	MinSamples       uint32
	MaxSamples       uint32
	// DriftCompensationRate scales how far the offset travels from the
	// previous window's average toward the latest one over a window. It is
	// clamped to [0, 1].
	DriftCompensationRate float64
}

// DefaultClockConfig averages roughly one second of frames and resyncs on a
// quarter second of drift.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		DriftThreshold:        0.25,
		MaxDeltaTime:          0.5,
		SampleTarget:          60,
		AutoAdjust:            true,
		SamplingDuration:      1,
		MinSamples:            10,
		MaxSamples:            240,
		DriftCompensationRate: 1,
	}
}

// ClockStats is a snapshot of a NetworkClock's estimator.
type ClockStats struct {
	Offset          float64
	AverageOffset   float64
	PreviousAverage float64
	ExactError      float64
	SampleCount     uint32
	SampleTarget    uint32
	Resyncs         int
}

// ClockOption configures optional NetworkClock collaborators.
type ClockOption func(*NetworkClock)

// WithClockLogger sets the logger used for resync warnings.
func WithClockLogger(l logrus.FieldLogger) ClockOption {
	return func(nc *NetworkClock) { nc.log = l }
}

// WithClockMailbox dispatches a ResyncMessage for every resync.
func WithClockMailbox(mm *engo.MessageManager) ClockOption {
	return func(nc *NetworkClock) { nc.mailbox = mm }
}

// WithClockName names the clock in logs and messages.
func WithClockName(name string) ClockOption {
	return func(nc *NetworkClock) { nc.name = name }
}

// NetworkClock estimates authoritative time from a local clock. The offset
// between the two is averaged over windows of frames and blended from one
// window to the next so it never steps, except on a forced resync.
//
// Time is sampled at most once per frame. Do not call it from fixed step
// updates that run several times a frame; cache the per-frame value instead.
type NetworkClock struct {
	name    string
	local   LocalClock
	auth    AuthoritativeClock
	frames  FrameCounter
	cfg     ClockConfig
	log     logrus.FieldLogger
	mailbox *engo.MessageManager

	previousAverage   float64
	average           float64
	incompleteAverage float64
	sampleCount       uint32
	sampleTarget      uint32

	offset     float64
	exactError float64
	resyncs    int

	sampled   bool
	lastFrame uint64
	now       float64
}

// NewNetworkClock builds a clock and immediately resyncs it to the
// authoritative clock.
func NewNetworkClock(local LocalClock, auth AuthoritativeClock, frames FrameCounter, cfg ClockConfig, opts ...ClockOption) (*NetworkClock, error) {
	nc := &NetworkClock{
		name:   "network",
		local:  local,
		auth:   auth,
		frames: frames,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(nc)
	}
	nc.log = nc.log.WithField("clock", nc.name)

	if local == nil || auth == nil || frames == nil {
		err := fmt.Errorf("network clock %q: %w: local, authoritative and frame clocks are required", nc.name, ErrMissingCollaborator)
		nc.log.Error(err)
		return nil, err
	}

	if cfg.SampleTarget == 0 {
		cfg.SampleTarget = 1
	}
	if cfg.MinSamples == 0 {
		cfg.MinSamples = 1
	}
	if cfg.MaxSamples < cfg.MinSamples {
		cfg.MaxSamples = cfg.MinSamples
	}
	cfg.DriftCompensationRate = mgl64.Clamp(cfg.DriftCompensationRate, 0, 1)
	nc.cfg = cfg
	nc.sampleTarget = cfg.SampleTarget
	nc.Reset()
	return nc, nil
}

// Reset discards all history and resyncs as if the clock was just enabled.
func (nc *NetworkClock) Reset() {
	nc.resyncs = 0
	nc.sampleTarget = nc.cfg.SampleTarget
	nc.sampled = false
	nc.resync(ResyncInitial)
	nc.exactError = 0
}

// Time returns network time for the current frame. Repeated calls within one
// frame return the identical value.
func (nc *NetworkClock) Time() float64 {
	frame := nc.frames.Frame()
	if nc.sampled && frame == nc.lastFrame {
		return nc.now
	}
	nc.sampled = true
	nc.lastFrame = frame
	nc.sample()
	nc.now = nc.local.Time() + nc.offset
	return nc.now
}

// Offset is the value added to local time to produce network time.
func (nc *NetworkClock) Offset() float64 { return nc.offset }

func (nc *NetworkClock) Stats() ClockStats {
	return ClockStats{
		Offset:          nc.offset,
		AverageOffset:   nc.average,
		PreviousAverage: nc.previousAverage,
		ExactError:      nc.exactError,
		SampleCount:     nc.sampleCount,
		SampleTarget:    nc.sampleTarget,
		Resyncs:         nc.resyncs,
	}
}

// ForceResync snaps the offset to the current authoritative offset and
// restarts averaging.
func (nc *NetworkClock) ForceResync() {
	nc.resync(ResyncManual)
}

func (nc *NetworkClock) sample() {
	authTime := nc.auth.Time()
	localTime := nc.local.Time()
	nc.exactError = authTime - (localTime + nc.offset)

	if nc.cfg.DriftThreshold > 0 && math.Abs(nc.exactError) > nc.cfg.DriftThreshold {
		nc.resync(ResyncDrift)
		nc.exactError = 0
		return
	}
	if nc.cfg.MaxDeltaTime > 0 && nc.local.DeltaTime() >= nc.cfg.MaxDeltaTime {
		nc.resync(ResyncLocalHitch)
		nc.exactError = 0
		return
	}

	nc.incompleteAverage += (authTime - localTime) / float64(nc.sampleTarget)
	nc.sampleCount++

	if nc.sampleCount >= nc.sampleTarget {
		nc.previousAverage = lerp(nc.previousAverage, nc.average, nc.cfg.DriftCompensationRate)
		nc.average = nc.incompleteAverage
		nc.incompleteAverage = 0
		nc.sampleCount = 0
		if nc.cfg.AutoAdjust {
			nc.adjustSampleTarget()
		}
	}

	progress := float64(nc.sampleCount) / float64(nc.sampleTarget)
	nc.offset = lerp(nc.previousAverage, nc.average, nc.cfg.DriftCompensationRate*progress)
}

func (nc *NetworkClock) adjustSampleTarget() {
	smooth := nc.local.SmoothDeltaTime()
	if smooth <= 0 {
		return
	}
	target := mgl64.Round(float64(nc.cfg.SamplingDuration)/float64(smooth), 0)
	target = mgl64.Clamp(target, float64(nc.cfg.MinSamples), float64(nc.cfg.MaxSamples))
	if target < 1 {
		target = 1
	}
	nc.sampleTarget = uint32(target)
}

func (nc *NetworkClock) resync(reason ResyncReason) {
	discarded := nc.exactError
	nc.offset = nc.auth.Time() - nc.local.Time()
	nc.previousAverage = nc.offset
	nc.average = nc.offset
	nc.incompleteAverage = 0
	nc.sampleCount = 0
	nc.resyncs++

	if reason != ResyncInitial {
		nc.log.WithFields(logrus.Fields{
			"reason": reason,
			"error":  discarded,
			"offset": nc.offset,
		}).Warn("network clock resynced")
	}
	if nc.mailbox != nil {
		nc.mailbox.Dispatch(ResyncMessage{
			Clock:  nc.name,
			Frame:  nc.frames.Frame(),
			Reason: reason,
			Error:  discarded,
			Offset: nc.offset,
		})
	}
}

// lerp never leaves [a, b].
func lerp(a, b, t float64) float64 {
	return a + (b-a)*mgl64.Clamp(t, 0, 1)
}
