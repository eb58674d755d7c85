package deadreckon

import (
	"math"
	"math/rand"
	"testing"

	"github.com/EngoEngine/engo"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offsetClock reports local time shifted by a settable offset plus jitter.
type offsetClock struct {
	local  LocalClock
	offset float64
	jitter float64
	calls  int
}

func (oc *offsetClock) Time() float64 {
	oc.calls++
	return oc.local.Time() + oc.offset + oc.jitter
}

func newTestClock(t *testing.T, cfg ClockConfig, offset float64, opts ...ClockOption) (*NetworkClock, *FrameClock, *offsetClock) {
	t.Helper()
	fc := &FrameClock{}
	fc.Advance(1.0 / 60)
	auth := &offsetClock{local: fc, offset: offset}
	nc, err := NewNetworkClock(fc, auth, fc, cfg, opts...)
	require.NoError(t, err)
	return nc, fc, auth
}

func fixedWindowConfig(target uint32) ClockConfig {
	cfg := DefaultClockConfig()
	cfg.AutoAdjust = false
	cfg.SampleTarget = target
	return cfg
}

func TestFrameClock(t *testing.T) {
	fc := &FrameClock{}
	fc.Advance(0.5)
	fc.Advance(0.25)
	assert.Equal(t, uint64(2), fc.Frame())
	assert.InDelta(t, 0.75, fc.Time(), 1e-9)
	assert.Equal(t, float32(0.25), fc.DeltaTime())
	assert.InDelta(t, 0.45, fc.SmoothDeltaTime(), 1e-6)
}

func TestNetworkClockInitialResync(t *testing.T) {
	nc, fc, _ := newTestClock(t, DefaultClockConfig(), 12.5)
	assert.InDelta(t, 12.5, nc.Offset(), 1e-9)
	assert.InDelta(t, fc.Time()+12.5, nc.Time(), 1e-9)
	assert.Equal(t, 1, nc.Stats().Resyncs)
}

func TestNetworkClockIdempotentWithinFrame(t *testing.T) {
	nc, fc, auth := newTestClock(t, fixedWindowConfig(10), 3)
	for i := 0; i < 25; i++ {
		fc.Advance(1.0 / 60)
		first := nc.Time()
		calls := auth.calls
		auth.jitter = 0.01 * float64(i%3)
		for j := 0; j < 5; j++ {
			if got := nc.Time(); got != first {
				t.Fatalf("frame %d: got %v, want %v", fc.Frame(), got, first)
			}
		}
		assert.Equal(t, calls, auth.calls, "authoritative clock resampled within a frame")
	}
}

func TestNetworkClockConverges(t *testing.T) {
	nc, fc, auth := newTestClock(t, fixedWindowConfig(30), 5)
	rng := rand.New(rand.NewSource(1))

	auth.offset = 5.1
	last := nc.Offset()
	for i := 0; i < 300; i++ {
		fc.Advance(1.0/60 + float32(rng.Float64()-0.5)*0.002)
		auth.jitter = (rng.Float64() - 0.5) * 0.002
		nc.Time()

		step := math.Abs(nc.Offset() - last)
		assert.Less(t, step, 0.01, "offset stepped at frame %d", fc.Frame())
		last = nc.Offset()
	}
	assert.InDelta(t, 5.1, nc.Offset(), 0.002)
	assert.Equal(t, 1, nc.Stats().Resyncs)
}

func TestNetworkClockForcedResyncOnDrift(t *testing.T) {
	mailbox := &engo.MessageManager{}
	var got []ResyncMessage
	mailbox.Listen(ResyncMessage{}.Type(), func(msg engo.Message) {
		got = append(got, msg.(ResyncMessage))
	})
	logger, hook := test.NewNullLogger()

	nc, fc, auth := newTestClock(t, fixedWindowConfig(30), 1,
		WithClockMailbox(mailbox), WithClockLogger(logger), WithClockName("peer"))
	for i := 0; i < 10; i++ {
		fc.Advance(1.0 / 60)
		nc.Time()
	}
	require.Len(t, got, 1)
	assert.Equal(t, ResyncInitial, got[0].Reason)
	assert.Empty(t, hook.AllEntries(), "initial resync should not warn")

	auth.offset = 3.5
	fc.Advance(1.0 / 60)
	assert.InDelta(t, auth.Time(), nc.Time(), 1e-9)
	assert.InDelta(t, 3.5, nc.Offset(), 1e-9)
	assert.Equal(t, float64(0), nc.Stats().ExactError)

	require.Len(t, got, 2)
	assert.Equal(t, ResyncDrift, got[1].Reason)
	assert.InDelta(t, 2.5, got[1].Error, 1e-6)
	assert.Equal(t, "peer", got[1].Clock)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestNetworkClockForceResync(t *testing.T) {
	mailbox := &engo.MessageManager{}
	var got []ResyncMessage
	mailbox.Listen(ResyncMessage{}.Type(), func(msg engo.Message) {
		got = append(got, msg.(ResyncMessage))
	})
	logger, hook := test.NewNullLogger()

	nc, fc, auth := newTestClock(t, fixedWindowConfig(30), 1,
		WithClockMailbox(mailbox), WithClockLogger(logger))
	for i := 0; i < 45; i++ {
		fc.Advance(1.0 / 60)
		nc.Time()
	}
	auth.offset = 1.1
	fc.Advance(1.0 / 60)
	nc.Time()
	assert.Less(t, nc.Offset(), 1.1, "small drift is averaged, not snapped")

	nc.ForceResync()
	assert.InDelta(t, 1.1, nc.Offset(), 1e-9)
	fc.Advance(1.0 / 60)
	assert.InDelta(t, auth.Time(), nc.Time(), 1e-9)
	assert.Equal(t, 2, nc.Stats().Resyncs)

	require.Len(t, got, 2)
	assert.Equal(t, ResyncManual, got[1].Reason)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestNetworkClockResyncOnLocalHitch(t *testing.T) {
	mailbox := &engo.MessageManager{}
	var reasons []ResyncReason
	mailbox.Listen(ResyncMessage{}.Type(), func(msg engo.Message) {
		reasons = append(reasons, msg.(ResyncMessage).Reason)
	})
	logger, _ := test.NewNullLogger()
	nc, fc, auth := newTestClock(t, fixedWindowConfig(30), 1, WithClockMailbox(mailbox), WithClockLogger(logger))

	auth.offset = 1.05
	fc.Advance(0.75)
	nc.Time()
	assert.Equal(t, []ResyncReason{ResyncInitial, ResyncLocalHitch}, reasons)
	assert.InDelta(t, 1.05, nc.Offset(), 1e-9)
}

func TestNetworkClockAutoAdjustsSampleTarget(t *testing.T) {
	cfg := DefaultClockConfig()
	cfg.SampleTarget = 60
	cfg.SamplingDuration = 1
	nc, fc, _ := newTestClock(t, cfg, 0)

	for i := 0; i < 60; i++ {
		fc.Advance(1.0 / 30)
		nc.Time()
	}
	assert.Equal(t, uint32(30), nc.Stats().SampleTarget)
	assert.Equal(t, uint32(0), nc.Stats().SampleCount)

	for i := 0; i < 40; i++ {
		fc.Advance(0.001)
		nc.Time()
	}
	assert.Equal(t, cfg.MaxSamples, nc.Stats().SampleTarget)
}

func TestNetworkClockBlendsWindows(t *testing.T) {
	nc, fc, auth := newTestClock(t, fixedWindowConfig(4), 0)
	auth.offset = 0.1

	var offsets []float64
	for i := 0; i < 8; i++ {
		fc.Advance(1.0 / 60)
		nc.Time()
		offsets = append(offsets, nc.Offset())
	}
	// first window only collects, the second blends toward its average
	want := []float64{0, 0, 0, 0, 0.025, 0.05, 0.075, 0.1}
	for i := range want {
		assert.InDelta(t, want[i], offsets[i], 1e-9, "frame %d", i)
	}
}

func TestNetworkClockMissingCollaborator(t *testing.T) {
	logger, hook := test.NewNullLogger()
	fc := &FrameClock{}
	_, err := NewNetworkClock(fc, nil, fc, DefaultClockConfig(), WithClockLogger(logger))
	assert.ErrorIs(t, err, ErrMissingCollaborator)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestNetworkClockOffsetStaysBetweenWindows(t *testing.T) {
	cfg := fixedWindowConfig(4)
	cfg.DriftCompensationRate = 3
	nc, fc, auth := newTestClock(t, cfg, 1)
	auth.offset = 1.1
	for i := 0; i < 40; i++ {
		fc.Advance(1.0 / 60)
		nc.Time()
		if off := nc.Offset(); off < 1-1e-9 || off > 1.1+1e-9 {
			t.Fatalf("frame %d: offset %v left [1, 1.1]", fc.Frame(), off)
		}
	}
	assert.InDelta(t, 1.1, nc.Offset(), 1e-9)
}

func TestNetworkClockSampleTargetNeverZero(t *testing.T) {
	var tests = []struct {
		name     string
		min, max uint32
		duration float32
	}{
		{"largest window", math.MaxUint32, math.MaxUint32, 1},
		{"zero bounds", 0, 0, 1},
		{"zero duration", 0, 240, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClockConfig()
			cfg.SampleTarget = 1
			cfg.MinSamples = tt.min
			cfg.MaxSamples = tt.max
			cfg.SamplingDuration = tt.duration
			nc, fc, _ := newTestClock(t, cfg, 0.1)
			for i := 0; i < 600; i++ {
				fc.Advance(1.0 / 60)
				if now := nc.Time(); math.IsNaN(now) {
					t.Fatalf("frame %d: network time is NaN", fc.Frame())
				}
			}
			stats := nc.Stats()
			assert.GreaterOrEqual(t, stats.SampleTarget, uint32(1))
			assert.LessOrEqual(t, stats.SampleCount, stats.SampleTarget)
			assert.InDelta(t, fc.Time()+0.1, nc.Time(), 1e-6)
		})
	}
}
