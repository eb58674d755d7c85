package deadreckon

import (
	"fmt"
	"math"
	"testing"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ScottBrooks/deadreckon/kinematics"
)

type fixedTime struct {
	now float64
}

func (ft *fixedTime) Time() float64 { return ft.now }

func newTestReplicator(t *testing.T, clock TimeSource, cfg ReplicatorConfig, opts ...ReplicatorOption) *Replicator {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts = append([]ReplicatorOption{WithReplicatorLogger(logger)}, opts...)
	r, err := NewReplicator(ecs.NewBasic(), clock, cfg, opts...)
	require.NoError(t, err)
	return r
}

// assertVec3 compares component-wise with an absolute tolerance, so values
// near zero are not held to a relative epsilon.
func assertVec3(t *testing.T, want, got mgl32.Vec3, delta float64) {
	t.Helper()
	for i := range want {
		if math.Abs(float64(want[i]-got[i])) > delta {
			t.Errorf("got %v, want %v", got, want)
			return
		}
	}
}

func moving(x float32) Kinematics {
	return Kinematics{
		Position: mgl32.Vec3{x, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Velocity: mgl32.Vec3{1, 0, 0},
	}
}

func TestReplicatorExtrapolatesBetweenSnapshots(t *testing.T) {
	clock := &fixedTime{now: 10}
	r := newTestReplicator(t, clock, ReplicatorConfig{})

	require.NoError(t, r.OnSnapshotReceived(10, moving(0)))
	assert.InDelta(t, 0, r.State().Position.X(), 1e-6)

	clock.now = 10.5
	r.Tick(1.0 / 60)
	assertVec3(t, mgl32.Vec3{0.5, 0, 0}, r.State().Position, 1e-4)
}

func TestReplicatorPredictsLatencyOnReceipt(t *testing.T) {
	clock := &fixedTime{now: 10.2}
	r := newTestReplicator(t, clock, ReplicatorConfig{Predictor: RigidbodyPredictor{}})

	k := moving(0)
	k.Acceleration = mgl32.Vec3{0, 10, 0}
	require.NoError(t, r.OnSnapshotReceived(10, k))

	assert.InDelta(t, 10.2, r.ReceiveTime(), 1e-9)
	assert.InDelta(t, 0.2, r.Latency(), 1e-9)
	assertVec3(t, mgl32.Vec3{0.2, 0.2, 0}, r.State().Position, 1e-4)
	assertVec3(t, mgl32.Vec3{1, 2, 0}, r.State().Velocity, 1e-4)
}

func TestReplicatorRejectsStaleSnapshots(t *testing.T) {
	mailbox := &engo.MessageManager{}
	var rejected []SnapshotRejectedMessage
	mailbox.Listen(SnapshotRejectedMessage{}.Type(), func(msg engo.Message) {
		rejected = append(rejected, msg.(SnapshotRejectedMessage))
	})

	clock := &fixedTime{now: 5}
	r := newTestReplicator(t, clock, ReplicatorConfig{}, WithReplicatorMailbox(mailbox))
	require.NoError(t, r.OnSnapshotReceived(5.0, moving(1)))
	want := r.State()

	for _, sendTime := range []float64{5.0, 4.9} {
		t.Run(fmt.Sprintf("send time %v", sendTime), func(t *testing.T) {
			err := r.OnSnapshotReceived(sendTime, moving(100))
			assert.ErrorIs(t, err, ErrStale)
			assert.Equal(t, 5.0, r.WorkingSendTime())
			assert.Equal(t, want, r.State())
			assert.Equal(t, float32(1), r.Last().Position.X())
			assert.Equal(t, 1, r.Backlog().Len())
		})
	}
	require.Len(t, rejected, 2)
	assert.Equal(t, r.ID(), rejected[1].EntityID)
	assert.Equal(t, 4.9, rejected[1].SendTime)
}

func TestReplicatorUntrackedTickIsNoop(t *testing.T) {
	r := newTestReplicator(t, &fixedTime{now: 3}, ReplicatorConfig{})
	r.Tick(0.1)
	assert.False(t, r.Tracking())
	assert.True(t, math.IsInf(r.WorkingSendTime(), -1))
	assert.Equal(t, mgl32.QuatIdent(), r.State().Rotation)
}

func TestReplicatorSkipsLocallyOwned(t *testing.T) {
	clock := &fixedTime{now: 1}
	owned := true
	r := newTestReplicator(t, clock, ReplicatorConfig{},
		WithAuthority(AuthorityFunc(func(uint64) bool { return owned })))
	require.NoError(t, r.OnSnapshotReceived(1, moving(0)))

	clock.now = 3
	r.Tick(0.1)
	assert.InDelta(t, 0, r.State().Position.X(), 1e-6)

	owned = false
	r.Tick(0.1)
	assert.InDelta(t, 2, r.State().Position.X(), 1e-4)
}

func TestReplicatorPredictionReduction(t *testing.T) {
	clock := &fixedTime{now: 10.05}
	r := newTestReplicator(t, clock, ReplicatorConfig{PredictionReduction: 0.25})

	// reduction exceeds latency and there is no history yet
	require.NoError(t, r.OnSnapshotReceived(10, moving(0)))
	assert.InDelta(t, 0, r.State().Position.X(), 1e-6)

	// 0.2s before the newest sample lies inside the history
	clock.now = 10.55
	require.NoError(t, r.OnSnapshotReceived(10.5, moving(0.5)))
	assert.InDelta(t, 0.3, r.State().Position.X(), 1e-4)

	clock.now = 11
	r.Tick(1.0 / 60)
	assert.InDelta(t, 0.75, r.State().Position.X(), 1e-4)
}

func TestReplicatorBacklogAge(t *testing.T) {
	clock := &fixedTime{}
	r := newTestReplicator(t, clock, ReplicatorConfig{PredictionReduction: 0.5})
	for i := 0; i < 4; i++ {
		clock.now = float64(i)
		require.NoError(t, r.OnSnapshotReceived(float64(i), moving(float32(i))))
	}
	entries := r.Backlog().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 2.0, entries[0].Timestamp)
}

func TestReplicatorUsesInjectedBacklog(t *testing.T) {
	clock := &fixedTime{}
	b := &Backlog{}
	require.NoError(t, b.Add(BacklogEntry{Timestamp: -1, Rotation: mgl32.QuatIdent()}, 10))
	r := newTestReplicator(t, clock, ReplicatorConfig{PredictionReduction: 1}, WithBacklog(b))
	assert.Same(t, b, r.Backlog())
	assert.Zero(t, b.Len(), "a new replicator starts from an empty history")

	for i := 0; i < 3; i++ {
		clock.now = float64(i)
		require.NoError(t, r.OnSnapshotReceived(float64(i), moving(float32(i))))
	}
	assert.Equal(t, 3, b.Len())
}

func TestReplicatorClampsReduction(t *testing.T) {
	clock := &fixedTime{now: 0}
	r := newTestReplicator(t, clock, ReplicatorConfig{PredictionReduction: 4})
	require.NoError(t, r.OnSnapshotReceived(0, moving(0)))
	clock.now = 3
	r.Tick(0.1)
	assert.InDelta(t, 2, r.State().Position.X(), 1e-4)
}

func TestReplicatorReset(t *testing.T) {
	clock := &fixedTime{now: 8}
	r := newTestReplicator(t, clock, ReplicatorConfig{})
	require.NoError(t, r.OnSnapshotReceived(8, moving(0)))
	r.Reset()
	assert.False(t, r.Tracking())
	assert.Equal(t, 0, r.Backlog().Len())
	assert.NoError(t, r.OnSnapshotReceived(2, moving(0)))
}

func TestReplicatorMissingClock(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewReplicator(ecs.NewBasic(), nil, ReplicatorConfig{}, WithReplicatorLogger(logger))
	assert.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestPredictors(t *testing.T) {
	turning := Kinematics{
		Position:                mgl32.Vec3{},
		Rotation:                mgl32.QuatIdent(),
		Velocity:                mgl32.Vec3{1, 0, 0},
		Acceleration:            mgl32.Vec3{2, 0, 0},
		AngularVelocity:         mgl32.Vec3{0, 0, math.Pi / 2},
		CircularAngularVelocity: 90,
	}
	r := float32(2 / math.Pi)

	var tests = []struct {
		name    string
		p       Predictor
		k       Kinematics
		wantPos mgl32.Vec3
	}{
		{"transform", TransformPredictor{}, turning, mgl32.Vec3{1, 0, 0}},
		{"rigidbody", RigidbodyPredictor{}, turning, mgl32.Vec3{2, 0, 0}},
		{"circular", NewPredictor(MotionCircular, 10), turning, mgl32.Vec3{r, r, 0}},
		{"circular below threshold", NewPredictor(MotionCircular, 120), turning, mgl32.Vec3{2, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.p.Predict(Snapshot{SendTime: 0, Kinematics: tt.k}, 1, 0)
			assertVec3(t, tt.wantPos, got.Position, 1e-4)
			heading := got.Rotation.Rotate(mgl32.Vec3{1, 0, 0})
			assertVec3(t, mgl32.Vec3{0, 1, 0}, heading, 1e-4)
		})
	}
}

func TestCircularPredictorRightTurn(t *testing.T) {
	k := Kinematics{
		Rotation:                mgl32.QuatIdent(),
		Velocity:                mgl32.Vec3{1, 0, 0},
		AngularVelocity:         mgl32.Vec3{0, 0, -math.Pi / 2},
		CircularAngularVelocity: -90,
	}
	r := float32(2 / math.Pi)
	withAxis := CircularPredictor{Threshold: 1}.Predict(Snapshot{Kinematics: k}, 1, 0)
	assertVec3(t, mgl32.Vec3{r, -r, 0}, withAxis.Position, 1e-4)

	k.AngularVelocity = mgl32.Vec3{}
	planar := CircularPredictor{Threshold: 1, Axis: kinematics.Up}.Predict(Snapshot{Kinematics: k}, 1, 0)
	assertVec3(t, withAxis.Position, planar.Position, 1e-4)
}

func TestNewPredictor(t *testing.T) {
	assert.Equal(t, TransformPredictor{}, NewPredictor(MotionTransform, 0))
	assert.Equal(t, RigidbodyPredictor{}, NewPredictor(MotionRigidbody, 0))
	assert.Equal(t, TransformPredictor{}, NewPredictor("bogus", 0))
	assert.IsType(t, CircularPredictor{}, NewPredictor(MotionCircular, 5))
}
