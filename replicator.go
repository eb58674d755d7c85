package deadreckon

import (
	"fmt"
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

// Authority tells whether this peer owns an entity.
type Authority interface {
	IsLocallyAuthoritative(id uint64) bool
}

// AuthorityFunc adapts a function to Authority.
type AuthorityFunc func(id uint64) bool

func (f AuthorityFunc) IsLocallyAuthoritative(id uint64) bool { return f(id) }

// historyWindows is how many prediction reduction windows the backlog keeps.
const historyWindows = 3

// ReplicatorConfig tunes a Replicator.
type ReplicatorConfig struct {
	// PredictionReduction under-extrapolates by this many seconds, clamped to
	// [0,1]. It trades a constant lag for less overshoot on noisy velocities.
	PredictionReduction float32
	Predictor           Predictor
}

type ReplicatorOption func(*Replicator)

func WithReplicatorLogger(l logrus.FieldLogger) ReplicatorOption {
	return func(r *Replicator) { r.log = l }
}

// WithReplicatorMailbox dispatches a SnapshotRejectedMessage for each stale
// snapshot.
func WithReplicatorMailbox(mm *engo.MessageManager) ReplicatorOption {
	return func(r *Replicator) { r.mailbox = mm }
}

// WithAuthority skips prediction for entities this peer owns.
func WithAuthority(a Authority) ReplicatorOption {
	return func(r *Replicator) { r.authority = a }
}

// WithBacklog shares an existing backlog instead of allocating one.
func WithBacklog(b *Backlog) ReplicatorOption {
	return func(r *Replicator) { r.backlog = b }
}

// Replicator dead-reckons one remotely owned entity from the snapshots its
// authority sends. It starts untracked and begins tracking on the first
// accepted snapshot.
type Replicator struct {
	ecs.BasicEntity

	clock     TimeSource
	predictor Predictor
	backlog   *Backlog
	authority Authority
	reduction float64
	log       logrus.FieldLogger
	mailbox   *engo.MessageManager

	tracking        bool
	last            Snapshot
	workingSendTime float64
	receiveTime     float64
	latency         float64
	state           State
}

// NewReplicator builds a replicator for entity that reads network time from
// clock. A nil clock is a setup error.
func NewReplicator(entity ecs.BasicEntity, clock TimeSource, cfg ReplicatorConfig, opts ...ReplicatorOption) (*Replicator, error) {
	r := &Replicator{
		BasicEntity: entity,
		clock:       clock,
		predictor:   cfg.Predictor,
		reduction:   float64(mgl32.Clamp(cfg.PredictionReduction, 0, 1)),
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithField("entity", entity.ID())

	if clock == nil {
		err := fmt.Errorf("replicator %d: %w: network clock is required", entity.ID(), ErrMissingCollaborator)
		r.log.Error(err)
		return nil, err
	}
	if r.predictor == nil {
		r.predictor = TransformPredictor{}
	}
	if r.backlog == nil {
		r.backlog = &Backlog{}
	}
	r.Reset()
	return r, nil
}

// Reset drops all received state, as if the replicator was just enabled.
func (r *Replicator) Reset() {
	r.tracking = false
	r.last = Snapshot{}
	r.workingSendTime = math.Inf(-1)
	r.receiveTime = 0
	r.latency = 0
	r.state = State{Rotation: mgl32.QuatIdent()}
	r.backlog.Clear()
}

// OnSnapshotReceived accepts an authoritative update sent at sendTime. A
// snapshot that is not newer than the last accepted one is rejected with
// ErrStale and changes nothing.
func (r *Replicator) OnSnapshotReceived(sendTime float64, k Kinematics) error {
	if sendTime <= r.workingSendTime {
		r.log.WithFields(logrus.Fields{
			"send_time": sendTime,
			"working":   r.workingSendTime,
		}).Debug("rejected stale snapshot")
		if r.mailbox != nil {
			r.mailbox.Dispatch(SnapshotRejectedMessage{
				EntityID:        r.ID(),
				SendTime:        sendTime,
				WorkingSendTime: r.workingSendTime,
			})
		}
		return fmt.Errorf("entity %d: %w: sent at %v, have %v", r.ID(), ErrStale, sendTime, r.workingSendTime)
	}

	now := r.clock.Time()
	r.receiveTime = now
	r.latency = now - sendTime
	r.workingSendTime = sendTime
	r.last = Snapshot{SendTime: sendTime, Kinematics: k}
	r.tracking = true

	entry := BacklogEntry{Timestamp: sendTime, Position: k.Position, Rotation: k.Rotation}
	if err := r.backlog.Add(entry, historyWindows*r.reduction); err != nil {
		r.log.WithError(err).Warn("backlog rejected snapshot")
	}

	r.Predict(r.latency-r.reduction, 0)
	return nil
}

// Tick re-predicts from the last accepted snapshot. It does nothing before the
// first snapshot or for an entity this peer owns.
func (r *Replicator) Tick(dt float32) {
	if !r.tracking {
		return
	}
	if r.authority != nil && r.authority.IsLocallyAuthoritative(r.ID()) {
		return
	}
	elapsed := r.clock.Time() - r.workingSendTime - r.reduction
	r.Predict(elapsed, dt)
}

// Predict sets the entity state to the last snapshot advanced by elapsed
// seconds. A negative elapsed time is answered from the backlog when it
// brackets that moment, and by the snapshot itself otherwise.
func (r *Replicator) Predict(elapsed float64, dt float32) {
	if !r.tracking {
		return
	}
	if elapsed < 0 {
		at := r.workingSendTime + elapsed
		if r.backlog.Interpolatable(at) {
			pos, rot := r.backlog.Interpolate(at)
			r.state = State{Position: pos, Rotation: rot, Velocity: r.last.Velocity}
			return
		}
		elapsed = 0
	}
	r.state = r.predictor.Predict(r.last, elapsed, dt)
}

// State is the latest predicted transform.
func (r *Replicator) State() State { return r.state }

// Tracking reports whether a snapshot has been accepted since the last reset.
func (r *Replicator) Tracking() bool { return r.tracking }

// WorkingSendTime is the send time of the last accepted snapshot, or negative
// infinity before the first.
func (r *Replicator) WorkingSendTime() float64 { return r.workingSendTime }
func (r *Replicator) ReceiveTime() float64     { return r.receiveTime }
func (r *Replicator) Latency() float64         { return r.latency }
func (r *Replicator) Last() Snapshot           { return r.last }
func (r *Replicator) Backlog() *Backlog        { return r.backlog }
