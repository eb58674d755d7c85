package deadreckon

import (
	"errors"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	log "github.com/sirupsen/logrus"

	"github.com/ScottBrooks/deadreckon/transport"
)

// FrameSource yields the frames received since the last call.
type FrameSource interface {
	Drain() []transport.Frame
}

// ReceiveSystem delivers received snapshots to replicators before prediction
// runs, creating a replicator the first time an entity is seen.
type ReceiveSystem struct {
	CS *ClientScene
}

func (rs *ReceiveSystem) Remove(ecs.BasicEntity) {}

// Priority delivers snapshots after the frame clock advances and before
// prediction.
func (rs *ReceiveSystem) Priority() int { return 50 }

func (rs *ReceiveSystem) Update(dt float32) {
	for _, f := range rs.CS.Source.Drain() {
		for _, e := range f.Entities {
			rs.CS.deliver(e)
		}
	}
}

// NetworkTimeSystem samples the network clock once every frame, so averaging
// windows count frames even when nothing is predicted.
type NetworkTimeSystem struct {
	Clock *NetworkClock
}

func (nts *NetworkTimeSystem) Remove(ecs.BasicEntity) {}

// Priority samples right after the frame clock advances.
func (nts *NetworkTimeSystem) Priority() int { return 90 }
func (nts *NetworkTimeSystem) Update(dt float32) {
	nts.Clock.Time()
}

// ReportSystem periodically logs the predicted state of every replicator.
type ReportSystem struct {
	CS       *ClientScene
	Interval float32

	elapsed float32
}

func (rs *ReportSystem) Remove(ecs.BasicEntity) {}
func (rs *ReportSystem) Priority() int          { return -10 }
func (rs *ReportSystem) Update(dt float32) {
	rs.elapsed += dt
	if rs.Interval <= 0 || rs.elapsed < rs.Interval {
		return
	}
	rs.elapsed = 0

	stats := rs.CS.NetClock.Stats()
	log.WithFields(log.Fields{
		"offset":  stats.Offset,
		"error":   stats.ExactError,
		"samples": stats.SampleTarget,
		"resyncs": stats.Resyncs,
	}).Info("network clock")
	for _, r := range rs.CS.Registry.Replicators() {
		s := r.State()
		log.WithFields(log.Fields{
			"entity":  rs.CS.ecsToNet[r.ID()],
			"pos":     s.Position,
			"vel":     s.Velocity,
			"latency": r.Latency(),
		}).Info("predicted")
	}
}

// ClientScene observes a server's ships and dead-reckons them between
// snapshots.
type ClientScene struct {
	Source         FrameSource
	Authority      AuthoritativeClock
	ClockConfig    ClockConfig
	Replicator     ReplicatorConfig
	Owned          map[uint64]bool
	ReportInterval float32
	Mailbox        *engo.MessageManager

	Frames     FrameClock
	NetClock   *NetworkClock
	Registry   *Registry
	Prediction PredictionSystem

	EntToEcs map[uint64]uint64
	ecsToNet map[uint64]uint64
}

func (*ClientScene) Preload() {}
func (cs *ClientScene) Setup(u engo.Updater) {
	w, _ := u.(*ecs.World)
	if err := cs.Populate(w); err != nil {
		log.WithError(err).Error("client scene disabled")
	}
}
func (*ClientScene) Type() string { return "Client" }

// Populate builds the network clock and adds the client systems to w.
func (cs *ClientScene) Populate(w *ecs.World) error {
	cs.Registry = NewRegistry()
	cs.EntToEcs = map[uint64]uint64{}
	cs.ecsToNet = map[uint64]uint64{}

	nc, err := NewNetworkClock(&cs.Frames, cs.Authority, &cs.Frames, cs.ClockConfig,
		WithClockName("server"), WithClockMailbox(cs.Mailbox))
	if err != nil {
		return err
	}
	if cs.Source == nil {
		return errors.New("client scene: no frame source")
	}
	cs.NetClock = nc
	if err := cs.Registry.RegisterClock("server", nc); err != nil {
		return err
	}

	w.AddSystem(&cs.Frames)
	w.AddSystem(&NetworkTimeSystem{Clock: nc})
	w.AddSystem(&ReceiveSystem{CS: cs})
	w.AddSystem(&cs.Prediction)
	w.AddSystem(&ReportSystem{CS: cs, Interval: cs.ReportInterval})
	return nil
}

// IsLocallyAuthoritative reports whether the network entity behind a local
// replicator is owned by this client.
func (cs *ClientScene) IsLocallyAuthoritative(id uint64) bool {
	netID, ok := cs.ecsToNet[id]
	return ok && cs.Owned[netID]
}

// ReplicatorFor returns the replicator tracking a network entity.
func (cs *ClientScene) ReplicatorFor(netID uint64) (*Replicator, bool) {
	local, ok := cs.EntToEcs[netID]
	if !ok {
		return nil, false
	}
	return cs.Registry.Replicator(local)
}

func (cs *ClientScene) deliver(e transport.EntityState) {
	local, ok := cs.EntToEcs[e.ID]
	if !ok {
		r, err := NewReplicator(ecs.NewBasic(), cs.NetClock, cs.Replicator,
			WithAuthority(cs), WithReplicatorMailbox(cs.Mailbox))
		if err != nil {
			log.WithError(err).WithField("entity", e.ID).Error("cannot replicate entity")
			return
		}
		if err := cs.Registry.AddReplicator(r); err != nil {
			log.WithError(err).WithField("entity", e.ID).Error("cannot replicate entity")
			return
		}
		cs.Prediction.Add(r)
		local = r.ID()
		cs.EntToEcs[e.ID] = local
		cs.ecsToNet[local] = e.ID
		log.WithFields(log.Fields{"entity": e.ID, "replicator": local}).Info("replicating entity")
	}

	err := cs.Registry.Deliver(local, e.SendTime, DecodeState(e))
	if err != nil && !errors.Is(err, ErrStale) {
		log.WithError(err).WithField("entity", e.ID).Warn("snapshot not delivered")
	}
}

// RemoveEntity stops replicating a network entity.
func (cs *ClientScene) RemoveEntity(netID uint64) {
	local, ok := cs.EntToEcs[netID]
	if !ok {
		return
	}
	if r, ok := cs.Registry.Replicator(local); ok {
		cs.Prediction.Remove(r.BasicEntity)
	}
	cs.Registry.RemoveReplicator(local)
	delete(cs.EntToEcs, netID)
	delete(cs.ecsToNet, local)
}

// Close tears down every replicator and clock owned by the scene.
func (cs *ClientScene) Close() {
	cs.Prediction.Entities = nil
	cs.Registry.Close()
	cs.EntToEcs = map[uint64]uint64{}
	cs.ecsToNet = map[uint64]uint64{}
}
