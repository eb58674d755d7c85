package deadreckon

import (
	"math/rand"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"

	"github.com/ScottBrooks/deadreckon/transport"
)

// Broadcaster publishes frames to observers.
type Broadcaster interface {
	Broadcast(transport.Frame) error
}

// BroadcastSystem snapshots every ship at a fixed rate, stamped with the
// server's frame clock as authoritative time.
type BroadcastSystem struct {
	Out      Broadcaster
	Clock    *FrameClock
	Ships    *ShipSystem
	Interval float32

	seq     uint64
	elapsed float32
}

func (bs *BroadcastSystem) Remove(ecs.BasicEntity) {}

// Priority sends after ships have moved this frame.
func (bs *BroadcastSystem) Priority() int { return -10 }

func (bs *BroadcastSystem) Update(dt float32) {
	bs.elapsed += dt
	if bs.elapsed < bs.Interval {
		return
	}
	bs.elapsed -= bs.Interval
	if bs.elapsed > bs.Interval {
		bs.elapsed = 0
	}

	bs.seq++
	now := bs.Clock.Time()
	frame := transport.Frame{
		Seq:        bs.seq,
		ServerTime: now,
		Entities:   make([]transport.EntityState, 0, len(bs.Ships.Ships)),
	}
	for _, s := range bs.Ships.Ships {
		frame.Entities = append(frame.Entities, EncodeState(s.ID(), now, s.Kinematics()))
	}
	if err := bs.Out.Broadcast(frame); err != nil {
		log.WithError(err).WithField("seq", bs.seq).Warn("broadcast failed")
	}
}

// ServerScene owns the authoritative simulation: bot steered ships whose
// state is broadcast SendRate times a second.
type ServerScene struct {
	Out      Broadcaster
	Ships    int
	Bounds   AABB
	SendRate int
	Seed     int64

	Clock     FrameClock
	ShipSys   ShipSystem
	BotAI     BotAISystem
	Broadcast BroadcastSystem
}

func (*ServerScene) Preload() {}
func (ss *ServerScene) Setup(u engo.Updater) {
	w, _ := u.(*ecs.World)
	ss.Populate(w)
}
func (*ServerScene) Type() string { return "Server" }

// Populate spawns the ships and adds the server systems to w.
func (ss *ServerScene) Populate(w *ecs.World) {
	rng := rand.New(rand.NewSource(ss.Seed))
	ss.BotAI = BotAISystem{Rand: rng, MinSpeed: 40}

	size := ss.Bounds.Max.Sub(ss.Bounds.Min)
	for i := 0; i < ss.Ships; i++ {
		spawn := mgl32.Vec2{
			ss.Bounds.Min[0] + size[0]*(0.25+0.5*rng.Float32()),
			ss.Bounds.Min[1] + size[1]*(0.25+0.5*rng.Float32()),
		}
		s := NewShip(spawn, rng.Float32()*360, ss.Bounds)
		ss.ShipSys.Add(s)
		ss.BotAI.Add(s)
		log.WithFields(log.Fields{"ship": s.ID(), "pos": spawn}).Debug("spawned ship")
	}

	interval := float32(0)
	if ss.SendRate > 0 {
		interval = 1 / float32(ss.SendRate)
	}
	ss.Broadcast = BroadcastSystem{Out: ss.Out, Clock: &ss.Clock, Ships: &ss.ShipSys, Interval: interval}

	w.AddSystem(&ss.Clock)
	w.AddSystem(&ss.BotAI)
	w.AddSystem(&ss.ShipSys)
	w.AddSystem(&ss.Broadcast)
}
