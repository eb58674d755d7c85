package deadreckon

import (
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ScottBrooks/deadreckon/kinematics"
)

// AABB bounds the simulated world in the XY plane.
type AABB struct {
	Min, Max mgl32.Vec2
}

// ShipInput is the steering applied to a ship this frame.
type ShipInput struct {
	Left    bool
	Right   bool
	Forward bool
	Back    bool
}

// ShipComponent is the authoritative motion state of a ship.
type ShipComponent struct {
	Pos   mgl32.Vec3
	Vel   mgl32.Vec3
	Accel mgl32.Vec3
	// Angle is the heading in degrees about +Z.
	Angle    float32
	Speed    float32
	TurnRate float32
}

// Ship is a server owned entity moving in the XY plane. It always travels
// along its heading, so turning while moving traces a circle.
type Ship struct {
	ecs.BasicEntity

	Input ShipInput
	Ship  ShipComponent

	Thrust    float32
	MaxSpeed  float32
	TurnSpeed float32
	Bounds    AABB
}

func NewShip(pos mgl32.Vec2, angle float32, bounds AABB) *Ship {
	return &Ship{
		BasicEntity: ecs.NewBasic(),
		Ship: ShipComponent{
			Pos:   pos.Vec3(0),
			Angle: angle,
		},
		Thrust:    120,
		MaxSpeed:  300,
		TurnSpeed: 90,
		Bounds:    bounds,
	}
}

func (s *Ship) heading() mgl32.Vec3 {
	rad := float64(mgl32.DegToRad(s.Ship.Angle))
	return mgl32.Vec3{float32(math.Cos(rad)), float32(math.Sin(rad)), 0}
}

// UpdatePos integrates one frame of steering.
func (s *Ship) UpdatePos(dt float32) {
	s.Ship.TurnRate = 0
	// headings grow counter-clockwise about +Z, so left is positive
	if s.Input.Left {
		s.Ship.TurnRate += s.TurnSpeed
	}
	if s.Input.Right {
		s.Ship.TurnRate -= s.TurnSpeed
	}
	s.Ship.Angle = wrapDegrees(s.Ship.Angle + s.Ship.TurnRate*dt)

	var thrust float32
	if s.Input.Forward {
		thrust += s.Thrust
	}
	if s.Input.Back {
		thrust -= s.Thrust
	}
	speed := mgl32.Clamp(s.Ship.Speed+thrust*dt, 0, s.MaxSpeed)
	if dt > 0 {
		thrust = (speed - s.Ship.Speed) / dt
	}
	s.Ship.Speed = speed

	heading := s.heading()
	s.Ship.Vel = heading.Mul(s.Ship.Speed)
	s.Ship.Accel = heading.Mul(thrust)
	s.Ship.Pos = s.Ship.Pos.Add(s.Ship.Vel.Mul(dt))

	var bounced bool
	s.Ship.Pos, s.Ship.Vel, bounced = clampToAABB(s.Ship.Pos, s.Ship.Vel, s.Bounds)
	if bounced {
		s.Ship.Angle = mgl32.RadToDeg(float32(math.Atan2(float64(s.Ship.Vel[1]), float64(s.Ship.Vel[0]))))
		s.Ship.Accel = s.heading().Mul(thrust)
	}
}

// Kinematics exports the ship's state for replication.
func (s *Ship) Kinematics() Kinematics {
	k := Kinematics{
		Position:        s.Ship.Pos,
		Rotation:        kinematics.AngleAxis(s.Ship.Angle, kinematics.Up),
		Velocity:        s.Ship.Vel,
		Acceleration:    s.Ship.Accel,
		AngularVelocity: kinematics.Up.Mul(mgl32.DegToRad(s.Ship.TurnRate)),
		RelativeTo:      WorldSpace,
	}
	if s.Ship.Speed > 0 {
		k.CircularAngularVelocity = s.Ship.TurnRate
	}
	return k
}

func clampToAABB(pos mgl32.Vec3, vel mgl32.Vec3, aabb AABB) (mgl32.Vec3, mgl32.Vec3, bool) {
	bounced := false
	for i := 0; i < 2; i++ {
		if pos[i] < aabb.Min[i] {
			pos[i] = aabb.Min[i]
			vel[i] = mgl32.Abs(vel[i])
			bounced = true
		}
		if pos[i] > aabb.Max[i] {
			pos[i] = aabb.Max[i]
			vel[i] = -mgl32.Abs(vel[i])
			bounced = true
		}
	}
	return pos, vel, bounced
}

func wrapDegrees(a float32) float32 {
	a = float32(math.Mod(float64(a), 360))
	if a < 0 {
		a += 360
	}
	return a
}

// ShipSystem moves every ship once per frame.
type ShipSystem struct {
	Ships []*Ship
}

func (ss *ShipSystem) Add(s *Ship) {
	ss.Ships = append(ss.Ships, s)
}

func (ss *ShipSystem) Remove(ent ecs.BasicEntity) {
	for i, s := range ss.Ships {
		if s.ID() == ent.ID() {
			ss.Ships = append(ss.Ships[:i], ss.Ships[i+1:]...)
			return
		}
	}
}

// Priority moves ships after bots steer and before snapshots are sent.
func (ss *ShipSystem) Priority() int { return 10 }

func (ss *ShipSystem) Update(dt float32) {
	for _, s := range ss.Ships {
		s.UpdatePos(dt)
	}
}
