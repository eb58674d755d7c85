package deadreckon

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ScottBrooks/deadreckon/kinematics"
)

// FrameReference names the space a snapshot's values are expressed in.
type FrameReference int

const (
	WorldSpace FrameReference = iota
	ParentSpace
)

// Kinematics is the motion state carried by a snapshot. AngularVelocity is in
// radians per second; CircularAngularVelocity is a turn rate in degrees per
// second around the velocity's orbit.
type Kinematics struct {
	Position                mgl32.Vec3
	Rotation                mgl32.Quat
	Velocity                mgl32.Vec3
	Acceleration            mgl32.Vec3
	AngularVelocity         mgl32.Vec3
	CircularAngularVelocity float32
	RelativeTo              FrameReference
}

// Snapshot is an accepted authoritative update.
type Snapshot struct {
	SendTime float64
	Kinematics
}

// State is a predicted transform.
type State struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Velocity mgl32.Vec3
}

// Predictor extrapolates a snapshot elapsed seconds forward. dt is the local
// frame delta, zero when predicting straight after receipt.
type Predictor interface {
	Predict(s Snapshot, elapsed float64, dt float32) State
}

// TransformPredictor moves at the snapshot's constant velocity.
type TransformPredictor struct{}

func (TransformPredictor) Predict(s Snapshot, elapsed float64, dt float32) State {
	e := float32(elapsed)
	return State{
		Position: kinematics.LinearPosition(s.Position, s.Velocity, e),
		Rotation: kinematics.Rotate(s.Rotation, s.AngularVelocity, e),
		Velocity: s.Velocity,
	}
}

// RigidbodyPredictor applies the snapshot's constant acceleration.
type RigidbodyPredictor struct{}

func (RigidbodyPredictor) Predict(s Snapshot, elapsed float64, dt float32) State {
	e := float32(elapsed)
	return State{
		Position: kinematics.AcceleratedPosition(s.Position, s.Velocity, s.Acceleration, e),
		Rotation: kinematics.Rotate(s.Rotation, s.AngularVelocity, e),
		Velocity: kinematics.AcceleratedVelocity(s.Velocity, s.Acceleration, e),
	}
}

// CircularPredictor follows an orbit while the snapshot's turn rate exceeds
// Threshold degrees per second and defers to Fallback otherwise. Linear
// extrapolation cuts the corner of a curved path; the orbit does not.
type CircularPredictor struct {
	Threshold float32
	// Axis the orbit turns about when the snapshot carries no angular
	// velocity. Defaults to kinematics.Up.
	Axis     mgl32.Vec3
	Fallback Predictor
}

func (cp CircularPredictor) Predict(s Snapshot, elapsed float64, dt float32) State {
	if mgl32.Abs(s.CircularAngularVelocity) <= cp.Threshold {
		if cp.Fallback == nil {
			return RigidbodyPredictor{}.Predict(s, elapsed, dt)
		}
		return cp.Fallback.Predict(s, elapsed, dt)
	}

	// the angular velocity carries the turn direction when present, so the
	// rate is taken unsigned about its axis
	axis, rate := cp.Axis, s.CircularAngularVelocity
	if s.AngularVelocity.Len() > kinematics.Epsilon {
		axis, _ = kinematics.AxisRate(s.AngularVelocity)
		rate = mgl32.Abs(rate)
	} else if axis.Len() < kinematics.Epsilon {
		axis = kinematics.Up
	}

	e := float32(elapsed)
	pos, vel := kinematics.CircularStep(s.Position, s.Velocity, axis, rate, e)
	return State{
		Position: pos,
		Rotation: kinematics.Rotate(s.Rotation, s.AngularVelocity, e),
		Velocity: vel,
	}
}

// MotionProfile selects a Predictor by name.
type MotionProfile string

const (
	MotionTransform MotionProfile = "transform"
	MotionRigidbody MotionProfile = "rigidbody"
	MotionCircular  MotionProfile = "circular"
)

// NewPredictor returns the predictor for profile. circleThreshold only
// applies to MotionCircular. Unknown profiles fall back to MotionTransform.
func NewPredictor(profile MotionProfile, circleThreshold float32) Predictor {
	switch profile {
	case MotionRigidbody:
		return RigidbodyPredictor{}
	case MotionCircular:
		return CircularPredictor{Threshold: circleThreshold, Axis: kinematics.Up, Fallback: RigidbodyPredictor{}}
	}
	return TransformPredictor{}
}
