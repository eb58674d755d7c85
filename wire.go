package deadreckon

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ScottBrooks/deadreckon/transport"
)

// EncodeState converts an entity's kinematics to its wire form.
func EncodeState(id uint64, sendTime float64, k Kinematics) transport.EntityState {
	return transport.EntityState{
		ID:              id,
		SendTime:        sendTime,
		Position:        k.Position,
		Rotation:        [4]float32{k.Rotation.W, k.Rotation.V[0], k.Rotation.V[1], k.Rotation.V[2]},
		Velocity:        k.Velocity,
		Acceleration:    k.Acceleration,
		AngularVelocity: k.AngularVelocity,
		CircularRate:    k.CircularAngularVelocity,
		RelativeTo:      int(k.RelativeTo),
	}
}

// DecodeState converts a wire entity back to kinematics. A zero rotation on
// the wire decodes to identity.
func DecodeState(s transport.EntityState) Kinematics {
	rot := mgl32.Quat{W: s.Rotation[0], V: mgl32.Vec3{s.Rotation[1], s.Rotation[2], s.Rotation[3]}}
	if rot.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	return Kinematics{
		Position:                s.Position,
		Rotation:                rot.Normalize(),
		Velocity:                s.Velocity,
		Acceleration:            s.Acceleration,
		AngularVelocity:         s.AngularVelocity,
		CircularAngularVelocity: s.CircularRate,
		RelativeTo:              FrameReference(s.RelativeTo),
	}
}
