package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AxisRate splits an angular velocity in radians per second into a unit axis
// and a rate in degrees per second. The axis is extracted first; converting to
// degrees before normalizing skews the axis for small angles.
func AxisRate(angularVelocity mgl32.Vec3) (mgl32.Vec3, float32) {
	rad := angularVelocity.Len()
	if rad < Epsilon {
		return mgl32.Vec3{}, 0
	}
	axis := angularVelocity.Mul(1 / rad)
	return axis, mgl32.RadToDeg(rad)
}

// Rotate integrates angularVelocity (radians per second) over elapsed seconds
// and applies it to rot in world space.
func Rotate(rot mgl32.Quat, angularVelocity mgl32.Vec3, elapsed float32) mgl32.Quat {
	axis, rate := AxisRate(angularVelocity)
	if nearZero(rate) || nearZero(elapsed) {
		return rot
	}
	return AngleAxis(rate*elapsed, axis).Mul(rot).Normalize()
}

// AngleAxis builds a rotation of degrees about axis.
func AngleAxis(degrees float32, axis mgl32.Vec3) mgl32.Quat {
	if axis.Len() < Epsilon {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatRotate(mgl32.DegToRad(degrees), axis.Normalize())
}

// AngularVelocity returns the angular velocity in radians per second that
// turns q0 into q1 over dt seconds along the shortest arc.
func AngularVelocity(q0, q1 mgl32.Quat, dt float32) mgl32.Vec3 {
	if nearZero(dt) {
		return mgl32.Vec3{}
	}
	delta := q1.Mul(q0.Inverse()).Normalize()
	if delta.W < 0 {
		delta = delta.Scale(-1)
	}
	w := float64(mgl32.Clamp(delta.W, -1, 1))
	s := float32(math.Sqrt(1 - w*w))
	if s < Epsilon {
		return mgl32.Vec3{}
	}
	angle := float32(2 * math.Acos(w))
	return delta.V.Mul(1 / s).Mul(angle / dt)
}
