package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CircleRadius returns the radius of the orbit traced by a body moving at
// tangential velocity v while turning at turnRate degrees per second.
// Zero speed or zero turn rate yields 0.
func CircleRadius(v mgl32.Vec3, turnRate float32) float32 {
	rate := turnRate * math.Pi / 180
	if nearZero(rate) {
		return 0
	}
	return mgl32.Abs(v.Len() / rate)
}

// CircleAxis returns axis made perpendicular to v and normalized. It falls
// back to Up, and then to any axis perpendicular to v, when the projection
// collapses.
func CircleAxis(v, axis mgl32.Vec3) mgl32.Vec3 {
	speed := v.Len()
	if speed < Epsilon {
		if axis.Len() < Epsilon {
			return Up
		}
		return axis.Normalize()
	}
	dir := v.Mul(1 / speed)
	for _, candidate := range []mgl32.Vec3{axis, Up, {1, 0, 0}, {0, 1, 0}} {
		perp := candidate.Sub(dir.Mul(candidate.Dot(dir)))
		if perp.Len() > Epsilon {
			return perp.Normalize()
		}
	}
	return Up
}

// CircleCenter returns the center of the orbit for a body at p moving at v and
// turning at turnRate degrees per second about axis. A positive rate turns
// counter-clockwise when looking down axis. Degenerate input returns p.
func CircleCenter(p, v, axis mgl32.Vec3, turnRate float32) mgl32.Vec3 {
	radius := CircleRadius(v, turnRate)
	if nearZero(radius) {
		return p
	}
	dir := v.Normalize()
	inward := CircleAxis(v, axis).Cross(dir)
	if turnRate < 0 {
		inward = inward.Mul(-1)
	}
	return p.Add(inward.Mul(radius))
}

// CircularStep advances a body at p with velocity v around its orbit for dt
// seconds and returns the new position and velocity. Without a usable turn
// rate or speed it degrades to constant velocity motion.
func CircularStep(p, v, axis mgl32.Vec3, turnRate, dt float32) (mgl32.Vec3, mgl32.Vec3) {
	if nearZero(dt) {
		return p, v
	}
	if nearZero(turnRate) || v.Len() < Epsilon {
		return LinearPosition(p, v, dt), v
	}
	n := CircleAxis(v, axis)
	center := CircleCenter(p, v, n, turnRate)
	turn := mgl32.QuatRotate(mgl32.DegToRad(turnRate*dt), n)
	return center.Add(turn.Rotate(p.Sub(center))), turn.Rotate(v)
}
