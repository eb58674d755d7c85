package kinematics

import "github.com/go-gl/mathgl/mgl32"

// AcceleratedPosition returns 0.5*a*t² + v0*t + p0.
func AcceleratedPosition(p0, v0, a mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(0.5 * t * t).Add(v0.Mul(t)).Add(p0)
}

// AcceleratedVelocity returns a*t + v0.
func AcceleratedVelocity(v0, a mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(t).Add(v0)
}

// Acceleration solves the constant acceleration that carries p0 to p1 in t
// seconds when starting at velocity v0.
//
// The result carries floating point error. Feeding a predicted position back
// in as p1 compounds that error, so always solve from a fresh authoritative
// sample.
func Acceleration(p0, p1, v0 mgl32.Vec3, t float32) mgl32.Vec3 {
	if nearZero(t) {
		return mgl32.Vec3{}
	}
	return p1.Sub(p0).Sub(v0.Mul(t)).Mul(2 / (t * t))
}

// InitialVelocity solves v0 for a body that reaches p1 from p0 in t seconds
// under constant acceleration a.
func InitialVelocity(p0, p1, a mgl32.Vec3, t float32) mgl32.Vec3 {
	if nearZero(t) {
		return mgl32.Vec3{}
	}
	return p1.Sub(p0).Sub(a.Mul(0.5 * t * t)).Mul(1 / t)
}

// AccelerationFromVelocities returns the constant acceleration that turns v0
// into v1 over t seconds.
func AccelerationFromVelocities(v0, v1 mgl32.Vec3, t float32) mgl32.Vec3 {
	if nearZero(t) {
		return mgl32.Vec3{}
	}
	return v1.Sub(v0).Mul(1 / t)
}
