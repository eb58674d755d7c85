package kinematics

import "github.com/go-gl/mathgl/mgl32"

// LinearPosition returns p0 moved at constant velocity v for t seconds.
func LinearPosition(p0, v mgl32.Vec3, t float32) mgl32.Vec3 {
	return v.Mul(t).Add(p0)
}

// LinearVelocity returns the constant velocity that carries p0 to p1 in t
// seconds.
func LinearVelocity(p0, p1 mgl32.Vec3, t float32) mgl32.Vec3 {
	if nearZero(t) {
		return mgl32.Vec3{}
	}
	return p1.Sub(p0).Mul(1 / t)
}

// LinearElapsed returns how long it takes to travel from p0 to p1 at velocity v.
// Only the axis with the largest velocity component is used so a near zero
// component never ends up as the divisor.
func LinearElapsed(p0, p1, v mgl32.Vec3) float32 {
	axis := dominantAxis(v)
	if nearZero(v[axis]) {
		return 0
	}
	return (p1[axis] - p0[axis]) / v[axis]
}

func dominantAxis(v mgl32.Vec3) int {
	axis := 0
	for i := 1; i < 3; i++ {
		if mgl32.Abs(v[i]) > mgl32.Abs(v[axis]) {
			axis = i
		}
	}
	return axis
}
