// Package kinematics holds closed-form motion functions used to extrapolate
// replicated entities between network snapshots.
//
// Every function is pure. A zero elapsed time never divides: derivative
// quantities come back as the zero vector and positions come back unchanged.
package kinematics

import "github.com/go-gl/mathgl/mgl32"

// Epsilon is the magnitude under which a velocity, rate or duration is
// treated as zero.
const Epsilon float32 = 1e-6

// Up is the rotation axis used for planar circular motion when no angular
// velocity axis is available.
var Up = mgl32.Vec3{0, 0, 1}

func nearZero(f float32) bool {
	return mgl32.Abs(f) < Epsilon
}
