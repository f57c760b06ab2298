package game

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Round32 will round a float32 to a given precision.
func Round32(val float32, precision int) float32 {
	pwr := math32.Pow(10, float32(precision))
	return math32.Round(val*pwr) / pwr
}

// RoundVec32 rounds every component of a vector to a given precision.
func RoundVec32(v mgl32.Vec3, p int) mgl32.Vec3 {
	return mgl32.Vec3{Round32(v.X(), p), Round32(v.Y(), p), Round32(v.Z(), p)}
}

// ClampFloat clamps the given value to the given range.
func ClampFloat(num, min, max float32) float32 {
	if num < min {
		return min
	}
	if num > max {
		return max
	}
	return num
}

// LerpVec3 linearly interpolates between two vectors by the given partial amount.
func LerpVec3(from, to mgl32.Vec3, partial float32) mgl32.Vec3 {
	if partial <= 0 {
		return from
	} else if partial >= 1 {
		return to
	}
	return from.Add(to.Sub(from).Mul(partial))
}

// DirectionVector returns a direction vector from the given yaw and pitch values.
func DirectionVector(yaw, pitch float32) mgl32.Vec3 {
	yawRad, pitchRad := mgl32.DegToRad(yaw), mgl32.DegToRad(pitch)
	m := math32.Cos(pitchRad)

	return mgl32.Vec3{
		-m * math32.Sin(yawRad),
		-math32.Sin(pitchRad),
		m * math32.Cos(yawRad),
	}
}

// HorizontalImpulse converts forward and strafe impulses into a horizontal direction for the given yaw. The
// result has a length of at most one.
func HorizontalImpulse(forward, left, yaw float32) mgl32.Vec3 {
	v := forward*forward + left*left
	if v < 1e-4 {
		return mgl32.Vec3{}
	}
	v = math32.Sqrt(v)
	if v < 1 {
		v = 1
	}
	mf, ms := forward/v, left/v

	force := yaw * (math32.Pi / 180)
	sin, cos := math32.Sin(force), math32.Cos(force)
	return mgl32.Vec3{ms*cos - mf*sin, 0, ms*sin + mf*cos}
}

// FrictionFactor returns the velocity retained after dt seconds for a friction value expressed per
// FrictionTickRate tick.
func FrictionFactor(friction, dt float32) float32 {
	return math32.Pow(friction, dt*FrictionTickRate)
}
