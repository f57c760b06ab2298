package entity

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Phase is the movement phase an entity is in.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseMoving
	PhaseAirborne
	PhaseStunned
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseMoving:
		return "moving"
	case PhaseAirborne:
		return "airborne"
	case PhaseStunned:
		return "stunned"
	}
	return "unknown"
}

// State holds everything about an entity that is simulated. It is a plain value, so copying it is enough to
// capture it in a snapshot.
type State struct {
	Position     mgl32.Vec3
	PrevPosition mgl32.Vec3
	Velocity     mgl32.Vec3
	// Rotation holds the pitch, yaw and head yaw of the entity, in that order.
	Rotation mgl32.Vec3

	Phase    Phase
	OnGround bool
	Health   float32

	// StunTicks is the amount of ticks the entity is still unable to move for.
	StunTicks int
	// JumpDelay is the amount of ticks before the entity may jump again.
	JumpDelay int
}

// Snapshot is the state of an entity captured at the end of a tick.
type Snapshot struct {
	Tick  uint64
	State State
}
