package world

import (
	"github.com/chewxy/math32"
	"github.com/oomph-ac/resim/entity"
	"github.com/oomph-ac/resim/game"
	"github.com/oomph-ac/resim/simulation"
)

// Simulate steps every entity by dt seconds. Pending teleports are applied first. While the world is paused,
// only predicted entities are stepped.
func (w *World) Simulate(dt float64) {
	w.steps++
	delta := float32(dt)
	for e := range w.Entities() {
		if w.Dormant(e.ID()) {
			continue
		}
		e.SyncTransform()
		if w.paused && !e.Predicted() {
			continue
		}
		step(e, delta)
	}
}

// SyncTransforms applies every pending teleport immediately.
func (w *World) SyncTransforms() {
	for e := range w.Entities() {
		if w.Dormant(e.ID()) {
			continue
		}
		e.SyncTransform()
	}
}

// SetSimulationMode records the mode the simulation drives the world in. The world is always stepped
// explicitly through Simulate, so the mode is informational.
func (w *World) SetSimulationMode(mode simulation.SimulationMode) {
	w.mode = mode
	w.log.Debug("simulation mode changed", "mode", mode)
}

// step integrates the movement of a single entity. Velocity is in blocks per second.
func step(e *entity.Entity, dt float32) {
	e.PrevPosition = e.Position
	if e.StunTicks > 0 {
		e.StunTicks--
	}
	if e.JumpDelay > 0 {
		e.JumpDelay--
	}

	vel := e.Velocity
	vel[1] = math32.Max(vel[1]-game.Gravity*dt, -game.TerminalVelocity)

	friction := game.DefaultAirFriction
	if e.OnGround {
		friction *= game.DefaultBlockFriction
	}
	factor := game.FrictionFactor(friction, dt)
	vel[0] *= factor
	vel[2] *= factor

	pos := e.Position.Add(vel.Mul(dt))
	if pos[1] <= 0 {
		pos[1] = 0
		if vel[1] < 0 {
			vel[1] = 0
		}
		e.OnGround = true
	} else {
		e.OnGround = false
	}
	e.Position, e.Velocity = pos, vel
	e.Phase = phaseOf(e)
}

func phaseOf(e *entity.Entity) entity.Phase {
	switch {
	case e.StunTicks > 0:
		return entity.PhaseStunned
	case !e.OnGround:
		return entity.PhaseAirborne
	case e.Velocity[0]*e.Velocity[0]+e.Velocity[2]*e.Velocity[2] > 1e-4:
		return entity.PhaseMoving
	}
	return entity.PhaseIdle
}
