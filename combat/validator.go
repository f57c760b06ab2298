package combat

import (
	"log/slog"

	"github.com/ethaniccc/float32-cube/cube"
	"github.com/ethaniccc/float32-cube/cube/trace"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/resim/entity"
	"github.com/oomph-ac/resim/game"
	"github.com/oomph-ac/resim/oerror"
	"github.com/oomph-ac/resim/simulation"
	"github.com/oomph-ac/resim/world"
)

const (
	// raycastDistance is how far the attack ray is cast from the eye of the attacker.
	raycastDistance float32 = 7.0
	// resultPrecision is the amount of decimals distances and positions in a Result are rounded to.
	resultPrecision = 4
	// hitboxGrowth is added to every side of the bounding box of the target.
	hitboxGrowth float32 = 0.1
)

// Attack is an attack an attacker claims to have made on the tick it was received.
type Attack struct {
	Attacker entity.ID
	Target   entity.ID
	// Rotation is the pitch, yaw and head yaw of the attacker when it attacked.
	Rotation mgl32.Vec3
	// Aimless attacks carry no aim, so they are validated on distance alone.
	Aimless bool
}

// Result is the outcome of a validated attack.
type Result struct {
	Conn   simulation.ConnectionID
	Attack Attack
	Tick   uint64

	Valid bool
	// RaycastDistance is the closest distance at which the attack ray hit the target. It is negative if the ray
	// never hit it.
	RaycastDistance float32
	// RawDistance is the closest distance between the eye of the attacker and the bounding box of the target.
	RawDistance float32
	// Raycasts and Raws hold the distances of every interpolation step.
	Raycasts []float32
	Raws     []float32
	// TargetPosition is where the target was when the attack was checked.
	TargetPosition mgl32.Vec3
}

// Hook is called with the result of every attack, after it was applied.
type Hook func(Result)

// Config is the configuration of a Validator.
type Config struct {
	// Reach is the maximum distance an attack may land at.
	Reach float32
	// LerpSteps is the amount of steps between the previous and current position of the attacker and the
	// target at which the attack is checked.
	LerpSteps int
	// Damage is subtracted from the health of the target of a valid attack.
	Damage float32
	// Knockback is the horizontal speed, in blocks per second, a valid attack gives the target. KnockbackUp is
	// the vertical speed.
	Knockback   float32
	KnockbackUp float32
	// Log is the logger of the Validator. If nil, slog.Default() is used.
	Log *slog.Logger
}

// DefaultConfig returns the default combat configuration.
func DefaultConfig() Config {
	return Config{
		Reach:       game.SurvivalReach,
		LerpSteps:   game.CombatLerpSteps,
		Damage:      1,
		Knockback:   8,
		KnockbackUp: 7.2,
	}
}

// Validator validates attacks on an authoritative simulation. Attacks are checked against the world as the
// attacking connection saw it, using lag compensation, and applied to the live world once every check of
// the tick has run.
type Validator struct {
	m    *simulation.Manager
	w    *world.World
	conf Config
	log  *slog.Logger

	// pending holds the attackers that already attacked this tick.
	pending map[entity.ID]struct{}
	hooks   []Hook
}

// New creates a Validator for the world passed. The simulation must be authoritative.
func New(m *simulation.Manager, w *world.World, conf Config) (*Validator, error) {
	if !m.Authority() {
		return nil, oerror.New("combat: validator requires an authoritative simulation")
	}
	if conf.LerpSteps <= 0 {
		return nil, oerror.New("combat: lerp steps must be positive, got %d", conf.LerpSteps)
	}
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	return &Validator{
		m:       m,
		w:       w,
		conf:    conf,
		log:     conf.Log,
		pending: make(map[entity.ID]struct{}),
	}, nil
}

// Hook adds a hook to the validator so it may utilize the results of attacks.
func (v *Validator) Hook(h Hook) {
	v.hooks = append(v.hooks, h)
}

// Attack notifies the validator of an attack made by conn. False is returned if the attacker already attacked
// this tick, in which case the attack is ignored.
func (v *Validator) Attack(conn simulation.ConnectionID, a Attack) bool {
	if _, ok := v.pending[a.Attacker]; ok {
		return false
	}
	v.pending[a.Attacker] = struct{}{}

	res := Result{Conn: conn, Attack: a, RaycastDistance: -1}
	v.m.ScheduleLagCompensation(conn, func() {
		res.Tick = v.m.Tick()
		v.check(&res)
	}, func() {
		delete(v.pending, a.Attacker)
		v.apply(res)
	})
	return true
}

// check runs with the world rewound to what the attacker saw.
func (v *Validator) check(res *Result) {
	attacker, ok := v.w.Entity(res.Attack.Attacker)
	if !ok {
		v.log.Debug("attack from unknown entity", "conn", res.Conn, "attacker", res.Attack.Attacker)
		return
	}
	target, ok := v.w.Entity(res.Attack.Target)
	if !ok {
		v.log.Debug("attack on unknown entity", "conn", res.Conn, "target", res.Attack.Target)
		return
	}

	eye := mgl32.Vec3{0, game.DefaultPlayerHeightOffset, 0}
	s := swing{
		startAttackPos: attacker.PrevPosition.Add(eye),
		endAttackPos:   attacker.Position.Add(eye),
		startEntityPos: target.PrevPosition,
		endEntityPos:   target.Position,
		startRotation:  attacker.Rotation,
		endRotation:    res.Attack.Rotation,
		entityBB:       target.BoxAt(mgl32.Vec3{}),
	}

	var (
		closestRaycastDist float32 = 1_000_000
		closestRawDist     float32 = 1_000_000
		hitValid           bool
	)
	for i := 0; i <= v.conf.LerpSteps; i++ {
		lerped := s.lerp(float32(i) / float32(v.conf.LerpSteps))
		entityBB := s.entityBB.Translate(lerped.entityPos).Grow(hitboxGrowth)

		if !res.Attack.Aimless {
			if entityBB.Vec3Within(lerped.attackPos) {
				closestRaycastDist = 0
				hitValid = true
				res.Raycasts = append(res.Raycasts, 0)
				continue
			}

			dV := game.DirectionVector(lerped.rotation.Z(), lerped.rotation.X())
			if hitResult, ok := trace.BBoxIntercept(entityBB, lerped.attackPos, lerped.attackPos.Add(dV.Mul(raycastDistance))); ok {
				raycastDist := lerped.attackPos.Sub(hitResult.Position()).Len()
				hitValid = hitValid || raycastDist <= v.conf.Reach
				res.Raycasts = append(res.Raycasts, raycastDist)
				closestRaycastDist = min(closestRaycastDist, raycastDist)
			}
		}

		rawDist := game.AABBVectorDistance(entityBB, lerped.attackPos)
		res.Raws = append(res.Raws, rawDist)
		closestRawDist = min(closestRawDist, rawDist)
		if res.Attack.Aimless {
			hitValid = hitValid || rawDist <= v.conf.Reach
		}
	}

	res.Valid = hitValid
	res.RawDistance = game.Round32(closestRawDist, resultPrecision)
	if len(res.Raycasts) > 0 {
		res.RaycastDistance = game.Round32(closestRaycastDist, resultPrecision)
	}
	res.TargetPosition = game.RoundVec32(target.Position, resultPrecision)
	v.log.Debug("attack checked", "conn", res.Conn, "tick", res.Tick, "valid", hitValid, "raycast", res.RaycastDistance, "raw", closestRawDist)
}

// apply runs with the world restored to the current tick.
func (v *Validator) apply(res Result) {
	if res.Valid {
		target, ok := v.w.Entity(res.Attack.Target)
		if !ok {
			res.Valid = false
		} else {
			attacker, _ := v.w.Entity(res.Attack.Attacker)
			v.knockback(attacker, target)
			target.Health = max(target.Health-v.conf.Damage, 0)
			target.StunTicks = game.StunTicks
		}
	}
	for _, hook := range v.hooks {
		hook(res)
	}
}

func (v *Validator) knockback(attacker, target *entity.Entity) {
	var dir mgl32.Vec3
	if attacker != nil {
		dir = target.Position.Sub(attacker.Position)
		dir[1] = 0
	}
	if dir.Len() < 1e-4 {
		// Push the target along its facing if there is no horizontal offset to the attacker.
		dir = game.DirectionVector(target.Rotation.Y(), 0)
	}
	dir = dir.Normalize().Mul(v.conf.Knockback)
	target.Velocity = mgl32.Vec3{dir.X(), v.conf.KnockbackUp, dir.Z()}
	target.OnGround = false
}

// swing holds the start and end of an attack over a tick, between which it is interpolated.
type swing struct {
	entityBB                                      cube.BBox
	startAttackPos, startEntityPos, startRotation mgl32.Vec3
	endAttackPos, endEntityPos, endRotation       mgl32.Vec3
}

type lerpedResult struct {
	attackPos mgl32.Vec3
	entityPos mgl32.Vec3
	rotation  mgl32.Vec3
}

func (s swing) lerp(partialTicks float32) lerpedResult {
	return lerpedResult{
		attackPos: game.LerpVec3(s.startAttackPos, s.endAttackPos, partialTicks),
		entityPos: game.LerpVec3(s.startEntityPos, s.endEntityPos, partialTicks),
		rotation:  game.LerpVec3(s.startRotation, s.endRotation, partialTicks),
	}
}
