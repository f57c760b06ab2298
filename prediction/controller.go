package prediction

import (
	"log/slog"
	"math"

	"github.com/oomph-ac/resim/entity"
	"github.com/oomph-ac/resim/game"
	"github.com/oomph-ac/resim/history"
	"github.com/oomph-ac/resim/oerror"
	"github.com/oomph-ac/resim/simulation"
)

// Input is the movement input of a single tick.
type Input struct {
	// Forward and Left are the movement impulses, between -1 and 1.
	Forward, Left float32
	// Yaw is the yaw the entity is facing.
	Yaw  float32
	Jump bool
}

// InputSource supplies the input of the local player.
type InputSource interface {
	Sample(tick uint64) Input
}

// InputSourceFunc is a function implementing InputSource.
type InputSourceFunc func(tick uint64) Input

func (f InputSourceFunc) Sample(tick uint64) Input {
	return f(tick)
}

// Config is the configuration of a Controller.
type Config struct {
	// CorrectionThreshold is the distance between the predicted and authoritative position of the entity
	// above which the prediction is corrected.
	CorrectionThreshold float32
	// Log is the logger of the Controller. If nil, slog.Default() is used.
	Log *slog.Logger
}

// Controller moves a predicted entity from local input ahead of the authority. Inputs are stored by tick so
// that they can be replayed when an authoritative correction forces a resimulation.
type Controller struct {
	m      *simulation.Manager
	e      *entity.Entity
	source InputSource
	conf   Config
	log    *slog.Logger

	inputs      *history.TimeHistory[Input]
	onJump      []func(tick uint64)
	corrections int

	unsubscribe []func()
}

// New creates a Controller moving e. The simulation must not be authoritative and e must be predicted.
func New(m *simulation.Manager, e *entity.Entity, source InputSource, conf Config) (*Controller, error) {
	if m.Authority() {
		return nil, oerror.New("prediction: controller requires a non-authoritative simulation")
	}
	if !e.Predicted() {
		return nil, oerror.New("prediction: entity %d is not predicted", e.ID())
	}
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	c := &Controller{
		m:      m,
		e:      e,
		source: source,
		conf:   conf,
		log:    conf.Log.With("entity", e.ID()),
		inputs: history.New[Input](0, history.WithLogger(conf.Log)),
	}
	c.unsubscribe = []func(){
		m.OnTick(c.tick),
		m.OnHistoryEvicted(func(_ uint64, t float64) {
			c.inputs.ClearAllBefore(math.Nextafter(t, math.Inf(1)))
		}),
	}
	return c, nil
}

// OnJump registers a function called when the entity jumps on a live tick. Jumps that are replayed during a
// resimulation already happened and are not reported again.
func (c *Controller) OnJump(fn func(tick uint64)) {
	c.onJump = append(c.onJump, fn)
}

// Close stops the controller from moving its entity.
func (c *Controller) Close() {
	for _, fn := range c.unsubscribe {
		fn()
	}
	c.unsubscribe = nil
}

// Corrections returns the amount of times the prediction was corrected.
func (c *Controller) Corrections() int {
	return c.corrections
}

// Inputs returns the amount of inputs stored for replay.
func (c *Controller) Inputs() int {
	return c.inputs.Len()
}

func (c *Controller) tick(tick uint64, t float64, replay bool) {
	if c.e.Removed() {
		return
	}

	var in Input
	if replay {
		if !c.inputs.Has(t) {
			c.log.Debug("no input stored for replayed tick", "tick", tick)
		}
		in = c.inputs.GetExact(t)
	} else {
		in = c.source.Sample(tick)
		c.inputs.Set(t, in)
	}
	c.apply(tick, in, replay)
}

func (c *Controller) apply(tick uint64, in Input, replay bool) {
	if Apply(c.e, in, float32(c.m.Step())) && !replay {
		for _, fn := range c.onJump {
			fn(tick)
		}
	}
}

// Apply adds the effect of an input over dt seconds to the velocity of an entity, which its world integrates
// when it is stepped. The authority applies inputs it receives with the same function, so that predictions
// only diverge when the authority changes the entity otherwise. True is returned if the entity jumped.
func Apply(e *entity.Entity, in Input, dt float32) bool {
	e.Rotation[1], e.Rotation[2] = in.Yaw, in.Yaw
	if e.StunTicks > 0 {
		return false
	}

	accel := game.AirAcceleration
	if e.OnGround {
		accel = game.MovementAcceleration
	}
	forward, left := game.ClampFloat(in.Forward, -1, 1), game.ClampFloat(in.Left, -1, 1)
	impulse := game.HorizontalImpulse(forward, left, in.Yaw)
	e.Velocity = e.Velocity.Add(impulse.Mul(accel * dt))

	if in.Jump && e.OnGround && e.JumpDelay == 0 {
		e.Velocity[1] = game.JumpVelocity
		e.JumpDelay = game.JumpDelayTicks
		return true
	}
	return false
}

// Reconcile compares the authoritative state of the entity at tick with the state that was predicted. If the
// positions differ by more than the correction threshold, the predicted snapshot is replaced and a
// resimulation from tick is requested. True is returned if the prediction was corrected.
func (c *Controller) Reconcile(tick uint64, state entity.State) bool {
	t, ok := c.m.TickTime(tick)
	if !ok {
		c.log.Debug("authoritative state for tick outside of history", "tick", tick)
		return false
	}
	snap, ok := c.e.SnapshotAt(t)
	if !ok || snap.Tick != tick {
		c.log.Debug("no prediction recorded for tick", "tick", tick)
		return false
	}
	if diff := snap.State.Position.Sub(state.Position).Len(); diff <= c.conf.CorrectionThreshold {
		return false
	}

	c.e.OverwriteSnapshot(t, state)
	c.m.RequestResimulation(tick)
	c.corrections++
	c.log.Debug("prediction corrected", "tick", tick, "predicted", snap.State.Position, "authoritative", state.Position)
	return true
}
