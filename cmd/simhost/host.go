package main

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/resim/combat"
	"github.com/oomph-ac/resim/entity"
	"github.com/oomph-ac/resim/latency"
	"github.com/oomph-ac/resim/prediction"
	"github.com/oomph-ac/resim/settings"
	"github.com/oomph-ac/resim/simulation"
	"github.com/oomph-ac/resim/world"
	"go.uber.org/atomic"
)

// playerConn is the connection of the player predicted by the client simulation.
const playerConn simulation.ConnectionID = 1

// bots are the remaining connections, with the round trip time each of them has.
var bots = []struct {
	conn simulation.ConnectionID
	rtt  time.Duration
}{
	{conn: 2, rtt: 30 * time.Millisecond},
	{conn: 3, rtt: 80 * time.Millisecond},
	{conn: 4, rtt: 150 * time.Millisecond},
}

// authoritativeState is the state of the player the server sends to the client at the end of a tick.
type authoritativeState struct {
	tick  uint64
	state entity.State
}

type host struct {
	conf settings.Settings
	log  *slog.Logger

	server      *simulation.Manager
	serverWorld *world.World
	tracker     *latency.Tracker
	validator   *combat.Validator

	client      *simulation.Manager
	clientWorld *world.World
	controller  *prediction.Controller

	// inFlight holds the authoritative states that have not reached the client yet.
	inFlight []authoritativeState
	ackID    uint64

	tick        atomic.Uint64
	digest      atomic.Uint64
	hits        atomic.Int64
	corrections atomic.Int64
}

func newHost(conf settings.Settings, log *slog.Logger, serverObserver, clientObserver simulation.Observer) (*host, error) {
	h := &host{conf: conf, log: log}
	h.tracker = latency.NewTracker(latency.Config{
		Smoothing: conf.Latency.Smoothing,
		Window:    conf.Latency.Window,
		Timeout:   10 * time.Second,
		Log:       log,
	})

	var err error
	h.serverWorld = world.New(world.Config{
		InterpolationDelay: conf.InterpolationDelay(),
		MaxRewind:          conf.MaxRewind(),
		Log:                log.With("peer", "server"),
	})
	h.server, err = simulation.New(simulation.Config{
		TickRate:  conf.Simulation.TickRate,
		Physics:   h.serverWorld,
		Authority: true,
		Latency:   h.tracker,
		Observer:  serverObserver,
		Log:       log.With("peer", "server"),
	})
	if err != nil {
		return nil, err
	}
	h.serverWorld.Attach(h.server)

	h.validator, err = combat.New(h.server, h.serverWorld, combat.Config{
		Reach:       conf.Combat.Reach,
		LerpSteps:   conf.Combat.LerpSteps,
		Damage:      conf.Combat.Damage,
		Knockback:   conf.Combat.Knockback,
		KnockbackUp: conf.Combat.KnockbackUp,
		Log:         log.With("peer", "server"),
	})
	if err != nil {
		return nil, err
	}
	h.validator.Hook(func(res combat.Result) {
		if res.Valid {
			h.hits.Inc()
			log.Info("attack landed", "conn", res.Conn, "attacker", res.Attack.Attacker, "target", res.Attack.Target, "tick", res.Tick, "distance", res.RaycastDistance)
		}
	})

	h.clientWorld = world.New(world.Config{Log: log.With("peer", "client")})
	h.client, err = simulation.New(simulation.Config{
		TickRate: conf.Simulation.TickRate,
		Physics:  h.clientWorld,
		Observer: clientObserver,
		Log:      log.With("peer", "client"),
	})
	if err != nil {
		return nil, err
	}
	h.clientWorld.Attach(h.client)

	if err := h.spawn(); err != nil {
		return nil, err
	}
	h.controller, err = prediction.New(h.client, h.predicted(), prediction.InputSourceFunc(playerInput), prediction.Config{
		CorrectionThreshold: conf.Prediction.CorrectionThreshold,
		Log:                 log.With("peer", "client"),
	})
	if err != nil {
		return nil, err
	}
	h.controller.OnJump(func(tick uint64) {
		log.Debug("player jumped", "tick", tick)
	})

	h.server.OnTick(h.serverTick)
	h.server.OnCaptureSnapshot(func(tick uint64, _ float64, replay bool) {
		if replay {
			return
		}
		if e, ok := h.serverWorld.Entity(entity.ID(playerConn)); ok {
			h.inFlight = append(h.inFlight, authoritativeState{tick: tick, state: e.State})
		}
	})
	return h, nil
}

// spawn adds the player to both worlds and the bots to the server world. The ID of every entity is the
// connection controlling it.
func (h *host) spawn() error {
	if err := h.serverWorld.Add(entity.New(entity.ID(playerConn), mgl32.Vec3{}, playerConn, false, h.log)); err != nil {
		return err
	}
	if err := h.clientWorld.Add(entity.New(entity.ID(playerConn), mgl32.Vec3{}, playerConn, true, h.log)); err != nil {
		return err
	}
	for _, bot := range bots {
		conn := bot.conn
		angle := float64(conn) * math.Pi / 2
		pos := mgl32.Vec3{float32(math.Cos(angle)) * 3, 0, float32(math.Sin(angle)) * 3}
		if err := h.serverWorld.Add(entity.New(entity.ID(conn), pos, conn, false, h.log)); err != nil {
			return err
		}
	}
	return nil
}

func (h *host) predicted() *entity.Entity {
	e, _ := h.clientWorld.Entity(entity.ID(playerConn))
	return e
}

// playerInput is the input of the predicted player. The server receives the same input for every tick.
func playerInput(tick uint64) prediction.Input {
	return prediction.Input{
		Forward: 1,
		Yaw:     float32(tick%360) * 2,
		Jump:    tick%40 == 0,
	}
}

// botInput makes a bot circle around and turn towards the player.
func botInput(tick uint64, conn simulation.ConnectionID) prediction.Input {
	return prediction.Input{
		Forward: 0.6,
		Left:    float32(math.Sin(float64(tick) / 15 * float64(conn))),
		Yaw:     float32((tick * uint64(conn)) % 360),
	}
}

func (h *host) serverTick(tick uint64, _ float64, replay bool) {
	if replay {
		return
	}
	dt := float32(h.server.Step())
	if e, ok := h.serverWorld.Entity(entity.ID(playerConn)); ok {
		prediction.Apply(e, playerInput(tick), dt)
	}
	for _, bot := range bots {
		conn := bot.conn
		e, ok := h.serverWorld.Entity(entity.ID(conn))
		if !ok {
			continue
		}
		prediction.Apply(e, botInput(tick, conn), dt)

		// Every bot swings at the player twice a second, aiming at where it last saw it.
		if tick%uint64(h.conf.Simulation.TickRate/2+int(conn)) == 0 {
			if target, ok := h.serverWorld.Entity(entity.ID(playerConn)); ok {
				e.Rotation = aimAt(e.Position, target.Position)
				h.validator.Attack(conn, combat.Attack{
					Attacker: e.ID(),
					Target:   target.ID(),
					Rotation: e.Rotation,
				})
			}
		}
	}
}

// aimAt returns the rotation looking from the eye at pos to the centre of an entity at target.
func aimAt(pos, target mgl32.Vec3) mgl32.Vec3 {
	d := target.Sub(pos)
	d[1] += 0.9 - 1.62
	yaw := float32(math.Atan2(float64(-d.X()), float64(d.Z()))) * 180 / math.Pi
	pitch := float32(-math.Atan2(float64(d.Y()), math.Hypot(float64(d.X()), float64(d.Z())))) * 180 / math.Pi
	return mgl32.Vec3{pitch, yaw, yaw}
}

// measureLatency simulates acknowledgements travelling to every connection and back.
func (h *host) measureLatency(now time.Time) {
	h.ackID++
	h.tracker.Record(playerConn, 60*time.Millisecond)
	for _, bot := range bots {
		h.tracker.Sent(bot.conn, h.ackID, now)
		h.tracker.Acknowledged(bot.conn, h.ackID, now.Add(bot.rtt))
	}
}

// deliver hands the client every authoritative state that has been in flight for long enough.
func (h *host) deliver() {
	delay := uint64(h.conf.Prediction.ServerStateDelayTicks)
	current := h.client.Tick()

	n := 0
	for _, s := range h.inFlight {
		if s.tick+delay > current {
			break
		}
		if h.controller.Reconcile(s.tick, s.state) {
			h.corrections.Inc()
		}
		n++
	}
	h.inFlight = h.inFlight[n:]
}

func (h *host) run(ctx context.Context) {
	h.server.Activate()
	h.client.Activate()

	ticker := time.NewTicker(time.Duration(h.server.Step() * float64(time.Second)))
	defer ticker.Stop()

	h.log.Info("simulation running", "tick_rate", h.conf.Simulation.TickRate)
	for {
		select {
		case <-ctx.Done():
			h.log.Info("simulation stopped", "tick", h.server.Tick(), "hits", h.hits.Load(), "corrections", h.corrections.Load())
			return
		case now := <-ticker.C:
			if h.server.Tick()%uint64(h.conf.Simulation.TickRate) == 0 {
				h.measureLatency(now)
			}
			h.server.AdvanceTick()
			h.deliver()
			h.client.AdvanceTick()

			h.tick.Store(h.server.Tick())
			h.digest.Store(h.serverWorld.Digest())
		}
	}
}

type status struct {
	Tick        uint64 `json:"tick"`
	Digest      uint64 `json:"digest"`
	Hits        int64  `json:"hits"`
	Corrections int64  `json:"corrections"`
	// Latency holds the median and jitter of the round trip time of every connection in milliseconds.
	Latency map[simulation.ConnectionID]connectionLatency `json:"latency"`
}

type connectionLatency struct {
	Median int64 `json:"median_ms"`
	Jitter int64 `json:"jitter_ms"`
}

// status may be called from any goroutine.
func (h *host) status() status {
	return status{
		Tick:        h.tick.Load(),
		Digest:      h.digest.Load(),
		Hits:        h.hits.Load(),
		Corrections: h.corrections.Load(),
		Latency:     h.connectionLatencies(),
	}
}

func (h *host) connectionLatencies() map[simulation.ConnectionID]connectionLatency {
	conns := h.tracker.Connections()
	out := make(map[simulation.ConnectionID]connectionLatency, len(conns))
	for _, conn := range conns {
		out[conn] = connectionLatency{
			Median: h.tracker.Median(conn).Milliseconds(),
			Jitter: h.tracker.Jitter(conn).Milliseconds(),
		}
	}
	return out
}
