package simulation

import (
	"log/slog"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/oomph-ac/resim/oerror"
	"github.com/oomph-ac/resim/utils"
)

// ConnectionID identifies a network connection (a client) on an authoritative peer.
type ConnectionID int32

// SimulationMode is the stepping mode of the physical world.
type SimulationMode uint8

const (
	// SimulationModeAuto lets the physics engine step itself.
	SimulationModeAuto SimulationMode = iota
	// SimulationModeScript makes the physics engine only step when Simulate is called.
	SimulationModeScript
)

// Physics is the physical world the Manager steps once per tick.
type Physics interface {
	// Simulate advances the physical world by exactly dt seconds. It must complete before returning.
	Simulate(dt float64)
	// SyncTransforms commits any deferred transform writes so the physical world reflects them immediately.
	SyncTransforms()
	// SetSimulationMode switches between automatic and scripted stepping.
	SetSimulationMode(mode SimulationMode)
}

// Clock returns the unscaled time in seconds. It must not be affected by any time scaling applied to the
// simulation.
type Clock interface {
	Now() float64
}

// ClockFunc is a function implementing Clock.
type ClockFunc func() float64

func (f ClockFunc) Now() float64 {
	return f()
}

// LatencyProvider estimates the round trip time of a connection.
type LatencyProvider interface {
	RoundTripTime(conn ConnectionID) time.Duration
}

// Config is the configuration of a Manager.
type Config struct {
	// TickRate is the amount of ticks simulated per second. The tick history keeps exactly this many ticks.
	TickRate int
	// Physics is the physical world stepped once per tick.
	Physics Physics
	// Clock supplies the unscaled time of each tick. If nil, the monotonic wall clock is used.
	Clock Clock
	// Authority is true on the server. Lag compensation is only available on an authoritative Manager.
	Authority bool
	// Latency provides round trip times for lag compensation. It is required if Authority is true.
	Latency LatencyProvider
	// Observer receives metrics about the Manager. If nil, nothing is observed.
	Observer Observer
	// Log is the logger of the Manager. If nil, slog.Default() is used.
	Log *slog.Logger
}

// New creates a new Manager from the configuration passed. The Manager must be activated before ticks can
// be advanced.
func New(conf Config) (*Manager, error) {
	if conf.TickRate <= 0 {
		return nil, oerror.New("simulation: tick rate must be positive, got %d", conf.TickRate)
	}
	if conf.Physics == nil {
		return nil, oerror.New("simulation: physics must not be nil")
	}
	if conf.Authority && conf.Latency == nil {
		return nil, oerror.New("simulation: an authoritative manager requires a latency provider")
	}
	if conf.Clock == nil {
		start := time.Now()
		conf.Clock = ClockFunc(func() float64 {
			return time.Since(start).Seconds()
		})
	}
	if conf.Observer == nil {
		conf.Observer = NopObserver{}
	}
	if conf.Log == nil {
		conf.Log = slog.Default()
	}

	return &Manager{
		conf:            conf,
		log:             conf.Log,
		step:            1 / float64(conf.TickRate),
		ticks:           utils.NewCircularQueue[TickRecord](conf.TickRate),
		lagCompensation: orderedmap.NewOrderedMap[ConnectionID, []lagCompensationRequest](),
	}, nil
}
