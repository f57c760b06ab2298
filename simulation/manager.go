package simulation

import (
	"log/slog"
	"math"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/oomph-ac/resim/utils"
)

// TickRecord is the time at which a tick was generated.
type TickRecord struct {
	Tick uint64
	Time float64
}

// Manager drives a fixed tick simulation. Every tick it replays any resimulation that was requested, runs
// the tick pipeline (tick, physics step, snapshot capture), runs lag compensation on an authoritative peer
// and finally records the tick in a one second tick history.
//
// A Manager is not safe for concurrent use: it must only be used from the simulation thread.
type Manager struct {
	conf Config
	log  *slog.Logger
	step float64

	active bool

	tick      uint64
	time      float64
	replaying bool

	ticks *utils.CircularQueue[TickRecord]

	resimulationRequests []ResimulationRequest
	lagCompensation      *orderedmap.OrderedMap[ConnectionID, []lagCompensationRequest]
	lagCompensationID    int

	onTick                           hooks[TickFunc]
	onCaptureSnapshot                hooks[TickFunc]
	onSetPaused                      hooks[func(bool)]
	onSetSnapshot                    hooks[func(uint64)]
	onLagCompensationCheck           hooks[LagCompensationCheckFunc]
	onHistoryEvicted                 hooks[func(uint64, float64)]
	onLagCompensationRequestCheck    hooks[func(int)]
	onLagCompensationRequestComplete hooks[func(int)]
}

// Activate switches the physical world to scripted stepping, after which AdvanceTick steps it. Calling
// Activate more than once has no effect.
func (m *Manager) Activate() {
	if m.active {
		return
	}
	m.conf.Physics.SetSimulationMode(SimulationModeScript)
	m.active = true
	m.log.Info("simulation activated", "tick_rate", m.conf.TickRate, "authority", m.conf.Authority)
}

// AdvanceTick advances the simulation by one tick. It must be called once per fixed time step.
func (m *Manager) AdvanceTick() {
	if !m.active {
		m.log.Debug("tick advance ignored on inactive simulation")
		return
	}
	start := time.Now()

	m.tick++
	now := m.conf.Clock.Now()
	if latest, ok := m.ticks.Back(); ok && now <= latest.Time {
		now = math.Nextafter(latest.Time, math.Inf(1))
	}
	m.time = now

	if base := m.drainResimulationRequests(); base != m.tick {
		m.Resimulate(base)
	}

	m.runTick(m.tick, m.time, false)

	if m.lagCompensation.Len() > 0 {
		m.runLagCompensation()
	}

	m.record(m.tick, m.time)
	m.conf.Observer.ObserveTick(time.Since(start))
}

// runTick runs the tick pipeline for a single tick. The phases always run in the same order, whether the
// tick is live or replayed.
func (m *Manager) runTick(tick uint64, t float64, replay bool) {
	m.onTick.each(func(fn TickFunc) {
		m.guard(PhaseTick, func() { fn(tick, t, replay) })
	})
	m.guard(PhasePhysics, func() { m.conf.Physics.Simulate(m.step) })
	m.onCaptureSnapshot.each(func(fn TickFunc) {
		m.guard(PhaseCaptureSnapshot, func() { fn(tick, t, replay) })
	})
}

// record appends the tick to the tick history, evicting the oldest tick if the history already spans a full
// second.
func (m *Manager) record(tick uint64, t float64) {
	if m.ticks.Full() {
		evicted, _ := m.ticks.Pop()
		m.onHistoryEvicted.each(func(fn func(uint64, float64)) {
			m.guard(PhaseHistoryEvicted, func() { fn(evicted.Tick, evicted.Time) })
		})
		m.conf.Observer.ObserveHistoryEviction(evicted.Tick)
	}
	// The queue always has capacity here, so Append cannot fail.
	_ = m.ticks.Append(TickRecord{Tick: tick, Time: t})
}

func (m *Manager) setPaused(paused bool) {
	m.onSetPaused.each(func(fn func(bool)) {
		m.guard(PhaseSetPaused, func() { fn(paused) })
	})
}

func (m *Manager) setSnapshot(tick uint64) {
	m.onSetSnapshot.each(func(fn func(uint64)) {
		m.guard(PhaseSetSnapshot, func() { fn(tick) })
	})
}

// Tick returns the current tick. During a resimulation this is the tick being replayed.
func (m *Manager) Tick() uint64 {
	return m.tick
}

// Time returns the time of the current tick.
func (m *Manager) Time() float64 {
	return m.time
}

// Replaying returns true while a resimulation is in progress.
func (m *Manager) Replaying() bool {
	return m.replaying
}

// Active returns true if the Manager has been activated.
func (m *Manager) Active() bool {
	return m.active
}

// Authority returns true if the Manager runs on the authoritative peer.
func (m *Manager) Authority() bool {
	return m.conf.Authority
}

// Step returns the duration of a single tick in seconds.
func (m *Manager) Step() float64 {
	return m.step
}

// TickRate returns the amount of ticks per second.
func (m *Manager) TickRate() int {
	return m.conf.TickRate
}

// TickTime returns the time a tick in the tick history was generated at. False is returned if the tick is
// not in the history.
func (m *Manager) TickTime(tick uint64) (float64, bool) {
	oldest, ok := m.ticks.Front()
	if !ok || tick < oldest.Tick {
		return 0, false
	}
	record, err := m.ticks.Get(int(tick - oldest.Tick))
	if err != nil {
		return 0, false
	}
	return record.Time, true
}

// OldestTick returns the oldest tick in the tick history.
func (m *Manager) OldestTick() (uint64, bool) {
	record, ok := m.ticks.Front()
	return record.Tick, ok
}

// LatestTick returns the newest tick in the tick history.
func (m *Manager) LatestTick() (uint64, bool) {
	record, ok := m.ticks.Back()
	return record.Tick, ok
}

// History returns a copy of the tick history, oldest first.
func (m *Manager) History() []TickRecord {
	records := make([]TickRecord, 0, m.ticks.Len())
	for record := range m.ticks.Iter() {
		records = append(records, record)
	}
	return records
}
