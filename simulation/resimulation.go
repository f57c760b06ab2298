package simulation

import (
	"github.com/oomph-ac/resim/assert"
)

// ResimulationRequest is called at the start of the next tick advance. It may call nominate with the tick
// that the simulation should be rewound to. Only the farthest tick back nominated by all requests of an
// advance is resimulated.
type ResimulationRequest func(nominate func(tick uint64))

// ScheduleResimulation queues a resimulation request for the next tick advance.
func (m *Manager) ScheduleResimulation(req ResimulationRequest) {
	m.resimulationRequests = append(m.resimulationRequests, req)
}

// RequestResimulation queues a resimulation from the tick passed for the next tick advance.
func (m *Manager) RequestResimulation(tick uint64) {
	m.ScheduleResimulation(func(nominate func(uint64)) {
		nominate(tick)
	})
}

// drainResimulationRequests runs and clears every queued request, returning the farthest tick back that was
// nominated or the current tick if none were.
func (m *Manager) drainResimulationRequests() uint64 {
	base := m.tick
	if len(m.resimulationRequests) == 0 {
		return base
	}

	requests := m.resimulationRequests
	m.resimulationRequests = nil

	nominate := func(tick uint64) {
		if tick < base {
			base = tick
		}
	}
	for _, req := range requests {
		m.guard(PhaseResimulationRequest, func() { req(nominate) })
	}
	return base
}

// Resimulate restores the world to the snapshot of baseTick and replays every tick after it up to the latest
// tick in the tick history. Ticks further back than the history are clamped to the oldest tick. The current
// tick and time are restored once the replay finishes.
//
// Resimulate panics if a resimulation is already in progress.
func (m *Manager) Resimulate(baseTick uint64) {
	assert.IsTrue(!m.replaying, "resimulation to tick %d requested while already resimulating (tick=%d)", baseTick, m.tick)

	oldest, ok := m.ticks.Front()
	if !ok {
		m.log.Warn("resimulation requested without any tick history", "base", baseTick)
		return
	}
	latest, _ := m.ticks.Back()
	if baseTick < oldest.Tick {
		m.log.Debug("resimulation base clamped to tick history", "base", baseTick, "oldest", oldest.Tick)
		baseTick = oldest.Tick
	}

	liveTick, liveTime := m.tick, m.time
	replayed := 0

	m.replaying = true
	defer func() {
		m.setPaused(false)
		m.replaying = false
		m.tick, m.time = liveTick, liveTime
		m.log.Debug("resimulation complete", "base", baseTick, "replayed", replayed, "tick", liveTick)
		m.conf.Observer.ObserveResimulation(replayed)
	}()

	m.setPaused(true)
	m.setSnapshot(baseTick)
	m.conf.Physics.SyncTransforms()

	for tick := baseTick + 1; tick <= latest.Tick; tick++ {
		t, _ := m.TickTime(tick)
		m.tick, m.time = tick, t
		m.runTick(tick, t, true)
		replayed++
	}
}
