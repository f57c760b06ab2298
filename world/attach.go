package world

import (
	"math"
	"time"

	"github.com/oomph-ac/resim/simulation"
)

// Attach subscribes the world to the simulation passed, so that entity snapshots are captured, restored,
// rewound and evicted along with the tick history. The function returned detaches the world again.
func (w *World) Attach(m *simulation.Manager) (detach func()) {
	unsubscribe := []func(){
		m.OnCaptureSnapshot(func(tick uint64, t float64, replay bool) {
			w.capture(tick, t, replay)
		}),
		m.OnSetPaused(func(paused bool) {
			w.paused = paused
			if !paused {
				w.wakeAll()
			}
		}),
		m.OnSetSnapshot(func(tick uint64) {
			t, ok := m.TickTime(tick)
			if !ok && tick == m.Tick() {
				// Lag compensation restores the current tick before it is added to the tick history.
				t, ok = m.Time(), true
			}
			if !ok {
				w.log.Warn("snapshot restore requested for unknown tick", "tick", tick)
				return
			}
			w.restore(t)
		}),
		m.OnLagCompensationCheck(w.rewind),
		m.OnHistoryEvicted(func(_ uint64, t float64) {
			after := math.Nextafter(t, math.Inf(1))
			for el := w.entities.Front(); el != nil; el = el.Next() {
				el.Value.ClearHistoryBefore(after)
			}
		}),
	}
	return func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}
}

// capture records a snapshot of every entity. Removed entities are dropped first. Entities that are frozen
// during a resimulation keep the snapshots recorded when the tick was live. Dormant entities are woken up
// once the replay reaches their first snapshot, and take the state of that snapshot.
func (w *World) capture(tick uint64, t float64, replay bool) {
	w.purge()
	for e := range w.Entities() {
		if d, ok := w.dormant[e.ID()]; ok {
			if t >= d.wake {
				e.RestoreTo(d.wake)
				delete(w.dormant, e.ID())
				w.log.Debug("entity woken during resimulation", "id", e.ID(), "tick", tick)
			}
			continue
		}
		if replay && !e.Predicted() {
			continue
		}
		e.Record(tick, t)
	}
}

// restore sets every entity back to its snapshot at t. During a resimulation only predicted entities are
// restored, as the others do not take part in it. Predicted entities without a snapshot at or before t did not
// exist yet at t, so they are left dormant until the replay reaches their first snapshot.
func (w *World) restore(t float64) {
	for e := range w.Entities() {
		if w.paused && !e.Predicted() {
			continue
		}
		if e.RestoreTo(t) {
			continue
		}
		if !w.paused {
			w.log.Debug("no snapshot to restore entity to", "id", e.ID(), "time", t)
			continue
		}
		first, ok := e.FirstSnapshotTime()
		if !ok {
			first = math.Inf(1)
		}
		w.dormant[e.ID()] = dormancy{wake: first, live: e.State}
		w.log.Debug("entity dormant during resimulation", "id", e.ID(), "time", t, "first", first)
	}
}

// wakeAll gives every entity still dormant when a resimulation ends the live state it had before it started.
func (w *World) wakeAll() {
	for id, d := range w.dormant {
		if e, ok := w.entities.Get(id); ok {
			e.State = d.live
		}
	}
	clear(w.dormant)
}

// rewind moves every entity that is not owned by conn back to where conn saw it, which is the round trip time
// plus the interpolation delay before the current tick. Entities owned by conn are kept at the current tick.
func (w *World) rewind(conn simulation.ConnectionID, tick uint64, t float64, rtt time.Duration) {
	back := min(rtt+w.conf.InterpolationDelay, w.conf.MaxRewind)
	target := t - back.Seconds()

	for e := range w.Entities() {
		if e.Owner() == conn {
			if e.Rewound() {
				e.RestoreTo(t)
			}
			continue
		}
		e.RewindTo(target)
	}
	w.log.Debug("world rewound", "conn", conn, "tick", tick, "rewind", back)
}
