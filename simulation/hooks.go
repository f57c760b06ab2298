package simulation

import (
	"slices"
	"time"
)

// TickFunc is called for every tick and every snapshot capture. replay is true if the tick is being
// re-executed during a resimulation.
type TickFunc func(tick uint64, time float64, replay bool)

// LagCompensationCheckFunc is called before the check closures of a connection run. Subscribers roll their
// state back to what the connection observed given its round trip time.
type LagCompensationCheckFunc func(conn ConnectionID, tick uint64, time float64, rtt time.Duration)

type hook[F any] struct {
	id uint64
	fn F
}

// hooks is a list of subscribers. Dispatch iterates over the list as it was when dispatch started, so
// subscribers may unsubscribe while being called.
type hooks[F any] struct {
	next uint64
	list []hook[F]
}

func (h *hooks[F]) add(fn F) func() {
	h.next++
	id := h.next
	h.list = append(h.list, hook[F]{id: id, fn: fn})
	return func() {
		h.list = slices.DeleteFunc(slices.Clone(h.list), func(e hook[F]) bool {
			return e.id == id
		})
	}
}

func (h *hooks[F]) each(f func(fn F)) {
	for _, e := range h.list {
		f(e.fn)
	}
}

// OnTick subscribes to the tick phase of every live and replayed tick. It returns a function that removes
// the subscription.
func (m *Manager) OnTick(fn TickFunc) (unsubscribe func()) {
	return m.onTick.add(fn)
}

// OnCaptureSnapshot subscribes to the snapshot phase, which runs right after the physical world has been
// stepped for a tick.
func (m *Manager) OnCaptureSnapshot(fn TickFunc) (unsubscribe func()) {
	return m.onCaptureSnapshot.add(fn)
}

// OnSetPaused subscribes to pause notifications sent around a resimulation.
func (m *Manager) OnSetPaused(fn func(paused bool)) (unsubscribe func()) {
	return m.onSetPaused.add(fn)
}

// OnSetSnapshot subscribes to snapshot restores. Subscribers must restore their state to exactly the
// snapshot they captured at the tick passed.
func (m *Manager) OnSetSnapshot(fn func(tick uint64)) (unsubscribe func()) {
	return m.onSetSnapshot.add(fn)
}

// OnLagCompensationCheck subscribes to lag compensation rollbacks.
func (m *Manager) OnLagCompensationCheck(fn LagCompensationCheckFunc) (unsubscribe func()) {
	return m.onLagCompensationCheck.add(fn)
}

// OnHistoryEvicted subscribes to ticks leaving the tick history, so that subscribers can drop their own
// state for that tick.
func (m *Manager) OnHistoryEvicted(fn func(tick uint64, time float64)) (unsubscribe func()) {
	return m.onHistoryEvicted.add(fn)
}

// OnLagCompensationRequestCheck subscribes to the check phase of requests made with
// RequestLagCompensationCheck.
func (m *Manager) OnLagCompensationRequestCheck(fn func(id int)) (unsubscribe func()) {
	return m.onLagCompensationRequestCheck.add(fn)
}

// OnLagCompensationRequestComplete subscribes to the complete phase of requests made with
// RequestLagCompensationCheck.
func (m *Manager) OnLagCompensationRequestComplete(fn func(id int)) (unsubscribe func()) {
	return m.onLagCompensationRequestComplete.add(fn)
}
