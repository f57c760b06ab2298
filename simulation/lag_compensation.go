package simulation

import (
	"github.com/elliotchance/orderedmap/v2"
)

type lagCompensationRequest struct {
	check    func()
	complete func()
}

// ScheduleLagCompensation queues a lag compensated check for a connection. After the snapshot of the current
// tick has been captured, the world is rolled back to what the connection observed and check is called.
// Once every check of every connection has run, the world is restored to the current tick and complete is
// called. State must only be changed in complete.
//
// Lag compensation is only available on an authoritative Manager.
func (m *Manager) ScheduleLagCompensation(conn ConnectionID, check, complete func()) {
	if !m.conf.Authority {
		m.log.Warn("lag compensation scheduled on a non-authoritative simulation", "conn", conn)
		return
	}
	requests, _ := m.lagCompensation.Get(conn)
	m.lagCompensation.Set(conn, append(requests, lagCompensationRequest{check: check, complete: complete}))
}

// RequestLagCompensationCheck queues a lag compensated check for a connection and returns its ID. The check
// and complete phases of the request are sent to the OnLagCompensationRequestCheck and
// OnLagCompensationRequestComplete subscribers with that ID.
func (m *Manager) RequestLagCompensationCheck(conn ConnectionID) int {
	m.lagCompensationID++
	id := m.lagCompensationID
	m.ScheduleLagCompensation(conn, func() {
		m.onLagCompensationRequestCheck.each(func(fn func(int)) {
			m.guard(PhaseLagCompensationCheck, func() { fn(id) })
		})
	}, func() {
		m.onLagCompensationRequestComplete.each(func(fn func(int)) {
			m.guard(PhaseLagCompensationComplete, func() { fn(id) })
		})
	})
	return id
}

// runLagCompensation rolls the world back for every connection with queued requests, running its checks,
// then restores the world to the current tick and runs every complete closure.
func (m *Manager) runLagCompensation() {
	pending := m.lagCompensation
	m.lagCompensation = orderedmap.NewOrderedMap[ConnectionID, []lagCompensationRequest]()

	count := 0
	for el := pending.Front(); el != nil; el = el.Next() {
		conn, requests := el.Key, el.Value
		rtt := m.conf.Latency.RoundTripTime(conn)

		m.onLagCompensationCheck.each(func(fn LagCompensationCheckFunc) {
			m.guard(PhaseLagCompensationCheck, func() { fn(conn, m.tick, m.time, rtt) })
		})
		for _, req := range requests {
			m.guard(PhaseLagCompensationCheck, req.check)
		}
		count += len(requests)
	}

	m.setSnapshot(m.tick)

	for el := pending.Front(); el != nil; el = el.Next() {
		for _, req := range el.Value {
			m.guard(PhaseLagCompensationComplete, req.complete)
		}
	}
	m.conf.Observer.ObserveLagCompensation(pending.Len(), count)
}
