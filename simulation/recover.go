package simulation

import (
	"runtime/debug"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/oomph-ac/resim/oerror"
)

// Phases reported when a subscriber or closure panics.
const (
	PhaseTick                    = "tick"
	PhasePhysics                 = "physics"
	PhaseCaptureSnapshot         = "capture_snapshot"
	PhaseSetPaused               = "set_paused"
	PhaseSetSnapshot             = "set_snapshot"
	PhaseResimulationRequest     = "resimulation_request"
	PhaseLagCompensationCheck    = "lag_compensation_check"
	PhaseLagCompensationComplete = "lag_compensation_complete"
	PhaseHistoryEvicted          = "history_evicted"
)

// guard runs fn, recovering and reporting any panic so that a single failing subscriber cannot stop the
// simulation. Fatal errors are re-raised.
func (m *Manager) guard(phase string, fn func()) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if oerror.IsFatal(v) {
			panic(v)
		}

		err, ok := v.(error)
		if !ok {
			err = oerror.New("%v", v)
		}
		m.log.Error("simulation callback panicked", "phase", phase, "tick", m.tick, "replay", m.replaying, "err", err, "stack", string(debug.Stack()))

		hub := sentry.CurrentHub().Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("phase", phase)
			scope.SetTag("tick", strconv.FormatUint(m.tick, 10))
			scope.SetTag("replay", strconv.FormatBool(m.replaying))
		})
		hub.Recover(err)

		m.conf.Observer.ObserveCallbackFailure(phase)
	}()
	fn()
}
