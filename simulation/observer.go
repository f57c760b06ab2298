package simulation

import "time"

// Observer receives metrics about a Manager. Implementations must be cheap, as they are called from the
// simulation thread.
type Observer interface {
	// ObserveTick is called after every live tick with the time spent advancing it.
	ObserveTick(duration time.Duration)
	// ObserveResimulation is called after a resimulation with the amount of ticks replayed.
	ObserveResimulation(ticks int)
	// ObserveLagCompensation is called after lag compensation ran for the amount of connections and requests.
	ObserveLagCompensation(connections, requests int)
	// ObserveCallbackFailure is called when a subscriber panics in the phase passed.
	ObserveCallbackFailure(phase string)
	// ObserveHistoryEviction is called when a tick leaves the tick history.
	ObserveHistoryEviction(tick uint64)
}

// NopObserver is an Observer that does nothing.
type NopObserver struct{}

func (NopObserver) ObserveTick(time.Duration)       {}
func (NopObserver) ObserveResimulation(int)         {}
func (NopObserver) ObserveLagCompensation(int, int) {}
func (NopObserver) ObserveCallbackFailure(string)   {}
func (NopObserver) ObserveHistoryEviction(uint64)   {}
