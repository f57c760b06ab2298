package entity

import (
	"github.com/oomph-ac/resim/game"
)

// Record stores the current state of the entity as the snapshot of tick. During a resimulation the snapshot
// that was recorded for the same tick is replaced.
func (e *Entity) Record(tick uint64, time float64) {
	e.snapshots.Set(time, Snapshot{Tick: tick, State: e.State})
}

// SnapshotAt returns the newest snapshot recorded at or before time. False is returned if there is no
// snapshot or if time is before the oldest one.
func (e *Entity) SnapshotAt(time float64) (Snapshot, bool) {
	oldest, _, ok := e.snapshots.Oldest()
	if !ok || time < oldest {
		return Snapshot{}, false
	}
	return e.snapshots.Get(time), true
}

// RestoreTo sets the state of the entity to the snapshot recorded at time. Pending teleports are dropped, as
// the restored state supersedes them. False is returned if no snapshot covers time, in which case the state
// is left untouched.
func (e *Entity) RestoreTo(time float64) bool {
	snap, ok := e.SnapshotAt(time)
	if !ok {
		return false
	}
	e.State = snap.State
	e.teleport = nil
	e.rewound = false
	return true
}

// RewindTo sets the state of the entity to what it was at time, interpolating the position between the two
// snapshots bracketing it. Times before the oldest snapshot use the oldest snapshot and times after the newest
// use the newest. False is returned if the entity has no snapshots.
func (e *Entity) RewindTo(time float64) bool {
	if before, after, ok := e.snapshots.GetAround(time); ok {
		beforeTime, afterTime, _ := e.snapshots.GetAroundTimes(time)

		var partial float32
		if afterTime > beforeTime {
			partial = float32((time - beforeTime) / (afterTime - beforeTime))
		}
		state := before.State
		state.Position = game.LerpVec3(before.State.Position, after.State.Position, partial)
		state.PrevPosition = game.LerpVec3(before.State.PrevPosition, after.State.PrevPosition, partial)
		e.State = state
		e.rewound = true
		return true
	}

	oldestTime, oldest, ok := e.snapshots.Oldest()
	if !ok {
		return false
	}
	if time < oldestTime {
		e.State = oldest.State
	} else {
		e.State = e.snapshots.Get(time).State
	}
	e.rewound = true
	return true
}

// OverwriteSnapshot replaces the state of the snapshot recorded at time, keeping its tick. It is used to apply
// authoritative corrections before resimulating from that tick. False is returned if there is no snapshot at
// exactly time.
func (e *Entity) OverwriteSnapshot(time float64, state State) bool {
	if !e.snapshots.Has(time) {
		return false
	}
	snap := e.snapshots.GetExact(time)
	snap.State = state
	e.snapshots.Overwrite(time, snap)
	return true
}

// ClearHistoryBefore drops every snapshot recorded strictly before time.
func (e *Entity) ClearHistoryBefore(time float64) {
	e.snapshots.ClearAllBefore(time)
}

// SnapshotCount returns the amount of snapshots recorded for the entity.
func (e *Entity) SnapshotCount() int {
	return e.snapshots.Len()
}

// FirstSnapshotTime returns the time of the oldest snapshot of the entity. False is returned if it has none.
func (e *Entity) FirstSnapshotTime() (float64, bool) {
	t, _, ok := e.snapshots.Oldest()
	return t, ok
}
