package world

import (
	"iter"
	"log/slog"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/oomph-ac/resim/entity"
	"github.com/oomph-ac/resim/oerror"
	"github.com/oomph-ac/resim/simulation"
)

// Config is the configuration of a World.
type Config struct {
	// InterpolationDelay is how far behind the latest received state clients render remote entities. It is
	// added to the round trip time when rewinding for lag compensation.
	InterpolationDelay time.Duration
	// MaxRewind is the furthest entities are rewound for lag compensation. If zero, one second is used.
	MaxRewind time.Duration
	// Log is the logger of the World. If nil, slog.Default() is used.
	Log *slog.Logger
}

// World is the physical world stepped by a simulation.Manager. It holds every entity in the order they were
// added, so that stepping and hashing are deterministic.
type World struct {
	conf Config
	log  *slog.Logger

	entities *orderedmap.OrderedMap[entity.ID, *entity.Entity]

	// dormant holds the entities that did not exist yet at the tick being replayed. It is only filled while
	// the world is paused.
	dormant map[entity.ID]dormancy

	mode   simulation.SimulationMode
	paused bool
	steps  uint64
}

// dormancy is kept for an entity that sits out part of a resimulation. The entity wakes up at the time of its
// first snapshot, or gets its live state back once the resimulation ends if it has no snapshots.
type dormancy struct {
	wake float64
	live entity.State
}

// New creates an empty World.
func New(conf Config) *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.MaxRewind <= 0 {
		conf.MaxRewind = time.Second
	}
	return &World{
		conf:     conf,
		log:      conf.Log,
		entities: orderedmap.NewOrderedMap[entity.ID, *entity.Entity](),
		dormant:  make(map[entity.ID]dormancy),
	}
}

// Add adds an entity to the world. An error is returned if an entity with the same ID already exists.
func (w *World) Add(e *entity.Entity) error {
	if _, ok := w.entities.Get(e.ID()); ok {
		return oerror.New("world: entity %d already exists", e.ID())
	}
	w.entities.Set(e.ID(), e)
	w.log.Debug("entity added", "id", e.ID(), "owner", e.Owner(), "predicted", e.Predicted())
	return nil
}

// Remove marks the entity with the ID passed as removed. It stops being simulated immediately and is dropped
// when the next snapshot is captured.
func (w *World) Remove(id entity.ID) {
	if e, ok := w.entities.Get(id); ok {
		e.Remove()
	}
}

// Entity looks up an entity that has not been removed.
func (w *World) Entity(id entity.ID) (*entity.Entity, bool) {
	e, ok := w.entities.Get(id)
	if !ok || e.Removed() {
		return nil, false
	}
	return e, true
}

// Entities iterates over every entity that has not been removed, in the order they were added.
func (w *World) Entities() iter.Seq[*entity.Entity] {
	return func(yield func(*entity.Entity) bool) {
		for el := w.entities.Front(); el != nil; el = el.Next() {
			if el.Value.Removed() {
				continue
			}
			if !yield(el.Value) {
				return
			}
		}
	}
}

// Dormant returns true if the entity with the ID passed is not simulated during the current resimulation,
// because it did not exist yet at the tick being replayed.
func (w *World) Dormant(id entity.ID) bool {
	_, ok := w.dormant[id]
	return ok
}

// Len returns the amount of entities in the world, including removed entities that were not yet dropped.
func (w *World) Len() int {
	return w.entities.Len()
}

// Paused returns true while a resimulation is running. Only predicted entities move while the world is paused.
func (w *World) Paused() bool {
	return w.paused
}

// Mode returns the current simulation mode of the world.
func (w *World) Mode() simulation.SimulationMode {
	return w.mode
}

// Steps returns the amount of times the world was stepped.
func (w *World) Steps() uint64 {
	return w.steps
}

// purge drops every removed entity.
func (w *World) purge() {
	var removed []entity.ID
	for el := w.entities.Front(); el != nil; el = el.Next() {
		if el.Value.Removed() {
			removed = append(removed, el.Key)
		}
	}
	for _, id := range removed {
		w.entities.Delete(id)
		w.log.Debug("entity dropped", "id", id)
	}
}
