package entity

import (
	"log/slog"

	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/resim/game"
	"github.com/oomph-ac/resim/history"
	"github.com/oomph-ac/resim/simulation"
)

// ID is the runtime ID of an entity in a world.
type ID uint64

// NoOwner is the owner of entities that are not controlled by any connection.
const NoOwner simulation.ConnectionID = -1

// defaultAABB is the default AABB for newly created entities.
var defaultAABB = game.AABBFromDimensions(game.PlayerWidth, game.PlayerHeight)

// Entity is a simulated body in a world. The embedded State is what the simulation steps each tick. A
// snapshot of it is recorded at the end of every tick so it can be restored during a resimulation and rewound
// to for lag compensation.
type Entity struct {
	State

	id        ID
	owner     simulation.ConnectionID
	predicted bool
	aabb      cube.BBox

	snapshots *history.TimeHistory[Snapshot]
	// rewound is true while the state of the entity is not the state of the current tick because it was
	// rewound for lag compensation.
	rewound bool
	removed bool

	// teleport is the position the entity will be moved to the next time transforms are synced.
	teleport *mgl32.Vec3
}

// New creates a new entity at the position passed. owner is the connection controlling the entity, or NoOwner.
// A predicted entity keeps being simulated while the world is paused for a resimulation.
func New(id ID, position mgl32.Vec3, owner simulation.ConnectionID, predicted bool, log *slog.Logger) *Entity {
	if log == nil {
		log = slog.Default()
	}
	return &Entity{
		State: State{
			Position:     position,
			PrevPosition: position,
			Health:       game.DefaultHealth,
			OnGround:     position.Y() <= 0,
		},
		id:        id,
		owner:     owner,
		predicted: predicted,
		aabb:      defaultAABB,
		// Snapshots are only ever pruned when the tick they belong to leaves the tick history.
		snapshots: history.New[Snapshot](0, history.WithLogger(log.With("entity", id))),
	}
}

// ID returns the runtime ID of the entity.
func (e *Entity) ID() ID {
	return e.id
}

// Owner returns the connection controlling the entity.
func (e *Entity) Owner() simulation.ConnectionID {
	return e.owner
}

// Predicted returns true if the entity is simulated locally ahead of the authority.
func (e *Entity) Predicted() bool {
	return e.predicted
}

// Box returns the bounding box of the entity at its current position.
func (e *Entity) Box() cube.BBox {
	return e.aabb.Translate(e.Position)
}

// BoxAt returns the bounding box of the entity at the position passed.
func (e *Entity) BoxAt(pos mgl32.Vec3) cube.BBox {
	return e.aabb.Translate(pos)
}

// SetSize changes the dimensions of the bounding box of the entity.
func (e *Entity) SetSize(width, height float32) {
	e.aabb = game.AABBFromDimensions(width, height)
}

// Teleport moves the entity to pos the next time transforms are synced. Velocity is reset.
func (e *Entity) Teleport(pos mgl32.Vec3) {
	e.teleport = &pos
}

// SyncTransform applies a pending teleport, if any. It returns true if the entity was moved.
func (e *Entity) SyncTransform() bool {
	if e.teleport == nil {
		return false
	}
	e.Position, e.PrevPosition = *e.teleport, *e.teleport
	e.Velocity = mgl32.Vec3{}
	e.teleport = nil
	return true
}

// Remove marks the entity as removed. Its world drops it the next time a snapshot is captured.
func (e *Entity) Remove() {
	e.removed = true
}

// Removed returns true if the entity was removed from its world.
func (e *Entity) Removed() bool {
	return e.removed
}

// Rewound returns true if the state of the entity is currently rewound for lag compensation.
func (e *Entity) Rewound() bool {
	return e.rewound
}
