package world

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/resim/entity"
	"github.com/oomph-ac/resim/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type latency map[simulation.ConnectionID]time.Duration

func (l latency) RoundTripTime(conn simulation.ConnectionID) time.Duration {
	return l[conn]
}

type setup struct {
	m   *simulation.Manager
	w   *World
	now float64
}

func newSetup(t *testing.T, tickRate int, authority bool, conf Config) *setup {
	t.Helper()
	s := &setup{w: New(conf)}
	m, err := simulation.New(simulation.Config{
		TickRate:  tickRate,
		Physics:   s.w,
		Clock:     simulation.ClockFunc(func() float64 { return s.now }),
		Authority: authority,
		Latency:   latency{1: 100 * time.Millisecond, 2: 40 * time.Millisecond},
	})
	require.NoError(t, err)
	s.w.Attach(m)
	m.Activate()
	s.m = m
	return s
}

func (s *setup) advance(n int) {
	for range n {
		s.now += s.m.Step()
		s.m.AdvanceTick()
	}
}

func (s *setup) add(t *testing.T, id entity.ID, pos mgl32.Vec3, owner simulation.ConnectionID, predicted bool) *entity.Entity {
	t.Helper()
	e := entity.New(id, pos, owner, predicted, nil)
	require.NoError(t, s.w.Add(e))
	return e
}

func TestAddDuplicate(t *testing.T) {
	w := New(Config{})
	require.NoError(t, w.Add(entity.New(1, mgl32.Vec3{}, entity.NoOwner, false, nil)))
	assert.Error(t, w.Add(entity.New(1, mgl32.Vec3{}, entity.NoOwner, false, nil)))
}

func TestActivateSetsScriptMode(t *testing.T) {
	s := newSetup(t, 20, false, Config{})
	assert.Equal(t, simulation.SimulationModeScript, s.w.Mode())
}

func TestGravityAndGround(t *testing.T) {
	s := newSetup(t, 20, false, Config{})
	e := s.add(t, 1, mgl32.Vec3{0, 5, 0}, entity.NoOwner, false)
	assert.False(t, e.OnGround)

	s.advance(1)
	assert.Less(t, e.Position.Y(), float32(5))
	assert.Equal(t, entity.PhaseAirborne, e.Phase)

	s.advance(40)
	assert.Equal(t, float32(0), e.Position.Y())
	assert.True(t, e.OnGround)
	assert.Equal(t, entity.PhaseIdle, e.Phase)
	assert.Equal(t, uint64(41), s.w.Steps())
}

func TestFrictionSlowsEntities(t *testing.T) {
	s := newSetup(t, 20, false, Config{})
	e := s.add(t, 1, mgl32.Vec3{}, entity.NoOwner, false)
	e.Velocity = mgl32.Vec3{10, 0, 0}

	s.advance(1)
	assert.Equal(t, entity.PhaseMoving, e.Phase)
	assert.Less(t, e.Velocity.X(), float32(10))
	assert.Greater(t, e.Position.X(), float32(0))

	s.advance(100)
	assert.Equal(t, entity.PhaseIdle, e.Phase)
}

func TestOnlyPredictedEntitiesMoveWhilePaused(t *testing.T) {
	w := New(Config{})
	frozen := entity.New(1, mgl32.Vec3{0, 5, 0}, entity.NoOwner, false, nil)
	predicted := entity.New(2, mgl32.Vec3{0, 5, 0}, entity.NoOwner, true, nil)
	require.NoError(t, w.Add(frozen))
	require.NoError(t, w.Add(predicted))

	w.paused = true
	w.Simulate(0.05)
	assert.Equal(t, float32(5), frozen.Position.Y())
	assert.Less(t, predicted.Position.Y(), float32(5))
}

func TestSyncTransformsAppliesTeleports(t *testing.T) {
	w := New(Config{})
	e := entity.New(1, mgl32.Vec3{}, entity.NoOwner, false, nil)
	require.NoError(t, w.Add(e))

	e.Teleport(mgl32.Vec3{3, 0, 3})
	w.SyncTransforms()
	assert.Equal(t, mgl32.Vec3{3, 0, 3}, e.Position)
}

func TestSnapshotsFollowTickHistory(t *testing.T) {
	s := newSetup(t, 10, false, Config{})
	e := s.add(t, 1, mgl32.Vec3{}, entity.NoOwner, false)

	s.advance(25)
	assert.Equal(t, 10, e.SnapshotCount())

	oldest, _ := s.m.OldestTick()
	tm, _ := s.m.TickTime(oldest)
	snap, ok := e.SnapshotAt(tm)
	require.True(t, ok)
	assert.Equal(t, oldest, snap.Tick)
}

func TestRemovedEntitiesAreDropped(t *testing.T) {
	s := newSetup(t, 20, false, Config{})
	s.add(t, 1, mgl32.Vec3{}, entity.NoOwner, false)
	s.add(t, 2, mgl32.Vec3{}, entity.NoOwner, false)
	s.advance(2)

	s.w.Remove(1)
	_, ok := s.w.Entity(1)
	assert.False(t, ok)
	assert.Equal(t, 2, s.w.Len())

	s.advance(1)
	assert.Equal(t, 1, s.w.Len())
	_, ok = s.w.Entity(2)
	assert.True(t, ok)
}

// push accelerates every predicted entity by a fixed amount each tick, live or replayed.
func push(s *setup) {
	s.m.OnTick(func(tick uint64, _ float64, _ bool) {
		for e := range s.w.Entities() {
			if e.Predicted() {
				e.Velocity[0] += 1
				if tick%7 == 0 && e.OnGround {
					e.Velocity[1] = 8.4
				}
			}
		}
	})
}

func TestResimulationIsDeterministic(t *testing.T) {
	control := newSetup(t, 20, false, Config{})
	control.add(t, 1, mgl32.Vec3{}, 1, true)
	control.add(t, 2, mgl32.Vec3{0, 3, 0}, entity.NoOwner, false)
	push(control)

	replayed := newSetup(t, 20, false, Config{})
	replayed.add(t, 1, mgl32.Vec3{}, 1, true)
	replayed.add(t, 2, mgl32.Vec3{0, 3, 0}, entity.NoOwner, false)
	push(replayed)

	control.advance(20)
	replayed.advance(20)
	require.Equal(t, control.w.Digest(), replayed.w.Digest())

	replayed.m.RequestResimulation(8)
	control.advance(1)
	replayed.advance(1)
	assert.Equal(t, control.w.Digest(), replayed.w.Digest())
}

func TestResimulationSkipsEntitiesSpawnedAfterBase(t *testing.T) {
	cases := map[string]struct {
		ticksAfterSpawn int
		dormant         []uint64
	}{
		"with snapshots":    {ticksAfterSpawn: 3, dormant: []uint64{9, 10, 11}},
		"without snapshots": {ticksAfterSpawn: 0, dormant: []uint64{9, 10}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			control := newSetup(t, 20, false, Config{})
			control.add(t, 1, mgl32.Vec3{}, 1, true)
			push(control)

			replayed := newSetup(t, 20, false, Config{})
			replayed.add(t, 1, mgl32.Vec3{}, 1, true)
			push(replayed)

			control.advance(10)
			replayed.advance(10)
			spawnedC := control.add(t, 3, mgl32.Vec3{0, 5, 0}, 1, true)
			spawnedR := replayed.add(t, 3, mgl32.Vec3{0, 5, 0}, 1, true)
			control.advance(c.ticksAfterSpawn)
			replayed.advance(c.ticksAfterSpawn)

			var dormant []uint64
			replayed.m.OnTick(func(tick uint64, _ float64, replay bool) {
				if replay && replayed.w.Dormant(3) {
					dormant = append(dormant, tick)
				}
			})
			replayed.m.RequestResimulation(8)
			control.advance(1)
			replayed.advance(1)

			assert.Equal(t, control.w.Digest(), replayed.w.Digest())
			assert.Equal(t, spawnedC.Position, spawnedR.Position)
			assert.Equal(t, spawnedC.SnapshotCount(), spawnedR.SnapshotCount())
			assert.Equal(t, c.ticksAfterSpawn+1, spawnedR.SnapshotCount())
			assert.False(t, replayed.w.Dormant(3))
			assert.Equal(t, c.dormant, dormant)
		})
	}
}

func TestResimulationAppliesCorrections(t *testing.T) {
	s := newSetup(t, 20, false, Config{})
	e := s.add(t, 1, mgl32.Vec3{}, 1, true)
	s.advance(10)

	tm, ok := s.m.TickTime(5)
	require.True(t, ok)
	snap, _ := e.SnapshotAt(tm)
	corrected := snap.State
	corrected.Position[0] = 20
	require.True(t, e.OverwriteSnapshot(tm, corrected))

	s.m.RequestResimulation(5)
	s.advance(1)
	assert.InDelta(t, 20, e.Position.X(), 1e-4)
}

func TestLagCompensationRewindsOtherEntities(t *testing.T) {
	s := newSetup(t, 20, true, Config{})
	shooter := s.add(t, 1, mgl32.Vec3{}, 1, false)
	target := s.add(t, 2, mgl32.Vec3{}, entity.NoOwner, false)
	s.m.OnTick(func(tick uint64, _ float64, _ bool) {
		shooter.Position = mgl32.Vec3{0, 0, float32(tick)}
		target.Position = mgl32.Vec3{float32(tick), 0, 0}
	})
	s.advance(9)

	var seen, after mgl32.Vec3
	var self float32
	s.m.ScheduleLagCompensation(1, func() {
		seen, self = target.Position, shooter.Position.Z()
	}, func() {
		after = target.Position
	})
	s.advance(1)

	assert.InDelta(t, 8, seen.X(), 1e-3)
	assert.Equal(t, float32(10), self)
	assert.Equal(t, float32(10), after.X())
	assert.False(t, target.Rewound())
}

func TestLagCompensationRewindIsBounded(t *testing.T) {
	s := newSetup(t, 20, true, Config{InterpolationDelay: 50 * time.Millisecond, MaxRewind: 120 * time.Millisecond})
	target := s.add(t, 2, mgl32.Vec3{}, entity.NoOwner, false)
	s.m.OnTick(func(tick uint64, _ float64, _ bool) {
		target.Position = mgl32.Vec3{float32(tick), 0, 0}
	})
	s.advance(9)

	var seen float32
	s.m.ScheduleLagCompensation(1, func() { seen = target.Position.X() }, func() {})
	s.advance(1)
	assert.InDelta(t, 7.6, seen, 1e-3)
}

func TestLagCompensationRestoresOwnEntityBetweenConnections(t *testing.T) {
	s := newSetup(t, 20, true, Config{})
	first := s.add(t, 1, mgl32.Vec3{}, 1, false)
	second := s.add(t, 2, mgl32.Vec3{}, 2, false)
	s.m.OnTick(func(tick uint64, _ float64, _ bool) {
		first.Position = mgl32.Vec3{float32(tick), 0, 0}
		second.Position = mgl32.Vec3{float32(tick), 0, 0}
	})
	s.advance(9)

	var fromFirst, fromSecond [2]float32
	s.m.ScheduleLagCompensation(1, func() {
		fromFirst = [2]float32{first.Position.X(), second.Position.X()}
	}, func() {})
	s.m.ScheduleLagCompensation(2, func() {
		fromSecond = [2]float32{first.Position.X(), second.Position.X()}
	}, func() {})
	s.advance(1)

	assert.Equal(t, float32(10), fromFirst[0])
	assert.InDelta(t, 8, fromFirst[1], 1e-3)
	assert.InDelta(t, 9.2, fromSecond[0], 1e-3)
	assert.Equal(t, float32(10), fromSecond[1])
}

func TestDigest(t *testing.T) {
	a, b := New(Config{}), New(Config{})
	require.NoError(t, a.Add(entity.New(1, mgl32.Vec3{1, 2, 3}, entity.NoOwner, false, nil)))
	require.NoError(t, b.Add(entity.New(1, mgl32.Vec3{1, 2, 3}, entity.NoOwner, false, nil)))
	assert.Equal(t, a.Digest(), b.Digest())

	e, _ := b.Entity(1)
	e.Health--
	assert.NotEqual(t, a.Digest(), b.Digest())
}
