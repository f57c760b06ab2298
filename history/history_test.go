package history

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNearestAtOrBefore(t *testing.T) {
	h := New[int](0)
	h.Add(1.0, 10)
	h.Add(2.5, 20)
	h.Add(5.0, 30)

	assert.Equal(t, 10, h.Get(0.0))
	assert.Equal(t, 20, h.Get(2.5))
	assert.Equal(t, 20, h.Get(3.0))
	assert.Equal(t, 30, h.Get(9.0))
	assert.Equal(t, []int{30}, h.GetAllAfter(2.5))
}

func TestEmptyHistoryReturnsZero(t *testing.T) {
	h := New[string](0)
	assert.Equal(t, "", h.Get(1))
	assert.Equal(t, "", h.GetExact(1))
	assert.Empty(t, h.GetAllAfter(0))
	assert.False(t, h.Has(1))

	_, _, ok := h.GetAround(1)
	assert.False(t, ok)
}

func TestInsertionOrderIrrelevant(t *testing.T) {
	h := New[int](0)
	h.Add(3, 3)
	h.Add(1, 1)
	h.Add(2, 2)

	var keys []float64
	for time := range h.All() {
		keys = append(keys, time)
	}
	assert.Equal(t, []float64{1, 2, 3}, keys)
	assert.Equal(t, []int{2, 3}, h.GetAllAfter(1))
}

func TestDuplicateAddKeepsOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := New[int](0, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	require.Equal(t, 5, h.Add(1, 5))
	require.Equal(t, 5, h.Add(1, 6))
	assert.Equal(t, 5, h.GetExact(1))
	assert.Equal(t, 1, h.Len())
	assert.Contains(t, buf.String(), "duplicate time history entry")
}

func TestSetAndOverwrite(t *testing.T) {
	h := New[int](0)
	h.Add(1, 5)

	h.Set(1, 6)
	assert.Equal(t, 6, h.GetExact(1))

	h.Set(2, 7)
	assert.Equal(t, 7, h.GetExact(2))

	h.Overwrite(1, 8)
	assert.Equal(t, 8, h.GetExact(1))

	h.Overwrite(3, 9)
	assert.False(t, h.Has(3))
	assert.Equal(t, 2, h.Len())
}

func TestRoundTrip(t *testing.T) {
	h := New[int](0)
	times := []float64{0.02, 0.04, 0.06, 0.08, 0.1}
	for i, time := range times {
		h.Add(time, i)
	}

	for i, time := range times {
		assert.Equal(t, i, h.GetExact(time))
		assert.Equal(t, i, h.Get(time))
		if i+1 < len(times) {
			mid := (time + times[i+1]) / 2
			assert.Equal(t, i, h.Get(mid))
		}
	}
}

func TestGetAround(t *testing.T) {
	h := New[int](0)
	h.Add(1, 10)

	_, _, ok := h.GetAround(1)
	assert.False(t, ok, "a single entry cannot bracket")

	h.Add(2, 20)
	h.Add(4, 40)

	before, after, ok := h.GetAround(3)
	require.True(t, ok)
	assert.Equal(t, 20, before)
	assert.Equal(t, 40, after)

	bt, at, ok := h.GetAroundTimes(3)
	require.True(t, ok)
	assert.Equal(t, 2.0, bt)
	assert.Equal(t, 4.0, at)

	before, after, ok = h.GetAround(2)
	require.True(t, ok)
	assert.Equal(t, 20, before)
	assert.Equal(t, 20, after)

	_, _, ok = h.GetAround(0.5)
	assert.False(t, ok)
	_, _, ok = h.GetAround(5)
	assert.False(t, ok)
}

func TestRemoval(t *testing.T) {
	h := New[int](0)
	for i := range 5 {
		h.Add(float64(i), i)
	}

	assert.True(t, h.Remove(2))
	assert.False(t, h.Remove(2))

	h.RemoveAt(0)
	assert.Equal(t, []int{1, 3, 4}, h.GetAllAfter(-1))

	h.ClearAllBefore(3)
	assert.Equal(t, []int{3, 4}, h.GetAllAfter(-1))

	h.Clear()
	assert.Equal(t, 0, h.Len())
}

func TestRetentionAgainstReferenceClock(t *testing.T) {
	now := 0.0
	h := New[int](1.05, WithReferenceClock(func() float64 { return now }))

	for i := range 30 {
		now = float64(i) * 0.1
		h.Add(now, i)

		for time := range h.All() {
			assert.GreaterOrEqual(t, time, now-1.05)
		}
	}

	oldest, _, ok := h.Oldest()
	require.True(t, ok)
	assert.InDelta(t, 1.9, oldest, 1e-9)

	newest, value, ok := h.Newest()
	require.True(t, ok)
	assert.InDelta(t, 2.9, newest, 1e-9)
	assert.Equal(t, 29, value)
}

func TestRetentionDefaultsToNewestKey(t *testing.T) {
	h := New[int](2.0)
	h.Add(5, 5)
	h.Add(1, 1)
	assert.Equal(t, 1, h.Len(), "an entry older than the retention window is evicted on insert")

	h.Add(3, 3)
	h.Add(7.5, 7)
	assert.Equal(t, []int{7}, h.GetAllAfter(0))
}
