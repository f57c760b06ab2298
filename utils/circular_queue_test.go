package utils

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularQueueDropsOldest(t *testing.T) {
	q := NewCircularQueue[int](3)
	for i := 1; i <= 5; i++ {
		require.NoError(t, q.Append(i))
	}

	assert.True(t, q.Full())
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []int{3, 4, 5}, slices.Collect(q.Iter()))

	front, ok := q.Front()
	require.True(t, ok)
	assert.Equal(t, 3, front)

	back, ok := q.Back()
	require.True(t, ok)
	assert.Equal(t, 5, back)
}

func TestCircularQueuePopAndIndex(t *testing.T) {
	q := NewCircularQueue[int](2)
	_, ok := q.Pop()
	assert.False(t, ok)

	require.NoError(t, q.Append(1))
	require.NoError(t, q.Append(2))

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	require.NoError(t, q.Append(3))
	got, err := q.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	require.NoError(t, q.Set(0, 7))
	got, err = q.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	_, err = q.Get(2)
	assert.Error(t, err)
	assert.Error(t, q.Set(-1, 0))

	q.Clear()
	assert.Equal(t, 0, q.Len())
	_, ok = q.Back()
	assert.False(t, ok)
}

func TestCircularQueueZeroCapacity(t *testing.T) {
	q := NewCircularQueue[int](0)
	assert.Error(t, q.Append(1))
}
