package latency

import (
	"sync"
	"testing"
	"time"

	"github.com/oomph-ac/resim/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcknowledgementRoundTrip(t *testing.T) {
	tr := NewTracker(Config{Smoothing: 1, Window: 4, Timeout: time.Second})
	start := time.Unix(100, 0)

	tr.Sent(1, 7, start)
	_, ok := tr.Acknowledged(1, 8, start.Add(time.Millisecond))
	assert.False(t, ok)
	_, ok = tr.Acknowledged(2, 7, start.Add(time.Millisecond))
	assert.False(t, ok)

	rtt, ok := tr.Acknowledged(1, 7, start.Add(80*time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, 80*time.Millisecond, rtt)
	assert.Equal(t, 80*time.Millisecond, tr.RoundTripTime(1))

	_, ok = tr.Acknowledged(1, 7, start.Add(90*time.Millisecond))
	assert.False(t, ok, "an acknowledgement can only be received once")
}

func TestSmoothing(t *testing.T) {
	tr := NewTracker(Config{Smoothing: 0.5, Window: 4})
	tr.Record(1, 100*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, tr.RoundTripTime(1))

	tr.Record(1, 200*time.Millisecond)
	assert.Equal(t, 150*time.Millisecond, tr.RoundTripTime(1))
	assert.Equal(t, 50*time.Millisecond, tr.Jitter(1))
}

func TestMedian(t *testing.T) {
	tr := NewTracker(Config{Smoothing: 0.5, Window: 4})
	for _, rtt := range []time.Duration{40, 400, 60, 50} {
		tr.Record(1, rtt*time.Millisecond)
	}
	assert.Equal(t, 55*time.Millisecond, tr.Median(1))

	// The oldest sample is replaced once the window is full.
	tr.Record(1, 70*time.Millisecond)
	assert.Equal(t, 65*time.Millisecond, tr.Median(1))
	assert.Zero(t, tr.Median(2))
}

func TestTimeout(t *testing.T) {
	tr := NewTracker(Config{Smoothing: 1, Window: 4, Timeout: time.Second})
	start := time.Unix(100, 0)

	tr.Sent(1, 1, start)
	tr.Sent(1, 2, start.Add(2*time.Second))
	_, ok := tr.Acknowledged(1, 1, start.Add(2*time.Second))
	assert.False(t, ok)
	_, ok = tr.Acknowledged(1, 2, start.Add(2*time.Second+30*time.Millisecond))
	assert.True(t, ok)
}

func TestForget(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	tr.Record(3, 50*time.Millisecond)
	tr.Record(1, 50*time.Millisecond)
	assert.Equal(t, []simulation.ConnectionID{1, 3}, tr.Connections())

	tr.Forget(3)
	assert.Equal(t, []simulation.ConnectionID{1}, tr.Connections())
	assert.Zero(t, tr.RoundTripTime(3))
	assert.Zero(t, tr.Jitter(3))
}

func TestConcurrentUse(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	start := time.Unix(100, 0)

	var wg sync.WaitGroup
	for conn := simulation.ConnectionID(0); conn < 4; conn++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := uint64(0); id < 100; id++ {
				tr.Sent(conn, id, start)
				tr.Acknowledged(conn, id, start.Add(time.Duration(conn)*10*time.Millisecond))
				_ = tr.RoundTripTime(conn)
			}
		}()
	}
	wg.Wait()

	for conn := simulation.ConnectionID(0); conn < 4; conn++ {
		assert.Equal(t, time.Duration(conn)*10*time.Millisecond, tr.RoundTripTime(conn))
	}
}

var _ simulation.LatencyProvider = (*Tracker)(nil)
