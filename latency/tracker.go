package latency

import (
	"log/slog"
	"slices"
	"time"

	"github.com/oomph-ac/resim/game"
	"github.com/oomph-ac/resim/simulation"
	"github.com/oomph-ac/resim/utils"
	"github.com/samber/lo"
	"github.com/sasha-s/go-deadlock"
)

// Config is the configuration of a Tracker.
type Config struct {
	// Smoothing is the weight of a new sample in the smoothed round trip time, between 0 and 1.
	Smoothing float64
	// Window is the amount of recent samples kept to calculate jitter.
	Window int
	// Timeout is how long an acknowledgement may be outstanding before it is dropped.
	Timeout time.Duration
	// Log is the logger of the Tracker. If nil, slog.Default() is used.
	Log *slog.Logger
}

// DefaultConfig returns the default latency tracking configuration.
func DefaultConfig() Config {
	return Config{Smoothing: 0.2, Window: 20, Timeout: 10 * time.Second}
}

type connection struct {
	// pending maps the ID of every outstanding acknowledgement to the time it was sent.
	pending map[uint64]time.Time
	rtt     time.Duration
	sampled bool
	// samples holds the most recent round trip times in milliseconds.
	samples *utils.CircularQueue[float64]
}

// Tracker measures the round trip time of connections by timing acknowledgements sent to them. It implements
// simulation.LatencyProvider. A Tracker is safe for concurrent use, so acknowledgements may be handled on
// network goroutines while the simulation reads round trip times.
type Tracker struct {
	mu    deadlock.Mutex
	conf  Config
	log   *slog.Logger
	conns map[simulation.ConnectionID]*connection
}

// NewTracker creates a new Tracker.
func NewTracker(conf Config) *Tracker {
	if conf.Smoothing <= 0 || conf.Smoothing > 1 {
		conf.Smoothing = 1
	}
	if conf.Window <= 0 {
		conf.Window = 1
	}
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	return &Tracker{
		conf:  conf,
		log:   conf.Log,
		conns: make(map[simulation.ConnectionID]*connection),
	}
}

func (t *Tracker) connection(conn simulation.ConnectionID) *connection {
	c, ok := t.conns[conn]
	if !ok {
		c = &connection{
			pending: make(map[uint64]time.Time),
			samples: utils.NewCircularQueue[float64](t.conf.Window),
		}
		t.conns[conn] = c
	}
	return c
}

// Sent notes that an acknowledgement with the ID passed was sent to conn at now. Acknowledgements that have
// been outstanding for longer than the timeout are dropped.
func (t *Tracker) Sent(conn simulation.ConnectionID, id uint64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.connection(conn)
	for pendingID, sent := range c.pending {
		if t.conf.Timeout > 0 && now.Sub(sent) > t.conf.Timeout {
			delete(c.pending, pendingID)
			t.log.Debug("acknowledgement timed out", "conn", conn, "id", pendingID)
		}
	}
	c.pending[id] = now
}

// Acknowledged notes that conn acknowledged the acknowledgement with the ID passed at now, and samples its
// round trip time. False is returned if no such acknowledgement was outstanding.
func (t *Tracker) Acknowledged(conn simulation.ConnectionID, id uint64, now time.Time) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.conns[conn]
	if !ok {
		return 0, false
	}
	sent, ok := c.pending[id]
	if !ok {
		t.log.Debug("unexpected acknowledgement", "conn", conn, "id", id)
		return 0, false
	}
	delete(c.pending, id)

	rtt := max(now.Sub(sent), 0)
	t.sample(c, rtt)
	return rtt, true
}

// Record adds a round trip time measured elsewhere, such as by the transport, as a sample for conn.
func (t *Tracker) Record(conn simulation.ConnectionID, rtt time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sample(t.connection(conn), max(rtt, 0))
}

func (t *Tracker) sample(c *connection, rtt time.Duration) {
	if !c.sampled {
		c.rtt, c.sampled = rtt, true
	} else {
		c.rtt += time.Duration(float64(rtt-c.rtt) * t.conf.Smoothing)
	}
	// The oldest sample is overwritten once the window is full.
	_ = c.samples.Append(float64(rtt) / float64(time.Millisecond))
}

// Forget stops tracking conn, such as when it disconnects.
func (t *Tracker) Forget(conn simulation.ConnectionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, conn)
}

// RoundTripTime returns the smoothed round trip time of conn. Zero is returned if conn was never sampled.
func (t *Tracker) RoundTripTime(conn simulation.ConnectionID) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.conns[conn]; ok {
		return c.rtt
	}
	return 0
}

// Jitter returns the standard deviation of the recent round trip times of conn.
func (t *Tracker) Jitter(conn simulation.ConnectionID) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.statistic(conn, game.StandardDeviation)
}

// Median returns the median of the recent round trip times of conn. Unlike RoundTripTime it is not skewed by
// a single delayed acknowledgement.
func (t *Tracker) Median(conn simulation.ConnectionID) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.statistic(conn, game.Median)
}

// statistic applies fn to the recent round trip times of conn in milliseconds. It must be called with the
// lock held.
func (t *Tracker) statistic(conn simulation.ConnectionID, fn func([]float64) float64) time.Duration {
	c, ok := t.conns[conn]
	if !ok {
		return 0
	}
	samples := make([]float64, 0, c.samples.Len())
	for s := range c.samples.Iter() {
		samples = append(samples, s)
	}
	return time.Duration(fn(samples) * float64(time.Millisecond))
}

// Connections returns every tracked connection in ascending order.
func (t *Tracker) Connections() []simulation.ConnectionID {
	t.mu.Lock()
	defer t.mu.Unlock()

	conns := lo.Keys(t.conns)
	slices.Sort(conns)
	return conns
}
