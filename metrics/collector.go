package metrics

import (
	"time"

	"github.com/oomph-ac/resim/simulation"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports what a simulation.Manager observes as prometheus metrics.
type Collector struct {
	ticks            prometheus.Counter
	tickDuration     prometheus.Histogram
	resimulations    prometheus.Counter
	resimulatedTicks prometheus.Histogram
	lagCompensations prometheus.Counter
	lagCompRequests  prometheus.Counter
	lagCompConns     prometheus.Histogram
	callbackFailures *prometheus.CounterVec
	evictions        prometheus.Counter
	oldestTick       prometheus.Gauge
}

// NewCollector creates a Collector. Every metric carries a peer label holding the value passed, so the metrics
// of a server and client simulation in the same process can be told apart.
func NewCollector(peer string) *Collector {
	labels := prometheus.Labels{"peer": peer}
	return &Collector{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "resim_ticks_total",
			Help:        "Live ticks advanced",
			ConstLabels: labels,
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "resim_tick_duration_seconds",
			Help:        "Time taken to advance a tick, including resimulation and lag compensation",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
		resimulations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "resim_resimulations_total",
			Help:        "Resimulations run",
			ConstLabels: labels,
		}),
		resimulatedTicks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "resim_resimulated_ticks",
			Help:        "Ticks replayed per resimulation",
			ConstLabels: labels,
			Buckets:     prometheus.LinearBuckets(0, 5, 13),
		}),
		lagCompensations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "resim_lag_compensations_total",
			Help:        "Ticks on which lag compensation ran",
			ConstLabels: labels,
		}),
		lagCompRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "resim_lag_compensation_requests_total",
			Help:        "Lag compensated checks run",
			ConstLabels: labels,
		}),
		lagCompConns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "resim_lag_compensation_connections",
			Help:        "Connections rolled back per lag compensated tick",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 8),
		}),
		callbackFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "resim_callback_failures_total",
			Help:        "Subscriber callbacks that panicked, by phase",
			ConstLabels: labels,
		}, []string{"phase"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "resim_history_evictions_total",
			Help:        "Ticks evicted from the tick history",
			ConstLabels: labels,
		}),
		oldestTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "resim_history_oldest_tick",
			Help:        "Oldest tick left in the tick history after the last eviction",
			ConstLabels: labels,
		}),
	}
}

// Register registers every metric of the collector.
func (c *Collector) Register(r prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{
		c.ticks, c.tickDuration,
		c.resimulations, c.resimulatedTicks,
		c.lagCompensations, c.lagCompRequests, c.lagCompConns,
		c.callbackFailures,
		c.evictions, c.oldestTick,
	} {
		if err := r.Register(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) ObserveTick(d time.Duration) {
	c.ticks.Inc()
	c.tickDuration.Observe(d.Seconds())
}

func (c *Collector) ObserveResimulation(ticks int) {
	c.resimulations.Inc()
	c.resimulatedTicks.Observe(float64(ticks))
}

func (c *Collector) ObserveLagCompensation(connections, requests int) {
	c.lagCompensations.Inc()
	c.lagCompRequests.Add(float64(requests))
	c.lagCompConns.Observe(float64(connections))
}

func (c *Collector) ObserveCallbackFailure(phase string) {
	c.callbackFailures.WithLabelValues(phase).Inc()
}

func (c *Collector) ObserveHistoryEviction(tick uint64) {
	c.evictions.Inc()
	c.oldestTick.Set(float64(tick + 1))
}

var _ simulation.Observer = (*Collector)(nil)
