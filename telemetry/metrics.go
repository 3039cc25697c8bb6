package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports swarm counters to Prometheus. A nil *Metrics is a no-op.
type Metrics struct {
	reg *prometheus.Registry

	Ticks      prometheus.Counter
	Dispatches prometheus.Counter
	Resets     prometheus.Counter
	Agents     prometheus.Gauge
	TickTime   prometheus.Histogram
	PhaseTime  *prometheus.HistogramVec
	SpeedMean  prometheus.Gauge
	OutOfRange prometheus.Gauge
	Spread     prometheus.Gauge
}

// NewMetrics registers the swarm metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "fishflock_ticks_total",
			Help: "Simulation ticks completed",
		}),
		Dispatches: f.NewCounter(prometheus.CounterOpts{
			Name: "fishflock_dispatches_total",
			Help: "Flocking kernel dispatches submitted",
		}),
		Resets: f.NewCounter(prometheus.CounterOpts{
			Name: "fishflock_resets_total",
			Help: "Buffer allocations including the initial one",
		}),
		Agents: f.NewGauge(prometheus.GaugeOpts{
			Name: "fishflock_agents",
			Help: "Agents in the current buffers",
		}),
		TickTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fishflock_tick_seconds",
			Help:    "Wall time of one simulation tick",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		PhaseTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fishflock_phase_seconds",
			Help:    "Wall time of each tick phase",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		}, []string{"phase"}),
		SpeedMean: f.NewGauge(prometheus.GaugeOpts{
			Name: "fishflock_speed_mean",
			Help: "Mean smoothed speed at the last stats window",
		}),
		OutOfRange: f.NewGauge(prometheus.GaugeOpts{
			Name: "fishflock_speed_out_of_range",
			Help: "Agents outside the speed range at the last stats window",
		}),
		Spread: f.NewGauge(prometheus.GaugeOpts{
			Name: "fishflock_spread",
			Help: "Mean distance to the school centroid at the last stats window",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveTick records one completed tick.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.Dispatches.Inc()
	m.TickTime.Observe(d.Seconds())
}

// ObservePhases records the average phase durations of a perf window.
func (m *Metrics) ObservePhases(s PerfStats) {
	if m == nil {
		return
	}
	for _, pt := range s.Phases {
		if pt.Avg > 0 {
			m.PhaseTime.WithLabelValues(string(pt.Phase)).Observe(pt.Avg.Seconds())
		}
	}
}

// ObserveReset records a buffer (re)allocation of n agents.
func (m *Metrics) ObserveReset(n int) {
	if m == nil {
		return
	}
	m.Resets.Inc()
	m.Agents.Set(float64(n))
}

// ObserveStats publishes the gauges of a stats window.
func (m *Metrics) ObserveStats(s WindowStats) {
	if m == nil {
		return
	}
	m.SpeedMean.Set(s.SpeedMean)
	m.OutOfRange.Set(float64(s.OutOfRange))
	m.Spread.Set(s.Spread)
}
