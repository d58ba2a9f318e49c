package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/secantlab/internal/secant"
)

// Collector exports solver activity as Prometheus metrics. A nil
// *Collector is valid and records nothing.
type Collector struct {
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	iterations  prometheus.Histogram
	cycles      prometheus.Counter
	roots       prometheus.Gauge
	searches    prometheus.Counter
	searchTime  prometheus.Histogram
	sensitivity *prometheus.CounterVec
}

// NewCollector registers the solver metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "secant_runs_total",
			Help: "Total secant runs by strategy and outcome",
		}, []string{"strategy", "converged"}),

		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "secant_run_duration_seconds",
			Help:    "Secant run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}),

		iterations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "secant_run_iterations",
			Help:    "Iterations per secant run",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
		}),

		cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "secant_cycle_resets_total",
			Help: "Total cycle-triggered resets",
		}),

		roots: f.NewGauge(prometheus.GaugeOpts{
			Name: "secant_unique_roots",
			Help: "Unique roots in the global registry",
		}),

		searches: f.NewCounter(prometheus.CounterOpts{
			Name: "secant_grid_searches_total",
			Help: "Total grid searches",
		}),

		searchTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "secant_grid_search_duration_seconds",
			Help:    "Grid search duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),

		sensitivity: f.NewCounterVec(prometheus.CounterOpts{
			Name: "secant_sensitivity_scans_total",
			Help: "Total sensitivity scans by stability class",
		}, []string{"stability"}),
	}
}

func (c *Collector) ObserveRun(res *secant.RunResult) {
	if c == nil || res == nil {
		return
	}
	c.runs.WithLabelValues(res.Config.Strategy.String(), strconv.FormatBool(res.Converged)).Inc()
	c.duration.Observe(res.Elapsed.Seconds())
	c.iterations.Observe(float64(res.Iterations))
	c.cycles.Add(float64(res.Cycles))
}

func (c *Collector) SetRoots(n int) {
	if c == nil {
		return
	}
	c.roots.Set(float64(n))
}

func (c *Collector) ObserveSearch(elapsed time.Duration) {
	if c == nil {
		return
	}
	c.searches.Inc()
	c.searchTime.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveSensitivity(stability string) {
	if c == nil {
		return
	}
	c.sensitivity.WithLabelValues(stability).Inc()
}
