// Package metrics holds the Prometheus metrics exported by lottolab.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every engine and HTTP metric on a private registry
type Metrics struct {
	registry *prometheus.Registry

	CorrelationBuilds   *prometheus.CounterVec
	CorrelationDuration prometheus.Histogram

	GeneticRuns        *prometheus.CounterVec
	GeneticGenerations prometheus.Counter
	GeneticRepairs     prometheus.Counter

	Backtests      *prometheus.CounterVec
	BacktestTrials prometheus.Counter

	JobRuns *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		CorrelationBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottolab_correlation_builds_total",
				Help: "Correlation map requests by lottery and cache outcome",
			},
			[]string{"lottery", "cache"},
		),
		CorrelationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lottolab_correlation_build_seconds",
				Help:    "Time to produce a correlation map, cache lookups included",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),

		GeneticRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottolab_genetic_runs_total",
				Help: "Genetic optimizer runs by lottery and status",
			},
			[]string{"lottery", "status"},
		),
		GeneticGenerations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lottolab_genetic_generations_total",
				Help: "Generations evolved across all optimizer runs",
			},
		),
		GeneticRepairs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lottolab_genetic_repairs_total",
				Help: "Chromosomes repaired after crossover or mutation",
			},
		),

		Backtests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottolab_backtests_total",
				Help: "Backtest runs by strategy and status",
			},
			[]string{"strategy", "status"},
		),
		BacktestTrials: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lottolab_backtest_trials_total",
				Help: "Predictions evaluated across all backtests",
			},
		),

		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottolab_job_runs_total",
				Help: "Scheduled job runs by job and status",
			},
			[]string{"job", "status"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lottolab_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lottolab_http_request_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CorrelationBuilds,
		m.CorrelationDuration,
		m.GeneticRuns,
		m.GeneticGenerations,
		m.GeneticRepairs,
		m.Backtests,
		m.BacktestTrials,
		m.JobRuns,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// Registry exposes the underlying registry (tests gather from it)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCorrelation records one correlation map request
func (m *Metrics) ObserveCorrelation(lottery string, cacheHit bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "miss"
	if cacheHit {
		outcome = "hit"
	}
	m.CorrelationBuilds.WithLabelValues(lottery, outcome).Inc()
	m.CorrelationDuration.Observe(elapsed.Seconds())
}

// ObserveGenetic records one optimizer run
func (m *Metrics) ObserveGenetic(lottery string, generations, repairs int, err error) {
	if m == nil {
		return
	}
	m.GeneticRuns.WithLabelValues(lottery, status(err)).Inc()
	m.GeneticGenerations.Add(float64(generations))
	m.GeneticRepairs.Add(float64(repairs))
}

// ObserveBacktest records one backtest run
func (m *Metrics) ObserveBacktest(strategy string, trials int, err error) {
	if m == nil {
		return
	}
	m.Backtests.WithLabelValues(strategy, status(err)).Inc()
	m.BacktestTrials.Add(float64(trials))
}

// ObserveJob records one scheduled job run
func (m *Metrics) ObserveJob(job string, err error) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, status(err)).Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
