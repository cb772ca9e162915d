// Package metrics exposes Prometheus collectors for the lifecycle sweep,
// discovery searches and the HTTP API.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dealscout/dealscout/internal/discovery"
	"github.com/dealscout/dealscout/internal/model"
)

// Metrics holds every collector on a private registry so tests can build
// as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	DealsTransitionedTotal *prometheus.CounterVec
	SweepDuration          prometheus.Histogram
	SweepFailedPhasesTotal prometheus.Counter
	LastSweepTimestamp     prometheus.Gauge

	SearchesTotal  *prometheus.CounterVec
	SearchDuration *prometheus.HistogramVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		DealsTransitionedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealscout_deals_transitioned_total",
				Help: "Deals moved by the lifecycle sweep, by source and target status.",
			},
			[]string{"from", "to"},
		),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dealscout_lifecycle_sweep_duration_seconds",
			Help:    "Wall time of one lifecycle sweep.",
			Buckets: prometheus.DefBuckets,
		}),
		SweepFailedPhasesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "dealscout_lifecycle_failed_phases_total",
			Help: "Lifecycle phases that failed and were left for the next tick.",
		}),
		LastSweepTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "dealscout_lifecycle_last_sweep_timestamp_seconds",
			Help: "Unix time the last lifecycle sweep finished.",
		}),

		SearchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealscout_discovery_searches_total",
				Help: "Discovery searches by type and outcome (ok, invalid, error).",
			},
			[]string{"type", "outcome"},
		),
		SearchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dealscout_discovery_search_duration_seconds",
				Help:    "Discovery search latency including hydration.",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"type"},
		),

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealscout_http_requests_total",
				Help: "HTTP requests by route pattern, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dealscout_http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// DealsTransitioned implements lifecycle.Recorder.
func (m *Metrics) DealsTransitioned(from, to model.DealStatus, n int64) {
	m.DealsTransitionedTotal.WithLabelValues(string(from), string(to)).Add(float64(n))
}

// SweepFinished implements lifecycle.Recorder.
func (m *Metrics) SweepFinished(d time.Duration, failedPhases int) {
	m.SweepDuration.Observe(d.Seconds())
	m.SweepFailedPhasesTotal.Add(float64(failedPhases))
	m.LastSweepTimestamp.SetToCurrentTime()
}

// SearchCompleted implements discovery.Recorder.
func (m *Metrics) SearchCompleted(mode discovery.Mode, d time.Duration, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, discovery.ErrInvalidQuery):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	label := string(mode)
	if label == "" {
		label = string(discovery.ModeBoth)
	}
	m.SearchesTotal.WithLabelValues(label, outcome).Inc()
	if err == nil {
		m.SearchDuration.WithLabelValues(label).Observe(d.Seconds())
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, code int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
