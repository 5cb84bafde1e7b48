package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "pedago"

// Catalog fetch outcomes.
const (
	CatalogOutcomeOK    = "ok"
	CatalogOutcomeEmpty = "empty"
	CatalogOutcomeError = "error"
	CatalogOutcomeStale = "stale"
)

// MetricsService owns the Prometheus registry of the API process.
type MetricsService struct {
	handler http.Handler

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec
	httpErrors   *prometheus.CounterVec

	cacheLookups *prometheus.HistogramVec
	cacheWrites  prometheus.Histogram
	dbQueries    *prometheus.HistogramVec

	catalogFetches *prometheus.HistogramVec
	transitions    *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	sessions       prometheus.Gauge
}

// NewMetricsService registers the HTTP, cache, database and wizard collectors.
// Cache hit ratio is derived from pedago_cache_lookup_seconds_count{result}.
func NewMetricsService() *MetricsService {
	httpLabels := []string{"method", "path", "status"}
	m := &MetricsService{
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, httpLabels),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served.",
		}, httpLabels),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Error envelopes by route and application error code.",
		}, []string{"path", "code"}),
		cacheLookups: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookup_seconds",
			Help:      "Catalog cache lookups by result.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"result"}),
		cacheWrites: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "write_seconds",
			Help:      "Catalog cache writes.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		dbQueries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "query_seconds",
			Help:      "Database query latency by query name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		catalogFetches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "wizard",
			Name:      "catalog_fetch_seconds",
			Help:      "Module catalog loads by outcome. Stale loads finished after a newer request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "wizard",
			Name:      "transitions_total",
			Help:      "Step navigation attempts by action and result.",
		}, []string{"action", "result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "wizard",
			Name:      "submissions_total",
			Help:      "Pre-contract submissions forwarded by result.",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "wizard",
			Name:      "sessions_active",
			Help:      "Wizard sessions held in memory.",
		}),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration, m.httpTotal, m.httpErrors,
		m.cacheLookups, m.cacheWrites, m.dbQueries,
		m.catalogFetches, m.transitions, m.submissions, m.sessions,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, path, code).Inc()
}

// RecordHTTPError counts an error envelope, such as a refused wizard step.
func (m *MetricsService) RecordHTTPError(path, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(path, code).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Observe(duration.Seconds())
}

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(duration.Seconds())
}

func (m *MetricsService) ObserveDBQuery(query string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueries.WithLabelValues(query).Observe(duration.Seconds())
}

// ObserveCatalogFetch records a catalog load and how its result was applied.
func (m *MetricsService) ObserveCatalogFetch(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.catalogFetches.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordTransition counts a wizard navigation attempt.
func (m *MetricsService) RecordTransition(action string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, resultLabel(err)).Inc()
}

// RecordSubmission counts a forwarded submission.
func (m *MetricsService) RecordSubmission(err error) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(resultLabel(err)).Inc()
}

// SetActiveSessions publishes the live session count.
func (m *MetricsService) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func resultLabel(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
