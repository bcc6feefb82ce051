package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fastd/internal/services"
	"fastd/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	SetActiveElapsed(elapsed time.Duration)
	SetActiveProgress(progress float64)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	activeElapsed       prometheus.Gauge
	activeProgress      prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) SetActiveElapsed(elapsed time.Duration) {
	m.activeElapsed.Set(elapsed.Seconds())
}

func (m *MetricsProvider) SetActiveProgress(progress float64) {
	m.activeProgress.Set(progress)
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, service services.SessionServiceInterface) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fastd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fastd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fastd_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fastd_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fastd_persistence_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		activeElapsed: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fastd_active_elapsed_seconds",
			Help: "Elapsed time of the active fast, 0 when idle",
		}),

		activeProgress: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fastd_active_progress_ratio",
			Help: "Progress of the active fast toward its goal, clamped to 1",
		}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fastd_sessions_total",
		Help: "Total number of sessions in the history store",
	}, func() float64 {
		return float64(service.SessionCount())
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fastd_current_streak_days",
		Help: "Consecutive goal-met days up to today",
	}, func() float64 {
		return float64(service.Streaks().Current)
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fastd_longest_streak_days",
		Help: "Longest goal-met day streak ever observed",
	}, func() float64 {
		return float64(service.Streaks().Longest)
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fastd_session_active",
		Help: "1 while a fast is in progress",
	}, func() float64 {
		if state, _ := service.CurrentState(); state == services.StateActive {
			return 1
		}
		return 0
	})

	return m
}

type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(string, int)                  {}
func (n *noopMetrics) ObserveRequestDuration(string, time.Duration)  {}
func (n *noopMetrics) IncCacheHits()                                 {}
func (n *noopMetrics) IncCacheMisses()                               {}
func (n *noopMetrics) ObservePersistenceDuration(time.Duration)      {}
func (n *noopMetrics) SetActiveElapsed(time.Duration)                {}
func (n *noopMetrics) SetActiveProgress(float64)                     {}
