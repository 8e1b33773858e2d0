package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/analysis"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "handler", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sentinel",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"method", "handler"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by terminal status",
		},
		[]string{"country", "status"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sentinel",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of one analysis run",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"country"},
	)

	anomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "pipeline",
			Name:      "anomalies_total",
			Help:      "Total number of anomaly alerts raised",
		},
		[]string{"country", "source"},
	)
)

// Collector feeds the pipeline's run outcomes into Prometheus.
type Collector struct{}

func NewCollector() *Collector { return &Collector{} }

func (Collector) RecordRun(country string, status analysis.RunStatus, duration time.Duration) {
	runsTotal.WithLabelValues(country, status.String()).Inc()
	runDuration.WithLabelValues(country).Observe(duration.Seconds())
}

func (Collector) RecordAnomalies(country string, source analysis.AlertSource, count int) {
	if count <= 0 {
		return
	}
	anomaliesTotal.WithLabelValues(country, string(source)).Add(float64(count))
}

// RecordHTTPRequest feeds one served request into the HTTP metric family.
func RecordHTTPRequest(method, handler string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, handler, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, handler).Observe(duration.Seconds())
}

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
