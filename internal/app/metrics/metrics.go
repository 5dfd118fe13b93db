package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wager_gateway",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wager_gateway",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wager_gateway",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	votes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wager_gateway",
			Subsystem: "votes",
			Name:      "submitted_total",
			Help:      "Total number of vote submissions by outcome.",
		},
		[]string{"outcome"},
	)

	withdrawals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wager_gateway",
			Subsystem: "withdrawals",
			Name:      "submitted_total",
			Help:      "Total number of withdrawal submissions by outcome.",
		},
		[]string{"outcome"},
	)

	workerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wager_gateway",
			Subsystem: "worker",
			Name:      "calls_total",
			Help:      "Total number of settlement worker calls.",
		},
		[]string{"path", "transport_ok"},
	)

	workerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wager_gateway",
			Subsystem: "worker",
			Name:      "call_duration_seconds",
			Help:      "Duration of settlement worker calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"path"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		votes,
		withdrawals,
		workerCalls,
		workerDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// CountVote records a vote submission outcome (win, loss, error).
func CountVote(outcome string) {
	votes.WithLabelValues(outcome).Inc()
}

// CountWithdrawal records a withdrawal submission outcome (ok, error).
func CountWithdrawal(outcome string) {
	withdrawals.WithLabelValues(outcome).Inc()
}

// ObserveWorkerCall records one outbound settlement worker call.
func ObserveWorkerCall(path string, duration time.Duration, transportOK bool) {
	// Collapse per-principal paths to keep label cardinality bounded.
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	workerCalls.WithLabelValues(path, strconv.FormatBool(transportOK)).Inc()
	workerDuration.WithLabelValues(path).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "balance":
		return "/balance/:principal"
	case "games":
		return "/games/:principal"
	default:
		return "/" + parts[0]
	}
}
