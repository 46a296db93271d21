// Package metrics holds the Prometheus instruments of the service.
//
// All methods are safe to call on a nil *Metrics, which disables recording.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "imagexbot"

// Metrics groups the counters and histograms exported on /metrics.
type Metrics struct {
	// ChatRequests counts /upload requests.
	// Labels: mode (text, code, image_generation, image_analysis), status (success, error)
	ChatRequests *prometheus.CounterVec

	// Tokens counts provider-reported tokens.
	// Labels: direction (prompt, completion), mode
	Tokens *prometheus.CounterVec

	// CleanupScheduled counts armed deletions by artifact kind.
	CleanupScheduled *prometheus.CounterVec

	// CleanupDeletions counts attempted deletions.
	// Labels: kind, result (deleted, missing, failed)
	CleanupDeletions *prometheus.CounterVec

	// ExtractionPolls counts file status polls by observed state.
	ExtractionPolls *prometheus.CounterVec

	// ExtractionDuration measures whole statement extractions.
	ExtractionDuration prometheus.Histogram

	// HTTPRequests counts served requests by method, route and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration measures request latency by method and route.
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		ChatRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat requests by mode and status",
		}, []string{"mode", "status"}),
		Tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "tokens_total",
			Help:      "Provider reported tokens by direction and mode",
		}, []string{"direction", "mode"}),
		CleanupScheduled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "scheduled_total",
			Help:      "Deferred deletions armed by artifact kind",
		}, []string{"kind"}),
		CleanupDeletions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "deletions_total",
			Help:      "Deferred deletions attempted by artifact kind and result",
		}, []string{"kind", "result"}),
		ExtractionPolls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "polls_total",
			Help:      "Uploaded file status polls by observed state",
		}, []string{"state"}),
		ExtractionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "duration_seconds",
			Help:      "Duration of statement extractions",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveChat records one chat request and its token usage.
func (m *Metrics) ObserveChat(mode string, err error, promptTokens, completionTokens int64) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ChatRequests.WithLabelValues(mode, status).Inc()
	if promptTokens > 0 {
		m.Tokens.WithLabelValues("prompt", mode).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.Tokens.WithLabelValues("completion", mode).Add(float64(completionTokens))
	}
}

// ObserveScheduled records an armed deletion.
func (m *Metrics) ObserveScheduled(kind string) {
	if m == nil {
		return
	}
	m.CleanupScheduled.WithLabelValues(kind).Inc()
}

// ObserveDeletion records the outcome of a deletion attempt.
func (m *Metrics) ObserveDeletion(kind, result string) {
	if m == nil {
		return
	}
	m.CleanupDeletions.WithLabelValues(kind, result).Inc()
}

// ObservePoll records one file status poll.
func (m *Metrics) ObservePoll(state string) {
	if m == nil {
		return
	}
	m.ExtractionPolls.WithLabelValues(state).Inc()
}

// ObserveExtraction records the duration of a statement extraction.
func (m *Metrics) ObserveExtraction(d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionDuration.Observe(d.Seconds())
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
