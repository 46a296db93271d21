package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveChat(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveChat("text", nil, 12, 30)
	m.ObserveChat("text", nil, 0, 0)
	m.ObserveChat("image_generation", errors.New("no image"), 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChatRequests.WithLabelValues("text", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatRequests.WithLabelValues("image_generation", "error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.Tokens.WithLabelValues("prompt", "text")))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.Tokens.WithLabelValues("completion", "text")))
}

func TestCleanupCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveScheduled("generated_image")
	m.ObserveDeletion("generated_image", "deleted")
	m.ObserveDeletion("generated_image", "failed")
	m.ObservePoll("PROCESSING")
	m.ObserveExtraction(3 * time.Second)
	m.ObserveHTTP("GET", "/health", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CleanupScheduled.WithLabelValues("generated_image")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CleanupDeletions.WithLabelValues("generated_image", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionPolls.WithLabelValues("PROCESSING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/health", "200")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveChat("text", nil, 1, 1)
		m.ObserveScheduled("x")
		m.ObserveDeletion("x", "deleted")
		m.ObservePoll("ACTIVE")
		m.ObserveExtraction(time.Second)
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})
}
