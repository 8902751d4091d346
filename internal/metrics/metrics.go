// Package metrics holds the Prometheus collectors for preview traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups the preview collectors. A nil *Metrics records nothing.
type Metrics struct {
	Previews         *prometheus.CounterVec
	PreviewDuration  *prometheus.HistogramVec
	ChunksPerPreview prometheus.Histogram
	TokensEstimated  prometheus.Counter
	CacheLookups     *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Previews: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunklab",
			Name:      "previews_total",
			Help:      "Preview requests by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		PreviewDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chunklab",
			Name:      "preview_duration_seconds",
			Help:      "Time spent chunking a preview request.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"strategy"}),
		ChunksPerPreview: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chunklab",
			Name:      "chunks_per_preview",
			Help:      "Number of chunks returned per successful preview.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		TokensEstimated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "chunklab",
			Name:      "tokens_estimated_total",
			Help:      "Sum of estimated tokens over all returned chunks.",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunklab",
			Name:      "cache_lookups_total",
			Help:      "Preview cache lookups by result.",
		}, []string{"result"}),
	}
}

// ObservePreview records one preview. chunks and tokens are ignored on error.
func (m *Metrics) ObservePreview(strategy string, elapsed time.Duration, chunks, tokens int, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.Previews.WithLabelValues(strategy, outcome).Inc()
	m.PreviewDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if err == nil {
		m.ChunksPerPreview.Observe(float64(chunks))
		m.TokensEstimated.Add(float64(tokens))
	}
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheLookups.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}
