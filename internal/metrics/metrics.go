// Package metrics collects and exposes Prometheus metrics for the question
// pipeline and document exports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the metric hooks consumed by the service layer.
type Collector struct {
	chunksProcessed    prometheus.Counter
	chunkFailures      prometheus.Counter
	completionLatency  prometheus.Histogram
	questionsGenerated prometheus.Counter
	exports            *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		chunksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studyprep_chunks_processed_total",
			Help: "Total number of text chunks sent through the question pipeline.",
		}),
		chunkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studyprep_chunk_failures_total",
			Help: "Total number of chunks that failed completion or parsing.",
		}),
		completionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "studyprep_completion_latency_seconds",
			Help:    "Latency of chat completion calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		questionsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studyprep_questions_generated_total",
			Help: "Total number of questions produced after normalization.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyprep_exports_total",
			Help: "Document exports by output format.",
		}, []string{"format"}),
	}

	reg.MustRegister(
		c.chunksProcessed,
		c.chunkFailures,
		c.completionLatency,
		c.questionsGenerated,
		c.exports,
	)

	return c
}

// RecordChunkProcessed counts one chunk handed to the model.
func (c *Collector) RecordChunkProcessed() {
	c.chunksProcessed.Inc()
}

// RecordChunkFailure counts one chunk whose completion or parse failed.
func (c *Collector) RecordChunkFailure() {
	c.chunkFailures.Inc()
}

// RecordCompletionLatency records how long one chat completion call took.
func (c *Collector) RecordCompletionLatency(duration time.Duration) {
	c.completionLatency.Observe(duration.Seconds())
}

// RecordQuestionsGenerated counts questions that survived normalization.
func (c *Collector) RecordQuestionsGenerated(count int) {
	c.questionsGenerated.Add(float64(count))
}

// RecordExport counts one rendered download in the given format.
func (c *Collector) RecordExport(format string) {
	c.exports.WithLabelValues(format).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
