package observability

import (
	"time"

	"github.com/echoease/echoease-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the EchoEase core service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	utterancesTotal *prometheus.CounterVec
	recordsTotal    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "echoease_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echoease_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echoease_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echoease_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echoease_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		utterancesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echoease_utterances_total",
				Help: "Total utterances processed through the pipeline.",
			},
			[]string{"status"},
		),
		recordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echoease_records_total",
				Help: "Total fan-out record creates by kind and outcome.",
			},
			[]string{"kind", "status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrUtterance increments the utterance counter with a status label.
func (m *Metrics) IncrUtterance(status string) {
	m.utterancesTotal.WithLabelValues(status).Inc()
}

// IncrRecord increments the fan-out record counter.
func (m *Metrics) IncrRecord(kind, status string) {
	m.recordsTotal.WithLabelValues(kind, status).Inc()
}

// GetPipelineSnapshot returns a snapshot of pipeline metrics suitable for
// the GET /v1/metrics/pipeline endpoint.
func (m *Metrics) GetPipelineSnapshot() *domain.PipelineStats {
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	totalUtterances := getCounterValue(m.utterancesTotal, "success") +
		getCounterValue(m.utterancesTotal, "error")
	errorCount := getCounterValue(m.utterancesTotal, "error")
	cacheHits := getCounterValue(m.cacheHits, "categories")
	cacheMisses := getCounterValue(m.cacheMisses, "categories")

	var recordsCreated, recordsFailed float64
	for _, kind := range []string{"schedule", "finance", "mood", "other", "category"} {
		recordsCreated += getCounterValue(m.recordsTotal, kind, "success")
		recordsFailed += getCounterValue(m.recordsTotal, kind, "error")
	}

	avgTokens := float64(0)
	errorRate := float64(0)
	cacheHitRate := float64(0)

	if totalUtterances > 0 {
		avgTokens = (promptTokens + completionTokens) / totalUtterances
		errorRate = errorCount / totalUtterances
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.PipelineStats{
		TotalUtterances:     int64(totalUtterances),
		ErrorRate:           errorRate,
		RecordsCreated:      int64(recordsCreated),
		RecordsFailed:       int64(recordsFailed),
		AvgTokensPerRequest: avgTokens,
		CacheHitRate:        cacheHitRate,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
