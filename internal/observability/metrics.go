package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper bot.
// Metrics are organized by subsystem: events, caches, providers, mentions,
// and replies. All counters and histograms are registered via promauto
// with the default Prometheus registry.
type Metrics struct {
	// EventsTotal counts inbound chat events, labeled by dispatch outcome.
	EventsTotal *prometheus.CounterVec

	// TasksInFlight tracks worker tasks currently running.
	TasksInFlight prometheus.Gauge

	// TaskDuration observes worker task duration in seconds, labeled by request kind.
	TaskDuration *prometheus.HistogramVec

	// CacheHits counts memo cache hits, labeled by cache name.
	CacheHits *prometheus.CounterVec

	// CacheMisses counts memo cache misses, labeled by cache name.
	CacheMisses *prometheus.CounterVec

	// ProviderRequestsTotal counts requests to external providers, labeled by source and endpoint.
	ProviderRequestsTotal *prometheus.CounterVec

	// ProviderRequestsFailed counts failed provider requests, labeled by source, endpoint, and error type.
	ProviderRequestsFailed *prometheus.CounterVec

	// ProviderRequestDuration observes provider request duration in seconds.
	ProviderRequestDuration *prometheus.HistogramVec

	// MentionPagesScanned counts social search result pages consumed.
	MentionPagesScanned prometheus.Counter

	// MentionsCounted counts per-result deduplicated identifier mentions.
	MentionsCounted prometheus.Counter

	// TranslationsFailed counts translations that fell back to the original text.
	TranslationsFailed prometheus.Counter

	// RepliesPosted counts chat replies posted successfully.
	RepliesPosted prometheus.Counter

	// RepliesFailed counts chat replies that could not be posted.
	RepliesFailed prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Events
		EventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of inbound chat events by dispatch outcome",
		}, []string{"outcome"}),
		TasksInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_in_flight",
			Help:      "Number of worker tasks currently running",
		}),
		TaskDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of worker tasks in seconds by request kind",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"kind"}),

		// Caches
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of memo cache hits by cache",
		}, []string{"cache"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of memo cache misses by cache",
		}, []string{"cache"}),

		// Providers
		ProviderRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of requests to external providers",
		}, []string{"source", "endpoint"}),
		ProviderRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_failed_total",
			Help:      "Total number of failed requests to external providers",
		}, []string{"source", "endpoint", "error_type"}),
		ProviderRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of requests to external providers in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source", "endpoint"}),

		// Mentions
		MentionPagesScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mention_pages_scanned_total",
			Help:      "Total number of social search pages scanned",
		}),
		MentionsCounted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mentions_counted_total",
			Help:      "Total number of paper mentions counted",
		}),

		// Replies
		TranslationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_failed_total",
			Help:      "Total number of translations that fell back to the original text",
		}),
		RepliesPosted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_posted_total",
			Help:      "Total number of chat replies posted",
		}),
		RepliesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_failed_total",
			Help:      "Total number of chat replies that failed to post",
		}),
	}
}

// RecordEvent records the dispatch outcome of an inbound event.
func (m *Metrics) RecordEvent(outcome string) {
	m.EventsTotal.WithLabelValues(outcome).Inc()
}

// RecordTaskStarted records that a worker task has started.
func (m *Metrics) RecordTaskStarted() {
	m.TasksInFlight.Inc()
}

// RecordTaskFinished records that a worker task has finished.
func (m *Metrics) RecordTaskFinished(kind string, durationSeconds float64) {
	m.TasksInFlight.Dec()
	m.TaskDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordCacheHit records a memo cache hit.
func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a memo cache miss.
func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMisses.WithLabelValues(cache).Inc()
}

// RecordProviderRequest records a request to an external provider.
func (m *Metrics) RecordProviderRequest(source, endpoint string, durationSeconds float64) {
	m.ProviderRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.ProviderRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordProviderRequestFailed records a failed request to an external provider.
func (m *Metrics) RecordProviderRequestFailed(source, endpoint, errorType string) {
	m.ProviderRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordMentionPage records one scanned search page and the mentions it contributed.
func (m *Metrics) RecordMentionPage(mentions int) {
	m.MentionPagesScanned.Inc()
	m.MentionsCounted.Add(float64(mentions))
}

// RecordTranslationFailed records a translation fallback.
func (m *Metrics) RecordTranslationFailed() {
	m.TranslationsFailed.Inc()
}

// RecordReplyPosted records a posted reply.
func (m *Metrics) RecordReplyPosted() {
	m.RepliesPosted.Inc()
}

// RecordReplyFailed records a reply that failed to post.
func (m *Metrics) RecordReplyFailed() {
	m.RepliesFailed.Inc()
}
