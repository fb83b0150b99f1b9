package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_paperbot_new")

	assert.NotNil(t, m.EventsTotal)
	assert.NotNil(t, m.TasksInFlight)
	assert.NotNil(t, m.TaskDuration)
	assert.NotNil(t, m.CacheHits)
	assert.NotNil(t, m.CacheMisses)
	assert.NotNil(t, m.ProviderRequestsTotal)
	assert.NotNil(t, m.ProviderRequestsFailed)
	assert.NotNil(t, m.ProviderRequestDuration)
	assert.NotNil(t, m.MentionPagesScanned)
	assert.NotNil(t, m.MentionsCounted)
	assert.NotNil(t, m.TranslationsFailed)
	assert.NotNil(t, m.RepliesPosted)
	assert.NotNil(t, m.RepliesFailed)
}

func TestRecordEvent(t *testing.T) {
	m := NewMetrics("test_record_event")

	m.RecordEvent("dispatched_top")
	m.RecordEvent("dispatched_top")
	m.RecordEvent("ignored")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.EventsTotal.WithLabelValues("dispatched_top")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsTotal.WithLabelValues("ignored")))
}

func TestRecordTask(t *testing.T) {
	m := NewMetrics("test_record_task")

	m.RecordTaskStarted()
	m.RecordTaskStarted()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.TasksInFlight))

	m.RecordTaskFinished("single", 1.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TasksInFlight))

	histCount, err := getHistogramSampleCount(m.TaskDuration.WithLabelValues("single").(prometheus.Histogram))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordCache(t *testing.T) {
	m := NewMetrics("test_record_cache")

	m.RecordCacheHit("metadata")
	m.RecordCacheMiss("metadata")
	m.RecordCacheMiss("metadata")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits.WithLabelValues("metadata")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheMisses.WithLabelValues("metadata")))
}

func TestRecordProviderRequest(t *testing.T) {
	m := NewMetrics("test_provider_request")

	m.RecordProviderRequest("arxiv", "query", 0.3)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderRequestsTotal.WithLabelValues("arxiv", "query")))

	m.RecordProviderRequestFailed("arxiv", "query", "status_503")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderRequestsFailed.WithLabelValues("arxiv", "query", "status_503")))
}

func TestRecordMentionPage(t *testing.T) {
	m := NewMetrics("test_mention_page")

	m.RecordMentionPage(7)
	m.RecordMentionPage(3)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.MentionPagesScanned))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.MentionsCounted))
}

func TestRecordReplies(t *testing.T) {
	m := NewMetrics("test_record_replies")

	m.RecordReplyPosted()
	m.RecordReplyFailed()
	m.RecordTranslationFailed()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RepliesPosted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RepliesFailed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TranslationsFailed))
}

func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
