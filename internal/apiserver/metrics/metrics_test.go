package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordQuery(t *testing.T) {
	m := GetQAMetrics()
	m.Reset()

	m.RecordQuery(true, nil)
	m.RecordQuery(false, nil)
	m.RecordQuery(false, errors.New("boom"))

	stats := m.Stats()
	queries := stats["queries"].(map[string]any)
	assert.Equal(t, uint64(3), queries["total"])
	assert.Equal(t, uint64(1), queries["cache_hits"])
	assert.Equal(t, uint64(1), queries["cache_misses"])
	assert.Equal(t, uint64(1), queries["errors"])
	assert.InDelta(t, 0.5, queries["cache_hit_rate"].(float64), 1e-9)
}

func TestRecordRetrieval(t *testing.T) {
	m := GetQAMetrics()
	m.Reset()

	m.RecordRetrieval(100*time.Millisecond, 3, nil)
	m.RecordRetrieval(50*time.Millisecond, 0, nil)
	m.RecordRetrieval(0, 0, errors.New("milvus down"))

	stats := m.Stats()
	retrieval := stats["retrieval"].(map[string]any)
	assert.Equal(t, uint64(3), retrieval["total"])
	assert.Equal(t, uint64(1), retrieval["empty"])
	assert.Equal(t, uint64(1), retrieval["errors"])
	assert.InDelta(t, 0.15, retrieval["total_duration_secs"].(float64), 1e-6)
}

func TestRecordAnswerValidation(t *testing.T) {
	m := GetQAMetrics()
	m.Reset()

	m.RecordAnswerValidation(true)
	m.RecordAnswerValidation(true)
	m.RecordAnswerValidation(false)

	stats := m.Stats()
	answers := stats["answers"].(map[string]any)
	assert.Equal(t, uint64(2), answers["valid"])
	assert.Equal(t, uint64(1), answers["invalid"])
}

func TestExport(t *testing.T) {
	m := GetQAMetrics()
	m.Reset()

	m.RecordQuery(false, nil)
	m.RecordIndexing(2, 10, nil)

	out := m.Export("hanq", "qa")
	require.NotEmpty(t, out)
	assert.Contains(t, out, "hanq_qa_queries_total 1")
	assert.Contains(t, out, "hanq_qa_documents_indexed_total 2")
	assert.Contains(t, out, "hanq_qa_chunks_indexed_total 10")
	assert.Contains(t, out, "# TYPE hanq_qa_queries_total counter")
	assert.True(t, strings.Contains(out, "hanq_qa_uptime_seconds"))
}
