// Package metrics collects business metrics for the QA service.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// QAMetrics holds counters for the question answering pipeline.
type QAMetrics struct {
	// query counters
	queriesTotal       uint64
	queriesCacheHits   uint64
	queriesCacheMisses uint64
	queriesErrors      uint64

	// retrieval counters
	retrievalTotal    uint64
	retrievalDuration float64 // seconds
	retrievalErrors   uint64
	retrievalEmpty    uint64 // searches with no hit passing the quality gate

	// LLM call counters
	llmCallsTotal    uint64
	llmCallsDuration float64 // seconds
	llmCallsErrors   uint64

	// answer validation counters
	answersValid   uint64
	answersInvalid uint64

	// indexing counters
	documentsIndexed uint64
	chunksIndexed    uint64
	indexErrors      uint64

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	globalQAMetrics *QAMetrics
	qaMetricsOnce   sync.Once
)

// GetQAMetrics returns the process-wide metrics instance.
func GetQAMetrics() *QAMetrics {
	qaMetricsOnce.Do(func() {
		globalQAMetrics = &QAMetrics{
			startTime: time.Now(),
		}
	})
	return globalQAMetrics
}

// RecordQuery records one query, split by cache hit and error.
func (m *QAMetrics) RecordQuery(cacheHit bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	} else {
		atomic.AddUint64(&m.queriesCacheMisses, 1)
	}
}

// RecordRetrieval records one retrieval round trip.
func (m *QAMetrics) RecordRetrieval(duration time.Duration, resultCount int, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}
	if resultCount == 0 {
		atomic.AddUint64(&m.retrievalEmpty, 1)
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall records one chat completion round trip.
func (m *QAMetrics) RecordLLMCall(duration time.Duration, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordAnswerValidation records the outcome of answer quality validation.
func (m *QAMetrics) RecordAnswerValidation(valid bool) {
	if valid {
		atomic.AddUint64(&m.answersValid, 1)
	} else {
		atomic.AddUint64(&m.answersInvalid, 1)
	}
}

// RecordIndexing records an indexing batch.
func (m *QAMetrics) RecordIndexing(documents, chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.indexErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIndexed, uint64(documents))
	atomic.AddUint64(&m.chunksIndexed, uint64(chunks))
}

// counter appends one Prometheus counter with HELP and TYPE lines.
func counter(sb *strings.Builder, prefix, name, help string, value uint64) {
	sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
	sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", prefix, name))
	sb.WriteString(fmt.Sprintf("%s_%s %d\n\n", prefix, name, value))
}

func gauge(sb *strings.Builder, prefix, name, help string, value float64) {
	sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
	sb.WriteString(fmt.Sprintf("# TYPE %s_%s gauge\n", prefix, name))
	sb.WriteString(fmt.Sprintf("%s_%s %.6f\n\n", prefix, name, value))
}

// Export renders the counters in Prometheus text exposition format.
func (m *QAMetrics) Export(namespace, subsystem string) string {
	var sb strings.Builder
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	counter(&sb, prefix, "queries_total", "Total number of QA queries.", atomic.LoadUint64(&m.queriesTotal))
	counter(&sb, prefix, "queries_cache_hits_total", "Number of query cache hits.", atomic.LoadUint64(&m.queriesCacheHits))
	counter(&sb, prefix, "queries_cache_misses_total", "Number of query cache misses.", atomic.LoadUint64(&m.queriesCacheMisses))
	counter(&sb, prefix, "queries_errors_total", "Number of query errors.", atomic.LoadUint64(&m.queriesErrors))

	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	cacheHitRate := 0.0
	if total := cacheHits + cacheMisses; total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total)
	}
	gauge(&sb, prefix, "cache_hit_rate", "Query cache hit rate (0-1).", cacheHitRate)

	counter(&sb, prefix, "retrieval_total", "Total number of retrievals.", atomic.LoadUint64(&m.retrievalTotal))
	counter(&sb, prefix, "retrieval_empty_total", "Retrievals with no results after quality filtering.", atomic.LoadUint64(&m.retrievalEmpty))
	counter(&sb, prefix, "retrieval_errors_total", "Number of retrieval errors.", atomic.LoadUint64(&m.retrievalErrors))

	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	gauge(&sb, prefix, "retrieval_duration_seconds_total", "Total retrieval duration.", retrievalDuration)

	counter(&sb, prefix, "llm_calls_total", "Total number of LLM calls.", atomic.LoadUint64(&m.llmCallsTotal))
	counter(&sb, prefix, "llm_calls_errors_total", "Number of LLM call errors.", atomic.LoadUint64(&m.llmCallsErrors))
	gauge(&sb, prefix, "llm_calls_duration_seconds_total", "Total LLM call duration.", llmDuration)

	counter(&sb, prefix, "answers_valid_total", "Answers that passed validation.", atomic.LoadUint64(&m.answersValid))
	counter(&sb, prefix, "answers_invalid_total", "Answers that failed validation.", atomic.LoadUint64(&m.answersInvalid))

	counter(&sb, prefix, "documents_indexed_total", "Total documents indexed.", atomic.LoadUint64(&m.documentsIndexed))
	counter(&sb, prefix, "chunks_indexed_total", "Total chunks indexed.", atomic.LoadUint64(&m.chunksIndexed))
	counter(&sb, prefix, "index_errors_total", "Number of indexing errors.", atomic.LoadUint64(&m.indexErrors))

	gauge(&sb, prefix, "uptime_seconds", "Service uptime in seconds.", time.Since(m.startTime).Seconds())

	return sb.String()
}

// Stats returns the current counters for the stats API.
func (m *QAMetrics) Stats() map[string]any {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	cacheHitRate := 0.0
	if total := cacheHits + cacheMisses; total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total)
	}

	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	avgRetrievalDuration := 0.0
	if retrievalTotal > 0 {
		avgRetrievalDuration = retrievalDuration / float64(retrievalTotal)
	}

	llmTotal := atomic.LoadUint64(&m.llmCallsTotal)
	avgLLMDuration := 0.0
	if llmTotal > 0 {
		avgLLMDuration = llmDuration / float64(llmTotal)
	}

	return map[string]any{
		"queries": map[string]any{
			"total":          atomic.LoadUint64(&m.queriesTotal),
			"cache_hits":     cacheHits,
			"cache_misses":   cacheMisses,
			"cache_hit_rate": cacheHitRate,
			"errors":         atomic.LoadUint64(&m.queriesErrors),
		},
		"retrieval": map[string]any{
			"total":               retrievalTotal,
			"empty":               atomic.LoadUint64(&m.retrievalEmpty),
			"total_duration_secs": retrievalDuration,
			"avg_duration_secs":   avgRetrievalDuration,
			"errors":              atomic.LoadUint64(&m.retrievalErrors),
		},
		"llm": map[string]any{
			"calls_total":         llmTotal,
			"total_duration_secs": llmDuration,
			"avg_duration_secs":   avgLLMDuration,
			"errors":              atomic.LoadUint64(&m.llmCallsErrors),
		},
		"answers": map[string]any{
			"valid":   atomic.LoadUint64(&m.answersValid),
			"invalid": atomic.LoadUint64(&m.answersInvalid),
		},
		"indexing": map[string]any{
			"documents_indexed": atomic.LoadUint64(&m.documentsIndexed),
			"chunks_indexed":    atomic.LoadUint64(&m.chunksIndexed),
			"errors":            atomic.LoadUint64(&m.indexErrors),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset zeroes all counters. Test helper.
func (m *QAMetrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesCacheHits, 0)
	atomic.StoreUint64(&m.queriesCacheMisses, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.retrievalTotal, 0)
	atomic.StoreUint64(&m.retrievalEmpty, 0)
	atomic.StoreUint64(&m.retrievalErrors, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.answersValid, 0)
	atomic.StoreUint64(&m.answersInvalid, 0)
	atomic.StoreUint64(&m.documentsIndexed, 0)
	atomic.StoreUint64(&m.chunksIndexed, 0)
	atomic.StoreUint64(&m.indexErrors, 0)

	m.durationMu.Lock()
	m.retrievalDuration = 0
	m.llmCallsDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
