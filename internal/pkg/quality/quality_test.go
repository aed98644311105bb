package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
		excluded []string
	}{
		{
			name:     "korean sentence",
			text:     "대한민국의 수도는 서울입니다",
			expected: []string{"대한민국의", "수도는", "서울입니다"},
		},
		{
			name:     "stopwords removed",
			text:     "그것 이것 하다 있다 서울",
			expected: []string{"서울"},
			excluded: []string{"그것", "이것", "하다", "있다"},
		},
		{
			name:     "single rune tokens removed",
			text:     "이 가 서울 타워",
			expected: []string{"서울", "타워"},
			excluded: []string{"이", "가"},
		},
		{
			name:     "punctuation stripped",
			text:     "서울, 타워! (전망대)",
			expected: []string{"서울", "타워", "전망대"},
		},
		{
			name: "empty text",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keywords := ExtractKeywords(tt.text)
			for _, w := range tt.expected {
				assert.True(t, keywords[w], "expected keyword %q", w)
			}
			for _, w := range tt.excluded {
				assert.False(t, keywords[w], "unexpected keyword %q", w)
			}
			if tt.expected == nil && tt.excluded == nil {
				assert.Empty(t, keywords)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	m := New(DefaultConfig())
	question := "대한민국의 수도는 어디입니까"

	results := []Result{
		{
			DocumentID: "doc-1",
			Title:      "대한민국",
			Content:    "대한민국의 수도는 서울이다. 서울은 한강 유역에 위치한다.",
			Score:      0.85,
		},
		{
			DocumentID: "doc-2",
			Title:      "프랑스",
			Content:    "프랑스 요리는 세계적으로 유명하다.",
			Score:      0.72,
		},
		{
			DocumentID: "doc-3",
			Title:      "대한민국",
			Content:    "대한민국의 수도는 서울특별시이다.",
			Score:      0.4,
		},
	}

	filtered := m.Filter(question, results)

	require.Len(t, filtered, 1)
	assert.Equal(t, "doc-1", filtered[0].DocumentID)
	assert.Greater(t, filtered[0].Relevance, 0.3)
	assert.GreaterOrEqual(t, filtered[0].KeywordOverlap, 2)
}

func TestContextSimilarityBinary(t *testing.T) {
	// Deduplicated keywords agree fully, so any intersection scores 1.
	a := ExtractKeywords("대한민국의 수도는 어디입니까")
	b := ExtractKeywords("대한민국의 수도는 서울이다. 서울은 한강 유역에 위치한다.")
	assert.Equal(t, 1.0, contextSimilarity(a, b))

	disjoint := ExtractKeywords("프랑스 요리는 세계적으로 유명하다")
	assert.Equal(t, 0.0, contextSimilarity(a, disjoint))

	assert.Equal(t, 0.0, contextSimilarity(a, map[string]bool{}))
	assert.Equal(t, 0.0, contextSimilarity(nil, b))
}

func TestFilterRanking(t *testing.T) {
	// Relax the gate so both candidates survive and only ranking matters.
	m := New(Config{SimilarityThreshold: 0.1, RelevanceThreshold: 0.01, MinKeywordOverlap: 1})
	question := "서울 타워 전망대"

	results := []Result{
		{
			DocumentID: "low-score",
			Content:    "서울 타워 전망대 방문 안내",
			Score:      0.3,
		},
		{
			DocumentID: "high-score",
			Content:    "서울 타워 전망대 입장권 구매",
			Score:      0.9,
		},
	}

	filtered := m.Filter(question, results)

	require.Len(t, filtered, 2)
	assert.Equal(t, "high-score", filtered[0].DocumentID)
}

func TestFilterEmpty(t *testing.T) {
	m := New(DefaultConfig())
	assert.Nil(t, m.Filter("질문", nil))
	assert.Nil(t, m.Filter("질문", []Result{}))
}

func TestValidateAnswer(t *testing.T) {
	m := New(DefaultConfig())

	t.Run("grounded answer is valid", func(t *testing.T) {
		v := m.ValidateAnswer(
			"대한민국의 수도는 어디입니까",
			"대한민국의 수도는 서울이다",
			"대한민국의 수도는 서울이다. 서울은 한강 유역에 위치한 대도시이다.",
		)
		assert.True(t, v.IsValid)
		assert.GreaterOrEqual(t, v.Confidence, 0.3)
		assert.Equal(t, "답변이 유효합니다.", v.Reason)
	})

	t.Run("ungrounded answer is invalid", func(t *testing.T) {
		v := m.ValidateAnswer(
			"대한민국의 수도는 어디입니까",
			"에펠탑은 파리에 위치한다",
			"축구는 세계에서 인기가 많은 스포츠이다.",
		)
		assert.False(t, v.IsValid)
		assert.Equal(t, "답변이 컨텍스트와 관련이 없습니다.", v.Reason)
	})

	t.Run("empty answer", func(t *testing.T) {
		v := m.ValidateAnswer("질문", "", "컨텍스트 내용")
		assert.False(t, v.IsValid)
		assert.Zero(t, v.Confidence)
		assert.Equal(t, "답변 또는 컨텍스트가 없습니다.", v.Reason)
	})

	t.Run("too short answer", func(t *testing.T) {
		v := m.ValidateAnswer("질문", "네", "컨텍스트 내용")
		assert.False(t, v.IsValid)
		assert.Equal(t, "답변이 너무 짧습니다.", v.Reason)
	})
}

func TestCollectMetrics(t *testing.T) {
	m := New(DefaultConfig())

	results := []Result{
		{Score: 0.9, Relevance: 0.8},
		{Score: 0.7, Relevance: 0.4},
		{Score: 0.5, Relevance: 0.2},
	}

	metrics := m.CollectMetrics(results)

	assert.Equal(t, 3, metrics.TotalResults)
	assert.InDelta(t, 0.7, metrics.AvgSimilarityScore, 1e-9)
	assert.InDelta(t, 0.4666666, metrics.AvgRelevanceScore, 1e-6)
	assert.InDelta(t, 0.5, metrics.MinSimilarityScore, 1e-9)
	assert.InDelta(t, 0.9, metrics.MaxSimilarityScore, 1e-9)
	assert.Equal(t, 2, metrics.HighQualityResults)
	assert.InDelta(t, 2.0/3.0, metrics.QualityRatio, 1e-9)
}

func TestCollectMetricsEmpty(t *testing.T) {
	m := New(DefaultConfig())
	assert.Equal(t, Metrics{}, m.CollectMetrics(nil))
}

func TestNewDefaults(t *testing.T) {
	m := New(Config{})
	assert.Equal(t, DefaultConfig(), m.config)
}
