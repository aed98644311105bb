// Package quality scores and filters retrieval results for Korean text.
//
// Vector similarity alone ranks Korean passages poorly when the question
// shares particles but not content words with a passage. This package adds
// a lexical layer on top of the vector score: stopword-aware keyword
// extraction, keyword-overlap gating, and a combined relevance score used
// both to filter retrieval candidates and to validate generated answers
// against their context.
package quality

import (
	"regexp"
	"sort"
	"strings"
)

// Config holds the quality gate thresholds.
type Config struct {
	// SimilarityThreshold is the minimum vector similarity for a candidate.
	SimilarityThreshold float64 `mapstructure:"similarity-threshold"`

	// RelevanceThreshold is the minimum combined relevance score for a
	// candidate, and the minimum confidence for a valid answer.
	RelevanceThreshold float64 `mapstructure:"relevance-threshold"`

	// MinKeywordOverlap is the minimum number of shared keywords between
	// question and passage.
	MinKeywordOverlap int `mapstructure:"min-keyword-overlap"`
}

// DefaultConfig returns the thresholds tuned on KorQuAD retrieval.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.6,
		RelevanceThreshold:  0.3,
		MinKeywordOverlap:   2,
	}
}

// Result is a retrieval candidate under evaluation.
type Result struct {
	// DocumentID is the originating passage identifier.
	DocumentID string
	// Title is the source article title.
	Title string
	// Content is the passage text.
	Content string
	// Score is the vector similarity score in [0, 1].
	Score float64
	// Relevance is filled by Filter: the combined lexical relevance score.
	Relevance float64
	// KeywordOverlap is filled by Filter: shared keyword count.
	KeywordOverlap int
}

// Validation is the outcome of answer quality validation.
type Validation struct {
	IsValid            bool    `json:"is_valid"`
	Confidence         float64 `json:"confidence"`
	ContextRelevance   float64 `json:"context_relevance"`
	AnswerContextMatch float64 `json:"answer_context_match"`
	QARelevance        float64 `json:"qa_relevance"`
	Reason             string  `json:"reason"`
}

// Metrics summarizes the quality of a retrieval result set.
type Metrics struct {
	TotalResults       int     `json:"total_results"`
	AvgSimilarityScore float64 `json:"avg_similarity_score"`
	AvgRelevanceScore  float64 `json:"avg_relevance_score"`
	MinSimilarityScore float64 `json:"min_similarity_score"`
	MaxSimilarityScore float64 `json:"max_similarity_score"`
	HighQualityResults int     `json:"high_quality_results"`
	QualityRatio       float64 `json:"quality_ratio"`
}

// Manager evaluates retrieval and answer quality.
type Manager struct {
	config Config
}

// New creates a Manager. Zero-valued thresholds fall back to defaults.
func New(config Config) *Manager {
	def := DefaultConfig()
	if config.SimilarityThreshold <= 0 {
		config.SimilarityThreshold = def.SimilarityThreshold
	}
	if config.RelevanceThreshold <= 0 {
		config.RelevanceThreshold = def.RelevanceThreshold
	}
	if config.MinKeywordOverlap <= 0 {
		config.MinKeywordOverlap = def.MinKeywordOverlap
	}
	return &Manager{config: config}
}

// koreanStopwords are particles, demonstratives and light verbs that carry
// no retrieval signal.
var koreanStopwords = map[string]bool{
	"이": true, "가": true, "을": true, "를": true, "에": true, "의": true,
	"와": true, "과": true, "은": true, "는": true, "도": true, "로": true,
	"으로": true, "에서": true, "에게": true, "한테": true, "부터": true,
	"까지": true, "처럼": true, "같이": true, "만": true, "조차": true,
	"마저": true, "그": true, "저": true, "그것": true, "이것": true,
	"저것": true, "그런": true, "이런": true, "저런": true, "하다": true,
	"되다": true, "있다": true, "없다": true, "같다": true, "이다": true,
	"아니다": true, "무엇": true, "어디": true, "누구": true, "언제": true,
}

var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// ExtractKeywords tokenizes text into a keyword set: lowercase, punctuation
// stripped, single-rune tokens and Korean stopwords removed.
func ExtractKeywords(text string) map[string]bool {
	keywords := make(map[string]bool)
	if text == "" {
		return keywords
	}

	cleaned := nonWordRegex.ReplaceAllString(strings.ToLower(text), " ")
	for _, word := range strings.Fields(cleaned) {
		if len([]rune(word)) < 2 || koreanStopwords[word] {
			continue
		}
		keywords[word] = true
	}

	return keywords
}

func overlapCount(a, b map[string]bool) int {
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}

// Filter applies the quality gate to retrieval candidates and returns the
// survivors ranked by 0.7*similarity + 0.3*relevance, best first. The
// returned results carry their relevance score and keyword overlap.
func (m *Manager) Filter(question string, results []Result) []Result {
	if len(results) == 0 {
		return nil
	}

	questionKeywords := ExtractKeywords(question)
	var filtered []Result

	for _, r := range results {
		if r.Score < m.config.SimilarityThreshold {
			continue
		}

		overlap := overlapCount(questionKeywords, ExtractKeywords(r.Content))
		if overlap < m.config.MinKeywordOverlap {
			continue
		}

		relevance := m.relevanceScore(question, r)
		if relevance < m.config.RelevanceThreshold {
			continue
		}

		r.Relevance = relevance
		r.KeywordOverlap = overlap
		filtered = append(filtered, r)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score*0.7+filtered[i].Relevance*0.3 >
			filtered[j].Score*0.7+filtered[j].Relevance*0.3
	})

	return filtered
}

// relevanceScore combines keyword overlap ratio (0.4), context similarity
// (0.4) and title relevance (0.2) into [0, 1].
func (m *Manager) relevanceScore(question string, r Result) float64 {
	if r.Content == "" {
		return 0
	}

	questionKeywords := ExtractKeywords(question)
	if len(questionKeywords) == 0 {
		return 0
	}
	contentKeywords := ExtractKeywords(r.Content)

	overlapRatio := float64(overlapCount(questionKeywords, contentKeywords)) / float64(len(questionKeywords))
	contextSim := contextSimilarity(questionKeywords, contentKeywords)
	titleRel := keywordCoverage(questionKeywords, ExtractKeywords(r.Title))

	score := overlapRatio*0.4 + contextSim*0.4 + titleRel*0.2
	if score > 1 {
		score = 1
	}
	return score
}

// contextSimilarity is the mean per-keyword frequency agreement over the
// shared vocabulary of two keyword sets. Keywords are deduplicated, so every
// shared keyword agrees fully and the mean collapses to 1 whenever the sets
// intersect at all.
func contextSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if overlapCount(a, b) == 0 {
		return 0
	}
	return 1
}

// keywordCoverage is the fraction of keywords in query covered by target,
// capped at 1.
func keywordCoverage(query, target map[string]bool) float64 {
	if len(query) == 0 || len(target) == 0 {
		return 0
	}
	cov := float64(overlapCount(query, target)) / float64(len(query))
	if cov > 1 {
		return 1
	}
	return cov
}

// ValidateAnswer checks a generated answer against its question and
// retrieval context. Confidence combines context relevance (0.4),
// answer/context agreement (0.3) and question/answer agreement (0.3); the
// answer is valid when confidence reaches the relevance threshold.
func (m *Manager) ValidateAnswer(question, answer, context string) Validation {
	if strings.TrimSpace(answer) == "" || strings.TrimSpace(context) == "" {
		return Validation{Reason: "답변 또는 컨텍스트가 없습니다."}
	}
	if len([]rune(strings.TrimSpace(answer))) < 3 {
		return Validation{Reason: "답변이 너무 짧습니다."}
	}

	contextRelevance := m.relevanceScore(question, Result{Content: context})
	answerContextMatch := keywordCoverage(ExtractKeywords(answer), ExtractKeywords(context))
	qaRelevance := keywordCoverage(ExtractKeywords(question), ExtractKeywords(answer))

	confidence := contextRelevance*0.4 + answerContextMatch*0.3 + qaRelevance*0.3
	valid := confidence >= m.config.RelevanceThreshold

	reason := "답변이 유효합니다."
	if !valid {
		reason = "답변이 컨텍스트와 관련이 없습니다."
	}

	return Validation{
		IsValid:            valid,
		Confidence:         confidence,
		ContextRelevance:   contextRelevance,
		AnswerContextMatch: answerContextMatch,
		QARelevance:        qaRelevance,
		Reason:             reason,
	}
}

// CollectMetrics computes aggregate quality metrics over a result set.
func (m *Manager) CollectMetrics(results []Result) Metrics {
	if len(results) == 0 {
		return Metrics{}
	}

	metrics := Metrics{
		TotalResults:       len(results),
		MinSimilarityScore: results[0].Score,
		MaxSimilarityScore: results[0].Score,
	}

	var scoreSum, relevanceSum float64
	for _, r := range results {
		scoreSum += r.Score
		relevanceSum += r.Relevance
		if r.Score < metrics.MinSimilarityScore {
			metrics.MinSimilarityScore = r.Score
		}
		if r.Score > metrics.MaxSimilarityScore {
			metrics.MaxSimilarityScore = r.Score
		}
		if r.Score >= m.config.SimilarityThreshold {
			metrics.HighQualityResults++
		}
	}

	metrics.AvgSimilarityScore = scoreSum / float64(len(results))
	metrics.AvgRelevanceScore = relevanceSum / float64(len(results))
	metrics.QualityRatio = float64(metrics.HighQualityResults) / float64(len(results))

	return metrics
}
