// Package model provides data models for the HanQ question answering service.
package model

import (
	"github.com/hanq-io/hanq/internal/pkg/quality"
)

// QARequest is a question answering request.
type QARequest struct {
	// Question is the user question in Korean.
	Question string `json:"question" binding:"required"`

	// TopK is the number of passages to retrieve. Zero means the server
	// default; values are clamped to [1, 50].
	TopK int `json:"top_k,omitempty"`

	// Context optionally supplies the passage to answer from directly,
	// skipping retrieval.
	Context string `json:"context,omitempty"`
}

// QAResult is the KorQuAD style answer to a question.
type QAResult struct {
	RetrievedDocumentID string         `json:"retrieved_document_id"`
	RetrievedDocument   string         `json:"retrieved_document"`
	Question            string         `json:"question"`
	Answers             []Answer       `json:"answers"`
	Sources             []ChunkSource  `json:"sources,omitempty"`
	QualityMetrics      QualityMetrics `json:"quality_metrics"`
}

// Answer is a single extracted answer span.
type Answer struct {
	Text        string `json:"text"`
	AnswerStart int    `json:"answer_start"`
}

// ChunkSource identifies a retrieved chunk backing an answer.
type ChunkSource struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Relevance  float64 `json:"relevance"`
}

// QualityMetrics reports answer confidence and retrieval quality.
type QualityMetrics struct {
	Confidence    float64         `json:"confidence"`
	IsValid       bool            `json:"is_valid"`
	Reason        string          `json:"reason,omitempty"`
	SearchQuality quality.Metrics `json:"search_quality"`
}

// IndexRequest asks the server to (re)index a KorQuAD dataset file.
type IndexRequest struct {
	// Path is the dataset file path on the server. Empty means the
	// configured default dataset.
	Path string `json:"path,omitempty"`

	// Recreate drops and recreates the collection before indexing.
	Recreate bool `json:"recreate,omitempty"`
}

// IndexStats summarizes an indexing run.
type IndexStats struct {
	Documents int   `json:"documents"`
	Chunks    int   `json:"chunks"`
	Indexed   int   `json:"indexed"`
	ElapsedMS int64 `json:"elapsed_ms"`
}
