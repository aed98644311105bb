package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/hanq-io/hanq/internal/apiserver/store"
	"github.com/hanq-io/hanq/internal/pkg/quality"
	"github.com/hanq-io/hanq/pkg/llm"
)

// RetrieverConfig configures passage retrieval.
type RetrieverConfig struct {
	// Collection is the vector collection name.
	Collection string
	// TopK is the default number of passages to return.
	TopK int
	// Quality holds the quality gate thresholds.
	Quality quality.Config
}

// RetrievalResult carries the quality-filtered passages for a question.
type RetrievalResult struct {
	// Results are the surviving candidates, best first.
	Results []quality.Result
	// Raw is the number of candidates returned by the vector search
	// before filtering.
	Raw int
	// Metrics summarizes the quality of the filtered set.
	Metrics quality.Metrics
}

// Retriever searches passages by vector similarity and applies the Korean
// quality gate on top of the raw hits.
type Retriever struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	quality       *quality.Manager
	config        *RetrieverConfig
}

// NewRetriever creates a retriever.
func NewRetriever(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *RetrieverConfig) *Retriever {
	return &Retriever{
		store:         vectorStore,
		embedProvider: embedProvider,
		quality:       quality.New(config.Quality),
		config:        config,
	}
}

// Retrieve embeds the question, fetches candidates and filters them. The
// vector search over-fetches at twice topK because the quality gate drops
// candidates; the final set is trimmed back to topK.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) (*RetrievalResult, error) {
	if topK <= 0 {
		topK = r.config.TopK
	}

	embedding, err := r.embedProvider.EmbedSingle(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := r.store.Search(ctx, r.config.Collection, embedding, topK*2)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}

	candidates := make([]quality.Result, len(hits))
	for i, hit := range hits {
		candidates[i] = quality.Result{
			DocumentID: hit.DocumentID,
			Title:      hit.Title,
			Content:    hit.Content,
			Score:      float64(hit.Score),
		}
	}

	filtered := r.quality.Filter(question, candidates)
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}

	logger.Debugw("retrieval finished",
		"question", question,
		"raw_hits", len(hits),
		"filtered", len(filtered),
		"top_k", topK,
	)

	return &RetrievalResult{
		Results: filtered,
		Raw:     len(hits),
		Metrics: r.quality.CollectMetrics(filtered),
	}, nil
}

// Quality exposes the quality manager so the service can validate answers
// with the same thresholds used for filtering.
func (r *Retriever) Quality() *quality.Manager {
	return r.quality
}
