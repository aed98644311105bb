package biz

import (
	"context"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/hanq-io/hanq/internal/apiserver/metrics"
	"github.com/hanq-io/hanq/internal/apiserver/store"
	"github.com/hanq-io/hanq/internal/model"
	"github.com/hanq-io/hanq/internal/pkg/quality"
	"github.com/hanq-io/hanq/pkg/llm"
)

// Fallback answers for the stages where the pipeline can come up empty.
const (
	// NoDocumentsFound is returned when the vector search has no hits.
	NoDocumentsFound = "관련 문서를 찾을 수 없습니다."
	// NoRelevantDocuments is returned when every hit fails the quality gate.
	NoRelevantDocuments = "관련성이 높은 문서를 찾을 수 없습니다."
	// AnswerGenerationFailed is returned when the model reply is empty.
	AnswerGenerationFailed = "답변을 생성할 수 없습니다."
)

// maxTopK bounds the per-request retrieval size.
const maxTopK = 50

// Service is the question answering service interface.
type Service interface {
	// Query answers a question using retrieval or a caller-supplied context.
	Query(ctx context.Context, req *model.QARequest) (*model.QAResult, error)
	// Index loads a KorQuAD dataset into the vector store.
	Index(ctx context.Context, path string, recreate bool) (*model.IndexStats, error)
	// Stats reports knowledge base and pipeline statistics.
	Stats(ctx context.Context) (map[string]any, error)
}

// QAService wires the indexer, retriever and generator into the full
// question answering pipeline.
type QAService struct {
	indexer   *Indexer
	retriever *Retriever
	generator *Generator
	cache     *QueryCache
	store     store.VectorStore

	embedProvider llm.EmbeddingProvider
	chatProvider  llm.ChatProvider

	collection string
	defaultK   int
	metrics    *metrics.QAMetrics
}

// ServiceConfig bundles the component configs.
type ServiceConfig struct {
	IndexerConfig   *IndexerConfig
	RetrieverConfig *RetrieverConfig
	GeneratorConfig *GeneratorConfig
}

// NewQAService creates the QA service.
func NewQAService(
	vectorStore store.VectorStore,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
	cache *QueryCache,
	config *ServiceConfig,
) *QAService {
	return &QAService{
		indexer:       NewIndexer(vectorStore, embedProvider, config.IndexerConfig),
		retriever:     NewRetriever(vectorStore, embedProvider, config.RetrieverConfig),
		generator:     NewGenerator(chatProvider, config.GeneratorConfig),
		cache:         cache,
		store:         vectorStore,
		embedProvider: embedProvider,
		chatProvider:  chatProvider,
		collection:    config.IndexerConfig.Collection,
		defaultK:      config.RetrieverConfig.TopK,
		metrics:       metrics.GetQAMetrics(),
	}
}

// clampTopK applies the server default and the [1, maxTopK] bounds.
func (s *QAService) clampTopK(topK int) int {
	if topK <= 0 {
		return s.defaultK
	}
	if topK > maxTopK {
		return maxTopK
	}
	return topK
}

// Query answers a question. When the request carries its own context the
// retrieval stage is skipped and the answer is generated directly from it.
func (s *QAService) Query(ctx context.Context, req *model.QARequest) (*model.QAResult, error) {
	var queryErr error
	defer func() {
		if queryErr != nil {
			s.metrics.RecordQuery(false, queryErr)
		}
	}()

	question := strings.TrimSpace(req.Question)

	if strings.TrimSpace(req.Context) != "" {
		result, err := s.answerFromContext(ctx, question, req.Context)
		if err != nil {
			queryErr = err
			return nil, err
		}
		s.metrics.RecordQuery(false, nil)
		return result, nil
	}

	topK := s.clampTopK(req.TopK)

	// Retrieval answers are cacheable because the question and retrieval
	// depth alone determine them; caller-supplied contexts are not.
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, question, topK); err == nil && cached != nil {
			s.metrics.RecordQuery(true, nil)
			return cached, nil
		}
	}

	retrievalStart := time.Now()
	retrieval, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		s.metrics.RecordRetrieval(time.Since(retrievalStart), 0, err)
		queryErr = err
		return nil, err
	}
	s.metrics.RecordRetrieval(time.Since(retrievalStart), len(retrieval.Results), nil)

	if retrieval.Raw == 0 {
		s.metrics.RecordQuery(false, nil)
		return fallbackResult(question, NoDocumentsFound, retrieval.Metrics), nil
	}
	if len(retrieval.Results) == 0 {
		logger.Infow("all candidates rejected by quality gate",
			"question", question,
			"raw_hits", retrieval.Raw,
		)
		s.metrics.RecordQuery(false, nil)
		return fallbackResult(question, NoRelevantDocuments, retrieval.Metrics), nil
	}

	contextText := BuildContext(retrieval.Results)

	llmStart := time.Now()
	answer, err := s.generator.GenerateAnswer(ctx, question, contextText)
	s.metrics.RecordLLMCall(time.Since(llmStart), err)
	if err != nil {
		queryErr = err
		return nil, err
	}
	generated := strings.TrimSpace(answer) != ""
	if !generated {
		answer = AnswerGenerationFailed
	}

	validation := s.retriever.Quality().ValidateAnswer(question, answer, contextText)
	s.metrics.RecordAnswerValidation(validation.IsValid)
	if generated && !validation.IsValid {
		// The model answered from outside the retrieved passages; refuse
		// rather than return an ungrounded answer.
		answer = AnswerNotFound
	}

	top := retrieval.Results[0]
	result := &model.QAResult{
		RetrievedDocumentID: top.DocumentID,
		RetrievedDocument:   top.Content,
		Question:            question,
		Answers: []model.Answer{
			{Text: answer, AnswerStart: answerStart(top.Content, answer)},
		},
		Sources:        chunkSources(retrieval.Results),
		QualityMetrics: qualityMetrics(validation, retrieval.Metrics),
	}

	if s.cache != nil && validation.IsValid {
		_ = s.cache.Set(ctx, question, topK, result)
	}

	s.metrics.RecordQuery(false, nil)
	return result, nil
}

// answerFromContext generates an answer from a caller-supplied passage.
func (s *QAService) answerFromContext(ctx context.Context, question, passage string) (*model.QAResult, error) {
	llmStart := time.Now()
	answer, err := s.generator.GenerateAnswer(ctx, question, passage)
	s.metrics.RecordLLMCall(time.Since(llmStart), err)
	if err != nil {
		return nil, err
	}
	generated := strings.TrimSpace(answer) != ""
	if !generated {
		answer = AnswerGenerationFailed
	}

	validation := s.retriever.Quality().ValidateAnswer(question, answer, passage)
	s.metrics.RecordAnswerValidation(validation.IsValid)
	if generated && !validation.IsValid {
		answer = AnswerNotFound
	}

	return &model.QAResult{
		RetrievedDocumentID: "user-context",
		RetrievedDocument:   passage,
		Question:            question,
		Answers: []model.Answer{
			{Text: answer, AnswerStart: answerStart(passage, answer)},
		},
		QualityMetrics: qualityMetrics(validation, quality.Metrics{}),
	}, nil
}

// Index loads a KorQuAD dataset into the vector store.
func (s *QAService) Index(ctx context.Context, path string, recreate bool) (*model.IndexStats, error) {
	return s.indexer.IndexDataset(ctx, path, recreate, nil)
}

// IndexWithProgress is Index with per-batch progress reporting, for callers
// that surface loading state.
func (s *QAService) IndexWithProgress(ctx context.Context, path string, recreate bool, onProgress func(indexed, total int)) (*model.IndexStats, error) {
	return s.indexer.IndexDataset(ctx, path, recreate, onProgress)
}

// Stats reports knowledge base and pipeline statistics.
func (s *QAService) Stats(ctx context.Context) (map[string]any, error) {
	count, err := s.store.GetStats(ctx, s.collection)
	if err != nil {
		return nil, err
	}

	stats := map[string]any{
		"collection":     s.collection,
		"chunk_count":    count,
		"embed_provider": s.embedProvider.Name(),
		"chat_provider":  s.chatProvider.Name(),
	}

	if s.cache != nil {
		if cacheStats, err := s.cache.GetStats(ctx); err == nil {
			stats["cache"] = cacheStats
		}
	}

	stats["metrics"] = s.metrics.Stats()
	return stats, nil
}

// fallbackResult builds a no-answer response in KorQuAD shape.
func fallbackResult(question, message string, searchQuality quality.Metrics) *model.QAResult {
	return &model.QAResult{
		Question: question,
		Answers: []model.Answer{
			{Text: message, AnswerStart: -1},
		},
		QualityMetrics: model.QualityMetrics{
			Confidence:    0,
			IsValid:       false,
			Reason:        message,
			SearchQuality: searchQuality,
		},
	}
}

// answerStart returns the rune offset of the answer span inside the passage,
// or -1 when the answer is not a literal span of it.
func answerStart(passage, answer string) int {
	byteIdx := strings.Index(passage, answer)
	if byteIdx < 0 {
		return -1
	}
	return len([]rune(passage[:byteIdx]))
}

func chunkSources(results []quality.Result) []model.ChunkSource {
	sources := make([]model.ChunkSource, len(results))
	for i, r := range results {
		sources[i] = model.ChunkSource{
			DocumentID: r.DocumentID,
			Title:      r.Title,
			Content:    r.Content,
			Score:      r.Score,
			Relevance:  r.Relevance,
		}
	}
	return sources
}

func qualityMetrics(v quality.Validation, searchQuality quality.Metrics) model.QualityMetrics {
	return model.QualityMetrics{
		Confidence:    v.Confidence,
		IsValid:       v.IsValid,
		Reason:        v.Reason,
		SearchQuality: searchQuality,
	}
}

var _ Service = (*QAService)(nil)
