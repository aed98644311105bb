package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/hanq-io/hanq/internal/apiserver/metrics"
	"github.com/hanq-io/hanq/internal/apiserver/store"
	"github.com/hanq-io/hanq/internal/model"
	"github.com/hanq-io/hanq/internal/pkg/korquad"
	"github.com/hanq-io/hanq/pkg/llm"
)

// IndexerConfig configures the dataset indexer.
type IndexerConfig struct {
	// Collection is the vector collection name.
	Collection string
	// EmbeddingDim is the embedding dimension.
	EmbeddingDim int
	// ChunkSize is the chunk size in runes.
	ChunkSize int
	// ChunkOverlap is the overlap between adjacent chunks in runes.
	ChunkOverlap int
	// BatchSize is the number of chunks embedded per provider call.
	BatchSize int
}

// Indexer loads a KorQuAD dataset, chunks its passages, embeds them in
// batches and writes them to the vector store.
type Indexer struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *IndexerConfig
	metrics       *metrics.QAMetrics
}

// NewIndexer creates an indexer.
func NewIndexer(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *IndexerConfig) *Indexer {
	return &Indexer{
		store:         vectorStore,
		embedProvider: embedProvider,
		config:        config,
		metrics:       metrics.GetQAMetrics(),
	}
}

// IndexDataset indexes a KorQuAD dataset file. With recreate the collection
// is dropped first so stale chunks do not survive a re-index. onProgress,
// when non-nil, is invoked after each batch with the running chunk count.
func (i *Indexer) IndexDataset(ctx context.Context, path string, recreate bool, onProgress func(indexed, total int)) (*model.IndexStats, error) {
	start := time.Now()

	logger.Infow("loading dataset", "path", path)
	dataset, err := korquad.Load(path)
	if err != nil {
		i.metrics.RecordIndexing(0, 0, err)
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	docs := dataset.Documents()
	chunks := korquad.ChunkDocuments(docs, i.config.ChunkSize, i.config.ChunkOverlap)
	logger.Infow("dataset prepared",
		"documents", len(docs),
		"chunks", len(chunks),
		"chunk_size", i.config.ChunkSize,
		"chunk_overlap", i.config.ChunkOverlap,
	)

	if recreate {
		if err := i.store.DropCollection(ctx, i.config.Collection); err != nil {
			logger.Warnw("failed to drop collection before reindex", "error", err.Error())
		}
	}

	collectionConfig := &store.CollectionConfig{
		Name:        i.config.Collection,
		Description: "KorQuAD passage chunks",
		Dimension:   i.config.EmbeddingDim,
	}
	if err := i.store.CreateCollection(ctx, collectionConfig); err != nil {
		i.metrics.RecordIndexing(0, 0, err)
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	indexed := 0
	batchSize := i.config.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	for idx := 0; idx < len(chunks); idx += batchSize {
		end := idx + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[idx:end]

		n, err := i.indexBatch(ctx, batch)
		if err != nil {
			// a failed batch aborts the run so the caller can retry from
			// a clean recreate instead of serving a partial index silently
			i.metrics.RecordIndexing(0, 0, err)
			return nil, fmt.Errorf("failed to index batch %d-%d: %w", idx, end, err)
		}
		indexed += n
		if onProgress != nil {
			onProgress(indexed, len(chunks))
		}

		if (idx/batchSize)%10 == 0 {
			logger.Infow("indexing progress", "indexed", indexed, "total", len(chunks))
		}
	}

	i.metrics.RecordIndexing(len(docs), indexed, nil)

	stats := &model.IndexStats{
		Documents: len(docs),
		Chunks:    len(chunks),
		Indexed:   indexed,
		ElapsedMS: time.Since(start).Milliseconds(),
	}
	logger.Infow("indexing completed",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"indexed", stats.Indexed,
		"elapsed_ms", stats.ElapsedMS,
	)
	return stats, nil
}

// indexBatch embeds one batch of chunks and inserts them.
func (i *Indexer) indexBatch(ctx context.Context, batch []korquad.Chunk) (int, error) {
	texts := make([]string, len(batch))
	for idx, chunk := range batch {
		texts[idx] = chunk.Content
	}

	embeddings, err := i.embedProvider.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(batch) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(batch))
	}

	storeChunks := make([]*store.Chunk, len(batch))
	for idx, chunk := range batch {
		storeChunks[idx] = &store.Chunk{
			DocumentID: chunk.DocumentID,
			Title:      chunk.Title,
			Content:    chunk.Content,
			Seq:        int64(chunk.Seq),
			Embedding:  embeddings[idx],
		}
	}

	ids, err := i.store.Insert(ctx, i.config.Collection, storeChunks)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
