package store

import (
	"context"
)

// Chunk is a document chunk prepared for indexing.
type Chunk struct {
	// DocumentID identifies the source document.
	DocumentID string
	// Title is the source document title.
	Title string
	// Content is the chunk text.
	Content string
	// Seq is the chunk position within the document.
	Seq int64
	// Embedding is the chunk vector.
	Embedding []float32
}

// SearchResult is a single retrieval hit.
type SearchResult struct {
	// ID is the vector store primary key.
	ID int64
	// DocumentID identifies the source document.
	DocumentID string
	// Title is the source document title.
	Title string
	// Content is the chunk text.
	Content string
	// Score is the cosine similarity to the query vector.
	Score float32
}

// CollectionConfig describes a vector collection.
type CollectionConfig struct {
	// Name is the collection name.
	Name string
	// Description is the collection description.
	Description string
	// Dimension is the embedding dimension.
	Dimension int
}

// VectorStore defines the vector storage interface.
type VectorStore interface {
	// CreateCollection creates the collection if it does not exist.
	CreateCollection(ctx context.Context, config *CollectionConfig) error

	// Insert stores document chunks in batch.
	Insert(ctx context.Context, collection string, chunks []*Chunk) ([]int64, error)

	// Search performs a vector similarity search.
	Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error)

	// GetStats returns the number of indexed chunks.
	GetStats(ctx context.Context, collection string) (int64, error)

	// DropCollection removes the collection and all indexed chunks.
	DropCollection(ctx context.Context, collection string) error

	// Close closes the underlying connection.
	Close(ctx context.Context) error
}
