// Package qa provides question answering pipeline configuration options.
package qa

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/hanq-io/hanq/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains QA pipeline configuration.
type Options struct {
	// Collection is the name of the Milvus collection.
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// TopK is the default number of passages to retrieve.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// ChunkSize is the chunk length in runes.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between adjacent chunks in runes.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// EmbedBatchSize is the number of chunks embedded per provider call.
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// DatasetPath is the KorQuAD dataset file to index.
	DatasetPath string `json:"dataset-path" mapstructure:"dataset-path"`

	// LoadOnStartup starts background dataset loading when the server
	// boots.
	LoadOnStartup bool `json:"load-on-startup" mapstructure:"load-on-startup"`

	// SimilarityThreshold is the minimum vector similarity for a
	// retrieval candidate.
	SimilarityThreshold float64 `json:"similarity-threshold" mapstructure:"similarity-threshold"`

	// RelevanceThreshold is the minimum lexical relevance for a
	// retrieval candidate and the minimum confidence for a valid answer.
	RelevanceThreshold float64 `json:"relevance-threshold" mapstructure:"relevance-threshold"`

	// MinKeywordOverlap is the minimum shared keyword count between
	// question and passage.
	MinKeywordOverlap int `json:"min-keyword-overlap" mapstructure:"min-keyword-overlap"`

	// QueryTimeout bounds a single question answering request.
	QueryTimeout time.Duration `json:"query-timeout" mapstructure:"query-timeout"`

	// MaxAnswerRunes truncates longer generated answers to their first
	// sentence.
	MaxAnswerRunes int `json:"max-answer-runes" mapstructure:"max-answer-runes"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Collection:          "korquad_docs",
		EmbeddingDim:        768,
		TopK:                5,
		ChunkSize:           500,
		ChunkOverlap:        50,
		EmbedBatchSize:      32,
		DatasetPath:         "data/KorQuAD_v1.0_dev.json",
		LoadOnStartup:       true,
		SimilarityThreshold: 0.6,
		RelevanceThreshold:  0.3,
		MinKeywordOverlap:   2,
		QueryTimeout:        60 * time.Second,
		MaxAnswerRunes:      200,
	}
}

// AddFlags adds flags for QA options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.StringVar(&o.Collection, join+"qa.collection", o.Collection, "Milvus collection name.")
	fs.IntVar(&o.EmbeddingDim, join+"qa.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.IntVar(&o.TopK, join+"qa.top-k", o.TopK, "Default number of passages to retrieve.")
	fs.IntVar(&o.ChunkSize, join+"qa.chunk-size", o.ChunkSize, "Chunk size in runes.")
	fs.IntVar(&o.ChunkOverlap, join+"qa.chunk-overlap", o.ChunkOverlap, "Chunk overlap in runes.")
	fs.IntVar(&o.EmbedBatchSize, join+"qa.embed-batch-size", o.EmbedBatchSize, "Chunks embedded per provider call.")
	fs.StringVar(&o.DatasetPath, join+"qa.dataset-path", o.DatasetPath, "KorQuAD dataset file path.")
	fs.BoolVar(&o.LoadOnStartup, join+"qa.load-on-startup", o.LoadOnStartup, "Load the dataset in the background at startup.")
	fs.Float64Var(&o.SimilarityThreshold, join+"qa.similarity-threshold", o.SimilarityThreshold, "Minimum vector similarity for retrieval candidates.")
	fs.Float64Var(&o.RelevanceThreshold, join+"qa.relevance-threshold", o.RelevanceThreshold, "Minimum lexical relevance for retrieval candidates.")
	fs.IntVar(&o.MinKeywordOverlap, join+"qa.min-keyword-overlap", o.MinKeywordOverlap, "Minimum keyword overlap between question and passage.")
	fs.DurationVar(&o.QueryTimeout, join+"qa.query-timeout", o.QueryTimeout, "Timeout for a single QA request.")
	fs.IntVar(&o.MaxAnswerRunes, join+"qa.max-answer-runes", o.MaxAnswerRunes, "Answers longer than this are cut to their first sentence.")
}

// Validate validates the QA options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("qa collection is required"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("qa embedding-dim must be positive"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("qa top-k must be positive"))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("qa chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("qa chunk-overlap must be in [0, chunk-size)"))
	}
	if o.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("qa embed-batch-size must be positive"))
	}
	if o.SimilarityThreshold < 0 || o.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("qa similarity-threshold must be in [0, 1]"))
	}
	if o.RelevanceThreshold < 0 || o.RelevanceThreshold > 1 {
		errs = append(errs, fmt.Errorf("qa relevance-threshold must be in [0, 1]"))
	}
	if o.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("qa query-timeout must be positive"))
	}
	return errs
}
