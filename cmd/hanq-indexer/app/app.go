// Package app provides the offline KorQuAD indexing tool.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kart-io/logger"
	"github.com/spf13/pflag"

	"github.com/hanq-io/hanq/internal/apiserver/biz"
	"github.com/hanq-io/hanq/internal/apiserver/store"
	"github.com/hanq-io/hanq/pkg/app"
	"github.com/hanq-io/hanq/pkg/component/milvus"
	"github.com/hanq-io/hanq/pkg/llm"
	"github.com/hanq-io/hanq/pkg/llm/resilience"
	llmopts "github.com/hanq-io/hanq/pkg/options/llm"
	loggeropts "github.com/hanq-io/hanq/pkg/options/logger"
	milvusopts "github.com/hanq-io/hanq/pkg/options/milvus"
	qaopts "github.com/hanq-io/hanq/pkg/options/qa"

	// Register LLM providers.
	_ "github.com/hanq-io/hanq/pkg/llm/ollama"
	_ "github.com/hanq-io/hanq/pkg/llm/openai"
)

// Name is the name of the application.
const Name = "hanq-indexer"

const commandDesc = `HanQ KorQuAD Indexer

Loads a KorQuAD dataset file, chunks the passages, embeds the chunks
and writes them into a Milvus collection. Run it once before starting
the API server, or let the server load the dataset itself at startup.`

// IndexerOptions contains the configuration options for the indexer.
type IndexerOptions struct {
	// Log contains logger configuration.
	Log *loggeropts.Options `json:"log" mapstructure:"log"`

	// Milvus contains Milvus database configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Embedding contains embedding provider configuration.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// QA contains pipeline configuration, of which the indexer uses the
	// collection, chunking and dataset settings.
	QA *qaopts.Options `json:"qa" mapstructure:"qa"`

	// Recreate drops and recreates the collection before indexing.
	Recreate bool `json:"recreate" mapstructure:"recreate"`
}

var _ app.CliOptions = (*IndexerOptions)(nil)

// NewIndexerOptions creates an IndexerOptions instance with default values.
func NewIndexerOptions() *IndexerOptions {
	return &IndexerOptions{
		Log:       loggeropts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
		QA:        qaopts.NewOptions(),
	}
}

// AddFlags adds indexer flags to the flagset.
func (o *IndexerOptions) AddFlags(fs *pflag.FlagSet) {
	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding")
	o.QA.AddFlags(fs)

	fs.BoolVar(&o.Recreate, "recreate", o.Recreate, "Drop and recreate the collection before indexing")
}

// Complete completes the options with derived defaults.
func (o *IndexerOptions) Complete() error {
	return o.Embedding.Complete()
}

// Validate validates all option groups.
func (o *IndexerOptions) Validate() error {
	var errs []error

	errs = append(errs, o.Log.Validate())
	errs = append(errs, o.Milvus.Validate()...)
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.QA.Validate()...)

	return errors.Join(errs...)
}

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := NewIndexerOptions()

	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("HanQ KorQuAD indexing tool"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return run(opts)
		}),
	)
}

func run(opts *IndexerOptions) error {
	opts.Log.AddInitialField("service.name", Name)
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return fmt.Errorf("initialize milvus: %w", err)
	}
	defer milvusClient.Close(context.Background())

	embedProvider, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("initialize embedding provider: %w", err)
	}
	embedder := resilience.NewResilientEmbeddingProvider(embedProvider, nil, nil)

	indexer := biz.NewIndexer(store.NewMilvusStore(milvusClient), embedder, &biz.IndexerConfig{
		Collection:   opts.QA.Collection,
		EmbeddingDim: opts.QA.EmbeddingDim,
		ChunkSize:    opts.QA.ChunkSize,
		ChunkOverlap: opts.QA.ChunkOverlap,
		BatchSize:    opts.QA.EmbedBatchSize,
	})

	stats, err := indexer.IndexDataset(context.Background(), opts.QA.DatasetPath, opts.Recreate, nil)
	if err != nil {
		return fmt.Errorf("index dataset: %w", err)
	}

	logger.Infow("Indexing finished",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"indexed", stats.Indexed,
		"elapsed_ms", stats.ElapsedMS,
	)
	fmt.Printf("Indexed %d chunks from %d documents in %dms\n", stats.Indexed, stats.Documents, stats.ElapsedMS)

	return nil
}
