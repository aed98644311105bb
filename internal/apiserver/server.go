// Package apiserver assembles and runs the QA API server.
package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kart-io/logger"

	"github.com/hanq-io/hanq/internal/apiserver/biz"
	"github.com/hanq-io/hanq/internal/apiserver/handler"
	"github.com/hanq-io/hanq/internal/apiserver/loader"
	"github.com/hanq-io/hanq/internal/apiserver/router"
	"github.com/hanq-io/hanq/internal/apiserver/store"
	"github.com/hanq-io/hanq/internal/model"
	"github.com/hanq-io/hanq/internal/pkg/quality"
	"github.com/hanq-io/hanq/pkg/component/milvus"
	"github.com/hanq-io/hanq/pkg/component/redis"
	"github.com/hanq-io/hanq/pkg/llm"
	"github.com/hanq-io/hanq/pkg/llm/resilience"
	cacheopts "github.com/hanq-io/hanq/pkg/options/cache"
	httpopts "github.com/hanq-io/hanq/pkg/options/http"
	llmopts "github.com/hanq-io/hanq/pkg/options/llm"
	loggeropts "github.com/hanq-io/hanq/pkg/options/logger"
	milvusopts "github.com/hanq-io/hanq/pkg/options/milvus"
	qaopts "github.com/hanq-io/hanq/pkg/options/qa"

	// Register LLM providers.
	_ "github.com/hanq-io/hanq/pkg/llm/ollama"
	_ "github.com/hanq-io/hanq/pkg/llm/openai"
)

// Config aggregates every option group the server needs.
type Config struct {
	HTTP      *httpopts.Options
	Log       *loggeropts.Options
	Milvus    *milvusopts.Options
	Embedding *llmopts.ProviderOptions
	Chat      *llmopts.ProviderOptions
	QA        *qaopts.Options
	Cache     *cacheopts.Options

	// EnableCORS turns on the permissive CORS middleware.
	EnableCORS bool
	// RateLimitRPS throttles requests globally when positive.
	RateLimitRPS float64
	// RateLimitBurst is the rate limiter burst size.
	RateLimitBurst int

	// Version is the build version reported by the system info endpoint.
	Version string
}

// Server is the assembled QA API server.
type Server struct {
	cfg        *Config
	httpServer *http.Server
	loader     *loader.Loader
	store      store.VectorStore
	closers    []func() error
}

// NewServer wires the QA service from configuration. The caller is
// expected to have initialized the global logger already.
func NewServer(cfg *Config) (*Server, error) {
	// Milvus is mandatory. Everything retrieval flows through it.
	milvusClient, err := milvus.New(cfg.Milvus)
	if err != nil {
		return nil, fmt.Errorf("initialize milvus: %w", err)
	}
	vectorStore := store.NewMilvusStore(milvusClient)
	logger.Infow("Milvus client initialized", "address", cfg.Milvus.Address)

	srv := &Server{cfg: cfg, store: vectorStore}
	srv.closers = append(srv.closers, func() error {
		return vectorStore.Close(context.Background())
	})

	// Redis is optional. When it is down the server still answers
	// questions, just without the query and embedding caches.
	var queryCache *biz.QueryCache
	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err = redis.NewWithContext(ctx, cfg.Cache.Redis)
		cancel()
		if err != nil {
			logger.Warnw("Redis unavailable, caching disabled", "error", err.Error())
			redisClient = nil
		} else {
			queryCache = biz.NewQueryCache(redisClient.Client(), &biz.QueryCacheConfig{
				Enabled:   true,
				TTL:       cfg.Cache.TTL,
				KeyPrefix: cfg.Cache.KeyPrefix,
			})
			srv.closers = append(srv.closers, redisClient.Close)
			logger.Infow("Query cache initialized", "ttl", cfg.Cache.TTL.String())
		}
	}

	embedProvider, err := llm.NewEmbeddingProvider(cfg.Embedding.Provider, cfg.Embedding.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("initialize embedding provider: %w", err)
	}
	chatProvider, err := llm.NewChatProvider(cfg.Chat.Provider, cfg.Chat.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("initialize chat provider: %w", err)
	}
	logger.Infow("LLM providers initialized",
		"embedding_provider", cfg.Embedding.Provider,
		"embedding_model", cfg.Embedding.Model,
		"chat_provider", cfg.Chat.Provider,
		"chat_model", cfg.Chat.Model,
	)

	var embedder llm.EmbeddingProvider = embedProvider
	if redisClient != nil {
		embedder = llm.NewCachedEmbeddingProvider(embedder, redisClient.Client(), nil)
	}
	embedder = resilience.NewResilientEmbeddingProvider(embedder, nil, nil)
	chat := resilience.NewResilientChatProvider(chatProvider, nil, nil)

	qa := cfg.QA
	service := biz.NewQAService(vectorStore, embedder, chat, queryCache, &biz.ServiceConfig{
		IndexerConfig: &biz.IndexerConfig{
			Collection:   qa.Collection,
			EmbeddingDim: qa.EmbeddingDim,
			ChunkSize:    qa.ChunkSize,
			ChunkOverlap: qa.ChunkOverlap,
			BatchSize:    qa.EmbedBatchSize,
		},
		RetrieverConfig: &biz.RetrieverConfig{
			Collection: qa.Collection,
			TopK:       qa.TopK,
			Quality: quality.Config{
				SimilarityThreshold: qa.SimilarityThreshold,
				RelevanceThreshold:  qa.RelevanceThreshold,
				MinKeywordOverlap:   qa.MinKeywordOverlap,
			},
		},
		GeneratorConfig: &biz.GeneratorConfig{
			MaxAnswerRunes: qa.MaxAnswerRunes,
		},
	})

	srv.loader = loader.New(service.IndexWithProgress, qa.DatasetPath)

	systemInfo := func(ctx context.Context) (*model.SystemInfo, error) {
		count, err := vectorStore.GetStats(ctx, qa.Collection)
		if err != nil {
			count = 0
		}
		return &model.SystemInfo{
			Version:        cfg.Version,
			EmbeddingModel: cfg.Embedding.Model,
			ChatModel:      cfg.Chat.Model,
			LLMProvider:    cfg.Chat.Provider,
			Collection:     qa.Collection,
			DocumentCount:  count,
			CacheEnabled:   queryCache != nil,
		}, nil
	}

	qaHandler := handler.NewQAHandler(service, srv.loader, systemInfo, qa.QueryTimeout, qa.DatasetPath)
	engine := router.New(qaHandler, router.Config{
		EnableCORS:     cfg.EnableCORS,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv.httpServer = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return srv, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.startLoading(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("HTTP server shutdown failed", "error", err.Error())
	}

	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			logger.Warnw("Component close failed", "error", err.Error())
		}
	}

	logger.Info("Server stopped")
	return nil
}

// startLoading decides the initial loader state. An already populated
// collection is served as-is without re-indexing.
func (s *Server) startLoading(ctx context.Context) {
	if !s.cfg.QA.LoadOnStartup {
		return
	}

	statsCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	count, err := s.store.GetStats(statsCtx, s.cfg.QA.Collection)
	cancel()
	if err == nil && count > 0 {
		s.loader.MarkReady(fmt.Sprintf("기존 컬렉션 사용 중입니다. (청크 %d개)", count))
		logger.Infow("Existing collection found, skipping dataset load",
			"collection", s.cfg.QA.Collection, "chunks", count)
		return
	}

	if err := s.loader.Start(context.Background(), false); err != nil {
		logger.Warnw("Dataset loading not started", "error", err.Error())
	}
}
