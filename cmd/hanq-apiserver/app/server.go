package app

import (
	"fmt"

	"github.com/kart-io/logger"

	"github.com/hanq-io/hanq/internal/apiserver"
	"github.com/hanq-io/hanq/pkg/app"
)

const (
	// Name is the name of the application.
	Name = "hanq-apiserver"

	commandDesc = `HanQ Question Answering Server

A Korean question answering service over the KorQuAD dataset.

This server provides:
  - KorQuAD document indexing with vector embeddings
  - Semantic passage retrieval backed by Milvus
  - Quality-gated answer generation with an LLM`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := NewServerOptions()

	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("HanQ question answering server"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *ServerOptions) app.RunFunc {
	return func() error {
		opts.Log.AddInitialField("service.name", Name)
		opts.Log.AddInitialField("service.version", app.GetVersion())
		if err := opts.Log.Init(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Infow("Starting server", "name", Name, "version", app.GetVersion())

		server, err := apiserver.NewServer(opts.Config())
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run()
	}
}
