// Package app provides the QA API server application.
package app

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/hanq-io/hanq/internal/apiserver"
	"github.com/hanq-io/hanq/pkg/app"
	cacheopts "github.com/hanq-io/hanq/pkg/options/cache"
	httpopts "github.com/hanq-io/hanq/pkg/options/http"
	llmopts "github.com/hanq-io/hanq/pkg/options/llm"
	loggeropts "github.com/hanq-io/hanq/pkg/options/logger"
	milvusopts "github.com/hanq-io/hanq/pkg/options/milvus"
	qaopts "github.com/hanq-io/hanq/pkg/options/qa"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTP contains HTTP server configuration.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// Log contains logger configuration.
	Log *loggeropts.Options `json:"log" mapstructure:"log"`

	// Milvus contains Milvus database configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Embedding contains embedding provider configuration.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Chat contains chat provider configuration.
	Chat *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// QA contains question answering pipeline configuration.
	QA *qaopts.Options `json:"qa" mapstructure:"qa"`

	// Cache contains query cache configuration.
	Cache *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// EnableCORS turns on the permissive CORS middleware.
	EnableCORS bool `json:"enable-cors" mapstructure:"enable-cors"`

	// RateLimitRPS throttles requests globally when positive.
	RateLimitRPS float64 `json:"rate-limit-rps" mapstructure:"rate-limit-rps"`

	// RateLimitBurst is the rate limiter burst size.
	RateLimitBurst int `json:"rate-limit-burst" mapstructure:"rate-limit-burst"`
}

var _ app.CliOptions = (*ServerOptions)(nil)

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTP:      httpopts.NewOptions(),
		Log:       loggeropts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
		Chat:      llmopts.NewChatOptions(),
		QA:        qaopts.NewOptions(),
		Cache:     cacheopts.NewOptions(),
	}
}

// AddFlags adds all server flags to the flagset.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.HTTP.AddFlags(fs)
	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding")
	o.Chat.AddFlags(fs, "chat")
	o.QA.AddFlags(fs)
	o.Cache.AddFlags(fs)

	fs.BoolVar(&o.EnableCORS, "server.enable-cors", o.EnableCORS, "Enable permissive CORS handling")
	fs.Float64Var(&o.RateLimitRPS, "server.rate-limit-rps", o.RateLimitRPS, "Global request rate limit, 0 disables")
	fs.IntVar(&o.RateLimitBurst, "server.rate-limit-burst", o.RateLimitBurst, "Rate limiter burst size")
}

// Complete completes the options with derived defaults.
func (o *ServerOptions) Complete() error {
	if err := o.Embedding.Complete(); err != nil {
		return err
	}
	return o.Chat.Complete()
}

// Validate validates all option groups.
func (o *ServerOptions) Validate() error {
	var errs []error

	errs = append(errs, o.HTTP.Validate())
	errs = append(errs, o.Log.Validate())
	errs = append(errs, o.Milvus.Validate()...)
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.Chat.Validate()...)
	errs = append(errs, o.QA.Validate()...)
	errs = append(errs, o.Cache.Validate())

	return errors.Join(errs...)
}

// Config builds the server runtime configuration from the options.
func (o *ServerOptions) Config() *apiserver.Config {
	return &apiserver.Config{
		HTTP:           o.HTTP,
		Log:            o.Log,
		Milvus:         o.Milvus,
		Embedding:      o.Embedding,
		Chat:           o.Chat,
		QA:             o.QA,
		Cache:          o.Cache,
		EnableCORS:     o.EnableCORS,
		RateLimitRPS:   o.RateLimitRPS,
		RateLimitBurst: o.RateLimitBurst,
		Version:        app.GetVersion(),
	}
}
