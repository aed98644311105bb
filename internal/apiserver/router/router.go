// Package router wires the QA HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/hanq-io/hanq/internal/apiserver/handler"
	"github.com/hanq-io/hanq/internal/apiserver/middleware"
)

// Config controls the optional middleware.
type Config struct {
	// EnableCORS toggles the permissive CORS policy.
	EnableCORS bool
	// RateLimitRPS is the global request rate limit. Zero disables limiting.
	RateLimitRPS float64
	// RateLimitBurst is the token bucket burst size.
	RateLimitBurst int
}

// New builds the gin engine with the middleware chain and all QA routes.
func New(qaHandler *handler.QAHandler, cfg Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger("/health", "/metrics"))
	if cfg.EnableCORS {
		engine.Use(middleware.CORS())
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitRPS)
		}
		engine.Use(middleware.RateLimit(cfg.RateLimitRPS, burst))
	}

	engine.GET("/health", qaHandler.Health)
	engine.GET("/metrics", qaHandler.Metrics)

	v1 := engine.Group("/v1")
	{
		v1.POST("/qa", qaHandler.Query)
		v1.POST("/index", qaHandler.Index)
		v1.GET("/stats", qaHandler.Stats)
		v1.GET("/system/info", qaHandler.SystemInfo)

		loading := v1.Group("/loading")
		{
			loading.GET("/status", qaHandler.LoadingStatus)
			loading.POST("/initialize", qaHandler.LoadingInitialize)
		}
	}

	logger.Info("HTTP routes registered")
	return engine
}
