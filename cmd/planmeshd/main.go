// Command planmeshd serves the planning mesh over HTTP.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/planmesh/planmesh"
	"github.com/planmesh/planmesh/config"
	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/gate"
	"github.com/planmesh/planmesh/httpapi"
	"github.com/planmesh/planmesh/logging"
	"github.com/planmesh/planmesh/memory"
	"github.com/planmesh/planmesh/model"
	"github.com/planmesh/planmesh/model/anthropic"
	"github.com/planmesh/planmesh/model/openai"
	"github.com/planmesh/planmesh/observability"
	"github.com/planmesh/planmesh/statestore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.NewSlogLogger(parseLogLevel(cfg.LogLevel), cfg.LogFormat, false)
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	stateStore, err := statestore.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("state store init failed: %v", err)
	}
	if c, ok := stateStore.(interface{ Close() error }); ok {
		defer c.Close()
	}
	memoryStore, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	if c, ok := memoryStore.(interface{ Close() error }); ok {
		defer c.Close()
	}

	mdl := buildModel(cfg)
	logger.Info("model provider selected", "provider", mdl.Info().Provider, "model", mdl.Info().Name)

	mesh := planmesh.New(func(o *planmesh.Options) {
		o.StateStore = stateStore
		o.MemoryStore = memoryStore
		o.Model = mdl
		o.Resolver = &gate.StaticResolver{
			Default: core.Subscription{
				Tier:   core.Tier(cfg.DefaultTier),
				Status: core.SubscriptionActive,
			},
		}
		o.Logger = logger
		o.Metrics = metrics
		o.MaxIterations = cfg.MaxIterations
		o.MaxMemoryItems = cfg.MaxMemoryItems
		o.MemoryCacheTTL = cfg.MemoryCacheTTL
	})

	api := httpapi.New(mesh, func(o *httpapi.Options) {
		o.AllowAnyOrigin = cfg.AllowAnyOrigin
		o.Logger = logger
	})
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		logger.Info("server listening", "addr", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}

func buildModel(cfg config.Config) model.Model {
	switch cfg.ModelProvider {
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			if cfg.AnthropicModel != "" {
				o.Model = anthropicsdk.Model(cfg.AnthropicModel)
			}
		})
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.OpenAIModel != "" {
				o.Model = cfg.OpenAIModel
			}
		})
	default:
		return model.NewMockModel("planmesh-mock")
	}
}

func parseLogLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
