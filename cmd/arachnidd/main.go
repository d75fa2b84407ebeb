// Command arachnidd runs the coordination runtime as an HTTP service: task
// submission, web/agent inspection, and metrics, grounded on
// core/cmd/example/main.go's shape (build collaborators, wire them into one
// process, start serving) adapted to this runtime's engine/server split.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/coordination"
	"github.com/Pharbi/arachnid/internal/engine"
	"github.com/Pharbi/arachnid/internal/providers"
	"github.com/Pharbi/arachnid/internal/server"
	"github.com/Pharbi/arachnid/internal/store"
	"github.com/Pharbi/arachnid/internal/telemetry"
)

func main() {
	logger := telemetry.New("arachnidd")

	tracerProvider, err := telemetry.NewTracerProvider("arachnidd")
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracerProvider.Shutdown(shutdownCtx)
	}()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	embedder := providers.NewHashEmbedding(cfg.Dimension)

	var llm core.LLMProvider
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		llm = providers.NewAnthropicLLM(providers.AnthropicLLMOptions{
			APIKey: apiKey,
			Model:  anthropic.ModelClaude3_5SonnetLatest,
			Logger: logger,
		})
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set, validation and LLM-backed capabilities will fail", nil)
	}

	prov := core.Providers{Embedding: embedder, LLM: llm}

	backingStore, err := newStore(logger)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}

	registry := coordination.NewCapabilityRegistry()
	providers.Register(registry)

	driver := coordination.NewDriver(registry, prov)
	driver.Logger = logger
	driver.Events = core.DiscardEvents

	eng := engine.New(backingStore, driver, prov, logger)
	eng.Tracer = otel.Tracer("arachnidd")

	srv := &server.Server{Engine: eng, Metrics: driver.Metrics, Logger: logger}

	httpServer := &http.Server{
		Addr:         addr(),
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("coordination engine starting", map[string]interface{}{"tick_interval": eng.TickInterval.String()})
		if err := eng.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("engine stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	go func() {
		logger.Info("http server starting", map[string]interface{}{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", nil)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

func newStore(logger telemetry.Logger) (core.Store, error) {
	if url := os.Getenv("REDIS_URL"); url != "" {
		logger.Info("using redis store", map[string]interface{}{"url": url})
		backing, err := store.NewRedisStore(store.RedisStoreOptions{RedisURL: url})
		if err != nil {
			return nil, err
		}
		return store.NewRetryingStore(backing, store.DefaultRetryConfig()), nil
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		logger.Info("using postgres store", nil)
		backing, err := store.NewPostgresStore(context.Background(), dsn)
		if err != nil {
			return nil, err
		}
		return store.NewRetryingStore(backing, store.DefaultRetryConfig()), nil
	}
	logger.Info("using in-memory store", nil)
	return store.NewMemoryStore(), nil
}

func addr() string {
	if a := os.Getenv("ARACHNIDD_ADDR"); a != "" {
		return a
	}
	return ":8080"
}

// loadConfig reads ARACHNIDD_CONFIG_FILE if set, otherwise falls back to
// defaults-plus-environment, matching core.NewConfig's layering.
func loadConfig() (*core.Config, error) {
	return core.NewConfigFromFile(os.Getenv("ARACHNIDD_CONFIG_FILE"))
}
