package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/api"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/config"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/embedding"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/ratelimit"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/retrieval"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/seed"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/server"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/storage"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/telemetry"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/workflow"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("WORKFLOW_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("workflowd starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database.
	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	// Run embedded migrations. RunMigrations tracks applied files in
	// schema_migrations and skips duplicates, so errors here indicate real
	// failures (not "already exists").
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Create embedding provider.
	provider := newEmbeddingProvider(cfg, logger)

	// Seed demo data on an empty database.
	if cfg.SeedOnStartup {
		seeder := seed.New(db, provider, logger)
		if _, err := seeder.Run(ctx, cfg.SeedCustomers, cfg.SeedTransactions); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	// Wire the pipeline engine.
	retrievalSvc := retrieval.NewService(db, provider, logger)
	engine := workflow.NewEngine(db, db, retrievalSvc, workflow.Config{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxToolCalls:        cfg.MaxToolCalls,
	}, logger)

	// Rate limiter for the run endpoint.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}
	defer func() { _ = limiter.Close() }()

	srv := server.New(server.Config{
		Store:               db,
		Engine:              engine,
		Logger:              logger,
		RateLimiter:         limiter,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		EmbeddingProvider:   provider.Name(),
		MockMode:            cfg.MockMode(),
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         api.OpenAPISpec,
	})

	// Serve until a signal arrives, then drain in-flight runs. WriteTimeout
	// already bounds how long a synchronous run can hold a connection, so
	// the drain window just needs to exceed it slightly.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("workflowd shutting down")
		httpCtx, httpCancel := context.WithTimeout(context.Background(), cfg.WriteTimeout+5*time.Second)
		defer httpCancel()
		return srv.Shutdown(httpCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("workflowd stopped")
	return nil
}

// newEmbeddingProvider creates an embedding provider based on configuration.
// The mock provider is deterministic and needs no network, which keeps the
// demo self-contained; openai requires an API key (enforced in config).
func newEmbeddingProvider(cfg config.Config, logger *slog.Logger) embedding.Provider {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		logger.Info("embedding provider: openai",
			"model", cfg.EmbeddingModel, "dimensions", cfg.EmbeddingDimensions)
		return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	default:
		logger.Info("embedding provider: mock", "dimensions", cfg.EmbeddingDimensions)
		return embedding.NewMockProvider(cfg.EmbeddingDimensions)
	}
}
