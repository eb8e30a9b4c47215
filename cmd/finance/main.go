package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/config"
	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/handler"
	"github.com/gaqno/financial-app-sub001/internal/infra/cache"
	"github.com/gaqno/financial-app-sub001/internal/infra/memstore"
	"github.com/gaqno/financial-app-sub001/internal/infra/observability"
	"github.com/gaqno/financial-app-sub001/internal/infra/postgres"
	"github.com/gaqno/financial-app-sub001/internal/infra/resilience"
	"github.com/gaqno/financial-app-sub001/internal/infra/supabase"
	"github.com/gaqno/financial-app-sub001/internal/port"
	"github.com/gaqno/financial-app-sub001/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "finance-api")
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("undo_window", cfg.UndoWindow),
		zap.Duration("idempotency_ttl", cfg.IdempotencyTTL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "finance-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	var health handler.StoreHealth
	if h, ok := store.(handler.StoreHealth); ok {
		health = h
	}

	// --- Idempotency cache ---
	idempotency := cache.New[*domain.CreateTransactionResponse](cfg.IdempotencyTTL)
	defer idempotency.Close()

	// --- Services ---
	txSvc := service.NewTransactionService(store, idempotency, metrics, logger, service.Options{
		UndoWindow: cfg.UndoWindow,
	})
	defer txSvc.Close()

	// --- Router ---
	router := handler.NewRouter(txSvc, health, cfg.CORSAllowedOrigins, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// buildStore selects the TransactionStore backend. The returned func
// releases its resources.
func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.TransactionStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		if cfg.SupabaseURL == "" {
			return nil, nil, errors.New("SUPABASE_URL is required for the supabase backend")
		}
		logger.Info("using Supabase as transaction store",
			zap.String("supabase_url", cfg.SupabaseURL),
			zap.String("table", cfg.SupabaseTable),
		)
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cfg.SupabaseTable,
			resilience.NewCircuitBreaker("supabase"),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			logger,
		)
		return client, func() {}, nil

	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("using Postgres as transaction store")
		return store, pool.Close, nil

	case config.BackendMemory, "":
		logger.Warn("using in-memory transaction store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}
