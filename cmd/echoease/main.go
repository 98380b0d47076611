package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echoease/echoease-go/internal/config"
	"github.com/echoease/echoease-go/internal/domain"
	"github.com/echoease/echoease-go/internal/handler"
	"github.com/echoease/echoease-go/internal/infra/appwrite"
	"github.com/echoease/echoease-go/internal/infra/cache"
	"github.com/echoease/echoease-go/internal/infra/observability"
	"github.com/echoease/echoease-go/internal/infra/oracle"
	"github.com/echoease/echoease-go/internal/infra/realtime"
	"github.com/echoease/echoease-go/internal/infra/resilience"
	"github.com/echoease/echoease-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("oracle_base_url", cfg.OracleBaseURL),
		zap.String("appwrite_endpoint", cfg.AppwriteEndpoint),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "echoease-core")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Realtime feed ---
	bus := realtime.NewHub()

	// --- Cache ---
	categoryCache := cache.New[[]domain.FinanceCategory](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("external-apis")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	store := appwrite.NewClient(
		httpClient,
		cfg.AppwriteEndpoint,
		cfg.AppwriteProjectID,
		cfg.AppwriteAPIKey,
		cfg.AppwriteDatabaseID,
		appwrite.Collections{
			History:    cfg.HistoryCollection,
			Schedule:   cfg.ScheduleCollection,
			Categories: cfg.CategoriesCollection,
			Spending:   cfg.SpendingCollection,
			Mood:       cfg.MoodCollection,
			Other:      cfg.OtherCollection,
		},
		cb,
		resilienceCfg,
		bus,
		logger,
	)

	transcriber := oracle.NewTranscriptionClient(httpClient, cfg.OracleBaseURL, cfg.OracleAPIKey, cfg.TranscriptionModel, cb, resilienceCfg, logger)
	classifier := oracle.NewExtractionClient(httpClient, cfg.OracleBaseURL, cfg.OracleAPIKey, cfg.ExtractionModel, cb, resilienceCfg, metrics, logger)

	// --- Services ---
	financeSvc := service.NewFinanceService(store, categoryCache, bus, metrics, logger,
		cfg.CategoriesCollection, cfg.SpendingCollection)
	defer financeSvc.Close()

	scheduleSvc := service.NewScheduleService(store, metrics, logger)
	moodSvc := service.NewMoodService(store, logger)
	historySvc := service.NewHistoryService(store)
	authSvc := service.NewAuthService(cfg.JWTSecret)

	pipeline := service.NewPipeline(transcriber, classifier, store, financeSvc, bus, metrics, logger, cfg.MaxConcurrency)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Pipeline: pipeline,
		Finance:  financeSvc,
		Schedule: scheduleSvc,
		Mood:     moodSvc,
		History:  historySvc,
		Auth:     authSvc,
		Bus:      bus,
		Metrics:  metrics,
	}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// No write timeout: /v1/events holds SSE streams open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
