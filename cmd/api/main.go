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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/nfcure/digitaltwin/backend/internal/adapters/cache"
	"github.com/nfcure/digitaltwin/backend/internal/adapters/database"
	"github.com/nfcure/digitaltwin/backend/internal/adapters/events"
	"github.com/nfcure/digitaltwin/backend/internal/adapters/providers/assessment"
	"github.com/nfcure/digitaltwin/backend/internal/adapters/search"
	"github.com/nfcure/digitaltwin/backend/internal/api/handlers"
	"github.com/nfcure/digitaltwin/backend/internal/api/middleware"
	"github.com/nfcure/digitaltwin/backend/internal/api/routes"
	"github.com/nfcure/digitaltwin/backend/internal/application/services"
	"github.com/nfcure/digitaltwin/backend/internal/domain/providers"
	"github.com/nfcure/digitaltwin/backend/internal/domain/repositories"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/clients/llm"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/clients/postgres"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/clients/redis"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/clients/typesense"
	"github.com/nfcure/digitaltwin/backend/internal/infrastructure/observability"
	"github.com/nfcure/digitaltwin/backend/pkg/config"
)

func main() {
	// A missing .env is normal outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			observability.EnableLogExport()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Msg("PostgreSQL client initialized")

	// The service runs without Redis, minus caching and events
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable; caching and events disabled")
	} else {
		defer redisClient.Close()
		log.Info().Msg("Redis client initialized")
	}

	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
	}

	var searchRepo repositories.ReportSearchRepository
	if typesenseClient, err := typesense.NewClient(&cfg.Typesense); err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable; report search disabled")
	} else {
		if err := typesenseClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema")
		}
		searchRepo = search.NewReportSearchAdapter(typesenseClient)
		log.Info().Msg("Typesense client initialized")
	}

	var reportRepo repositories.MedicalReportRepository = database.NewMedicalReportAdapter(pgClient, metrics)
	if cacheProvider != nil {
		reportRepo = database.NewCachedMedicalReportAdapter(reportRepo, cacheProvider, cfg.History.CacheTTL, metrics)
		log.Info().Dur("ttl", cfg.History.CacheTTL).Msg("Report adapter wrapped with caching layer")
	}

	providerCfg := assessment.ProviderConfig{
		SimulateOnFailure: cfg.LLM.SimulateOnFailure,
	}
	if cfg.LLM.APIKey == "" {
		log.Warn().Msg("LLM_API_KEY is not set; using simulated assessments")
	} else {
		llmClient, err := llm.NewClient(&cfg.LLM)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize LLM client; using simulated assessments")
		} else {
			defer llmClient.Close()
			providerCfg.Primary = llmClient
		}
	}
	assessmentProvider := assessment.NewAssessmentProvider(providerCfg)
	log.Info().Str("provider", assessmentProvider.Name()).Msg("Assessment provider ready")

	reportService := services.NewReportService(reportRepo, searchRepo, eventBus)
	diagnosisService := services.NewDiagnosisService(assessmentProvider, reportService, cacheProvider, metrics)
	historyService := services.NewHistoricalAnalysisService(assessmentProvider, reportService, cfg.History.MaxReports)
	exportService := services.NewReportExportService(reportService, reportRepo, assessmentProvider.Name())

	var invalidation *services.CacheInvalidationService
	if cacheProvider != nil && eventBus != nil {
		invalidation = services.NewCacheInvalidationService(cacheProvider, eventBus)
		if err := invalidation.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start cache invalidation service")
		}
	}

	healthHandler := handlers.NewHealthHandler(cfg.OTEL.ServiceVersion)
	healthHandler.Register("postgres", pgClient.Ping)
	if redisClient != nil {
		healthHandler.Register("redis", redisClient.Ping)
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, middleware.DefaultCacheRoutes())
	}

	router := routes.NewRouter(
		healthHandler,
		handlers.NewReportHandler(diagnosisService, reportService, exportService),
		handlers.NewDiagnosisHandler(diagnosisService),
		handlers.NewHistoryHandler(historyService),
		handlers.NewReportStreamHandler(eventBus),
		cacheMiddleware,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if invalidation != nil {
		invalidation.Stop()
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}

	log.Info().Msg("Server stopped")
}
