package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talentcurate/pipeline/internal/config"
	"github.com/talentcurate/pipeline/internal/platform/breaker"
	httpPlatform "github.com/talentcurate/pipeline/internal/platform/http"
	"github.com/talentcurate/pipeline/internal/platform/logger"
	"github.com/talentcurate/pipeline/internal/platform/observability"
	"github.com/talentcurate/pipeline/internal/platform/postgres"
	"github.com/talentcurate/pipeline/internal/platform/ratelimit"
	"github.com/talentcurate/pipeline/internal/platform/redis"

	curationEngine "github.com/talentcurate/pipeline/modules/curation/engine"
	curationHandler "github.com/talentcurate/pipeline/modules/curation/handler"
	enrichCache "github.com/talentcurate/pipeline/modules/enrichment/cache"
	enrichProvider "github.com/talentcurate/pipeline/modules/enrichment/provider"
	enrichService "github.com/talentcurate/pipeline/modules/enrichment/service"
	reasoningCache "github.com/talentcurate/pipeline/modules/reasoning/cache"
	reasoningClient "github.com/talentcurate/pipeline/modules/reasoning/client"
	"github.com/talentcurate/pipeline/modules/reasoning/ensemble"
	"github.com/talentcurate/pipeline/modules/reasoning/prompts"
	researchProvider "github.com/talentcurate/pipeline/modules/research/provider"
	researchService "github.com/talentcurate/pipeline/modules/research/service"
	shortlistRepo "github.com/talentcurate/pipeline/modules/shortlist/repository"
	shortlistService "github.com/talentcurate/pipeline/modules/shortlist/service"
	talentRepo "github.com/talentcurate/pipeline/modules/talent/repository"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting curation API server",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize Sentry (a blank DSN disables reporting)
	if err := observability.Init(observability.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
	}); err != nil {
		logger.Warn("Failed to initialize Sentry, error reporting disabled", zap.Error(err))
	}
	defer observability.Flush(2 * time.Second)

	ctx := context.Background()

	// Initialize PostgreSQL
	pgClient, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgClient.Close()
	logger.Info("Connected to PostgreSQL")

	// Run database migrations (MANDATORY: must run before HTTP server starts)
	migrationsPath := "./migrations"
	if err := postgres.RunMigrations(ctx, cfg.Database, logger, migrationsPath); err != nil {
		logger.Fatal("Failed to run database migrations",
			zap.Error(err),
			zap.String("migrations_path", migrationsPath),
		)
	}

	// Initialize Redis
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// Shared upstream rate limits and circuit breakers (one per provider,
	// shared across all builds in the process)
	limiters := ratelimit.NewRegistry()
	limiters.Configure("enrichment", cfg.Enrichment.RatePerMinute)
	limiters.Configure("research", cfg.Research.RatePerMinute)
	limiters.Configure("reasoning", 120)
	breakers := breaker.NewRegistry(breaker.DefaultConfig())

	// Talent store
	store := talentRepo.New(pgClient.Pool)

	// Enrichment
	enrichmentCache := enrichCache.New(store, cfg.Enrichment.TTL)
	enrichmentClient := enrichProvider.New(enrichProvider.Config{
		APIKey:  cfg.Enrichment.APIKey,
		BaseURL: cfg.Enrichment.BaseURL,
		Timeout: cfg.Enrichment.PerPersonTimeout,
	})
	enrichmentSvc := enrichService.New(
		enrichmentCache,
		enrichmentClient,
		limiters.Get("enrichment"),
		breakers.Get("enrichment-provider"),
		cfg.Enrichment.PerPersonTimeout,
	)

	// Reasoning
	promptSet, err := prompts.Load()
	if err != nil {
		logger.Fatal("Failed to load reasoning prompts", zap.Error(err))
	}
	logger.Info("Loaded reasoning prompts", zap.String("reasoning_version", promptSet.Version))

	anthropicClient := reasoningClient.NewClient(cfg.Reasoning.AnthropicAPIKey)
	reasoningEnsemble := ensemble.New(
		anthropicClient,
		promptSet,
		limiters.Get("reasoning"),
		breakers.Get("reasoning-agents"),
		cfg.Reasoning.PerAgentTimeout,
		ensemble.Config{Model: cfg.Reasoning.Model, MaxTokens: 512},
	)
	verdictCache := reasoningCache.New(redisClient.Client, promptSet.Version, cfg.Reasoning.CacheTTL)

	// Research (optional - gracefully handle missing config)
	researchClient := researchProvider.New(researchProvider.Config{
		APIKey:  cfg.Research.APIKey,
		BaseURL: cfg.Research.BaseURL,
		Timeout: cfg.Research.PerPersonTimeout,
	})
	researchSvc := researchService.New(
		researchClient,
		limiters.Get("research"),
		breakers.Get("research-provider"),
		cfg.Research.PerPersonTimeout,
		cfg.Research.Enabled,
		cfg.Research.APIKey,
	)
	if researchSvc.Enabled() {
		logger.Info("Research client enabled")
	} else {
		logger.Info("Research configuration not provided, research stage will be skipped")
	}

	// Shortlist cache
	entryRepo := shortlistRepo.NewEntryRepository(pgClient.Pool)
	leaseRepo := shortlistRepo.NewLeaseRepository(redisClient)
	shortlistSvc := shortlistService.New(entryRepo, leaseRepo, leaseRepo, shortlistService.Config{
		TTL:           cfg.Shortlist.TTL,
		LeaseTTL:      cfg.Shortlist.LeaseTTL,
		FailedBackoff: cfg.Shortlist.FailedBackoff,
	})

	// Curation engine
	engine := curationEngine.New(
		store,
		enrichmentSvc,
		reasoningEnsemble,
		verdictCache,
		researchSvc,
		shortlistSvc,
		logger,
		curationEngine.Config{
			EnrichmentSliceSize:    cfg.Curation.EnrichmentSliceSize,
			MaxEnrichmentsPerBuild: cfg.Enrichment.MaxPerBuild,
			ResearchSliceSize:      cfg.Research.SliceSize,
			MinCandidatesToReason:  cfg.Curation.MinCandidatesToReason,
			DefaultLimit:           cfg.Curation.DefaultLimit,
			MinLimit:               cfg.Curation.MinLimit,
			MaxLimit:               cfg.Curation.MaxLimit,
			WholeBuildDeadline:     cfg.Curation.WholeBuildDeadline,
			LeaseRefreshInterval:   cfg.Shortlist.LeaseRefreshInterval,
			StaleOnErrorDefault:    cfg.Curation.StaleOnErrorDefault,
		},
	)

	// Set Gin mode
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpPlatform.RequestIDMiddleware())
	router.Use(httpPlatform.LoggerMiddleware(logger))
	router.Use(httpPlatform.CORSMiddleware())

	// Health check endpoint
	router.GET("/health", healthCheckHandler(ctx, pgClient, redisClient))

	// Ping endpoint
	router.GET("/ping", pingHandler)

	// API v1 routes
	curationHdl := curationHandler.NewCurationHandler(engine)
	v1 := router.Group("/api/v1")
	{
		curationHdl.RegisterRoutes(v1)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func healthCheckHandler(ctx context.Context, pgClient *postgres.Client, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		services := make(map[string]string)

		// Check PostgreSQL
		if err := pgClient.Health(ctx); err != nil {
			services["postgres"] = "down"
		} else {
			services["postgres"] = "up"
		}

		// Check Redis
		if err := redisClient.Health(ctx); err != nil {
			services["redis"] = "down"
		} else {
			services["redis"] = "up"
		}

		httpPlatform.RespondWithHealth(c, services)
	}
}

func pingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
