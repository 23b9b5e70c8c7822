package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/assessment-service/internal/cache"
	"github.com/skillforge/assessment-service/internal/config"
	"github.com/skillforge/assessment-service/internal/events"
	"github.com/skillforge/assessment-service/internal/generator"
	"github.com/skillforge/assessment-service/internal/handlers"
	"github.com/skillforge/assessment-service/internal/repositories/postgres"
	"github.com/skillforge/assessment-service/internal/services"
	"github.com/skillforge/assessment-service/internal/utils"
	"github.com/skillforge/assessment-service/internal/validator"
	"github.com/skillforge/assessment-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := pkg.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	var cacheSvc cache.CacheService = cache.NoopCache{}
	snapshotCache, redisClient, err := pkg.InitSnapshotCache(cfg, slogger)
	if err != nil {
		logger.Warn("Redis unavailable, session snapshots disabled", "error", err)
	} else {
		cacheSvc = snapshotCache
		defer redisClient.Close()
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.Warn("Failed to create event publisher, falling back to mock", "error", err)
		publisher = events.NewMockEventPublisher(slogger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	gen, err := buildGenerator(context.Background(), cfg, logger, slogger)
	if err != nil {
		logger.Error("Failed to create question generator", "error", err)
		os.Exit(1)
	}

	repo := postgres.NewRepository(db)
	v := validator.New()

	serviceManager := services.NewServiceManager(repo, gen, cacheSvc, publisher, v, cfg, logger)
	handlerManager := handlers.NewHandlerManager(serviceManager, v, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager.SetupRoutes(router)

	logger.Info("Starting assessment service",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"generator", cfg.Generator.Provider)

	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func buildGenerator(ctx context.Context, cfg *config.Config, logger utils.Logger, slogger *slog.Logger) (generator.QuestionGenerator, error) {
	backoff := time.Duration(cfg.Generator.RetryBackoffMS) * time.Millisecond

	switch cfg.Generator.Provider {
	case "mock":
		logger.Warn("Using mock question generator; not for production use")
		return generator.WithRetry(generator.NewMockGenerator(), backoff), nil
	default:
		gemini, err := generator.NewGeminiGenerator(ctx, generator.GeminiConfig{
			APIKey:    cfg.Generator.GeminiAPIKey,
			ModelName: cfg.Generator.GeminiModel,
		}, slogger)
		if err != nil {
			return nil, err
		}
		return generator.WithRetry(gemini, backoff), nil
	}
}
