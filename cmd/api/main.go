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

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/sruppelQPS/openclaw-meeting-assistant/pkg/validator"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/adapter/handler"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/adapter/repository"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/infrastructure/cache"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/infrastructure/database"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/infrastructure/external/directory"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/infrastructure/external/notify"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/infrastructure/external/targets"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/export"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/identity"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/normalize"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/pipeline"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/review"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run migrations only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping migrations; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Initialize Redis
	log.Println("📦 Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	redisCache := cache.NewCache(redisClient, logger)

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	meetingRepo := repository.NewMeetingRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	exportRepo := repository.NewExportRepository(db)

	// Initialize contact directory
	var dir identity.Directory
	if cfg.Resolver.DirectoryURL != "" {
		log.Printf("📇 Using HTTP contact directory at %s", cfg.Resolver.DirectoryURL)
		dir = directory.NewClient(cfg.Resolver)
	} else {
		log.Printf("📇 Using static contacts file %s", cfg.Resolver.ContactsPath)
		dir, err = directory.NewStatic(cfg.Resolver.ContactsPath)
		if err != nil {
			log.Fatalf("Failed to load contacts: %v", err)
		}
	}
	resolver := identity.NewResolver(dir, identity.NewTokenScorer(), cfg.Resolver, logger)

	// Initialize export targets
	log.Println("📤 Initializing export targets...")
	available := map[string]func() (export.Target, error){
		"tasktracker": func() (export.Target, error) { return targets.NewTaskTracker(cfg.Export), nil },
		"calendar":    func() (export.Target, error) { return targets.NewCalendar(cfg.Export), nil },
		"knowledge":   func() (export.Target, error) { return targets.NewKnowledge(cfg.Storage) },
	}
	var exportTargets []export.Target
	for _, name := range cfg.Export.Targets {
		build, ok := available[name]
		if !ok {
			log.Fatalf("Unknown export target %q", name)
		}
		target, err := build()
		if err != nil {
			log.Fatalf("Failed to initialize export target %q: %v", name, err)
		}
		exportTargets = append(exportTargets, target)
		log.Printf("✅ Export target ready: %s", name)
	}

	dispatcher := export.NewDispatcher(meetingRepo, reviewRepo, exportRepo, exportTargets, redisCache, cfg.Export, logger)

	// Initialize review service
	reviewService := review.NewService(meetingRepo, reviewRepo, dispatcher, cfg.Review.StaleAfter, logger)

	// Initialize pipeline orchestrator
	webhook := notify.NewWebhook(cfg.Notify, redisCache, logger)
	orchestrator := pipeline.NewOrchestrator(meetingRepo, reviewRepo,
		normalize.NewNormalizer(logger), resolver, webhook, cfg.Pipeline, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg,
		handler.NewPipeline(orchestrator, reviewService, logger),
		handler.NewReview(reviewService, logger),
		handler.NewExport(dispatcher, logger))
	router.Setup(e)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	go dispatcher.Run(workerCtx)
	go reviewService.WatchStale(workerCtx, time.Minute)

	// Resume anything a previous process left mid-pipeline
	go func() {
		if err := orchestrator.Resume(workerCtx); err != nil {
			logger.Error("pipeline resume failed", zap.Error(err))
		}
		dispatcher.Kick()
	}()

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
