package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/codebuildervaibhav/video-summary/internal/bootstrap"
	"github.com/codebuildervaibhav/video-summary/internal/cleanup"
	"github.com/codebuildervaibhav/video-summary/internal/config"
	"github.com/codebuildervaibhav/video-summary/internal/diagnostics"
	"github.com/codebuildervaibhav/video-summary/internal/handlers"
	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/progress"
	"github.com/codebuildervaibhav/video-summary/internal/queue"
	"github.com/codebuildervaibhav/video-summary/internal/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config.yaml")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("info", "text").WithError(err).Fatal("failed to load config")
	}

	logBuffer := logger.NewLogBuffer(1000)
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, logBuffer)

	// Ensure directories exist
	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		log.WithError(err).Fatal("failed to create temp directory")
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.WithError(err).Fatal("failed to create output directory")
	}

	log.Info("initializing components")

	// Progress: external sink plus the local websocket hub
	reporter := progress.NewReporter(cfg.Progress.SinkURL, cfg.Progress.Token, cfg.Progress.QueueSize,
		config.Seconds(cfg.Progress.TimeoutSeconds), log)
	if !reporter.Enabled() {
		log.Warn("progress sink not configured; progress is only streamed over websocket")
	}
	hub := progress.NewHub(200, 15*time.Minute)

	coordinator := bootstrap.Coordinator(cfg, log, hub, reporter)

	// Export: local files, optional Drive upload, optional SQLite archive
	localStorage := storage.NewLocalStorage(cfg.Storage.OutputDir)

	var uploader queue.Uploader
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); cfg.GoogleDrive.CredentialsFile != "" && err == nil {
		driveClient, err := storage.NewDriveClient(context.Background(),
			cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile, cfg.GoogleDrive.FolderName)
		if err != nil {
			log.WithError(err).Warn("google drive not available, summaries will only be saved locally")
		} else {
			uploader = driveClient
			log.Info("google drive integration enabled")
		}
	} else {
		log.Info("google drive credentials not found, saving locally only")
	}

	var db *storage.MetadataDB
	var archive queue.Archive
	if cfg.Storage.Database != "" {
		db, err = storage.NewMetadataDB(cfg.Storage.Database)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize database")
		}
		defer db.Close()
		archive = db
	}

	workerPool := queue.NewWorkerPool(queue.Options{Workers: cfg.Workers.Count}, localStorage, uploader, archive, log)
	workerPool.Start()

	// Orphaned workspace sweep
	cleanupScheduler := cleanup.NewScheduler(cfg.Storage.TempDir, cfg.Cleanup.IntervalMinutes, cfg.Cleanup.MaxAgeHours, log)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "video-summary",
		DisableStartupMessage: true,
		// Long videos take minutes; the request stays open until the job ends.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: log.Writer()}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	processHandler := handlers.NewProcessHandler(coordinator, workerPool, log)
	streamHandler := handlers.NewStreamHandler(hub, log)

	// Routes
	app.Get("/health", handlers.Health)
	app.Post("/process-video", processHandler.Handle)
	app.Get("/diagnostics", handlers.Diagnostics(diagnostics.NewChecker(), bootstrap.DiagnosticsSettings(cfg)))
	app.Get("/ws/progress/:summaryId", streamHandler.Upgrade, websocket.New(streamHandler.Handle))
	app.Get("/logs", handlers.Logs(logBuffer.Lines))

	if db != nil {
		summaryHandler := handlers.NewSummaryHandler(db)
		app.Get("/summaries", summaryHandler.List)
		app.Get("/summaries/:id", summaryHandler.Get)
	}

	addr := cfg.Addr()
	log.WithField("addr", addr).Info("server starting")
	log.Info("endpoints: POST /process-video, GET /ws/progress/:summaryId, GET /summaries, GET /diagnostics, GET /logs, GET /health")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("shutting down gracefully")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.WithError(err).Warn("http shutdown incomplete")
		}
	}()

	if err := app.Listen(addr); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := workerPool.Stop(ctx); err != nil {
		log.WithError(err).Warn("export queue not drained")
	}
	if err := reporter.Close(ctx); err != nil {
		log.WithError(err).Warn("progress queue not drained")
	}
	log.Info("server stopped")
}
