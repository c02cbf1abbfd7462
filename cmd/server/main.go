package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/agreement-analyzer/internal/analyzer"
	"github.com/BerylCAtieno/agreement-analyzer/internal/config"
	"github.com/BerylCAtieno/agreement-analyzer/internal/db"
	"github.com/BerylCAtieno/agreement-analyzer/internal/extractor"
	"github.com/BerylCAtieno/agreement-analyzer/internal/ocr"
	"github.com/BerylCAtieno/agreement-analyzer/internal/prescan"
	"github.com/BerylCAtieno/agreement-analyzer/internal/repository"
	"github.com/BerylCAtieno/agreement-analyzer/internal/router"
	"github.com/BerylCAtieno/agreement-analyzer/internal/services"
	"github.com/BerylCAtieno/agreement-analyzer/internal/storage"
	"github.com/BerylCAtieno/agreement-analyzer/internal/utils"
)

const healthTimeout = 3 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	ctx := context.Background()

	// Run migrations
	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Initialize database
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Optional raw upload archive
	var archive storage.Storage
	if cfg.S3Enabled {
		archive, err = storage.NewS3Storage(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to initialize S3 storage", "error", err)
		}
		logger.Info("Upload archive enabled", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3BucketName)
	}

	// Analysis pipeline
	recognizer := ocr.New(ocr.Config{
		Pdftoppm:  cfg.PdftoppmBinary(),
		Tesseract: cfg.TesseractBinary(),
		Language:  cfg.OCRLanguage,
		DPI:       cfg.OCRDPI,
		MaxPages:  cfg.OCRMaxPages,
		Workers:   cfg.OCRWorkers,
		TempDir:   cfg.OCRTempDir,
	}, ocr.WithLogger(logger.With("component", "ocr")))

	client := analyzer.NewOpenRouterClient(analyzer.OpenRouterConfig{
		APIKey:  cfg.OpenRouterAPIKey,
		Model:   cfg.OpenRouterModel,
		BaseURL: cfg.OpenRouterBaseURL,
		Timeout: cfg.OpenRouterTimeout,
		Referer: cfg.OpenRouterReferer,
	}, logger)

	pipeline := services.NewPipeline(
		extractor.New(recognizer, logger),
		prescan.DefaultTable(),
		analyzer.NewOrchestrator(client,
			analyzer.WithLegalSystem(cfg.LegalSystem),
			analyzer.WithLogger(logger)),
		cfg.AnalysisTimeout,
		logger,
	)

	docRepo := repository.NewRepository(database)
	docService := services.NewService(pipeline, docRepo, archive, db.Checker{DB: database, Timeout: healthTimeout}, logger)

	// Setup HTTP router
	handler := router.NewRouter(docService, cfg.MaxFileSize, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AnalysisTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "model", cfg.OpenRouterModel, "legal_system", cfg.LegalSystem)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
