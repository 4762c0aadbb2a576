package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docConverter/config"
	"docConverter/converter"
	"docConverter/handlers"
	"docConverter/middleware"
	"docConverter/models"
	"docConverter/pipeline"
	"docConverter/service"
	"docConverter/storage"
	"docConverter/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("docConverter starting",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	files, err := storage.NewFileManager(logger, cfg.UploadDir, cfg.OutputDir, cfg.MaxFileSizeBytes())
	if err != nil {
		logger.Fatal("Failed to prepare storage directories", zap.Error(err))
	}

	var uploader storage.AssetUploader
	if cfg.R2Enabled() {
		r2, err := storage.NewR2Uploader(logger, cfg.R2Endpoint, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2Bucket, cfg.R2PublicURL)
		if err != nil {
			logger.Warn("R2 uploader unavailable, assets will be stored locally", zap.Error(err))
		} else {
			uploader = r2
			logger.Info("R2 asset upload enabled", zap.String("bucket", cfg.R2Bucket))
		}
	}

	registry := converter.NewRegistry()
	registry.Register(models.ModePDFToMarkdown, ".pdf", ".md", func() (converter.Converter, error) {
		return converter.NewPDFConverter(logger, cfg.PdfToTextBin, cfg.PdfImagesBin, uploader)
	})
	registry.Register(models.ModeMarkdownToHTML, ".md", ".html", func() (converter.Converter, error) {
		return converter.NewMarkdownConverter(logger), nil
	})
	registry.Register(models.ModePNGToJPG, ".png", ".jpg", func() (converter.Converter, error) {
		return converter.NewImageConverter(logger, ".png", ".jpg"), nil
	})
	registry.Register(models.ModeJPGToPNG, ".jpg", ".png", func() (converter.Converter, error) {
		return converter.NewImageConverter(logger, ".jpg", ".png"), nil
	})

	taskStore := store.NewStore(logger, cfg.Retention())
	reaper := store.NewReaper(logger, taskStore, cfg.CleanupInterval())
	pipe := pipeline.New(logger, cfg.UploadDir, cfg.OutputDir)
	svc := service.NewTaskService(logger, taskStore, files, registry, pipe, cfg.MaxFiles, cfg.MaxTotalSizeBytes())
	handler := handlers.NewTaskHandler(svc, logger)

	router := chi.NewRouter()
	router.Use(middleware.TraceID)
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Recovery(logger))

	router.Route("/api", handler.Routes)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reaper.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
		srv.Close()
	}

	logger.Info("Server stopped")
}
