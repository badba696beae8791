package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"file-drop-service/internal/blob"
	"file-drop-service/internal/config"
	"file-drop-service/internal/manager"
	"file-drop-service/internal/server"
	"file-drop-service/internal/storage"
	"file-drop-service/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	// Initialize logging
	log := logger.New()
	log.Info("File drop service starting...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.ErrorWithError("Failed to load configuration", err)
		os.Exit(1)
	}
	level := logger.ParseLevel(cfg.LogLevel)
	logger.SetDefaultLevel(level)
	log.SetLevel(level)
	log.Info("Configuration loaded")

	records, err := newRecordStore(cfg)
	if err != nil {
		log.ErrorWithError("Failed to open record store", err)
		os.Exit(1)
	}
	defer records.Close()

	blobs, err := newBlobStore(cfg)
	if err != nil {
		log.ErrorWithError("Failed to open blob store", err)
		os.Exit(1)
	}

	lifecycle := manager.NewLifecycle(records, blobs,
		cfg.Upload.AllowedTypes, cfg.Upload.MaxFileSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reclaim whatever expired while the service was down
	if count, err := lifecycle.ReclaimExpired(ctx, time.Now()); err != nil {
		log.ErrorWithError("Startup cleanup failed", err)
	} else if count > 0 {
		log.InfoWithFields("Startup cleanup completed", map[string]interface{}{
			"reclaimed": count,
		})
	}

	sweeper := manager.NewSweeper(lifecycle, cfg.SweepInterval)
	go sweeper.Run(ctx)

	handler := server.NewHandler(lifecycle, cfg.Server.BaseURL,
		cfg.Upload.MaxFileSize, cfg.Upload.DefaultExpiry)
	srv := server.New(cfg.Server.ListenAddr, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.InfoWithFields("Shutdown signal received", map[string]interface{}{
			"signal": sig.String(),
		})
	case err := <-errCh:
		if err != nil {
			log.ErrorWithError("HTTP server failed", err)
			os.Exit(1)
		}
		return
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithError("Graceful shutdown failed", err)
		os.Exit(1)
	}

	log.Info("File drop service stopped")
}

func newRecordStore(cfg *config.AppConfig) (storage.RecordStore, error) {
	switch cfg.Storage.RecordBackend {
	case config.RecordBackendSQLite:
		return storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	default:
		return storage.NewJSONFileStore(cfg.Storage.DatabasePath)
	}
}

func newBlobStore(cfg *config.AppConfig) (blob.Store, error) {
	switch cfg.Storage.BlobBackend {
	case config.BlobBackendS3:
		return blob.NewS3Store(context.Background(), blob.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return blob.NewDiskStore(cfg.Storage.DataDir)
	}
}
