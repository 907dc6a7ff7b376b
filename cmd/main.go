package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"geophoto/internal/blobstore"
	"geophoto/internal/events"
	"geophoto/internal/models"
	"geophoto/internal/server"
	"geophoto/internal/storage"
)

func main() {
	cfg, err := models.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	db, err := storage.NewStorage(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}
	defer db.Close()

	blobs, err := blobstore.New(cfg.UploadRoot)
	if err != nil {
		logger.Fatal("failed to init blob store", zap.Error(err))
	}

	// Event publisher; nil when no broker is configured.
	pub := events.NewPublisher(cfg.KafkaBroker, cfg.KafkaTopic, logger)
	defer pub.Close()

	srv := server.NewServer(cfg, db, blobs, pub, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	srv.Stop()
}
