package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"obcampaign-service/internal/app"
	"obcampaign-service/internal/config"
	"obcampaign-service/internal/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] No .env file found, relying on system env vars")
	}

	cfg := config.Load()
	zl, err := logger.New(logger.Config{
		Development: cfg.IsDevelopment(),
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	srv := app.NewServer(cfg, zl)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	failed := false
	select {
	case err := <-errCh:
		if err != nil {
			zl.Error("server failed", zap.Error(err))
			failed = true
		}
	case <-quit:
		zl.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("shutdown incomplete", zap.Error(err))
		failed = true
	}
	zl.Info("server stopped")
	if failed {
		zl.Sync()
		os.Exit(1)
	}
}
