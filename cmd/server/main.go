package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kodacci/o-monitor-rest/internal/app"
	"github.com/kodacci/o-monitor-rest/internal/config"
	"github.com/kodacci/o-monitor-rest/internal/logging"
	"github.com/kodacci/o-monitor-rest/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	logger.Info("o-monitor starting", "version", app.Version, "driver", cfg.DatabaseDriver)
	runErr := a.Run(ctx)
	if runErr != nil {
		logger.Error("server stopped with error", "error", runErr)
	}

	logger.Info("shutting down")
	// Let in-flight async telemetry emits finish before the providers are flushed.
	time.Sleep(telemetry.ShutdownDrainDuration)
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		logger.Warn("close", "error", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
