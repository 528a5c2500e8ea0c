package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/worker"
)

func main() {
	logMode := os.Getenv("ORCH_LOG_LEVEL")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := worker.LoadConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.New(cfg, log, worker.NewCommandAgent())
	if err := w.Run(ctx); err != nil {
		log.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}
}
