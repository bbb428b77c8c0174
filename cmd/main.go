package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"healthcrm/internal/app"
	"healthcrm/internal/config"
	"healthcrm/internal/logging"

	"go.uber.org/zap"
)

// @title HealthCRM API
// @version 1.0.0
// @description Email, calendar and CRM records for a medical practice.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to start", zap.Error(err))
	}
	defer server.Close()

	if err := server.Run(ctx); err != nil {
		log.Error("server stopped with error", zap.Error(err))
	}
}
