// Package main is the entry point for the quantcore analytics API server.
//
// Startup loads configuration from the environment (.env supported), builds the
// analytics service with its curve cache, and serves the HTTP API until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/quantcore/internal/config"
	"github.com/aristath/quantcore/internal/modules/curves"
	"github.com/aristath/quantcore/internal/server"
	"github.com/aristath/quantcore/internal/services"
	"github.com/aristath/quantcore/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("mc_simulations", cfg.MonteCarlo.Simulations).
		Int("mc_workers", cfg.MonteCarlo.Workers).
		Dur("mc_timeout", cfg.MonteCarlo.Timeout).
		Str("bootstrap_method", cfg.Curve.BootstrapMethod).
		Msg("Starting quantcore")

	service := services.NewAnalyticsService(cfg, curves.NewCache(), log)

	srv, err := server.New(server.Config{
		Log:     log,
		Config:  cfg,
		Service: service,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
