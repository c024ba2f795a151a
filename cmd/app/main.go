package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gpadash/internal/api/v1/router"
	"gpadash/internal/config"
	"gpadash/internal/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// @title GPA Dashboard API
// @version 1.0
// @description Course grades, GPA analytics and study assistant
// @host localhost:8080
// @BasePath /v1
// @Schemes http https

func main() {
	// 1. Load configuration
	logger, envErr := bootstrapLogger()
	if envErr != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// 2. Build router (and open the course slot backend)
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	r, closeDeps, err := router.New(startCtx, cfg, logger)
	cancelStart()
	if err != nil {
		logger.Fatal().Msgf("Failed to build router: %v", err)
	}
	defer func() {
		if err := closeDeps(); err != nil {
			logger.Error().Err(err).Msg("Failed to close dependencies")
		}
	}()

	// 3. Create HTTP server. Gemini calls can take a while.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.GeminiTimeoutSec)*time.Second + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. Start server in a goroutine
	go func() {
		logger.Info().Msgf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Msgf("Listen: %s\n", err)
		}
	}()

	// 5. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutdown signal received, exiting...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Msgf("Server forced to shutdown: %v", err)
	}
	logger.Info().Msg("Server shut down gracefully")
}

// bootstrapLogger loads .env before building the logger so ENV and
// LOG_LEVEL from the file take effect.
func bootstrapLogger(envFiles ...string) (zerolog.Logger, error) {
	err := godotenv.Load(envFiles...)
	return logger.New(), err
}
