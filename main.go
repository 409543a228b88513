package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/transformers-api/config"
	"github.com/kendall-kelly/transformers-api/router"
	"github.com/kendall-kelly/transformers-api/services"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetConfig(cfg)
	config.SetupLogger(cfg)

	log.Info().Str("env", cfg.GoEnv).Msg("starting Transformers API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := setup(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("server is running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// setup connects storage, migrates and optionally seeds it, configures the
// document store and returns the HTTP handler
func setup(ctx context.Context, cfg *config.Config) (*gin.Engine, error) {
	if err := config.ConnectDatabase(cfg.GetDatabaseURL()); err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := config.Migrate(db); err != nil {
		return nil, err
	}
	log.Info().Msg("database migration completed successfully")

	if cfg.SeedData {
		if err := services.SeedCatalog(ctx, db); err != nil {
			return nil, err
		}
	}

	if cfg.S3Enabled() {
		if _, err := services.InitDocumentStore(ctx); err != nil {
			return nil, fmt.Errorf("document store: %w", err)
		}
		log.Info().Str("bucket", cfg.AWSS3Bucket).Msg("order documents will be archived to S3")
	} else {
		log.Warn().Msg("AWS_S3_BUCKET not set, order document archiving is disabled")
	}

	if !cfg.AuthEnabled() {
		log.Warn().Msg("AUTH0_DOMAIN not set, the API is running without authentication")
	}

	return router.New(cfg), nil
}
