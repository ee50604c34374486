package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/table-order/internal/app"
	"github.com/vasiliy-maslov/table-order/internal/config"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "table-order").Logger()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.App.LogLevel).Msg("Unknown LOG_LEVEL, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.IsDevelopment() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "table-order").Logger()
	}

	if cfg.Auth.Secret == config.DefaultJWTSecret && !cfg.IsDevelopment() {
		log.Warn().Msg("JWT_SECRET is not set, tokens are signed with the built-in default")
	}

	log.Info().Str("storage_driver", cfg.StorageDriver).Str("env", cfg.App.Env).Msg("Table order backend starting...")

	startCtx, cancelStart := context.WithTimeout(context.Background(), 60*time.Second)
	application, err := app.New(startCtx, cfg)
	cancelStart()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      application.Handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.App.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	if err := application.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to close connections")
	}
	log.Info().Msg("Server stopped")
}
