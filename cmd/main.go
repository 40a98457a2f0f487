package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"music_auth/internal/auth"
	"music_auth/internal/config"
	httpserver "music_auth/internal/http_server"
	"music_auth/internal/lib/jwt"
	sl "music_auth/internal/lib/logger/sl"
	"music_auth/internal/lib/password"
	"music_auth/internal/migrate"
	"music_auth/internal/rabbitmq"
	"music_auth/internal/storage/memory"
	"music_auth/internal/storage/postgres"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

type accountStore interface {
	auth.UserSaver
	auth.UserProvider
}

func main() {
	cfg := config.MustLoad("")

	log := setupLogger(cfg.Env)

	log.Info("starting music auth service",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	var store accountStore

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if !cfg.Postgres.SkipMigrations {
			if err := migrate.Up(ctx, postgres.DSN(cfg)); err != nil {
				log.Error("failed to apply migrations", sl.Err(err))
				os.Exit(1)
			}
			log.Info("migrations applied")
		}

		pg, err := postgres.New(ctx, cfg)
		if err != nil {
			log.Error("failed to connect postgres", sl.Err(err))
			os.Exit(1)
		}
		defer pg.Close()

		store = pg
	case config.DriverMemory:
		log.Warn("using in-memory storage, accounts are lost on restart")
		store = memory.New()
	}

	var notifier auth.Notifier
	if cfg.RabbitMQ.Enabled {
		msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", sl.Err(err))
			os.Exit(1)
		}
		defer msgBroker.Close()

		notifier = msgBroker
	}

	tokens, err := jwt.New(cfg.Tokens.SessionTokenSecret, cfg.Tokens.SessionTokenTTL)
	if err != nil {
		log.Error("failed to set up session tokens", sl.Err(err))
		os.Exit(1)
	}

	authService := auth.New(
		log,
		store,
		store,
		password.New(cfg.Hashing.BcryptCost),
		tokens,
		notifier,
		cfg.Tokens.RevokeOnPasswordChange,
	)

	router := httpserver.NewRouter(log, authService, httpserver.Options{
		AllowedOrigins:   cfg.HTTPServer.AllowedOrigins,
		DisableRateLimit: cfg.RateLimit.Disabled,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

// setupLogger uses text locally and JSON elsewhere. Only local and dev log at
// debug level; unknown envs log like prod.
func setupLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == envLocal || env == envDev {
		opts.Level = slog.LevelDebug
	}

	if env == envLocal {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, opts)).With(slog.String("service", "music_auth"))
}
