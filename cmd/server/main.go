// Command server runs the diary sync backend: it opens the SQLite store,
// wires the sync, publish, and image services against the nideriji upstream,
// starts the periodic sync scheduler, and serves the HTTP API until it
// receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yournote/go-diary-backend/internal/config"
	httpapi "github.com/yournote/go-diary-backend/internal/http"
	"github.com/yournote/go-diary-backend/internal/observability"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/scheduler"
	"github.com/yournote/go-diary-backend/internal/services"
	"github.com/yournote/go-diary-backend/internal/sysutil"
	"github.com/yournote/go-diary-backend/internal/upstream"
)

var version = "dev"

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting diary backend")

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}

	up := upstream.NewClient(cfg.Upstream)

	locks := services.NewSyncLockRegistry()
	syncSvc := services.NewSyncService(db, up, locks, cfg.Sync)
	imgSvc := services.NewImageService(db, up, cfg.Sync.MaxImageBytes, cfg.Sync.ErrorSummaryLimit)
	syncSvc.Images = imgSvc
	pubSvc := services.NewPublishService(db, up, cfg.IdempotencyTTL, cfg.Sync.ErrorSummaryLimit)

	sched := scheduler.New(syncSvc, cfg.Sync.Interval)
	if err := sched.Start(cfg.Sync.OnStartup); err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, syncSvc, pubSvc, imgSvc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("trace exporter shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("server stopped")
	return nil
}
