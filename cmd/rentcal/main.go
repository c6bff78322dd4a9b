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

	"rentcal/internal/app/wiring"
	"rentcal/internal/infra/config"
	ginserver "rentcal/internal/infra/http/gin"
	"rentcal/internal/infra/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fallback := obs.NewLogger(os.Getenv("APP_ENV"), "info")
		fallback.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "storage", cfg.Storage, "error", err)
		os.Exit(1)
	}
	defer backend.close()

	if err := loadFixtures(ctx, cfg.FixturesPath, backend.factory, logger); err != nil {
		logger.Warn("occupancy fixtures load failed", "error", err, "path", cfg.FixturesPath)
	}

	loc := cfg.Location()
	buses := wiring.NewBuses(wiring.Deps{
		UoWFactory:  backend.factory,
		Outbox:      backend.outbox,
		Idempotency: backend.idempotency,
		Location:    loc,
		Logger:      logger,
	})

	property := ginserver.PropertyHandler{
		Commands: buses.Commands,
		Queries:  buses.Queries,
		Logger:   logger,
		Now:      func() time.Time { return time.Now().In(loc) },
	}
	handlers := ginserver.Handlers{
		Duration:  ginserver.DurationHandler{Queries: buses.Queries, Logger: logger},
		Property:  property,
		Occupancy: ginserver.OccupancyHandler{Commands: buses.Commands, Logger: logger},
	}
	health := obs.HealthHandlers{Storage: cfg.Storage, Ready: backend.ready}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, health, handlers)

	if backend.relay != nil {
		go func() {
			if err := backend.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox relay stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.Storage, "relay", backend.relay != nil)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}
