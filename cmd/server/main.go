// Package main is the entry point for the parkedup server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/randytsao24/parkedup/internal/api"
	"github.com/randytsao24/parkedup/internal/carpark"
	"github.com/randytsao24/parkedup/internal/config"
	"github.com/randytsao24/parkedup/internal/favourites"
	"github.com/randytsao24/parkedup/internal/feeds"
	"github.com/randytsao24/parkedup/internal/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogue := feeds.NewCSVCatalogue(cfg.CataloguePath)
	availability := feeds.NewAvailabilityClient(
		feeds.WithURL(cfg.AvailabilityURL),
		feeds.WithTimeout(cfg.HTTPTimeout),
		feeds.WithMaxRetries(cfg.UpstreamRetries),
		feeds.WithRateLimit(cfg.UpstreamRPS),
		feeds.WithLogger(log),
	)

	// A request waits at most one upstream timeout for the first load, which
	// keeps it inside the router timeout. Background refreshes may use the
	// client's whole retry budget.
	carparks := carpark.NewService(catalogue, availability, cfg.CacheTTL, log,
		carpark.WithLoadTimeout(cfg.HTTPTimeout),
		carpark.WithRefreshTimeout(time.Duration(cfg.UpstreamRetries+1)*cfg.HTTPTimeout+10*time.Second),
	)
	defer carparks.Close()

	store, closeStore, err := openFavouritesStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	favs := favourites.NewService(store, carparks)

	// Warm the snapshot so the first request does not pay for the fetch
	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, 2*cfg.HTTPTimeout)
		defer cancel()
		if _, err := carparks.Refresh(warmCtx); err != nil {
			log.Warn("initial carpark refresh failed", "error", err)
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(cfg, carparks, carparks, favs),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HTTPTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("parkedup server starting",
		"port", cfg.Port,
		"env", cfg.Env,
		"catalogue", cfg.CataloguePath,
		"favourites_store", storeName(cfg),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openFavouritesStore(ctx context.Context, cfg *config.Config) (favourites.Store, func(), error) {
	if cfg.RedisURL == "" {
		return favourites.NewMemoryStore(), func() {}, nil
	}

	client, err := favourites.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return favourites.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func storeName(cfg *config.Config) string {
	if cfg.RedisURL == "" {
		return "memory"
	}
	return "redis"
}
