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

	"github.com/redis/go-redis/v9"

	"transit-analytics/internal/cache"
	"transit-analytics/internal/config"
	"transit-analytics/internal/db"
	httphandler "transit-analytics/internal/http"
	"transit-analytics/internal/logger"
	"transit-analytics/internal/metrics"
	"transit-analytics/internal/repository"
	"transit-analytics/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(logger.Options{
		Environment: cfg.Environment,
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
	})

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector()
	}

	var resultCache cache.Cache = cache.Noop{}
	if cfg.Cache.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer client.Close()
		resultCache = cache.NewRedis(client, cfg.Cache.TTL)
		appLogger.Info().Str("addr", cfg.Cache.RedisAddr).Dur("ttl", cfg.Cache.TTL).Msg("result cache enabled")
	}

	opts := service.Options{
		DefaultRangeDays: cfg.Analytics.DefaultRangeDays,
		Parallelism:      cfg.Analytics.DashboardParallelism,
		QueryTimeout:     cfg.Analytics.QueryTimeout,
		Cache:            resultCache,
		Logger:           appLogger,
	}
	if collector != nil {
		opts.Observer = collector
	}

	analyticsRepo := repository.NewAnalyticsRepository(database)
	analyticsService := service.NewAnalyticsService(analyticsRepo, opts)

	handler := httphandler.NewHandler(analyticsService, appLogger)
	router := httphandler.NewRouter(handler, httphandler.RouterOptions{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Logger:         appLogger,
		Metrics:        collector,
		Health:         analyticsRepo,
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		appLogger.Info().Str("addr", addr).Msg("starting transit analytics service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error().Err(err).Msg("failed to start server")
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
