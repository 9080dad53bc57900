package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/precip-atlas-service/internal/adapter/httpserver"
	kafkaadapter "github.com/couchcryptid/precip-atlas-service/internal/adapter/kafka"
	"github.com/couchcryptid/precip-atlas-service/internal/atlas"
	"github.com/couchcryptid/precip-atlas-service/internal/config"
	"github.com/couchcryptid/precip-atlas-service/internal/dataset"
	"github.com/couchcryptid/precip-atlas-service/internal/observability"
	"github.com/couchcryptid/precip-atlas-service/internal/render"
	"github.com/couchcryptid/precip-atlas-service/internal/topology"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store := dataset.NewStore(cfg.DataDir, cfg.YearMin, cfg.YearMax, logger, metrics)

	// A pinned local topology file takes precedence over the CDN fetch.
	var topoSource topology.Source
	if cfg.TopologyPath != "" {
		topoSource = topology.NewFileSource(cfg.TopologyPath)
		logger.Info("topology source: local file", "path", cfg.TopologyPath)
	} else {
		topoSource = topology.NewClient(cfg.TopologyURL, cfg.TopologyTimeout, logger, metrics)
		logger.Info("topology source: remote", "url", cfg.TopologyURL)
	}
	topoSource = topology.NewCachedSource(topoSource)

	svc := atlas.NewService(store, topoSource, logger, metrics, atlas.Options{
		Width:         cfg.MapWidth,
		Height:        cfg.MapHeight,
		MaxScale:      cfg.MaxScale,
		ClampQuantile: cfg.ClampQuantile,
		CacheSize:     cfg.FrameCacheSize,
	})

	srv, err := httpserver.NewServer(cfg.HTTPAddr, svc, httpserver.PageConfig{
		YearMin:      cfg.YearMin,
		YearMax:      cfg.YearMax,
		Width:        cfg.MapWidth,
		Height:       cfg.MapHeight,
		LegendHeight: render.LegendHeight,
		MaxScale:     cfg.MaxScale,
	}, logger)
	if err != nil {
		logger.Error("failed to create http server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional dataset-update listener (feature-flagged via KAFKA_BROKERS /
	// KAFKA_ENABLED).
	var consumer *kafkaadapter.Consumer
	if cfg.KafkaEnabled {
		consumer = kafkaadapter.NewConsumer(cfg, svc, logger, metrics)
		logger.Info("dataset-update listener enabled", "topic", cfg.KafkaTopic, "group", cfg.KafkaGroupID)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("invalidation consumer error", "error", err)
			}
		}()
	} else {
		logger.Info("dataset-update listener disabled")
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka consumer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
