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

	"github.com/lavorimap/roadworks-etl/internal/adapter/feed"
	httpadapter "github.com/lavorimap/roadworks-etl/internal/adapter/http"
	kafkaadapter "github.com/lavorimap/roadworks-etl/internal/adapter/kafka"
	"github.com/lavorimap/roadworks-etl/internal/adapter/nominatim"
	"github.com/lavorimap/roadworks-etl/internal/adapter/opendata"
	"github.com/lavorimap/roadworks-etl/internal/adapter/overpass"
	"github.com/lavorimap/roadworks-etl/internal/adapter/supabase"
	"github.com/lavorimap/roadworks-etl/internal/config"
	"github.com/lavorimap/roadworks-etl/internal/observability"
	"github.com/lavorimap/roadworks-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Geocoder chain: cache in front of the rate gate in front of the
	// Nominatim client, so cache hits never wait on the rate gate.
	client := nominatim.NewClient(cfg.NominatimURL, cfg.UserAgent, cfg.HTTPTimeout, metrics, logger)
	geocoder := nominatim.NewCached(nominatim.NewThrottled(client, cfg.GeocodeInterval), cfg.GeocodeCacheSize, metrics)

	sources := buildSources(cfg, logger)
	logger.Info("sources configured",
		"overpass", cfg.OverpassURL,
		"feeds", len(cfg.FeedURLs),
		"geojson", len(cfg.GeoJSONURLs),
	)

	store := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTable, cfg.HTTPTimeout, logger)

	// Optional record sink for downstream consumers (feature-flagged via
	// KAFKA_BROKERS).
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = writer
		logger.Info("kafka record sink enabled", "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(sources, geocoder, store, publisher, logger, metrics, pipeline.Options{
		DedupRadiusMeters:  cfg.DedupRadiusMeters,
		ChunkSize:          cfg.ChunkSize,
		MaxParallelFetches: cfg.MaxParallelFetches,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// RUN_INTERVAL=0 means a single aggregation run; otherwise runs
	// repeat on a fixed schedule until a shutdown signal arrives.
	runLoop(ctx, p, cfg.RunInterval, logger, stop)

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func buildSources(cfg *config.Config, logger *slog.Logger) []pipeline.Source {
	var sources []pipeline.Source
	// OVERPASS_URL set to empty disables the source.
	if cfg.OverpassURL != "" {
		sources = append(sources, overpass.New(cfg.OverpassURL, cfg.HTTPTimeout, logger))
	}
	for _, u := range cfg.FeedURLs {
		sources = append(sources, feed.New(u, cfg.FeedLocality, cfg.HTTPTimeout, logger))
	}
	for _, u := range cfg.GeoJSONURLs {
		sources = append(sources, opendata.New(u, cfg.HTTPTimeout, logger))
	}
	return sources
}

func runLoop(ctx context.Context, p *pipeline.Pipeline, interval time.Duration, logger *slog.Logger, stop func()) {
	runOnce(ctx, p, logger)
	if interval <= 0 {
		// Single-run mode: release the signal context so shutdown
		// proceeds immediately after the run.
		stop()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, p, logger)
		}
	}
}

func runOnce(ctx context.Context, p *pipeline.Pipeline, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	if _, err := p.Run(ctx); err != nil {
		logger.Error("pipeline run aborted", "error", err)
	}
}
