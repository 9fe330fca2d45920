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

	"github.com/couchcryptid/casemap-service/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/casemap-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/casemap-service/internal/adapter/kafka"
	"github.com/couchcryptid/casemap-service/internal/config"
	"github.com/couchcryptid/casemap-service/internal/directory"
	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/couchcryptid/casemap-service/internal/observability"
	"github.com/couchcryptid/casemap-service/internal/pipeline"
	"github.com/couchcryptid/casemap-service/internal/scheduler"
	"github.com/couchcryptid/casemap-service/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

// feedSource serves both the daily slices and the reference tables.
type feedSource interface {
	pipeline.SliceFetcher
	pipeline.ReferenceFetcher
}

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	var source feedSource
	if cfg.FeedDir != "" {
		source = feed.NewDirFetcher(cfg.FeedDir)
		logger.Info("serving feed from local mirror", "dir", cfg.FeedDir)
	} else {
		source = feed.NewClient(cfg.FeedBaseURL, cfg.CountriesURL, cfg.FeedTimeout, metrics, logger)
		logger.Info("serving feed from upstream", "base_url", cfg.FeedBaseURL, "timeout", cfg.FeedTimeout)
	}
	sliceSource := feed.NewCachedFetcher(source, cfg.FeedCacheSize, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir := directory.New()
	st := store.New()
	loader := pipeline.NewLoader(source, dir, st, logger, metrics)
	if err := loader.LoadDirectoryWithRetry(ctx, cfg.DirectoryLoadAttempts, time.Second, 30*time.Second); err != nil {
		logger.Error("failed to load location directory", "error", err)
		os.Exit(1)
	}
	loader.LoadOverlays(ctx)

	opts := []pipeline.Option{pipeline.WithMaxConsecutiveFailures(cfg.MaxConsecutiveFailures)}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, pipeline.WithPublisher(writer))
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaSnapshotTopic, "brokers", cfg.KafkaBrokers)
	}

	transformer := pipeline.NewTransformer(dir, logger)
	p := pipeline.New(sliceSource, transformer, st, logger, metrics, opts...)

	selector := domain.NewSelector(st, dir, domain.SelectorConfig{
		ZoomThreshold:         cfg.ZoomThreshold,
		HistoricalCountryTier: cfg.HistoricalCountryTier,
	})
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, st, selector, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the initial backfill.
	go func() {
		if _, err := p.Run(ctx); err != nil {
			logger.Error("backfill error", "error", err)
		}
	}()

	var sched *scheduler.Scheduler
	if cfg.RefreshSchedule != "" {
		sched, err = scheduler.New(cfg.RefreshSchedule, refreshJob(loader, p), logger)
		if err != nil {
			logger.Error("invalid refresh schedule", "error", err)
			os.Exit(1)
		}
		sched.Start(ctx)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
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

// refreshJob reloads the overlays and re-walks the feed. The latest slice is
// always fetched fresh and dates skipped earlier are retried; historical
// slices already fetched come from the slice cache. A walk already in
// progress is left alone.
func refreshJob(loader *pipeline.Loader, p *pipeline.Pipeline) scheduler.Job {
	return func(ctx context.Context) error {
		loader.LoadOverlays(ctx)
		_, err := p.Run(ctx)
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			return nil
		}
		return err
	}
}
