package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/casemap-service/internal/directory"
	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/couchcryptid/casemap-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// ReferenceFetcher reads the static and supplementary reference documents.
type ReferenceFetcher interface {
	FetchLocations(ctx context.Context) ([]byte, error)
	FetchCountries(ctx context.Context) ([]byte, error)
	FetchOverlay(ctx context.Context, token int64) ([]byte, error)
	FetchHeadline(ctx context.Context, token int64) ([]byte, error)
}

// ReferenceStore keeps the supplementary overlays.
type ReferenceStore interface {
	SetOverlay(entries []domain.OverlayEntry)
	SetHeadline(h domain.Headline)
}

// Loader populates the location directory and the reference overlays. The
// directory must be loaded before the first backfill walk.
type Loader struct {
	refs    ReferenceFetcher
	dir     *directory.Directory
	store   ReferenceStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader.
func NewLoader(refs ReferenceFetcher, dir *directory.Directory, store ReferenceStore, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		refs:    refs,
		dir:     dir,
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// LoadDirectory imports the country table and then the location table. A
// missing country table only costs display names and country centers, so it
// is logged; a missing location table is an error because nothing would
// resolve without it.
func (l *Loader) LoadDirectory(ctx context.Context) error {
	if body, err := l.refs.FetchCountries(ctx); err != nil {
		l.logger.Warn("country table unavailable", "error", err)
	} else {
		stats := l.dir.ImportCountries(string(body))
		l.logger.Info("country table imported", "imported", stats.Imported, "skipped", stats.Skipped)
	}

	body, err := l.refs.FetchLocations(ctx)
	if err != nil {
		return fmt.Errorf("load location table: %w", err)
	}
	stats := l.dir.ImportFromFeed(string(body))
	l.logger.Info("location table imported", "imported", stats.Imported, "skipped", stats.Skipped)
	if stats.Imported == 0 {
		return fmt.Errorf("load location table: no usable records (%d skipped)", stats.Skipped)
	}
	return nil
}

// LoadDirectoryWithRetry calls LoadDirectory up to attempts times, doubling
// the wait between attempts from backoff up to maxBackoff. It returns the
// last error, or the context error if ctx ends while waiting.
func (l *Loader) LoadDirectoryWithRetry(ctx context.Context, attempts int, backoff, maxBackoff time.Duration) error {
	for attempt := 1; ; attempt++ {
		err := l.LoadDirectory(ctx)
		if err == nil {
			return nil
		}
		if attempt >= attempts {
			return err
		}
		l.logger.Warn("location directory load failed, retrying",
			"attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("load location table: %w", ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// LoadOverlays imports the country-centroid overlay and the headline count
// using a fresh request token. Overlay points missing from the directory are
// registered as country-only locations. Failures are logged and leave the
// previous overlays in place.
func (l *Loader) LoadOverlays(ctx context.Context) {
	token := domain.RequestToken()

	if body, err := l.refs.FetchOverlay(ctx, token); err != nil {
		l.logger.Warn("country overlay unavailable", "error", err)
	} else if entries, err := domain.ParseOverlay(body, l.dir); err != nil {
		l.metrics.ParseErrors.Inc()
		l.logger.Warn("country overlay rejected", "error", err)
	} else {
		for _, e := range entries {
			l.dir.RegisterSynthetic(e.Point, e.Name)
		}
		l.store.SetOverlay(entries)
		l.logger.Info("country overlay imported", "countries", len(entries))
	}

	if body, err := l.refs.FetchHeadline(ctx, token); err != nil {
		l.logger.Warn("headline count unavailable", "error", err)
	} else if h, err := domain.ParseHeadline(body); err != nil {
		l.metrics.ParseErrors.Inc()
		l.logger.Warn("headline count rejected", "error", err)
	} else {
		l.store.SetHeadline(h)
		l.logger.Info("headline count imported", "case_count", h.CaseCount, "date", h.Date)
	}
}
