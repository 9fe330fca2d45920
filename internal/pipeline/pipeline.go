package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/couchcryptid/casemap-service/internal/observability"
)

// ErrAlreadyRunning is returned by Run while another walk is in progress.
var ErrAlreadyRunning = errors.New("backfill already running")

// DefaultMaxConsecutiveFailures bounds how many dates in a row may be
// skipped before the walk gives up.
const DefaultMaxConsecutiveFailures = 7

// SliceFetcher reads daily slices. A missing slice must be reported as
// domain.ErrNotFound.
type SliceFetcher interface {
	FetchLatestSlice(ctx context.Context, token int64) ([]byte, error)
	FetchSlice(ctx context.Context, date string) ([]byte, error)
}

// SnapshotStore receives completed snapshots.
type SnapshotStore interface {
	Put(snap domain.DaySnapshot) domain.PutOutcome
	Len() int
}

// Publisher forwards stored snapshots to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, snap domain.DaySnapshot) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPublisher publishes every new or changed snapshot. A snapshot identical
// to the stored one is not republished. Publish failures are logged and never
// stop the walk.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithMaxConsecutiveFailures sets the skip limit; values below 1 are ignored.
func WithMaxConsecutiveFailures(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxFailures = n
		}
	}
}

// WithCompletionHook registers fn to run after each walk that reaches
// exhaustion.
func WithCompletionHook(fn func(domain.BackfillStatus)) Option {
	return func(p *Pipeline) { p.onComplete = fn }
}

// Pipeline walks the feed backward one calendar day at a time, starting at
// the latest slice, until a slice is missing. Fetches are strictly
// sequential; each snapshot is aggregated completely before it is stored.
type Pipeline struct {
	fetcher     SliceFetcher
	transformer *Transformer
	store       SnapshotStore
	publisher   Publisher
	logger      *slog.Logger
	metrics     *observability.Metrics
	maxFailures int
	onComplete  func(domain.BackfillStatus)

	running atomic.Bool
	ready   atomic.Bool

	mu     sync.Mutex
	status domain.BackfillStatus
}

// New creates a Pipeline with the given stages and observability.
func New(f SliceFetcher, t *Transformer, s SnapshotStore, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:     f,
		transformer: t,
		store:       s,
		logger:      logger,
		metrics:     metrics,
		maxFailures: DefaultMaxConsecutiveFailures,
		status:      domain.BackfillStatus{State: domain.WalkIdle},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once at least one snapshot has been stored.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no snapshot stored yet")
	}
	return nil
}

// Status returns the state of the current or most recent walk.
func (p *Pipeline) Status() domain.BackfillStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) setStatus(s domain.BackfillStatus) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

// walk carries the per-run counters.
type walk struct {
	status      domain.BackfillStatus
	consecutive int
}

// Run performs one backfill walk and returns its final status. Cancelling
// ctx stops the walk between fetches; the walk then reports WalkIdle and Run
// returns nil. Calling Run while a walk is in progress returns
// ErrAlreadyRunning.
func (p *Pipeline) Run(ctx context.Context) (domain.BackfillStatus, error) {
	if !p.running.CompareAndSwap(false, true) {
		return p.Status(), ErrAlreadyRunning
	}
	defer p.running.Store(false)

	p.metrics.BackfillRunning.Set(1)
	defer p.metrics.BackfillRunning.Set(0)

	w := &walk{status: domain.BackfillStatus{State: domain.WalkFetching, Runs: p.Status().Runs + 1}}
	p.setStatus(w.status)

	token := domain.RequestToken()
	p.logger.Info("backfill started", "token", token, "run", w.status.Runs)

	next, ok := p.startFromLatest(ctx, w, token)
	if !ok {
		return p.finish(ctx, w, next)
	}

	for {
		if ctx.Err() != nil {
			return p.finish(ctx, w, next)
		}
		if w.consecutive >= p.maxFailures {
			p.logger.Warn("backfill giving up after consecutive failures",
				"failures", w.consecutive, "date", next)
			return p.finish(ctx, w, next)
		}

		w.status.Date = next
		p.setStatus(w.status)

		body, err := p.fetcher.FetchSlice(ctx, next)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return p.finish(ctx, w, next)
		case err != nil:
			if ctx.Err() != nil {
				return p.finish(ctx, w, next)
			}
			p.skip(w, next, err)
		default:
			if snap, err := p.transformer.Transform(body); err != nil {
				p.metrics.ParseErrors.Inc()
				p.skip(w, next, err)
			} else {
				p.storeSnapshot(ctx, w, snap)
				next = min(snap.Date, next)
			}
		}

		prev, err := domain.OneDayBefore(next)
		if err != nil {
			p.logger.Error("cannot step back from date", "date", next, "error", err)
			return p.finish(ctx, w, next)
		}
		next = prev
	}
}

// startFromLatest ingests the latest slice and returns the first historical
// date to request. It reports false when the feed has no latest slice, in
// which case the walk is already exhausted. When the latest slice fails for
// any other reason the walk starts from today's date.
func (p *Pipeline) startFromLatest(ctx context.Context, w *walk, token int64) (string, bool) {
	body, err := p.fetcher.FetchLatestSlice(ctx, token)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		p.logger.Warn("latest slice not found, nothing to backfill")
		return "", false
	case err != nil:
		if ctx.Err() != nil {
			return "", false
		}
		today := domain.Today()
		p.logger.Warn("latest slice unavailable, walking from today", "date", today, "error", err)
		p.countSkip(w)
		return today, true
	}

	snap, err := p.transformer.Transform(body)
	if err != nil {
		today := domain.Today()
		p.metrics.ParseErrors.Inc()
		p.logger.Warn("latest slice rejected, walking from today", "date", today, "error", err)
		p.countSkip(w)
		return today, true
	}

	p.storeSnapshot(ctx, w, snap)
	prev, err := domain.OneDayBefore(snap.Date)
	if err != nil {
		p.logger.Error("cannot step back from latest date", "date", snap.Date, "error", err)
		return snap.Date, false
	}
	return prev, true
}

func (p *Pipeline) skip(w *walk, date string, err error) {
	p.logger.Warn("skipping date", "date", date, "error", err)
	p.countSkip(w)
}

func (p *Pipeline) countSkip(w *walk) {
	w.status.Skipped++
	w.consecutive++
	p.metrics.DatesSkipped.Inc()
	p.setStatus(w.status)
}

func (p *Pipeline) storeSnapshot(ctx context.Context, w *walk, snap domain.DaySnapshot) {
	outcome := p.store.Put(snap)

	p.metrics.SnapshotsStored.Inc()
	switch outcome {
	case domain.SnapshotReplaced:
		p.metrics.SnapshotsReplaced.Inc()
	case domain.SnapshotUnchanged:
		p.metrics.SnapshotsUnchanged.Inc()
	}
	p.metrics.UnresolvedFeatures.Add(float64(snap.Unresolved))
	p.metrics.TimelineDates.Set(float64(p.store.Len()))
	p.ready.Store(true)

	w.status.Stored++
	w.consecutive = 0
	p.setStatus(w.status)
	p.logger.Debug("snapshot stored",
		"date", snap.Date,
		"features", len(snap.Atomic),
		"countries", len(snap.Country),
		"replaced", outcome == domain.SnapshotReplaced,
		"unchanged", outcome == domain.SnapshotUnchanged,
	)

	if p.publisher == nil || outcome == domain.SnapshotUnchanged {
		return
	}
	if err := p.publisher.Publish(ctx, snap); err != nil {
		p.metrics.SnapshotsPublished.WithLabelValues("error").Inc()
		p.logger.Warn("publish snapshot failed", "date", snap.Date, "error", err)
		return
	}
	p.metrics.SnapshotsPublished.WithLabelValues("success").Inc()
}

// finish records the final state. A cancelled walk goes back to idle;
// anything else is exhausted at date.
func (p *Pipeline) finish(ctx context.Context, w *walk, date string) (domain.BackfillStatus, error) {
	w.status.FinishedAt = domain.Now()
	if ctx.Err() != nil {
		w.status.State = domain.WalkIdle
		p.setStatus(w.status)
		p.logger.Info("backfill stopping", "reason", ctx.Err(), "stored", w.status.Stored)
		return w.status, nil
	}

	w.status.State = domain.WalkExhausted
	w.status.Date = date
	p.setStatus(w.status)
	p.logger.Info("backfill exhausted",
		"date", date,
		"stored", w.status.Stored,
		"skipped", w.status.Skipped,
	)
	if p.onComplete != nil {
		p.onComplete(w.status)
	}
	return w.status, nil
}
