package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/casemap-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Backfill reports whether the service is ready to serve traffic and how
// the backfill walk is progressing.
type Backfill interface {
	sharedobs.ReadinessChecker
	Status() domain.BackfillStatus
}

// QueryStore is the read side of the snapshot store.
type QueryStore interface {
	Dates() []string
	Latest() (string, bool)
	IsLatest(date string) bool
	DateAt(i int) (string, bool)
	Position(date string) (int, bool)
	CountryBuckets(date string) (map[string]domain.AggregateBucket, bool)
	ProvinceBuckets(date string) (map[string]domain.AggregateBucket, bool)
	History(p domain.PointID) []domain.DatedCount
	OverlayEntries() []domain.OverlayEntry
	Headline() (domain.Headline, bool)
}

// FeatureSelector picks the tier to render for a date and zoom level.
type FeatureSelector interface {
	Select(date string, zoom float64, isLatest bool) domain.FeatureSet
}

// Server exposes health, readiness, metrics, and the read-only case API.
type Server struct {
	httpServer *http.Server
	backfill   Backfill
	store      QueryStore
	selector   FeatureSelector
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /api/v1 routes.
func NewServer(addr string, backfill Backfill, store QueryStore, selector FeatureSelector, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		backfill: backfill,
		store:    store,
		selector: selector,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(backfill))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/dates", s.handleDates)
	mux.HandleFunc("GET /api/v1/features", s.handleFeatures)
	mux.HandleFunc("GET /api/v1/buckets/{tier}", s.handleBuckets)
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/countries", s.handleCountries)
	mux.HandleFunc("GET /api/v1/summary", s.handleSummary)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
