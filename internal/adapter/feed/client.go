package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/casemap-service/internal/domain"
	"github.com/couchcryptid/casemap-service/internal/observability"
	"github.com/sony/gobreaker"
)

// Document kinds, used as the "kind" metric label.
const (
	KindLatest    = "latest"
	KindSlice     = "slice"
	KindLocations = "locations"
	KindCountries = "countries"
	KindOverlay   = "overlay"
	KindHeadline  = "headline"
)

// maxBodyBytes caps a single response; the largest daily slices are a few MB.
const maxBodyBytes = 64 << 20

// Client fetches the case feed over HTTP. A 404 maps to domain.ErrNotFound;
// every other failure, including an open circuit, maps to domain.ErrUnavailable.
type Client struct {
	baseURL      string
	countriesURL string
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates a feed client rooted at baseURL.
func NewClient(baseURL, countriesURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		countriesURL: countriesURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: newBreaker(logger),
		metrics: metrics,
		logger:  logger,
	}
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "case-feed",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A missing slice is the normal end of the backfill, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("feed circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// FetchLatestSlice fetches d/latest.json, bypassing caches with token.
func (c *Client) FetchLatestSlice(ctx context.Context, token int64) ([]byte, error) {
	return c.fetchFeed(ctx, KindLatest, token, "d", "latest.json")
}

// FetchSlice fetches the immutable slice for an ISO date.
func (c *Client) FetchSlice(ctx context.Context, date string) ([]byte, error) {
	return c.fetchFeed(ctx, KindSlice, 0, "d", domain.SliceName(date))
}

// FetchLocations fetches the location table.
func (c *Client) FetchLocations(ctx context.Context) ([]byte, error) {
	return c.fetchFeed(ctx, KindLocations, 0, "location_info.data")
}

// FetchCountries fetches the country table.
func (c *Client) FetchCountries(ctx context.Context) ([]byte, error) {
	return c.get(ctx, KindCountries, c.countriesURL)
}

// FetchOverlay fetches the country-centroid overlay.
func (c *Client) FetchOverlay(ctx context.Context, token int64) ([]byte, error) {
	return c.fetchFeed(ctx, KindOverlay, token, "jhu.json")
}

// FetchHeadline fetches the global headline count.
func (c *Client) FetchHeadline(ctx context.Context, token int64) ([]byte, error) {
	return c.fetchFeed(ctx, KindHeadline, token, "latestCounts.json")
}

// fetchFeed resolves elem against the base URL. A non-zero token is sent as
// the nocache query parameter.
func (c *Client) fetchFeed(ctx context.Context, kind string, token int64, elem ...string) ([]byte, error) {
	u, err := url.JoinPath(c.baseURL, elem...)
	if err != nil {
		return nil, fmt.Errorf("build %s url: %w", kind, err)
	}
	if token != 0 {
		u += "?" + url.Values{"nocache": {strconv.FormatInt(token, 10)}}.Encode()
	}
	return c.get(ctx, kind, u)
}

func (c *Client) get(ctx context.Context, kind, fullURL string) ([]byte, error) {
	start := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, kind, fullURL)
	})
	c.metrics.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.FetchRequests.WithLabelValues(kind, "success").Inc()
		return result.([]byte), nil
	case errors.Is(err, domain.ErrNotFound):
		c.metrics.FetchRequests.WithLabelValues(kind, "not_found").Inc()
		return nil, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.FetchRequests.WithLabelValues(kind, "error").Inc()
		return nil, fmt.Errorf("%s request: %w: %w", kind, domain.ErrUnavailable, err)
	default:
		c.metrics.FetchRequests.WithLabelValues(kind, "error").Inc()
		c.logger.Debug("feed request failed", "kind", kind, "url", fullURL, "error", err)
		return nil, err
	}
}

func (c *Client) doRequest(ctx context.Context, kind, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w: %w", domain.ErrUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w: %w", kind, domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s request: %w", kind, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s request: %w: status %d: %s", kind, domain.ErrUnavailable, resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w: %w", kind, domain.ErrUnavailable, err)
	}
	return body, nil
}
