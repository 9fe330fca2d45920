package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream feed.
	FeedBaseURL   string
	CountriesURL  string
	FeedDir       string // serve slices and tables from a local mirror instead of FeedBaseURL
	FeedTimeout   time.Duration
	FeedCacheSize int

	// Display policy.
	ZoomThreshold         float64
	HistoricalCountryTier bool

	// Backfill.
	DirectoryLoadAttempts  int
	MaxConsecutiveFailures int
	RefreshSchedule        string

	// Snapshot publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	feedTimeout, err := parseDuration("FEED_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("FEED_CACHE_SIZE", 400)
	if err != nil {
		return nil, err
	}
	maxFailures, err := parsePositiveInt("BACKFILL_MAX_CONSECUTIVE_FAILURES", 7)
	if err != nil {
		return nil, err
	}
	loadAttempts, err := parsePositiveInt("DIRECTORY_LOAD_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	zoom, err := parseZoomThreshold()
	if err != nil {
		return nil, err
	}
	historical, err := parseBool("HISTORICAL_COUNTRY_TIER", false)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FeedBaseURL:   sharedcfg.EnvOrDefault("FEED_BASE_URL", "https://raw.githubusercontent.com/ghdsi/covid-19/master/"),
		CountriesURL:  sharedcfg.EnvOrDefault("COUNTRIES_URL", "https://raw.githubusercontent.com/ghdsi/common/master/countries.data"),
		FeedDir:       os.Getenv("FEED_DIR"),
		FeedTimeout:   feedTimeout,
		FeedCacheSize: cacheSize,

		ZoomThreshold:         zoom,
		HistoricalCountryTier: historical,

		DirectoryLoadAttempts:  loadAttempts,
		MaxConsecutiveFailures: maxFailures,
		RefreshSchedule:        strings.TrimSpace(os.Getenv("REFRESH_SCHEDULE")),

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "case-snapshots"),
	}

	if cfg.FeedDir == "" {
		if err := validateURL("FEED_BASE_URL", cfg.FeedBaseURL); err != nil {
			return nil, err
		}
		if err := validateURL("COUNTRIES_URL", cfg.CountriesURL); err != nil {
			return nil, err
		}
	}
	if cfg.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
			return nil, fmt.Errorf("invalid REFRESH_SCHEDULE: %w", err)
		}
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaSnapshotTopic == "" {
			return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required")
		}
	}

	return cfg, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

func parseZoomThreshold() (float64, error) {
	s := os.Getenv("ZOOM_THRESHOLD")
	if s == "" {
		return 2, nil
	}
	z, err := strconv.ParseFloat(s, 64)
	if err != nil || z < 0 {
		return 0, errors.New("invalid ZOOM_THRESHOLD")
	}
	return z, nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
