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
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Upstream site and transport.
	BaseURL         *url.URL
	RequestDelay    time.Duration
	RequestTimeout  time.Duration
	DownloadTimeout time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	UserAgent       string
	Disaster        string
	QueryPlanFile   string

	// Outputs.
	OutputDir        string
	EnrichDetails    bool
	DetailCacheSize  int
	MaxReports       int
	MinDownloadBytes int64

	// Service.
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	CollectSchedule string

	// Optional sinks, disabled when empty.
	KafkaBrokers []string
	KafkaTopic   string
	SQLitePath   string
	S3Bucket     string
	S3Prefix     string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	base, err := url.Parse(strings.TrimRight(sharedcfg.EnvOrDefault("CHARTER_BASE_URL", "https://disasterscharter.org"), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.New("invalid CHARTER_BASE_URL")
	}

	delay, err := parseDuration("CHARTER_REQUEST_DELAY", "2s", true)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := parseDuration("CHARTER_REQUEST_TIMEOUT", "30s", false)
	if err != nil {
		return nil, err
	}
	downloadTimeout, err := parseDuration("CHARTER_DOWNLOAD_TIMEOUT", "60s", false)
	if err != nil {
		return nil, err
	}
	backoff, err := parseDuration("CHARTER_RETRY_BACKOFF", "500ms", true)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	maxRetries, err := parseInt("CHARTER_MAX_RETRIES", 3, 0, 10)
	if err != nil {
		return nil, err
	}
	maxReports, err := parseInt("MAX_REPORTS", 5, 0, 100)
	if err != nil {
		return nil, err
	}
	minBytes, err := parseInt("MIN_DOWNLOAD_BYTES", 1024, 0, 1<<30)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("DETAIL_CACHE_SIZE", 1000, 0, 100000)
	if err != nil {
		return nil, err
	}

	enrich, err := parseBool("ENRICH_DETAILS", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:         base,
		RequestDelay:    delay,
		RequestTimeout:  requestTimeout,
		DownloadTimeout: downloadTimeout,
		MaxRetries:      maxRetries,
		RetryBackoff:    backoff,
		UserAgent:       sharedcfg.EnvOrDefault("CHARTER_USER_AGENT", defaultUserAgent),
		Disaster:        strings.ToLower(sharedcfg.EnvOrDefault("CHARTER_DISASTER", "flood")),
		QueryPlanFile:   os.Getenv("QUERY_PLAN_FILE"),

		OutputDir:        sharedcfg.EnvOrDefault("OUTPUT_DIR", "data"),
		EnrichDetails:    enrich,
		DetailCacheSize:  cacheSize,
		MaxReports:       maxReports,
		MinDownloadBytes: int64(minBytes),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CollectSchedule: sharedcfg.EnvOrDefault("COLLECT_SCHEDULE", "@every 24h"),

		KafkaBrokers: kafkaBrokers(),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "flood-activations"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		S3Bucket:     os.Getenv("S3_BUCKET"),
		S3Prefix:     sharedcfg.EnvOrDefault("S3_PREFIX", "flood-etl/"),
	}

	if cfg.Disaster == "" {
		return nil, errors.New("CHARTER_DISASTER is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, errors.New("LOG_FORMAT must be json or text")
	}

	return cfg, nil
}

// KafkaEnabled reports whether events are published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// SQLiteEnabled reports whether events are stored in a local database.
func (c *Config) SQLiteEnabled() bool { return c.SQLitePath != "" }

// S3Enabled reports whether output files are mirrored to object storage.
func (c *Config) S3Enabled() bool { return c.S3Bucket != "" }

// kafkaBrokers returns the configured broker list, or nil when Kafka is
// disabled.
func kafkaBrokers() []string {
	s := os.Getenv("KAFKA_BROKERS")
	if s == "" {
		return nil
	}
	return sharedcfg.ParseBrokers(s)
}

func parseDuration(key, fallback string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
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
