package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/cfa-fire-forecast/internal/domain"
)

// Polling interval bounds. CFA updates forecasts a few times a day; polling
// tighter than five minutes only hammers their servers.
const (
	DefaultPollInterval = time.Hour
	MinPollInterval     = 5 * time.Minute
	MaxPollInterval     = 24 * time.Hour
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Districts       []string
	PollInterval    time.Duration
	FetchTimeout    time.Duration
	CombinedFeedURL string
	DistrictFeedURL string // template, {slug} is replaced per district

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	SensorPrefix string

	WidgetTitle         string
	WidgetShowStatusDot bool

	// Redis entity surface configuration. Setting REDIS_ADDR enables it.
	RedisAddr      string
	RedisKeyPrefix string

	// Kafka sensor-update stream configuration.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	pollInterval, err := parseDurationEnv("POLL_INTERVAL", DefaultPollInterval)
	if err != nil {
		return nil, err
	}
	if pollInterval < MinPollInterval {
		pollInterval = MinPollInterval
	}
	if pollInterval > MaxPollInterval {
		pollInterval = MaxPollInterval
	}

	fetchTimeout, err := parseDurationEnv("FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	districts, err := parseDistricts(envOrDefault("DISTRICTS", ""))
	if err != nil {
		return nil, err
	}

	kafkaEnabled := envOrDefault("KAFKA_ENABLED", "false") == "true"

	cfg := &Config{
		Districts:       districts,
		PollInterval:    pollInterval,
		FetchTimeout:    fetchTimeout,
		CombinedFeedURL: envOrDefault("COMBINED_FEED_URL", "https://www.cfa.vic.gov.au/cfa/rssfeed/tfbfdrforecast_rss.xml"),
		DistrictFeedURL: envOrDefault("DISTRICT_FEED_URL", "https://www.cfa.vic.gov.au/cfa/rssfeed/{slug}-firedistrict_rss.xml"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SensorPrefix: envOrDefault("SENSOR_PREFIX", "cfa"),

		WidgetTitle:         envOrDefault("WIDGET_TITLE", "Fire Danger Ratings"),
		WidgetShowStatusDot: envOrDefault("WIDGET_SHOW_STATUS_DOT", "true") == "true",

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisKeyPrefix: envOrDefault("REDIS_KEY_PREFIX", "cfa:district"),

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "fire-district-sensors"),
	}

	if !strings.Contains(cfg.DistrictFeedURL, "{slug}") {
		return nil, errors.New("DISTRICT_FEED_URL must contain a {slug} placeholder")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is not set")
	}

	return cfg, nil
}

// DistrictURL resolves the per-district feed URL for a slug.
func (c *Config) DistrictURL(slug string) string {
	return strings.ReplaceAll(c.DistrictFeedURL, "{slug}", slug)
}

// RedisEnabled reports whether the Redis entity surface sink is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// parseDistricts splits a comma-separated slug list. An empty value tracks
// all nine districts.
func parseDistricts(value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		slugs := domain.DistrictSlugs()
		// Deterministic order for stable logs and widget rows.
		sort.Strings(slugs)
		return slugs, nil
	}

	var slugs []string
	for _, part := range strings.Split(value, ",") {
		slug := strings.TrimSpace(part)
		if slug == "" {
			continue
		}
		if !domain.KnownDistrict(slug) {
			return nil, fmt.Errorf("unknown district slug %q in DISTRICTS", slug)
		}
		slugs = append(slugs, slug)
	}
	if len(slugs) == 0 {
		return nil, errors.New("DISTRICTS contained no valid slugs")
	}
	return slugs, nil
}

func parseBrokers(value string) []string {
	var brokers []string
	for _, part := range strings.Split(value, ",") {
		if b := strings.TrimSpace(part); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
