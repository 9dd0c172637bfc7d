// Package config loads service settings from the environment.
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
	"github.com/joho/godotenv"
)

// Indicator modes for the air quality and flood sources.
const (
	ModeData   = "data"
	ModeVisual = "visual"
	ModeOff    = "off"
)

// Report store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreNone     = "none"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	// RateLimitRPS limits inbound API requests across all clients; zero disables it.
	RateLimitRPS   float64
	DefaultRadiusM int

	// Gazetteer.
	NominatimURL       string
	NominatimUserAgent string
	NominatimTimeout   time.Duration
	NominatimRPS       float64

	// Weather, air quality and flood (Open-Meteo).
	OpenMeteoURL      string
	OpenMeteoAirURL   string
	OpenMeteoFloodURL string
	WeatherTimeout    time.Duration
	WeatherCacheTTL   time.Duration
	AirQualityMode    string
	FloodMode         string

	// Knowledge (Wikipedia).
	WikipediaURL      string
	WikipediaTimeout  time.Duration
	KnowledgeCacheTTL time.Duration

	// Map features (Overpass).
	OverpassURL     string
	OverpassTimeout time.Duration

	CacheMaxEntries    int
	CacheSweepInterval time.Duration

	// Narrative model.
	LLMEnabled bool
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Report persistence and events.
	ReportStore      string
	SQLitePath       string
	DatabaseURL      string
	KafkaBrokers     []string
	KafkaReportTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is applied first when
// present; it never overrides variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing file is fine

	var errs []error
	p := parser{errs: &errs}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout: shutdownTimeout,
		RateLimitRPS:    p.nonNegativeFloat("RATE_LIMIT_RPS", 10),
		DefaultRadiusM:  p.positiveInt("DEFAULT_RADIUS_M", 1000),

		NominatimURL:       p.url("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent: sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", "geocontext-service/1.0"),
		NominatimTimeout:   p.duration("NOMINATIM_TIMEOUT", 10*time.Second),
		NominatimRPS:       p.nonNegativeFloat("NOMINATIM_RPS", 1),

		OpenMeteoURL:      p.url("OPEN_METEO_URL", "https://api.open-meteo.com/v1/forecast"),
		OpenMeteoAirURL:   p.url("OPEN_METEO_AIR_URL", "https://air-quality-api.open-meteo.com/v1/air-quality"),
		OpenMeteoFloodURL: p.url("OPEN_METEO_FLOOD_URL", "https://flood-api.open-meteo.com/v1/flood"),
		WeatherTimeout:    p.duration("WEATHER_TIMEOUT", 8*time.Second),
		WeatherCacheTTL:   p.duration("WEATHER_CACHE_TTL", 10*time.Minute),
		AirQualityMode:    p.oneOf("AIR_QUALITY_MODE", ModeData, ModeData, ModeVisual, ModeOff),
		FloodMode:         p.oneOf("FLOOD_MODE", ModeData, ModeData, ModeVisual, ModeOff),

		WikipediaURL:      p.url("WIKIPEDIA_URL", "https://es.wikipedia.org/w/api.php"),
		WikipediaTimeout:  p.duration("WIKIPEDIA_TIMEOUT", 8*time.Second),
		KnowledgeCacheTTL: p.duration("KNOWLEDGE_CACHE_TTL", 15*time.Minute),

		OverpassURL:     p.url("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OverpassTimeout: p.duration("OVERPASS_TIMEOUT", 15*time.Second),

		CacheMaxEntries:    p.positiveInt("CACHE_MAX_ENTRIES", 1000),
		CacheSweepInterval: p.duration("CACHE_SWEEP_INTERVAL", time.Minute),

		LLMBaseURL: p.url("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMModel:   sharedcfg.EnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout: p.duration("LLM_TIMEOUT", 30*time.Second),

		ReportStore:      p.oneOf("REPORT_STORE", StoreSQLite, StoreSQLite, StorePostgres, StoreNone),
		SQLitePath:       sharedcfg.EnvOrDefault("SQLITE_PATH", "geocontext.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		KafkaBrokers:     sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "geo-context-reports"),
	}
	cfg.LLMEnabled = p.bool("LLM_ENABLED", cfg.LLMAPIKey != "")

	if cfg.DefaultRadiusM > 10_000 {
		errs = append(errs, errors.New("DEFAULT_RADIUS_M must be at most 10000"))
	}
	if cfg.LLMEnabled && cfg.LLMAPIKey == "" {
		errs = append(errs, errors.New("LLM_ENABLED is true but LLM_API_KEY is not set"))
	}
	if cfg.ReportStore == StorePostgres && cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("REPORT_STORE is postgres but DATABASE_URL is not set"))
	}
	if cfg.ReportStore == StoreSQLite && cfg.SQLitePath == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KafkaEnabled reports whether report events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// parser collects one error per invalid variable so Load reports them all.
type parser struct {
	errs *[]error
}

func (p parser) fail(key, value, want string) {
	*p.errs = append(*p.errs, fmt.Errorf("invalid %s %q: %s", key, value, want))
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		p.fail(key, s, "must be a positive duration")
		return def
	}
	return d
}

func (p parser) positiveInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		p.fail(key, s, "must be a positive integer")
		return def
	}
	return n
}

func (p parser) nonNegativeFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != f {
		p.fail(key, s, "must be a non-negative number")
		return def
	}
	return f
}

func (p parser) bool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(key, s, "must be true or false")
		return def
	}
	return b
}

func (p parser) oneOf(key, def string, allowed ...string) string {
	s := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if s == "" {
		return def
	}
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	p.fail(key, s, "must be one of "+strings.Join(allowed, ", "))
	return def
}

func (p parser) url(key, def string) string {
	s := sharedcfg.EnvOrDefault(key, def)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		p.fail(key, s, "must be an absolute http(s) URL")
		return def
	}
	return strings.TrimRight(s, "/")
}
