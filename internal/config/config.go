package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string

	OverpassURL  string
	FeedURLs     []string
	FeedLocality string
	GeoJSONURLs  []string

	NominatimURL     string
	GeocodeInterval  time.Duration
	GeocodeCacheSize int
	UserAgent        string

	DedupRadiusMeters  float64
	ChunkSize          int
	MaxParallelFetches int

	HTTPAddr        string
	HTTPTimeout     time.Duration
	LogLevel        string
	LogFormat       string
	RunInterval     time.Duration
	ShutdownTimeout time.Duration

	// Optional Kafka sink for downstream consumers of persisted records.
	KafkaBrokers []string
	KafkaTopic   string
}

// KafkaEnabled reports whether the optional record sink should be wired.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults
// where unset. The store credentials are the only hard requirement: a run
// without them cannot persist anything, so their absence is fatal.
func Load() (*Config, error) {
	geocodeInterval, err := parseDuration("GEOCODE_INTERVAL", "1100ms")
	if err != nil {
		return nil, err
	}
	httpTimeout, err := parseDuration("HTTP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	runInterval, err := parseDuration("RUN_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}

	dedupRadius, err := parseFloat("DEDUP_RADIUS_METERS", 75)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SupabaseURL:   strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey:   os.Getenv("SUPABASE_KEY"),
		SupabaseTable: envOrDefault("SUPABASE_TABLE", "lavori"),

		OverpassURL:  envOrDefaultIfUnset("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		FeedURLs:     splitList(os.Getenv("FEED_URLS")),
		FeedLocality: envOrDefault("FEED_LOCALITY", "Italia"),
		GeoJSONURLs:  splitList(os.Getenv("GEOJSON_URLS")),

		NominatimURL:     strings.TrimRight(envOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"), "/"),
		GeocodeInterval:  geocodeInterval,
		GeocodeCacheSize: parseIntClamped("GEOCODE_CACHE_SIZE", 512, 1, 100000),
		UserAgent:        envOrDefault("USER_AGENT", "roadworks-etl/1.0 (+https://github.com/lavorimap/roadworks-etl)"),

		DedupRadiusMeters: dedupRadius,
		// Chunk cap keeps each PostgREST payload well under request size limits.
		ChunkSize:          parseIntClamped("CHUNK_SIZE", 200, 1, 1000),
		MaxParallelFetches: parseIntClamped("MAX_PARALLEL_FETCHES", 3, 1, 16),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		HTTPTimeout:     httpTimeout,
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		RunInterval:     runInterval,
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "roadworks-records"),
	}

	if cfg.SupabaseURL == "" {
		return nil, errors.New("SUPABASE_URL is required")
	}
	if cfg.SupabaseKey == "" {
		return nil, errors.New("SUPABASE_KEY is required")
	}
	if cfg.DedupRadiusMeters <= 0 {
		return nil, errors.New("DEDUP_RADIUS_METERS must be positive")
	}
	if cfg.GeocodeInterval <= 0 {
		return nil, errors.New("GEOCODE_INTERVAL must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envOrDefaultIfUnset applies the default only when the variable is absent.
// An explicitly empty value is kept: for OVERPASS_URL it means "source
// disabled", which envOrDefault would silently undo.
func envOrDefaultIfUnset(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

// splitList parses a comma-separated env value, dropping empty entries.
func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

// parseIntClamped reads an integer env var, silently clamping it into
// [min, max] and falling back to def on parse failure.
func parseIntClamped(key string, def, min, max int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
