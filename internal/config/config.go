// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server settings,
// logging, the database path, upstream API knobs (origin, timeout, retry and
// backoff behavior), sync scheduling, and observability switches.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// UpstreamConfig holds everything needed to talk to the nideriji API.
type UpstreamConfig struct {
	Origin         string        // UPSTREAM_ORIGIN, e.g. "https://nideriji.cn"
	RequestTimeout time.Duration // per-call timeout
	MaxAttempts    int           // retry budget for network errors only
	BackoffBase    time.Duration // first retry delay; doubles per attempt
	BackoffMax     time.Duration // cap on the computed delay
	JitterRatio    float64       // proportional random jitter added to the delay
	DetailBatch    int           // diary ids per all_by_ids request
}

// SyncConfig controls the reconciliation engine and the periodic trigger.
type SyncConfig struct {
	Interval          time.Duration // periodic full-sync interval
	OnStartup         bool          // trigger one all-account sync at boot
	ContentThreshold  int           // stripped-content completeness threshold (chars)
	MaxImagesPerSync  int           // background prefetch cap per account sync
	MaxImageBytes     int64         // reject upstream images larger than this
	ErrorSummaryLimit int           // cap for sync-log error messages
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	// App
	DBPath   string
	Upstream UpstreamConfig
	Sync     SyncConfig

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency (publish replay window)
	IdempotencyTTL time.Duration

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "31012"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// App
		DBPath: getenv("DB_PATH", "yournote.db"),
		Upstream: UpstreamConfig{
			Origin:         strings.TrimRight(getenv("UPSTREAM_ORIGIN", "https://nideriji.cn"), "/"),
			RequestTimeout: getdur("UPSTREAM_TIMEOUT", 15*time.Second),
			MaxAttempts:    getint("UPSTREAM_MAX_ATTEMPTS", 3),
			BackoffBase:    getdur("UPSTREAM_BACKOFF_BASE", 500*time.Millisecond),
			BackoffMax:     getdur("UPSTREAM_BACKOFF_MAX", 5*time.Second),
			JitterRatio:    getfloat("UPSTREAM_JITTER_RATIO", 0.1),
			DetailBatch:    getint("UPSTREAM_DETAIL_BATCH", 50),
		},
		Sync: SyncConfig{
			Interval:          time.Duration(getint("SYNC_INTERVAL_MINUTES", 20)) * time.Minute,
			OnStartup:         getbool("SYNC_ON_STARTUP", true),
			ContentThreshold:  getint("SYNC_CONTENT_THRESHOLD", 100),
			MaxImagesPerSync:  getint("SYNC_MAX_IMAGES", 30),
			MaxImageBytes:     int64(getint("SYNC_MAX_IMAGE_BYTES", 10<<20)),
			ErrorSummaryLimit: getint("SYNC_ERROR_SUMMARY_LIMIT", 200),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 10.0),
		RateBurst: getint("RATE_BURST", 20),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-diary-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Upstream.MaxAttempts < 1 {
		cfg.Upstream.MaxAttempts = 1
	}
	if cfg.Upstream.DetailBatch < 1 {
		cfg.Upstream.DetailBatch = 50
	}
	if cfg.Sync.Interval <= 0 {
		cfg.Sync.Interval = 20 * time.Minute
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if !strings.HasPrefix(cfg.Upstream.Origin, "http://") && !strings.HasPrefix(cfg.Upstream.Origin, "https://") {
		return cfg, errors.New("UPSTREAM_ORIGIN must be an http(s) URL")
	}
	if cfg.Upstream.RequestTimeout <= 0 {
		return cfg, errors.New("UPSTREAM_TIMEOUT must be > 0")
	}
	if cfg.Upstream.BackoffBase < 0 || cfg.Upstream.BackoffMax < 0 || cfg.Upstream.JitterRatio < 0 {
		return cfg, errors.New("upstream backoff settings must be >= 0")
	}
	if cfg.Sync.ContentThreshold <= 0 {
		return cfg, errors.New("SYNC_CONTENT_THRESHOLD must be > 0")
	}
	if cfg.Sync.MaxImagesPerSync < 0 {
		return cfg, errors.New("SYNC_MAX_IMAGES must be >= 0")
	}
	if cfg.Sync.MaxImageBytes <= 0 {
		return cfg, errors.New("SYNC_MAX_IMAGE_BYTES must be > 0")
	}
	if cfg.Sync.ErrorSummaryLimit <= 0 {
		return cfg, errors.New("SYNC_ERROR_SUMMARY_LIMIT must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
