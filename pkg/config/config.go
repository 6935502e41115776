package config

import "time"

// Config is the root configuration structure for the relay.
// It contains the HTTP server settings, the image proxy cache, the upstream
// generation and payment providers, the relay journal, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS.
	Server ServerConfig `yaml:"server"`

	// ImageProxy contains configuration for the image proxy endpoints and
	// the in-memory image cache behind them.
	ImageProxy ImageProxyConfig `yaml:"image_proxy"`

	// Providers contains configuration for the image generation providers.
	Providers ProvidersConfig `yaml:"providers"`

	// PayPal contains configuration for the PayPal order relay.
	PayPal PayPalConfig `yaml:"paypal"`

	// Journal contains configuration for the relay audit journal.
	Journal JournalConfig `yaml:"journal"`

	// Site contains settings describing the public website served by the relay.
	Site SiteConfig `yaml:"site"`

	// Telemetry contains configuration for observability including logging,
	// metrics, tracing, and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must exceed the generation timeout.
	// Default: 90s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// RequestTimeout bounds the total handling time of a single request.
	// Default: 75s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// NEXT_PUBLIC_BASE_URL is appended when set.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers that are exposed to the client.
	// Default: ["X-Request-ID", "X-Cache", "Content-Disposition"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed in CORS requests.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// ImageProxyConfig contains configuration for the image proxy.
type ImageProxyConfig struct {
	// CacheTTL is how long a fetched image is served from memory.
	// Default: 30m
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// MaxEntries bounds the number of cached images. The least recently
	// used image is evicted when the cache is full.
	// Default: 1024
	MaxEntries int `yaml:"max_entries"`

	// SweepSchedule is the cron expression for the background expiry sweep.
	// "off" disables the scheduled sweep; the sweep after each insert still runs.
	// Default: "@every 5m"
	SweepSchedule string `yaml:"sweep_schedule"`

	// FetchTimeout bounds each upstream image request.
	// Default: 10s
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// MaxRetries is the number of extra attempts for a failed display fetch.
	// 0 (or -1) disables retries.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// UserAgent is sent with every upstream image request.
	// Default: "Mozilla/5.0 (compatible; PictoraImageProxy/1.0)"
	UserAgent string `yaml:"user_agent"`

	// MaxImageBytes caps the size of a fetched image.
	// Default: 20971520 (20MB)
	MaxImageBytes int64 `yaml:"max_image_bytes"`
}

// ProvidersConfig groups the image generation providers.
type ProvidersConfig struct {
	// BigModel is the text-to-image provider (CogView).
	BigModel ProviderConfig `yaml:"bigmodel"`

	// Stability is the image-to-image provider.
	Stability ProviderConfig `yaml:"stability"`
}

// ProviderConfig contains configuration for a single generation provider.
type ProviderConfig struct {
	// BaseURL is the base URL for the provider's API endpoint.
	// Default: "https://open.bigmodel.cn/api/paas/v4" (bigmodel),
	// "https://api.stability.ai" (stability)
	BaseURL string `yaml:"base_url"`

	// APIKey is the authentication key for the provider.
	// Overridden by BIGMODEL_API_KEY / STABILITY_API_KEY.
	APIKey string `yaml:"api_key"`

	// Model is the model (bigmodel) or engine (stability) identifier.
	// Default: "cogview-3-flash" (bigmodel), "stable-diffusion-xl-1024-v1-0" (stability)
	Model string `yaml:"model"`

	// Timeout is the maximum duration for a single generation call.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// HandlerTimeout bounds a whole generation request once its body is
	// decoded.
	// Default: 60s
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
}

// Configured reports whether an API key is present.
func (p ProviderConfig) Configured() bool {
	return p.APIKey != ""
}

// PayPalConfig contains configuration for the PayPal order relay.
type PayPalConfig struct {
	// Environment selects the PayPal API host.
	// Options: "sandbox", "live"
	// Default: "sandbox"
	Environment string `yaml:"environment"`

	// BaseURL overrides the host derived from Environment.
	BaseURL string `yaml:"base_url"`

	// ClientID is the REST app client ID. Overridden by PAYPAL_CLIENT_ID.
	ClientID string `yaml:"client_id"`

	// ClientSecret is the REST app secret. Overridden by PAYPAL_CLIENT_SECRET.
	ClientSecret string `yaml:"client_secret"`

	// Currency is used when a create-order request does not name one.
	// Default: "USD"
	Currency string `yaml:"currency"`

	// Timeout is the maximum duration for a single PayPal call.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// HandlerTimeout bounds a whole payment request, which may make two
	// PayPal calls (token and order).
	// Default: 45s
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
}

// Configured reports whether both PayPal credentials are present.
func (p PayPalConfig) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// APIBaseURL returns the PayPal REST host for the configured environment.
func (p PayPalConfig) APIBaseURL() string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	if p.Environment == "live" || p.Environment == "production" {
		return PayPalLiveBaseURL
	}
	return PayPalSandboxBaseURL
}

// JournalConfig contains configuration for the relay journal.
type JournalConfig struct {
	// Enabled controls whether generation and payment relays are journaled.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite", "postgres"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// MemoryCapacity is the number of records kept by the memory backend.
	// Default: 1000
	MemoryCapacity int `yaml:"memory_capacity"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres contains PostgreSQL backend settings.
	Postgres PostgresConfig `yaml:"postgres"`

	// RetentionDays is how long records are kept before pruning.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for retention pruning.
	// "off" disables pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/journal.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	// DSN is the connection string. Overridden by DATABASE_URL.
	DSN string `yaml:"dsn"`

	// MaxOpenConns limits the connection pool.
	// Default: 5
	MaxOpenConns int `yaml:"max_open_conns"`
}

// SiteConfig describes the website fronted by the relay.
type SiteConfig struct {
	// PublicBaseURL is the site's public origin. Overridden by NEXT_PUBLIC_BASE_URL.
	PublicBaseURL string `yaml:"public_base_url"`
}

// TelemetryConfig contains configuration for observability features.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks credentials in log attributes.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "pictora"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "relay"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request duration (seconds).
	// Default: [0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// ServiceName is the service name in traces.
	// Default: "pictora-relay"
	ServiceName string `yaml:"service_name"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// LivenessPath is the HTTP path for liveness probes.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the HTTP path for readiness probes.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
