package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultRequestTimeout  = 75 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600

	// Image proxy defaults
	DefaultCacheTTL               = 30 * time.Minute
	DefaultCacheMaxEntries        = 1024
	DefaultSweepSchedule          = "@every 5m"
	DefaultFetchTimeout           = 10 * time.Second
	DefaultFetchMaxRetries        = 2
	DefaultImageUserAgent         = "Mozilla/5.0 (compatible; PictoraImageProxy/1.0)"
	DefaultMaxImageBytes          = int64(20 << 20)
	DefaultProviderTimeout        = 60 * time.Second
	DefaultProviderHandlerTimeout = 60 * time.Second
	DefaultBigModelBaseURL        = "https://open.bigmodel.cn/api/paas/v4"
	DefaultBigModelModel          = "cogview-3-flash"
	DefaultStabilityBaseURL       = "https://api.stability.ai"
	DefaultStabilityEngine        = "stable-diffusion-xl-1024-v1-0"

	// PayPal defaults
	DefaultPayPalEnvironment    = "sandbox"
	DefaultPayPalCurrency       = "USD"
	DefaultPayPalTimeout        = 30 * time.Second
	DefaultPayPalHandlerTimeout = 45 * time.Second
	PayPalSandboxBaseURL        = "https://api-m.sandbox.paypal.com"
	PayPalLiveBaseURL           = "https://api-m.paypal.com"

	// Journal defaults
	DefaultJournalBackend        = "memory"
	DefaultJournalMemoryCapacity = 1000
	DefaultJournalSQLitePath     = "data/journal.db"
	DefaultJournalSQLiteDriver   = "sqlite"
	DefaultJournalBusyTimeout    = 5 * time.Second
	DefaultJournalPostgresConns  = 5
	DefaultJournalRetentionDays  = 30
	DefaultJournalPruneSchedule  = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "pictora"
	DefaultMetricsSubsystem   = "relay"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingService     = "pictora-relay"
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// ScheduleOff disables a cron-driven background job.
const ScheduleOff = "off"

// DefaultRequestDurationBuckets are the histogram buckets for request latency.
var DefaultRequestDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// NewDefaultConfig returns a configuration with every default applied.
// Defaults whose zero value is meaningful (true booleans, the retry count)
// are set here because ApplyDefaults cannot tell an explicit zero from an
// omitted field.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.ImageProxy.MaxRetries = DefaultFetchMaxRetries
	cfg.Server.CORS.Enabled = DefaultCORSEnabled
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Logging.RedactSecrets = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// CORS defaults
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.Server.CORS.AllowedHeaders) == 0 {
		cfg.Server.CORS.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if len(cfg.Server.CORS.ExposedHeaders) == 0 {
		cfg.Server.CORS.ExposedHeaders = []string{"X-Request-ID", "X-Cache", "Content-Disposition"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Image proxy defaults
	if cfg.ImageProxy.CacheTTL == 0 {
		cfg.ImageProxy.CacheTTL = DefaultCacheTTL
	}
	if cfg.ImageProxy.MaxEntries == 0 {
		cfg.ImageProxy.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.ImageProxy.SweepSchedule == "" {
		cfg.ImageProxy.SweepSchedule = DefaultSweepSchedule
	}
	if cfg.ImageProxy.FetchTimeout == 0 {
		cfg.ImageProxy.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.ImageProxy.UserAgent == "" {
		cfg.ImageProxy.UserAgent = DefaultImageUserAgent
	}
	if cfg.ImageProxy.MaxImageBytes == 0 {
		cfg.ImageProxy.MaxImageBytes = DefaultMaxImageBytes
	}

	// Provider defaults
	applyProviderDefaults(&cfg.Providers.BigModel, DefaultBigModelBaseURL, DefaultBigModelModel)
	applyProviderDefaults(&cfg.Providers.Stability, DefaultStabilityBaseURL, DefaultStabilityEngine)

	// PayPal defaults
	if cfg.PayPal.Environment == "" {
		cfg.PayPal.Environment = DefaultPayPalEnvironment
	}
	if cfg.PayPal.Currency == "" {
		cfg.PayPal.Currency = DefaultPayPalCurrency
	}
	if cfg.PayPal.Timeout == 0 {
		cfg.PayPal.Timeout = DefaultPayPalTimeout
	}
	if cfg.PayPal.HandlerTimeout == 0 {
		cfg.PayPal.HandlerTimeout = DefaultPayPalHandlerTimeout
	}

	// Journal defaults
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = DefaultJournalBackend
	}
	if cfg.Journal.MemoryCapacity == 0 {
		cfg.Journal.MemoryCapacity = DefaultJournalMemoryCapacity
	}
	if cfg.Journal.SQLite.Path == "" {
		cfg.Journal.SQLite.Path = DefaultJournalSQLitePath
	}
	if cfg.Journal.SQLite.Driver == "" {
		cfg.Journal.SQLite.Driver = DefaultJournalSQLiteDriver
	}
	if cfg.Journal.SQLite.BusyTimeout == 0 {
		cfg.Journal.SQLite.BusyTimeout = DefaultJournalBusyTimeout
	}
	if cfg.Journal.Postgres.MaxOpenConns == 0 {
		cfg.Journal.Postgres.MaxOpenConns = DefaultJournalPostgresConns
	}
	if cfg.Journal.RetentionDays == 0 {
		cfg.Journal.RetentionDays = DefaultJournalRetentionDays
	}
	if cfg.Journal.PruneSchedule == "" {
		cfg.Journal.PruneSchedule = DefaultJournalPruneSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = DefaultRequestDurationBuckets
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

func applyProviderDefaults(p *ProviderConfig, baseURL, model string) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.Model == "" {
		p.Model = model
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultProviderTimeout
	}
	if p.HandlerTimeout == 0 {
		p.HandlerTimeout = DefaultProviderHandlerTimeout
	}
}
