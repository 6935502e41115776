package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
//
// Missing provider or PayPal credentials are not validation errors: the
// affected endpoints report a configuration error per request instead, so
// the image proxy can run without any secrets.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateImageProxy(&cfg.ImageProxy)...)
	errs = append(errs, validateProvider("providers.bigmodel", &cfg.Providers.BigModel)...)
	errs = append(errs, validateProvider("providers.stability", &cfg.Providers.Stability)...)
	errs = append(errs, validatePayPal(&cfg.PayPal)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, FieldError{Field: "server.request_timeout", Message: "request timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be non-negative"})
	}

	for i, origin := range cfg.CORS.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("server.cors.allowed_origins[%d]", i),
				Message: fmt.Sprintf("invalid origin %q", origin),
			})
		}
	}

	return errs
}

func validateImageProxy(cfg *ImageProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.CacheTTL <= 0 {
		errs = append(errs, FieldError{Field: "image_proxy.cache_ttl", Message: "cache TTL must be positive"})
	}
	if cfg.MaxEntries < 0 {
		errs = append(errs, FieldError{Field: "image_proxy.max_entries", Message: "max entries must be non-negative"})
	}
	if cfg.FetchTimeout <= 0 {
		errs = append(errs, FieldError{Field: "image_proxy.fetch_timeout", Message: "fetch timeout must be positive"})
	}
	if cfg.MaxRetries < -1 || cfg.MaxRetries > 10 {
		errs = append(errs, FieldError{Field: "image_proxy.max_retries", Message: "max retries must be between -1 and 10"})
	}
	if cfg.MaxImageBytes <= 0 {
		errs = append(errs, FieldError{Field: "image_proxy.max_image_bytes", Message: "max image bytes must be positive"})
	}
	if err := validateSchedule(cfg.SweepSchedule); err != nil {
		errs = append(errs, FieldError{Field: "image_proxy.sweep_schedule", Message: err.Error()})
	}

	return errs
}

func validateProvider(field string, cfg *ProviderConfig) []FieldError {
	var errs []FieldError

	if cfg.BaseURL != "" {
		if u, err := url.Parse(cfg.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, FieldError{
				Field:   field + ".base_url",
				Message: fmt.Sprintf("invalid URL %q: must use http or https", cfg.BaseURL),
			})
		}
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: field + ".timeout", Message: "timeout must be positive"})
	}
	if cfg.HandlerTimeout < 0 {
		errs = append(errs, FieldError{Field: field + ".handler_timeout", Message: "handler timeout must be positive"})
	}

	return errs
}

func validatePayPal(cfg *PayPalConfig) []FieldError {
	var errs []FieldError

	switch cfg.Environment {
	case "sandbox", "live", "production":
	default:
		errs = append(errs, FieldError{
			Field:   "paypal.environment",
			Message: fmt.Sprintf("invalid environment %q (must be: sandbox, live)", cfg.Environment),
		})
	}
	if cfg.BaseURL != "" {
		if u, err := url.Parse(cfg.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, FieldError{Field: "paypal.base_url", Message: fmt.Sprintf("invalid URL %q", cfg.BaseURL)})
		}
	}
	if len(cfg.Currency) != 3 {
		errs = append(errs, FieldError{Field: "paypal.currency", Message: "currency must be a 3-letter ISO code"})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "paypal.timeout", Message: "timeout must be positive"})
	}
	if cfg.HandlerTimeout < 0 {
		errs = append(errs, FieldError{Field: "paypal.handler_timeout", Message: "handler timeout must be positive"})
	}

	return errs
}

func validateJournal(cfg *JournalConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	switch cfg.Backend {
	case "memory":
		if cfg.MemoryCapacity <= 0 {
			errs = append(errs, FieldError{Field: "journal.memory_capacity", Message: "capacity must be positive"})
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "journal.sqlite.path", Message: "path is required"})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "journal.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q (must be: sqlite, sqlite3)", cfg.SQLite.Driver),
			})
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			errs = append(errs, FieldError{Field: "journal.postgres.dsn", Message: "dsn is required (or set DATABASE_URL)"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "journal.backend",
			Message: fmt.Sprintf("invalid backend %q (must be: memory, sqlite, postgres)", cfg.Backend),
		})
	}

	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{Field: "journal.retention_days", Message: "retention days must be non-negative"})
	}
	if err := validateSchedule(cfg.PruneSchedule); err != nil {
		errs = append(errs, FieldError{Field: "journal.prune_schedule", Message: err.Error()})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be: debug, info, warn, error)", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be: json, text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with /"})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
		}
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (must be: always, never, ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0 and 1"})
		}
	}

	return errs
}

// validateSchedule checks a cron expression. ScheduleOff is accepted.
func validateSchedule(spec string) error {
	if spec == ScheduleOff {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %v", spec, err)
	}
	return nil
}
