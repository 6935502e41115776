package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by the relay in addition to the RELAY_* overrides.
const (
	EnvStabilityAPIKey    = "STABILITY_API_KEY"
	EnvBigModelAPIKey     = "BIGMODEL_API_KEY"
	EnvPayPalClientID     = "PAYPAL_CLIENT_ID"
	EnvPayPalClientSecret = "PAYPAL_CLIENT_SECRET"
	EnvPayPalEnvironment  = "PAYPAL_ENVIRONMENT"
	EnvDatabaseURL        = "DATABASE_URL"
	EnvPublicBaseURL      = "NEXT_PUBLIC_BASE_URL"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// An empty path yields the default configuration.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}

		// Unmarshal over the defaults so omitted fields keep them
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. A missing file is not an error: the relay
// is commonly configured through the environment alone.
//
// The loading sequence is:
// 1. Load YAML from file (or defaults)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = NewDefaultConfig()
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables that are already set are left untouched, and
// missing files are ignored. With no arguments ".env" is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}

	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Provider and payment secrets use the names the website deploys with
	if val := os.Getenv(EnvBigModelAPIKey); val != "" {
		cfg.Providers.BigModel.APIKey = val
	}
	if val := os.Getenv(EnvStabilityAPIKey); val != "" {
		cfg.Providers.Stability.APIKey = val
	}
	if val := os.Getenv(EnvPayPalClientID); val != "" {
		cfg.PayPal.ClientID = val
	}
	if val := os.Getenv(EnvPayPalClientSecret); val != "" {
		cfg.PayPal.ClientSecret = val
	}
	if val := os.Getenv(EnvPayPalEnvironment); val != "" {
		cfg.PayPal.Environment = strings.ToLower(val)
	}
	if val := os.Getenv(EnvDatabaseURL); val != "" {
		cfg.Journal.Postgres.DSN = val
	}
	if val := os.Getenv(EnvPublicBaseURL); val != "" {
		cfg.Site.PublicBaseURL = strings.TrimRight(val, "/")
		cfg.Server.CORS.AllowedOrigins = appendUnique(cfg.Server.CORS.AllowedOrigins, cfg.Site.PublicBaseURL)
	}

	// Server overrides
	if val := os.Getenv("RELAY_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("RELAY_SERVER_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}
	if val := os.Getenv("RELAY_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Image proxy overrides
	if val := os.Getenv("RELAY_IMAGE_PROXY_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.ImageProxy.CacheTTL = d
		}
	}
	if val := os.Getenv("RELAY_IMAGE_PROXY_MAX_ENTRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.ImageProxy.MaxEntries = i
		}
	}
	if val := os.Getenv("RELAY_IMAGE_PROXY_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.ImageProxy.MaxRetries = i
		}
	}

	// Journal overrides
	if val := os.Getenv("RELAY_JOURNAL_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Journal.Enabled = b
		}
	}
	if val := os.Getenv("RELAY_JOURNAL_BACKEND"); val != "" {
		cfg.Journal.Backend = val
	}
	if val := os.Getenv("RELAY_JOURNAL_SQLITE_PATH"); val != "" {
		cfg.Journal.SQLite.Path = val
	}

	// Telemetry overrides
	if val := os.Getenv("RELAY_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("RELAY_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("RELAY_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("RELAY_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("RELAY_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
