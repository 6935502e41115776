package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error = %v", err)
	}

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.ImageProxy.CacheTTL != 30*time.Minute {
		t.Errorf("expected cache TTL 30m, got %v", cfg.ImageProxy.CacheTTL)
	}
	if cfg.ImageProxy.FetchTimeout != 10*time.Second {
		t.Errorf("expected fetch timeout 10s, got %v", cfg.ImageProxy.FetchTimeout)
	}
	if !cfg.Server.CORS.Enabled {
		t.Error("expected CORS enabled by default")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
	if cfg.PayPal.APIBaseURL() != PayPalSandboxBaseURL {
		t.Errorf("expected sandbox PayPal host, got %q", cfg.PayPal.APIBaseURL())
	}
	if cfg.Providers.BigModel.Model != DefaultBigModelModel {
		t.Errorf("expected bigmodel model %q, got %q", DefaultBigModelModel, cfg.Providers.BigModel.Model)
	}
	if cfg.ImageProxy.MaxRetries != DefaultFetchMaxRetries {
		t.Errorf("expected %d retries, got %d", DefaultFetchMaxRetries, cfg.ImageProxy.MaxRetries)
	}
}

func TestLoadConfig_MaxRetries(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want int
	}{
		{"omitted", "image_proxy:\n  cache_ttl: 5m\n", DefaultFetchMaxRetries},
		{"explicit zero", "image_proxy:\n  max_retries: 0\n", 0},
		{"minus one", "image_proxy:\n  max_retries: -1\n", -1},
		{"explicit value", "image_proxy:\n  max_retries: 5\n", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.yaml))
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if cfg.ImageProxy.MaxRetries != tt.want {
				t.Errorf("MaxRetries = %d, want %d", cfg.ImageProxy.MaxRetries, tt.want)
			}
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9000"
  cors:
    allowed_origins: ["https://pictora.example"]
image_proxy:
  cache_ttl: 5m
  max_entries: 10
providers:
  stability:
    model: "sd3"
paypal:
  environment: live
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("expected listen address 0.0.0.0:9000, got %q", cfg.Server.ListenAddress)
	}
	if cfg.ImageProxy.CacheTTL != 5*time.Minute {
		t.Errorf("expected cache TTL 5m, got %v", cfg.ImageProxy.CacheTTL)
	}
	if cfg.ImageProxy.MaxEntries != 10 {
		t.Errorf("expected max entries 10, got %d", cfg.ImageProxy.MaxEntries)
	}
	if cfg.Providers.Stability.Model != "sd3" {
		t.Errorf("expected stability model sd3, got %q", cfg.Providers.Stability.Model)
	}
	if cfg.Providers.Stability.BaseURL != DefaultStabilityBaseURL {
		t.Errorf("expected default stability base URL, got %q", cfg.Providers.Stability.BaseURL)
	}
	if cfg.PayPal.APIBaseURL() != PayPalLiveBaseURL {
		t.Errorf("expected live PayPal host, got %q", cfg.PayPal.APIBaseURL())
	}
	if !cfg.Server.CORS.Enabled {
		t.Error("expected CORS to stay enabled when the file omits it")
	}
	if cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("expected text log format, got %q", cfg.Telemetry.Logging.Format)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "server: [unclosed")
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfig(t, `
paypal:
  environment: staging
`)
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv(EnvBigModelAPIKey, "bm-key")
	t.Setenv(EnvStabilityAPIKey, "sk-key")
	t.Setenv(EnvPayPalClientID, "client")
	t.Setenv(EnvPayPalClientSecret, "secret")
	t.Setenv(EnvPayPalEnvironment, "LIVE")
	t.Setenv(EnvDatabaseURL, "postgres://u:p@localhost/pictora")
	t.Setenv(EnvPublicBaseURL, "https://pictora.example/")
	t.Setenv("RELAY_SERVER_LISTEN_ADDRESS", ":7000")
	t.Setenv("RELAY_IMAGE_PROXY_MAX_RETRIES", "-1")

	// A missing file falls back to defaults
	cfg, err := LoadConfigWithEnvOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Providers.BigModel.APIKey != "bm-key" {
		t.Errorf("expected bigmodel key from env, got %q", cfg.Providers.BigModel.APIKey)
	}
	if cfg.Providers.Stability.APIKey != "sk-key" {
		t.Errorf("expected stability key from env, got %q", cfg.Providers.Stability.APIKey)
	}
	if !cfg.PayPal.Configured() {
		t.Error("expected PayPal to be configured from env")
	}
	if cfg.PayPal.Environment != "live" {
		t.Errorf("expected environment live, got %q", cfg.PayPal.Environment)
	}
	if cfg.Journal.Postgres.DSN != "postgres://u:p@localhost/pictora" {
		t.Errorf("expected DSN from DATABASE_URL, got %q", cfg.Journal.Postgres.DSN)
	}
	if cfg.Site.PublicBaseURL != "https://pictora.example" {
		t.Errorf("expected trimmed public base URL, got %q", cfg.Site.PublicBaseURL)
	}
	found := false
	for _, o := range cfg.Server.CORS.AllowedOrigins {
		if o == "https://pictora.example" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected public base URL in allowed origins, got %v", cfg.Server.CORS.AllowedOrigins)
	}
	if cfg.Server.ListenAddress != ":7000" {
		t.Errorf("expected listen address :7000, got %q", cfg.Server.ListenAddress)
	}
	if cfg.ImageProxy.MaxRetries != -1 {
		t.Errorf("expected retries disabled, got %d", cfg.ImageProxy.MaxRetries)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "RELAY_TEST_DOTENV_A=from-file\nRELAY_TEST_DOTENV_B=from-file\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	t.Setenv("RELAY_TEST_DOTENV_B", "from-env")
	os.Unsetenv("RELAY_TEST_DOTENV_A")
	t.Cleanup(func() { os.Unsetenv("RELAY_TEST_DOTENV_A") })

	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}

	if got := os.Getenv("RELAY_TEST_DOTENV_A"); got != "from-file" {
		t.Errorf("expected A from file, got %q", got)
	}
	if got := os.Getenv("RELAY_TEST_DOTENV_B"); got != "from-env" {
		t.Errorf("expected B to keep process value, got %q", got)
	}
}
