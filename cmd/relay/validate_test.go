package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pictora-hq/relay/pkg/cli"
	"pictora-hq/relay/pkg/config"
)

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestSummarize_MasksSecrets(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Providers.BigModel.APIKey = "bm-secret-key-123456"
	cfg.PayPal.ClientID = "paypal-client-id-abcdef"
	cfg.PayPal.ClientSecret = "paypal-secret"

	s := summarize(cfg)

	if s.Providers["bigmodel"] == cfg.Providers.BigModel.APIKey {
		t.Error("bigmodel key printed unmasked")
	}
	if s.Providers["stability"] != "not configured" {
		t.Errorf("stability = %q, want not configured", s.Providers["stability"])
	}
	if strings.Contains(s.PayPal, cfg.PayPal.ClientID) {
		t.Errorf("paypal client id printed unmasked: %q", s.PayPal)
	}
	if !strings.HasPrefix(s.PayPal, config.DefaultPayPalEnvironment) {
		t.Errorf("PayPal = %q, want environment prefix", s.PayPal)
	}
	if s.Journal != "disabled" {
		t.Errorf("Journal = %q, want disabled", s.Journal)
	}
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:9191"
image_proxy:
  max_entries: 64
`)

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "validate", "--config", path, "--env-file", "", "--output", "text")
		if err != nil {
			t.Fatalf("validate error = %v", err)
		}
		if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, "127.0.0.1:9191") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "validate", "--config", path, "--env-file", "", "--output", "json")
		if err != nil {
			t.Fatalf("validate error = %v", err)
		}
		var s configSummary
		if err := json.Unmarshal([]byte(out), &s); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, out)
		}
		if s.Listen != "127.0.0.1:9191" {
			t.Errorf("Listen = %q, want 127.0.0.1:9191", s.Listen)
		}
		if s.CacheSize != 64 {
			t.Errorf("CacheSize = %d, want 64", s.CacheSize)
		}
	})
}

func TestValidateCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		output string
	}{
		{"invalid yaml", "server: [", "text"},
		{"invalid value", "image_proxy:\n  max_entries: -1\n", "text"},
		{"bad output flag", "", "csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.config)
			_, err := execute(t, "validate", "--config", path, "--env-file", "", "--output", tt.output)
			if err == nil {
				t.Fatal("validate error = nil, want error")
			}
			if code := cli.ExitCode(err); code != cli.ExitConfig {
				t.Errorf("ExitCode = %d, want %d", code, cli.ExitConfig)
			}
		})
	}
}
