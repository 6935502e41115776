package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pictora-hq/relay/pkg/cli"
	"pictora-hq/relay/pkg/config"
)

var (
	// Global flags
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Pictora relay - image proxy, generation and payment backend",
	Long: `Relay is the backend of the Pictora image website.

It serves:
  - A cached image display proxy and a download proxy
  - Text-to-image (BigModel) and image-to-image (Stability) relays
  - PayPal order creation, capture and status checks

Provider and payment secrets are read from the environment (or a .env
file) and never reach the browser.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code derived from the error.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path (optional; defaults apply when missing)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before environment overrides")
}

// loadEnvFile loads --env-file into the process environment. Variables that
// are already set win.
func loadEnvFile() error {
	if envFile == "" {
		return nil
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return cli.NewConfigError("env-file", err.Error())
	}
	return nil
}

// loadConfig loads the config file with environment overrides without
// touching the global singleton.
func loadConfig() (*config.Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err.Error())
	}
	return cfg, nil
}
