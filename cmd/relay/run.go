package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pictora-hq/relay/pkg/cli"
	"pictora-hq/relay/pkg/config"
	"pictora-hq/relay/pkg/server"
	"pictora-hq/relay/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay server",
	Long: `Start the relay server with the specified configuration.

The config file is optional: when it is missing, defaults apply and
secrets come from the environment (STABILITY_API_KEY, BIGMODEL_API_KEY,
PAYPAL_CLIENT_ID, PAYPAL_CLIENT_SECRET).

SIGINT and SIGTERM trigger a graceful shutdown. SIGHUP, or a file change
with --watch, reloads the config file and applies the new log level.

Examples:
  # Start with defaults
  relay run

  # Start with a config file and watch it
  relay run --config /etc/relay/config.yaml --watch

  # Override listen address and log level
  relay run --listen 0.0.0.0:8080 --log-level debug`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload the config file when it changes")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := loadEnvFile(); err != nil {
		return err
	}

	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError(cfgFile, fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		if _, err := logging.ParseLevel(runFlags.logLevel); err != nil {
			return cli.NewConfigError("log-level", err.Error())
		}
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	levelVar := new(slog.LevelVar)
	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stdout, levelVar))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	srv, err := server.New(ctx, cfg, server.Options{
		Logger:  logger,
		Version: versionInfo(),
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	reload := levelReloader(levelVar, logger)
	if runFlags.watch {
		startWatcher(ctx, logger, reload)
	}
	go handleReloadSignals(ctx, logger, reload)

	logger.Info("relay starting",
		"version", Version,
		"config", cfgFile,
		"listen", cfg.Server.ListenAddress,
		"bigmodel", cfg.Providers.BigModel.Configured(),
		"stability", cfg.Providers.Stability.Configured(),
		"paypal", cfg.PayPal.Configured(),
		"paypal_environment", cfg.PayPal.Environment,
	)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	logger.Info("relay stopped")
	return nil
}

// levelReloader returns the callback applied to every reloaded config. Only
// the log level is hot-reloadable; an explicit --log-level pins it.
func levelReloader(levelVar *slog.LevelVar, logger *slog.Logger) func(*config.Config) {
	return func(cfg *config.Config) {
		if runFlags.logLevel != "" {
			return
		}
		level, err := logging.ParseLevel(cfg.Telemetry.Logging.Level)
		if err != nil {
			logger.Warn("ignoring invalid log level from reloaded config", "level", cfg.Telemetry.Logging.Level)
			return
		}
		if levelVar.Level() != level {
			levelVar.Set(level)
			logger.Info("log level changed", "level", level.String())
		}
	}
}

func startWatcher(ctx context.Context, logger *slog.Logger, onChange func(*config.Config)) {
	if _, err := os.Stat(cfgFile); err != nil {
		logger.Warn("config watch disabled, file not found", "path", cfgFile)
		return
	}

	w, err := config.NewWatcher(cfgFile, logger)
	if err != nil {
		logger.Warn("config watch disabled", "error", err)
		return
	}
	w.OnChange(onChange)

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("config watcher stopped", "error", err)
		}
	}()
}

func handleReloadSignals(ctx context.Context, logger *slog.Logger, onChange func(*config.Config)) {
	sigs, stop := cli.ReloadSignals()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			cfg, err := config.ReloadConfig(cfgFile)
			if err != nil {
				logger.Error("config reload failed", "error", err)
				continue
			}
			logger.Info("config reloaded", "path", cfgFile)
			onChange(cfg)
		}
	}
}
