// Package config provides configuration management for the Pictora relay.
//
// Configuration is read from an optional YAML file, overlaid with
// environment variables, and validated before use.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("config.yaml")                  // file only
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")  // file + env
//
// A missing file is tolerated by LoadConfigWithEnvOverrides so that the
// relay can be deployed next to the website with nothing but its
// environment.
//
// # Environment Variables
//
// The website's own variable names are honored directly:
//
//   - STABILITY_API_KEY sets providers.stability.api_key
//   - BIGMODEL_API_KEY sets providers.bigmodel.api_key
//   - PAYPAL_CLIENT_ID, PAYPAL_CLIENT_SECRET, PAYPAL_ENVIRONMENT set paypal.*
//   - DATABASE_URL sets journal.postgres.dsn
//   - NEXT_PUBLIC_BASE_URL sets site.public_base_url and is allowed for CORS
//
// Other settings use RELAY_SECTION_FIELD, for example
// RELAY_SERVER_LISTEN_ADDRESS or RELAY_TELEMETRY_LOGGING_LEVEL.
// A .env file can be loaded first with LoadDotEnv; variables already present
// in the process environment take precedence over it.
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// # Hot Reload
//
// Watcher observes the configuration file with fsnotify and calls
// ReloadConfig after a short debounce. Listeners registered through
// OnChange receive the new configuration; a file that fails validation is
// logged and ignored.
package config
