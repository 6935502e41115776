// Package logging builds the process slog.Logger.
//
// Output is JSON by default or text, at a level that can be changed at
// runtime through a slog.LevelVar (the config watcher does this on reload).
// Records logged with a context carry its request_id and trace_id.
//
// With redaction enabled, values under keys such as "authorization" or
// "client_secret" are masked, and bearer tokens, basic auth credentials,
// and API keys are scrubbed from any string or error value:
//
//	logger, _ := logging.New(logging.Config{Level: "info", RedactSecrets: true})
//	logger.Info("token request failed", "error", err) // "Bearer ***"
package logging
