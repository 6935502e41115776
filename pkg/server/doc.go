// Package server assembles the relay: it builds the image cache, the
// upstream clients, the generation and payment handlers, the optional
// journal and the telemetry components, mounts them on one mux, and owns
// their lifecycle.
//
// # Basic Usage
//
//	srv, err := server.New(ctx, config.GetConfig(), server.Options{
//	    Logger:  logger,
//	    Version: health.VersionInfo{Version: version},
//	})
//	if err != nil {
//	    return err
//	}
//	// Blocks until ctx is cancelled, then shuts down.
//	return srv.Start(ctx)
//
// # Routes
//
//   - GET  /api/proxy-image-display - cached image display proxy
//   - GET  /api/proxy-image - download proxy (Content-Disposition: attachment)
//   - POST /api/generate - BigModel text-to-image
//   - POST /api/generate-image-to-image - Stability image-to-image
//   - POST /api/paypal/create-order
//   - POST /api/paypal/capture-order
//   - POST /api/paypal/check-status
//   - GET  /health, /ready, /version
//   - GET  /metrics (when metrics are enabled)
//
// # Middleware Chain
//
// Outermost first: Recovery, RequestID, tracing, Logging, CORS, Timeout.
// Every API route is additionally wrapped by the metrics collector under
// its fixed route label.
//
// # Shutdown
//
// Shutdown drains in-flight requests, then stops the cache sweeper and the
// journal pruner, flushes the journal recorder and closes its store, flushes
// the tracer, and clears the cache. It runs once; later calls are no-ops.
package server
