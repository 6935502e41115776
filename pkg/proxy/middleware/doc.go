// Package middleware provides the HTTP middleware shared by every relay route.
//
// Middleware functions are chained so that Recovery is outermost:
//
//	handler = Chain(mux,
//	    RecoveryMiddleware(logger),
//	    LoggingMiddleware(logger),
//	    RequestIDMiddleware,
//	    CORSMiddleware(CORSFromConfig(cfg.Server.CORS)),
//	    TimeoutMiddleware(cfg.Server.RequestTimeout, logger),
//	)
//
// # Request ID
//
// RequestIDMiddleware keeps a well-formed client X-Request-ID or generates a
// UUID v4, stores it in the context through the logging package so every
// log line of the request carries it, and echoes it in the response.
//
// # Logging
//
// LoggingMiddleware writes one "request completed" record per request with
// method, path, status, bytes, and latency. Query strings are never logged:
// proxied image URLs may embed signed credentials.
//
// # CORS
//
// CORSMiddleware answers preflight requests and sets Access-Control-* and
// Vary: Origin headers for the configured origins:
//
//	server:
//	  cors:
//	    enabled: true
//	    allowed_origins: ["https://pictora.example"]
//	    allowed_methods: ["GET", "POST", "OPTIONS"]
//	    allowed_headers: ["Content-Type"]
//	    max_age: 3600
//
// # Recovery
//
// RecoveryMiddleware turns handler panics into a 500 with body
// {"error":"Internal server error"}. The stack is logged, never returned.
//
// # Timeout
//
// TimeoutMiddleware buffers the handler's response and answers 504 with
// {"error":"Request timed out"} if the deadline passes first. Handlers observe
// the deadline through r.Context().
package middleware
