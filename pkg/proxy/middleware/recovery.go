package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"pictora-hq/relay/pkg/proxy"
	"pictora-hq/relay/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics in handlers, logs the stack, and
// answers 500 with a generic JSON error body.
//
// Example usage:
//
//	handler = RecoveryMiddleware(logger)(handler)
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.ErrorContext(r.Context(), "panic in handler",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					_ = proxy.WriteError(w, http.StatusInternalServerError,
						types.NewErrorResponse(types.MsgInternal, ""))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
