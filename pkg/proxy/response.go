package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pictora-hq/relay/pkg/proxy/types"
)

// WriteJSONResponse writes data as JSON with the given status code.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}

// WriteError writes an error body with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, errResp *types.ErrorResponse) error {
	w.Header().Set("Cache-Control", "no-store")
	return WriteJSONResponse(w, statusCode, errResp)
}

// WriteHandledError maps err through HandleError and writes the result.
// It returns the status written.
func WriteHandledError(w http.ResponseWriter, err error, upstreamMessage string) int {
	status, body := HandleError(err, upstreamMessage)
	_ = WriteError(w, status, body)
	return status
}

// AllowMethods writes 405 and returns false unless r uses one of methods.
func AllowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}

	allow := ""
	for i, m := range methods {
		if i > 0 {
			allow += ", "
		}
		allow += m
	}
	w.Header().Set("Allow", allow)
	_ = WriteError(w, http.StatusMethodNotAllowed, types.NewErrorResponse(types.MsgMethodNotAllowed, r.Method))
	return false
}
