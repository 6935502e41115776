package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"pictora-hq/relay/pkg/proxy/types"
)

const (
	// MaxRequestBodySize is the maximum allowed request body size (10MB).
	MaxRequestBodySize = 10 * 1024 * 1024

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// Validator is implemented by request bodies that validate themselves.
type Validator interface {
	Validate() error
}

// DecodeJSON reads a JSON request body into dst and validates it. Oversized,
// empty, or malformed bodies and failed validation are reported as
// *RequestError.
//
//	var req types.GenerateRequest
//	if err := proxy.DecodeJSON(r, &req); err != nil {
//	    ...
//	}
func DecodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return &RequestError{Message: "Failed to read request body", Details: err.Error()}
	}
	if len(body) > MaxRequestBodySize {
		return &RequestError{
			Message: "Request body too large",
			Details: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
		}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return &RequestError{Message: "Missing request body"}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return &RequestError{Message: "Invalid JSON", Details: err.Error()}
	}

	if v, ok := dst.(Validator); ok {
		err = v.Validate()
	} else {
		err = types.ValidateStruct(dst)
	}
	if err != nil {
		return &RequestError{Message: "Missing or invalid fields", Details: describeValidation(err)}
	}

	return nil
}

// describeValidation flattens validator errors into "field: rule" pairs
// using the JSON field names.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := jsonPath(fe.Namespace())
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// jsonPath drops the top-level struct name from a validator namespace.
func jsonPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
