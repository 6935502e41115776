package proxy

import (
	"errors"
	"fmt"
	"net/http"

	"pictora-hq/relay/pkg/proxy/types"
	"pictora-hq/relay/pkg/upstream"
)

// RequestError reports malformed or incomplete client input (400).
type RequestError struct {
	Message string
	Details string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

// InvalidProtocolError reports a URL whose scheme is not http or https (400).
type InvalidProtocolError struct {
	Scheme string
}

// Error implements the error interface.
func (e *InvalidProtocolError) Error() string {
	return fmt.Sprintf("unsupported protocol %q (only http and https are allowed)", e.Scheme)
}

// ConfigError reports a required server setting that is not configured (500).
type ConfigError struct {
	// Setting is the environment variable or config key that is missing.
	Setting string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Setting)
}

// ModerationError reports a provider content-policy rejection (403).
type ModerationError struct {
	Provider string
	Message  string
}

// Error implements the error interface.
func (e *ModerationError) Error() string {
	return fmt.Sprintf("%s rejected the request: %s", e.Provider, e.Message)
}

// PaymentIncompleteError reports a capture that did not reach COMPLETED (400).
type PaymentIncompleteError struct {
	Status string
}

// Error implements the error interface.
func (e *PaymentIncompleteError) Error() string {
	return fmt.Sprintf("payment not completed (status %s)", e.Status)
}

// GenerationFailedError reports a failed generation call. With a non-zero
// StatusCode the provider's status is relayed; otherwise it maps to 500.
type GenerationFailedError struct {
	StatusCode int
	Details    string
	Cause      error
}

// Error implements the error interface.
func (e *GenerationFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Details, e.Cause)
	}
	return "generation failed: " + e.Details
}

// Unwrap returns the underlying error for error chain support.
func (e *GenerationFailedError) Unwrap() error {
	return e.Cause
}

// HandleError maps an error onto a status code and response body. Handlers
// pass a message used for upstream failures ("Failed to fetch image",
// "Failed to generate image") so the body names the operation.
//
// Example usage:
//
//	if err != nil {
//	    status, body := proxy.HandleError(err, types.MsgFetchFailed)
//	    proxy.WriteError(w, status, body)
//	    return
//	}
func HandleError(err error, upstreamMessage string) (int, *types.ErrorResponse) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, types.NewErrorResponse(reqErr.Message, reqErr.Details)
	}

	var protoErr *InvalidProtocolError
	if errors.As(err, &protoErr) {
		return http.StatusBadRequest, types.NewErrorResponse(types.MsgInvalidProtocol, protoErr.Error())
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusInternalServerError, types.NewErrorResponse(types.MsgServerMisconfigured, cfgErr.Error())
	}

	var modErr *ModerationError
	if errors.As(err, &modErr) {
		return http.StatusForbidden, &types.ErrorResponse{
			Error:   types.MsgContentModeration,
			Details: modErr.Message,
			Type:    types.TypeContentModeration,
		}
	}

	var payErr *PaymentIncompleteError
	if errors.As(err, &payErr) {
		return http.StatusBadRequest, types.NewErrorResponse(types.MsgPaymentIncomplete, payErr.Status)
	}

	var genErr *GenerationFailedError
	if errors.As(err, &genErr) {
		status := http.StatusInternalServerError
		if genErr.StatusCode >= 400 {
			status = genErr.StatusCode
		}
		return status, types.NewErrorResponse(types.MsgGenerationFailed, genErr.Details)
	}

	if errors.Is(err, upstream.ErrInvalidURL) {
		return http.StatusBadRequest, types.NewErrorResponse(upstreamMessage, err.Error())
	}

	if upstream.IsTimeout(err) {
		return http.StatusInternalServerError, types.NewErrorResponse(upstreamMessage, err.Error())
	}

	var ue *upstream.Error
	if errors.As(err, &ue) {
		return http.StatusInternalServerError, types.NewErrorResponse(upstreamMessage, ue.Error())
	}

	return http.StatusInternalServerError, types.NewErrorResponse(types.MsgInternal, "")
}
