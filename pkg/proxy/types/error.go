package types

// ErrorResponse is the JSON body of every error returned by the relay.
//
//	{"error": "Failed to fetch image", "details": "upstream \"image\" error (status 404): Not Found"}
//	{"error": "Content rejected by moderation", "type": "content_moderation", "details": "..."}
type ErrorResponse struct {
	// Error is a short, user-facing message.
	Error string `json:"error"`

	// Details carries the underlying cause when it is safe to expose.
	Details string `json:"details,omitempty"`

	// Type classifies errors the client is expected to branch on.
	Type string `json:"type,omitempty"`
}

// Error types exposed to clients.
const (
	// TypeContentModeration marks a provider content-policy rejection (403).
	TypeContentModeration = "content_moderation"
)

// Common error messages.
const (
	MsgMissingURL          = "Missing url parameter"
	MsgInvalidProtocol     = "Invalid protocol"
	MsgFetchFailed         = "Failed to fetch image"
	MsgDownloadFailed      = "Failed to download image"
	MsgGenerationFailed    = "Failed to generate image"
	MsgNoImages            = "No images returned"
	MsgContentModeration   = "Content rejected by moderation"
	MsgPaymentIncomplete   = "Payment not completed"
	MsgPaymentFailed       = "Failed to process payment"
	MsgMethodNotAllowed    = "Method not allowed"
	MsgTimeout             = "Request timed out"
	MsgInternal            = "Internal server error"
	MsgServerMisconfigured = "Server configuration error"
)

// NewErrorResponse creates an error response.
func NewErrorResponse(message, details string) *ErrorResponse {
	return &ErrorResponse{Error: message, Details: details}
}
