// Package types defines the JSON bodies exchanged with the relay's clients.
//
// Request types carry go-playground/validator tags and a Validate method;
// proxy.DecodeJSON runs it after decoding. Every error is written as an
// ErrorResponse: {"error": ..., "details": ..., "type": ...}.
package types
