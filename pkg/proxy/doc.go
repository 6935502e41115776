// Package proxy holds the HTTP plumbing shared by the relay's handlers.
//
// DecodeJSON reads and validates request bodies. The error types in this
// package form the relay's taxonomy, and HandleError maps any error onto a
// status code and a types.ErrorResponse:
//
//	*RequestError           400  missing or malformed input
//	*InvalidProtocolError   400  download URL is not http or https
//	*ConfigError            500  provider credentials not configured
//	*ModerationError        403  provider content-policy rejection
//	*PaymentIncompleteError 400  capture did not reach COMPLETED
//	*GenerationFailedError  relayed provider status, or 500
//	*upstream.Error         500  fetch failed or timed out
//
// Cross-cutting concerns live in the middleware subpackage.
package proxy
