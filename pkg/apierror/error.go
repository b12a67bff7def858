package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error represents a structured engine error. Every failure the engine
// surfaces to a caller carries a stable code, a short human-readable
// message, and the HTTP status the UI bridge should respond with.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Cause      error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// ToJSON converts the error to the standard JSON envelope.
func (e *Error) ToJSON() []byte {
	response := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    e.Code,
			"message": e.Message,
		},
	}

	data, _ := json.Marshal(response)
	return data
}

// Request layer failures.

// InvalidTarget creates an error for an unusable route or URL.
func InvalidTarget(message string) *Error {
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "INVALID_TARGET",
		Message:    message,
	}
}

// InvalidRequestBody creates an error for a body that cannot be encoded.
func InvalidRequestBody(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_REQUEST_BODY",
		Message:    message,
	}
}

// Unauthorized creates an authorization failure.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// MalformedResponse creates an error for an undecodable server payload.
func MalformedResponse(message string) *Error {
	if message == "" {
		message = "Server returned an unreadable response"
	}
	return &Error{
		StatusCode: http.StatusBadGateway,
		Code:       "MALFORMED_RESPONSE",
		Message:    message,
	}
}

// ClientError creates an error for a 4xx server verdict.
func ClientError(statusCode int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("Request rejected (status %d)", statusCode)
	}
	return &Error{
		StatusCode: statusCode,
		Code:       "CLIENT_ERROR",
		Message:    message,
	}
}

// ServerError creates an error for a 5xx server verdict after retries.
func ServerError(message string) *Error {
	if message == "" {
		message = "Server is temporarily unavailable"
	}
	return &Error{
		StatusCode: http.StatusBadGateway,
		Code:       "SERVER_ERROR",
		Message:    message,
	}
}

// TransportError creates an error for a network-level failure.
func TransportError(cause error) *Error {
	return &Error{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "TRANSPORT_ERROR",
		Message:    "Network connection failed",
		Cause:      cause,
	}
}

// Timeout creates an error for a request that exceeded its deadline.
func Timeout(message string) *Error {
	if message == "" {
		message = "Request timed out"
	}
	return &Error{
		StatusCode: http.StatusGatewayTimeout,
		Code:       "TIMEOUT",
		Message:    message,
	}
}

// Domain-rule failures. These are terminal for the attempt and never retried.

// InsufficientFunds creates an error for a trade the player cannot afford.
func InsufficientFunds(message string) *Error {
	if message == "" {
		message = "Not enough money for this trade"
	}
	return &Error{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "INSUFFICIENT_FUNDS",
		Message:    message,
	}
}

// InventoryFull creates an error for a buy exceeding inventory capacity.
func InventoryFull(message string) *Error {
	if message == "" {
		message = "Inventory is full"
	}
	return &Error{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "INVENTORY_FULL",
		Message:    message,
	}
}

// ItemNotFound creates an error for a missing item or listing.
func ItemNotFound(message string) *Error {
	if message == "" {
		message = "Item not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       "ITEM_NOT_FOUND",
		Message:    message,
	}
}

// LicenseInsufficient creates an error for a license-gated trade.
func LicenseInsufficient(message string) *Error {
	if message == "" {
		message = "Your trade license is too low for this merchant"
	}
	return &Error{
		StatusCode: http.StatusForbidden,
		Code:       "LICENSE_INSUFFICIENT",
		Message:    message,
	}
}

// MerchantRefuses creates an error for a refused negotiation.
func MerchantRefuses(message string) *Error {
	if message == "" {
		message = "The merchant refuses to trade with you right now"
	}
	return &Error{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "MERCHANT_REFUSES",
		Message:    message,
	}
}

// ConnectionFailed creates an error for an exhausted reconnect cycle.
func ConnectionFailed(message string) *Error {
	if message == "" {
		message = "Lost connection to the trade network"
	}
	return &Error{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "CONNECTION_FAILED",
		Message:    message,
	}
}

// NotFound creates a 404 Not Found error for the UI bridge.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    message,
	}
}

// BadRequest creates a 400 Bad Request error for the UI bridge.
func BadRequest(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
	}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
	}
}
