package gateway

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized is wrapped by every APIError carrying a 401 or 403 status.
	ErrUnauthorized = errors.New("gateway: unauthorized")
	// ErrMissingOrderID is returned when the order service accepts a create but returns no id.
	ErrMissingOrderID = errors.New("gateway: created order id missing")
	// ErrMissingPaymentInfoID is returned when payment info is created without an id.
	ErrMissingPaymentInfoID = errors.New("gateway: created payment info id missing")
)

// APIError describes a failed remote call. Message is the backend's "error" field when
// present, otherwise a fallback naming the operation.
type APIError struct {
	Op      string
	Status  int
	Message string
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Unauthorized reports whether the status requires the caller to log in again.
func (e *APIError) Unauthorized() bool {
	return isAuthStatus(e.Status)
}

func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an APIError
// or the call never produced a response.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
