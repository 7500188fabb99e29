package qurandex

import (
	"errors"
	"fmt"
	"net/http"
)

// API error codes returned by the server.
const (
	CodeBadRequest          = "bad_request"
	CodeValidationFailed    = "validation_failed"
	CodeAppNotFound         = "app_not_found"
	CodeVectorDimMismatch   = "vector_dim_mismatch"
	CodeProviderUnavailable = "provider_unavailable"
	CodeUnauthorized        = "unauthorized"
	CodeInternalError       = "internal_error"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("qurandex: %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("qurandex: http %d", e.StatusCode)
}

// IsNotFound reports whether err is an app-not-found API error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsProviderUnavailable reports whether err is an upstream provider outage.
func IsProviderUnavailable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeProviderUnavailable
}
