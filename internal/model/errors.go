package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUpstreamError  = errors.New("upstream error")

	ErrConfiguration   = errors.New("configuration error")
	ErrNetwork         = errors.New("network error")
	ErrAuth            = errors.New("authentication error")
	ErrProvider        = errors.New("provider error")
	ErrIntegrity       = errors.New("integrity violation")
	ErrDeclined        = errors.New("payment declined")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotRefundable   = errors.New("not refundable")
	ErrOutsideLimits   = errors.New("outside payment limits")
)

// ErrorKind classifies a failure for logging, persistence and redirect selection.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindConfiguration   ErrorKind = "configuration"
	KindNetwork         ErrorKind = "network"
	KindAuth            ErrorKind = "auth"
	KindProvider        ErrorKind = "provider"
	KindIntegrity       ErrorKind = "integrity"
	KindDeclined        ErrorKind = "declined"
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindInvalidRequest  ErrorKind = "invalid_request"
	KindNotRefundable   ErrorKind = "not_refundable"
	KindOutsideLimits   ErrorKind = "outside_limits"
	KindNotFound        ErrorKind = "not_found"
	KindInternal        ErrorKind = "internal"
)

// kindSentinels is checked in order; the first match wins.
var kindSentinels = []struct {
	err  error
	kind ErrorKind
}{
	{ErrIntegrity, KindIntegrity},
	{ErrDeclined, KindDeclined},
	{ErrConfiguration, KindConfiguration},
	{ErrAuth, KindAuth},
	{ErrNetwork, KindNetwork},
	{ErrProvider, KindProvider},
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrInvalidRequest, KindInvalidRequest},
	{ErrNotRefundable, KindNotRefundable},
	{ErrOutsideLimits, KindOutsideLimits},
	{ErrNotFound, KindNotFound},
	{ErrUpstreamError, KindNetwork},
}

// KindOf classifies any error chain. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, s := range kindSentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindInternal
}

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidRequest,
	}
}

// NewInvalidArgumentError is returned by pure helpers given bad input (e.g. zero installments).
func NewInvalidArgumentError(field, reason string) *APIError {
	return &APIError{
		Code:       "INVALID_ARGUMENT",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidArgument,
	}
}

// NewConfigurationError signals missing or inconsistent merchant configuration.
// Not retryable; needs an administrator.
func NewConfigurationError(reason string) *APIError {
	return &APIError{
		Code:       "CONFIGURATION_ERROR",
		Message:    reason,
		StatusCode: http.StatusInternalServerError,
		Err:        ErrConfiguration,
	}
}

// NewNetworkError wraps a transport failure talking to service.
func NewNetworkError(service string, err error) *APIError {
	return &APIError{
		Code:       "NETWORK_ERROR",
		Message:    fmt.Sprintf("%s unreachable", service),
		StatusCode: http.StatusBadGateway,
		Err:        fmt.Errorf("%w: %v", ErrNetwork, err),
	}
}

// NewAuthError is returned when service rejects our credentials.
func NewAuthError(service string) *APIError {
	return &APIError{
		Code:       "AUTH_ERROR",
		Message:    fmt.Sprintf("%s rejected the configured credentials", service),
		StatusCode: http.StatusBadGateway,
		Err:        ErrAuth,
	}
}

// NewProviderError carries a structured rejection from the payment provider.
// The message is the provider's own and is safe to show.
func NewProviderError(status int, code, message string) *APIError {
	if message == "" {
		message = fmt.Sprintf("provider returned status %d", status)
	}
	return &APIError{
		Code:       "PROVIDER_ERROR",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        fmt.Errorf("%w: status %d code %q", ErrProvider, status, code),
	}
}

// NewDeclinedError is the terminal business outcome of a declined capture.
func NewDeclinedError(remoteOrderID string) *APIError {
	return &APIError{
		Code:       "PAYMENT_DECLINED",
		Message:    fmt.Sprintf("payment declined for provider order %s", remoteOrderID),
		StatusCode: http.StatusPaymentRequired,
		Err:        ErrDeclined,
	}
}

// NewNotRefundableError is returned when a refund cannot be attempted at all.
func NewNotRefundableError(reason string) *APIError {
	return &APIError{
		Code:       "NOT_REFUNDABLE",
		Message:    reason,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        ErrNotRefundable,
	}
}

// NewOutsideLimitsError is returned when an amount cannot be financed under the cached limits.
func NewOutsideLimitsError(amount Money) *APIError {
	return &APIError{
		Code:       "OUTSIDE_LIMITS",
		Message:    fmt.Sprintf("%s is outside the payment limits", amount),
		StatusCode: http.StatusUnprocessableEntity,
		Err:        ErrOutsideLimits,
	}
}

// NewUpstreamError creates a 502 error for store backend failures.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: http.StatusBadGateway,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
