package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// StatusCode returns the HTTP status carried by the error.
func (e *AppError) StatusCode() int { return e.HTTPStatus }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection. A zero
// httpStatus takes the code's default.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	if httpStatus == 0 {
		httpStatus = code.HTTPStatus()
	}
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// FromStatus builds an AppError for an upstream response status.
// 5xx and 429 statuses are marked retryable.
func FromStatus(status int, message string) *AppError {
	code := ErrCodeExternalService
	switch {
	case status == http.StatusTooManyRequests:
		code = ErrCodeRateLimited
	case status == http.StatusNotFound:
		code = ErrCodeNotFound
	case status == http.StatusConflict:
		code = ErrCodeConflict
	case status == http.StatusServiceUnavailable:
		code = ErrCodeServiceUnavailable
	case status == http.StatusGatewayTimeout:
		code = ErrCodeTimeout
	case status >= 400 && status < 500:
		code = ErrCodeInvalidInput
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Retryable:  status == http.StatusTooManyRequests || status >= 500,
	}
}

// Constructors for the codes callguard raises. Status and retryability come
// from the code table.

// ServiceUnavailable reports a dependency that is temporarily down.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, service+" is temporarily unavailable", 0).
		WithDetail("service", service)
}

// ConnectionFailed reports a transport failure reaching service.
func ConnectionFailed(service string) *AppError {
	return New(ErrCodeConnectionFailed, "unable to connect to "+service, 0).
		WithDetail("service", service)
}

// Timeout reports an operation that ran past its deadline.
func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, operation+" timed out", 0).
		WithDetail("operation", operation)
}

// RateLimited reports a call refused by a rate limiter.
func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "rate limit exceeded", 0)
}

// CircuitOpen reports a call refused by an open circuit.
func CircuitOpen(circuit string, retryAfter time.Duration) *AppError {
	msg := fmt.Sprintf("circuit %s is open, retry in %s", circuit, retryAfter.Round(time.Millisecond))
	return New(ErrCodeCircuitOpen, msg, 0).WithDetails(map[string]any{
		"circuit":        circuit,
		"retry_after_ms": retryAfter.Milliseconds(),
	})
}

// Validation reports invalid input or configuration.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, 0)
}

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "internal error", 0).WithCause(cause)
}

// ExternalServiceError wraps a failure returned by an upstream service.
func ExternalServiceError(service string, cause error) *AppError {
	return New(ErrCodeExternalService, service+" returned an error", 0).
		WithDetail("service", service).
		WithCause(cause)
}
