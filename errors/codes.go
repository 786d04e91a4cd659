package errors

import "net/http"

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Admission errors raised before an upstream call is attempted.
const (
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeCircuitOpen    ErrorCode = "CIRCUIT_OPEN"
	ErrCodeTimeout        ErrorCode = "TIMEOUT"
	ErrCodeRetryExhausted ErrorCode = "RETRY_EXHAUSTED"
)

// Upstream errors.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
)

// Caller errors.
const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

type codeInfo struct {
	status    int
	retryable bool
}

var codes = map[ErrorCode]codeInfo{
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true},
	ErrCodeCircuitOpen:        {http.StatusServiceUnavailable, true},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true},
	ErrCodeRetryExhausted:     {http.StatusBadGateway, false},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true},
	ErrCodeConnectionFailed:   {http.StatusServiceUnavailable, true},
	ErrCodeExternalService:    {http.StatusBadGateway, true},
	ErrCodeNotFound:           {http.StatusNotFound, false},
	ErrCodeConflict:           {http.StatusConflict, false},
	ErrCodeInvalidInput:       {http.StatusBadRequest, false},
	ErrCodeInternal:           {http.StatusInternalServerError, false},
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return codes[code].retryable
}

// HTTPStatus returns the default HTTP status for the code, 500 if unknown.
func (c ErrorCode) HTTPStatus() int {
	if info, ok := codes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
