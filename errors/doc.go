// Package errors provides unified error handling for callguard.
//
// It implements a structured AppError type with error codes, HTTP status
// mapping and retryable detection, plus helpers that extract status codes
// and stable type names from arbitrary error chains. The resilience layer
// uses these helpers to classify failures and label recorded metrics.
package errors
