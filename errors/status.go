package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// HTTPStatusCoder is the alternative accessor some client libraries expose.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// StatusCode extracts an HTTP status code from anywhere in the error chain.
// It returns false when no error in the chain carries a positive status.
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var sc StatusCoder
	if stderrors.As(err, &sc) {
		if code := sc.StatusCode(); code > 0 {
			return code, true
		}
	}
	var hsc HTTPStatusCoder
	if stderrors.As(err, &hsc) {
		if code := hsc.HTTPStatusCode(); code > 0 {
			return code, true
		}
	}
	return 0, false
}

// TypeName returns a stable, human-readable name for an error, used to
// bucket failures in metrics. AppErrors are named by their code; other
// errors by the dynamic type of the innermost cause.
func TypeName(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return string(appErr.Code)
	}
	inner := err
	for {
		next := stderrors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}
	name := strings.TrimPrefix(fmt.Sprintf("%T", inner), "*")
	if name == "errors.errorString" {
		return "error"
	}
	return name
}
