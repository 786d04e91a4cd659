package validation

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	goerrors "github.com/kbukum/callguard/errors"
)

// FieldError is one failed check, keyed by config path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string { return e.Field + ": " + e.Message }

// FieldErrors is the ordered list of failed checks.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, e := range fe {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}

// appError wraps the list as an INVALID_INPUT error carrying every field.
func (fe FieldErrors) appError() *goerrors.AppError {
	return goerrors.Validation(fe.Error()).WithDetail("fields", []FieldError(fe))
}

// Validator runs chained checks for rules struct tags can't express.
// Checks on empty optional values pass; pair them with Required.
type Validator struct {
	errs FieldErrors
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{}
}

// Fail records a failure for field.
func (v *Validator) Fail(field, format string, args ...any) *Validator {
	v.errs = append(v.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	return v
}

// Check records message for field when ok is false.
func (v *Validator) Check(ok bool, field, message string) *Validator {
	if !ok {
		v.errs = append(v.errs, FieldError{Field: field, Message: message})
	}
	return v
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool { return len(v.errs) > 0 }

// Errors returns the failed checks in order.
func (v *Validator) Errors() FieldErrors { return v.errs }

// Err returns nil or an INVALID_INPUT AppError listing every failure.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs.appError()
}

// Required fails on blank strings.
func (v *Validator) Required(field, value string) *Validator {
	return v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// OneOf fails when value is set and not in allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" || slices.Contains(allowed, value) {
		return v
	}
	return v.Fail(field, "must be one of: %s", strings.Join(allowed, ", "))
}

// Positive fails on zero or negative durations.
func (v *Validator) Positive(field string, d time.Duration) *Validator {
	return v.Check(d > 0, field, "must be greater than 0")
}

// Between fails when value is outside [lo, hi].
func (v *Validator) Between(field string, value, lo, hi float64) *Validator {
	if value < lo || value > hi {
		return v.Fail(field, "must be between %g and %g", lo, hi)
	}
	return v
}

// URL fails when a set value is not an absolute http or https URL.
func (v *Validator) URL(field, value string) *Validator {
	if value == "" {
		return v
	}
	u, err := url.Parse(value)
	ok := err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
	return v.Check(ok, field, "must be an absolute http(s) URL")
}

// Addr fails when a set value is not a listen address of the form host:port.
// The host may be empty; port 0 asks the kernel for a free port.
func (v *Validator) Addr(field, value string) *Validator {
	if value == "" {
		return v
	}
	_, port, err := net.SplitHostPort(value)
	if err != nil {
		return v.Fail(field, "must be host:port")
	}
	n, err := strconv.Atoi(port)
	return v.Check(err == nil && n >= 0 && n <= 65535, field, "port must be between 0 and 65535")
}

// UUID fails when a set value does not parse as a UUID.
func (v *Validator) UUID(field, value string) *Validator {
	if value == "" {
		return v
	}
	_, err := uuid.Parse(value)
	return v.Check(err == nil, field, "must be a valid UUID")
}
