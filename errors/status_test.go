package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) StatusCode() int { return e.code }

type httpStatusErr struct{ code int }

func (e *httpStatusErr) Error() string       { return "upstream" }
func (e *httpStatusErr) HTTPStatusCode() int { return e.code }

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   int
		wantOK bool
	}{
		{"nil", nil, 0, false},
		{"plain", stderrors.New("boom"), 0, false},
		{"app error", FromStatus(http.StatusBadGateway, ""), http.StatusBadGateway, true},
		{"wrapped app error", fmt.Errorf("ctx: %w", RateLimited()), http.StatusTooManyRequests, true},
		{"status coder", statusErr{code: 500}, 500, true},
		{"http status coder", fmt.Errorf("wrap: %w", &httpStatusErr{code: 503}), 503, true},
		{"zero status", statusErr{code: 0}, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := StatusCode(tc.err)
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("StatusCode() = (%d, %v), want (%d, %v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestTypeName(t *testing.T) {
	if got := TypeName(nil); got != "" {
		t.Errorf("expected empty name for nil, got %q", got)
	}
	if got := TypeName(stderrors.New("x")); got != "error" {
		t.Errorf("expected 'error', got %q", got)
	}
	if got := TypeName(fmt.Errorf("outer: %w", statusErr{code: 500})); got != "errors.statusErr" {
		t.Errorf("expected innermost type name, got %q", got)
	}
	if got := TypeName(fmt.Errorf("outer: %w", Timeout("op"))); got != string(ErrCodeTimeout) {
		t.Errorf("expected app error code, got %q", got)
	}
}
