package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonwraymond/draftops/drafts"
)

var (
	// ErrInvalidConfig is returned for an unusable store configuration.
	ErrInvalidConfig = errors.New("store: invalid config")
)

// StatusError is a non-2xx answer of an HTTP store.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("store: %s %s: %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("store: %s %s: %d %s: %s", e.Method, e.URL, e.Code, http.StatusText(e.Code), e.Body)
}

// Temporary reports whether the server may answer differently on retry.
func (e *StatusError) Temporary() bool {
	switch e.Code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.Code >= 500
}

// Permanent reports whether err must not be retried: missing or foreign
// entities, cancellation, and client errors other than timeouts and rate
// limits.
func Permanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, drafts.ErrNotFound) ||
		errors.Is(err, drafts.ErrOwnerMismatch) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return !se.Temporary()
	}
	return false
}
