package auth

import (
	"fmt"
	"net/http"
)

// BearerTransport is an http.RoundTripper that adds the token of Source as
// a bearer Authorization header. An empty token sends the request
// unauthenticated.
type BearerTransport struct {
	// Source yields the current raw token. Required.
	Source TokenSource

	// Base is the underlying transport. Default: http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Source == nil {
		return nil, ErrNoTokenSource
	}
	token, err := t.Source(req.Context())
	if err != nil {
		return nil, fmt.Errorf("auth: read token: %w", err)
	}

	if token != "" {
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base().RoundTrip(req)
}

func (t *BearerTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

var _ http.RoundTripper = (*BearerTransport)(nil)
