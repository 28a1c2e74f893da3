package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/draftops/auth"
	"github.com/jonwraymond/draftops/drafts"
	"github.com/jonwraymond/draftops/keyed"
)

// maxBody bounds the response bodies an HTTP store reads.
const maxBody = 8 << 20

// HTTPConfig configures an HTTP store.
type HTTPConfig struct {
	// BaseURL is the server root, e.g. "https://api.example.com/v1".
	// Required.
	BaseURL string

	// Kind is the resource collection under BaseURL, e.g. "request".
	// Required.
	Kind string

	// HTTPClient is the HTTP client to use.
	// If nil, a client with Timeout is used.
	HTTPClient *http.Client

	// Timeout bounds each call of the default client.
	// Default: 30 seconds.
	Timeout time.Duration

	// TokenSource, if set, authenticates every call with a bearer token.
	TokenSource auth.TokenSource

	// Codec encodes entities on the wire. Default: keyed.DefaultCodec.
	Codec keyed.Codec
}

// HTTP is an EntityStore backed by a REST server:
//
//	GET  {base}/{kind}/{id}     FindByID
//	POST {base}/{kind}          InsertOrUpdate of a new entity
//	PUT  {base}/{kind}/{id}     InsertOrUpdate of a saved entity
//	GET  {base}/{kind}?owner=   ListAllForOwner
type HTTP[E drafts.Entity] struct {
	base   *url.URL
	kind   string
	client *http.Client
	codec  keyed.Codec
}

// NewHTTP validates cfg and returns a store for one entity kind.
func NewHTTP[E drafts.Entity](cfg HTTPConfig) (*HTTP[E], error) {
	if cfg.BaseURL == "" || cfg.Kind == "" {
		return nil, fmt.Errorf("%w: base url and kind are required", ErrInvalidConfig)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: base url scheme %q", ErrInvalidConfig, base.Scheme)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if cfg.TokenSource != nil {
		c := *client
		c.Transport = &auth.BearerTransport{Source: cfg.TokenSource, Base: client.Transport}
		client = &c
	}
	codec := cfg.Codec
	if codec == nil {
		codec = keyed.DefaultCodec
	}

	return &HTTP[E]{base: base, kind: cfg.Kind, client: client, codec: codec}, nil
}

// FindByID fetches one entity.
func (s *HTTP[E]) FindByID(ctx context.Context, id string) (E, error) {
	var out E
	err := s.do(ctx, http.MethodGet, s.url(id, nil), nil, &out)
	if errors.Is(err, drafts.ErrNotFound) {
		return out, fmt.Errorf("%w: %s", drafts.ErrNotFound, id)
	}
	return out, err
}

// InsertOrUpdate creates e when it has no id and replaces it otherwise.
func (s *HTTP[E]) InsertOrUpdate(ctx context.Context, e E) (E, error) {
	var out E
	body, err := s.codec.Marshal(e)
	if err != nil {
		return out, fmt.Errorf("store: encode %s: %w", s.kind, err)
	}
	method, target := http.MethodPost, s.url("", nil)
	if id := e.EntityID(); id != "" {
		method, target = http.MethodPut, s.url(id, nil)
	}
	err = s.do(ctx, method, target, body, &out)
	return out, err
}

// ListAllForOwner lists the entities of the identity carried by ctx.
func (s *HTTP[E]) ListAllForOwner(ctx context.Context) ([]E, error) {
	q := url.Values{"owner": {auth.IdentityFromContext(ctx).Owner()}}
	var out []E
	if err := s.do(ctx, http.MethodGet, s.url("", q), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []E{}
	}
	return out, nil
}

func (s *HTTP[E]) url(id string, q url.Values) string {
	u := s.base.JoinPath(s.kind)
	if id != "" {
		u = u.JoinPath(id)
	}
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (s *HTTP[E]) do(ctx context.Context, method, target string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return fmt.Errorf("store: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("store: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("store: read %s %s: %w", method, target, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return drafts.ErrNotFound
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s", drafts.ErrOwnerMismatch, method, target)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{
			Method: method,
			URL:    target,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(data[:min(len(data), 256)])),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := s.codec.Unmarshal(data, out); err != nil {
		return fmt.Errorf("store: decode %s %s: %w", method, target, err)
	}
	return nil
}
