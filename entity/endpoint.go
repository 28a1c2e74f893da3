package entity

import (
	"net/http"
	"time"

	"github.com/jonwraymond/draftops/drafts"
)

// MockResponse is one canned answer of an end-point.
type MockResponse struct {
	Status    int    `json:"status" validate:"min=100,max=599"`
	Headers   []Row  `json:"headers" validate:"dive"`
	Body      string `json:"body"`
	Condition string `json:"condition"`
	Focus     string `json:"focus"`
}

// Endpoint is a mock server route answering with canned responses.
type Endpoint struct {
	ID         string         `json:"id"`
	Owner      string         `json:"owner"`
	Name       string         `json:"name" validate:"required,max=256"`
	Method     string         `json:"method" validate:"required,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS TRACE CONNECT"`
	Path       string         `json:"path" validate:"required,startswith=/"`
	Collection string         `json:"collection"`
	Responses  []MockResponse `json:"responses" validate:"dive"`
	DelayMS    int            `json:"delay_ms" validate:"min=0,max=60000"`
	Timestamp  time.Time      `json:"timestamp"`
}

func (e Endpoint) EntityID() string    { return e.ID }
func (e Endpoint) EntityName() string  { return e.Name }
func (e Endpoint) EntityOwner() string { return e.Owner }

// Stamp returns e with the server-assigned id, owner, and timestamp set.
func (e Endpoint) Stamp(id, owner string, at time.Time) Endpoint {
	e.ID, e.Owner, e.Timestamp = id, owner, at
	return e
}

// NewEndpoint returns an unsaved GET / end-point owned by owner with a
// single 200 response.
func NewEndpoint(owner string) Endpoint {
	return Endpoint{
		Owner:  owner,
		Method: http.MethodGet,
		Path:   "/",
		Responses: []MockResponse{
			{Status: http.StatusOK, Headers: []Row{}},
		},
	}
}

// CanonicalEndpoint strips focus markers and the server timestamp.
func CanonicalEndpoint(e Endpoint) any {
	e.Timestamp = time.Time{}
	responses := make([]MockResponse, len(e.Responses))
	for i, r := range e.Responses {
		r.Focus = ""
		r.Headers = canonRows(r.Headers)
		responses[i] = r
	}
	e.Responses = responses
	return e
}

// EndpointKind describes end-points to a drafts.Controller.
func EndpointKind() drafts.Kind[Endpoint] {
	return drafts.Kind[Endpoint]{
		Name:         "endpoint",
		Noun:         "end-point",
		Canonicalize: CanonicalEndpoint,
		New:          NewEndpoint,
		Rename: func(e Endpoint, name string) Endpoint {
			e.Name = name
			return e
		},
		Scope: func(e Endpoint) drafts.ScopeRef {
			return drafts.ScopeRef{Parent: e.Collection}
		},
		Validate: func(e Endpoint) error { return Validate(e) },
	}
}
