package entity

import (
	"net/http"
	"time"

	"github.com/jonwraymond/draftops/drafts"
)

// Body kinds.
const (
	BodyNone       = "none"
	BodyRaw        = "raw"
	BodyJSON       = "json"
	BodyForm       = "form"
	BodyURLEncoded = "urlencoded"
)

// Auth kinds.
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthBasic  = "basic"
)

// Body is the payload of a request.
type Body struct {
	Kind    string `json:"kind" validate:"omitempty,oneof=none raw json form urlencoded"`
	Content string `json:"content"`
	Form    []Row  `json:"form" validate:"dive"`
}

// Auth is the authentication a request is sent with.
type Auth struct {
	Kind     string `json:"kind" validate:"omitempty,oneof=none bearer basic"`
	Token    string `json:"token"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Request is a saved HTTP request.
type Request struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	Name       string    `json:"name" validate:"required,max=256"`
	Method     string    `json:"method" validate:"required,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS TRACE CONNECT"`
	URI        string    `json:"uri" validate:"max=8192"`
	Headers    []Row     `json:"headers" validate:"dive"`
	Query      []Row     `json:"query" validate:"dive"`
	Body       Body      `json:"body"`
	Auth       Auth      `json:"auth"`
	Context    string    `json:"context"`
	Collection string    `json:"collection"`
	Timestamp  time.Time `json:"timestamp"`

	// Focus names the editor tab or cell in focus.
	Focus string `json:"focus"`
}

func (r Request) EntityID() string    { return r.ID }
func (r Request) EntityName() string  { return r.Name }
func (r Request) EntityOwner() string { return r.Owner }

// Stamp returns r with the server-assigned id, owner, and timestamp set.
func (r Request) Stamp(id, owner string, at time.Time) Request {
	r.ID, r.Owner, r.Timestamp = id, owner, at
	return r
}

// Response is the last result of executing a request. It travels with a
// request draft as auxiliary data and is never hashed.
type Response struct {
	Status   int           `json:"status"`
	Headers  []Row         `json:"headers"`
	Body     string        `json:"body"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// NewRequest returns an unsaved GET request owned by owner.
func NewRequest(owner string) Request {
	return Request{
		Owner:   owner,
		Method:  http.MethodGet,
		Headers: []Row{},
		Query:   []Row{},
		Body:    Body{Kind: BodyNone, Form: []Row{}},
		Auth:    Auth{Kind: AuthNone},
	}
}

// CanonicalRequest strips focus markers and the server timestamp.
func CanonicalRequest(r Request) any {
	r.Focus = ""
	r.Timestamp = time.Time{}
	r.Headers = canonRows(r.Headers)
	r.Query = canonRows(r.Query)
	r.Body.Form = canonRows(r.Body.Form)
	return r
}

// RequestKind describes requests to a drafts.Controller.
func RequestKind() drafts.Kind[Request] {
	return drafts.Kind[Request]{
		Name:         "request",
		Noun:         "request",
		Canonicalize: CanonicalRequest,
		New:          NewRequest,
		Rename: func(r Request, name string) Request {
			r.Name = name
			return r
		},
		Scope: func(r Request) drafts.ScopeRef {
			return drafts.ScopeRef{Parent: r.Collection, Context: r.Context}
		},
		Validate: func(r Request) error { return Validate(r) },
	}
}
