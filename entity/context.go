package entity

import (
	"time"

	"github.com/jonwraymond/draftops/drafts"
)

// Context is a named set of variables shared by requests and collections.
type Context struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name" validate:"required,max=256"`
	Variables []Row     `json:"variables" validate:"dive"`
	Secrets   []Row     `json:"secrets" validate:"dive"`
	Timestamp time.Time `json:"timestamp"`
}

func (c Context) EntityID() string    { return c.ID }
func (c Context) EntityName() string  { return c.Name }
func (c Context) EntityOwner() string { return c.Owner }

// Stamp returns c with the server-assigned id, owner, and timestamp set.
func (c Context) Stamp(id, owner string, at time.Time) Context {
	c.ID, c.Owner, c.Timestamp = id, owner, at
	return c
}

// Lookup returns the value of the active variable key. Secrets shadow
// plain variables.
func (c Context) Lookup(key string) (string, bool) {
	for _, rows := range [][]Row{c.Secrets, c.Variables} {
		for _, r := range rows {
			if r.Active && r.Key == key {
				return r.Value, true
			}
		}
	}
	return "", false
}

// NewContext returns an unsaved, empty context owned by owner.
func NewContext(owner string) Context {
	return Context{Owner: owner, Variables: []Row{}, Secrets: []Row{}}
}

// CanonicalContext strips focus markers and the server timestamp.
func CanonicalContext(c Context) any {
	c.Timestamp = time.Time{}
	c.Variables = canonRows(c.Variables)
	c.Secrets = canonRows(c.Secrets)
	return c
}

// ContextKind describes contexts to a drafts.Controller.
func ContextKind() drafts.Kind[Context] {
	return drafts.Kind[Context]{
		Name:         "context",
		Noun:         "context",
		Canonicalize: CanonicalContext,
		New:          NewContext,
		Rename: func(c Context, name string) Context {
			c.Name = name
			return c
		},
		Validate: func(c Context) error { return Validate(c) },
	}
}
