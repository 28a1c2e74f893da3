package entity

import (
	"time"

	"github.com/jonwraymond/draftops/drafts"
)

// Collection groups requests under one shared context.
type Collection struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name" validate:"required,max=256"`
	Description string    `json:"description" validate:"max=4096"`
	Requests    []string  `json:"requests"`
	Context     string    `json:"context"`
	Timestamp   time.Time `json:"timestamp"`

	// Expanded is the tree state in the sidebar.
	Expanded bool `json:"expanded"`
}

func (c Collection) EntityID() string    { return c.ID }
func (c Collection) EntityName() string  { return c.Name }
func (c Collection) EntityOwner() string { return c.Owner }

// Stamp returns c with the server-assigned id, owner, and timestamp set.
func (c Collection) Stamp(id, owner string, at time.Time) Collection {
	c.ID, c.Owner, c.Timestamp = id, owner, at
	return c
}

// NewCollection returns an unsaved, empty collection owned by owner.
func NewCollection(owner string) Collection {
	return Collection{Owner: owner, Requests: []string{}}
}

// CanonicalCollection strips the tree state and the server timestamp.
func CanonicalCollection(c Collection) any {
	c.Expanded = false
	c.Timestamp = time.Time{}
	c.Requests = emptyIfNil(c.Requests)
	return c
}

// CollectionKind describes collections to a drafts.Controller.
func CollectionKind() drafts.Kind[Collection] {
	return drafts.Kind[Collection]{
		Name:         "collection",
		Noun:         "collection",
		Canonicalize: CanonicalCollection,
		New:          NewCollection,
		Rename: func(c Collection, name string) Collection {
			c.Name = name
			return c
		},
		Scope: func(c Collection) drafts.ScopeRef {
			return drafts.ScopeRef{Context: c.Context}
		},
		Validate: func(c Collection) error { return Validate(c) },
	}
}
