package drafts

import (
	"fmt"
	"strings"

	"github.com/jonwraymond/draftops/digest"
)

// Entity is a server-identified value. An empty id denotes an entity that
// has not been persisted yet.
type Entity interface {
	EntityID() string
	EntityName() string
	EntityOwner() string
}

// ScopeRef names the shared scope an entity draws variables from.
type ScopeRef struct {
	Kind    string `json:"kind"`
	Context string `json:"context,omitempty"`
	Parent  string `json:"parent,omitempty"`
}

// IsZero reports whether the reference names nothing.
func (r ScopeRef) IsZero() bool {
	return r.Context == "" && r.Parent == ""
}

// Kind describes one entity kind to a Controller.
type Kind[E Entity] struct {
	// Name is the cache category and focus key. Required.
	Name string

	// Noun is used in user-facing messages. Defaults to Name.
	Noun string

	// Canonicalize strips volatile fields before hashing. nil hashes the
	// entity as is.
	Canonicalize digest.Canonicalizer[E]

	// New returns a fresh, unsaved entity owned by owner. Required.
	New func(owner string) E

	// Rename returns e with its display name replaced. Required for Release
	// of unnamed drafts.
	Rename func(e E, name string) E

	// Scope returns the parent/context references of e. Optional.
	Scope func(e E) ScopeRef

	// Validate checks e before it is released. Optional.
	Validate func(e E) error
}

// Category returns the cache category holding drafts of this kind.
func (k Kind[E]) Category() string {
	return k.Name
}

func (k Kind[E]) noun() string {
	if k.Noun != "" {
		return k.Noun
	}
	return k.Name
}

func (k Kind[E]) validate() error {
	if strings.TrimSpace(k.Name) == "" || k.Name == FocusCategory {
		return fmt.Errorf("%w: name %q", ErrInvalidKind, k.Name)
	}
	if k.New == nil {
		return fmt.Errorf("%w: %s has no constructor", ErrInvalidKind, k.Name)
	}
	return nil
}
