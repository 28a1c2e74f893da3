package drafts

import (
	"errors"
	"fmt"
)

// Sentinel errors for draft operations.
var (
	// ErrNotFound indicates the entity does not exist server-side.
	ErrNotFound = errors.New("drafts: entity not found")

	// ErrOwnerMismatch indicates the entity belongs to another user.
	ErrOwnerMismatch = errors.New("drafts: entity owned by another user")

	// ErrCancelled indicates an operation was superseded by a focus change.
	ErrCancelled = errors.New("drafts: operation cancelled")

	// ErrNamingAborted indicates the user declined to name a draft.
	ErrNamingAborted = errors.New("drafts: naming aborted")

	// ErrTransport indicates the server collaborator failed.
	ErrTransport = errors.New("drafts: transport failure")

	// ErrInvalidEntity indicates the draft failed validation before release.
	ErrInvalidEntity = errors.New("drafts: invalid entity")

	// ErrNoFocus indicates no entity has been defined yet.
	ErrNoFocus = errors.New("drafts: no focused entity")

	// ErrInvalidKind indicates a Kind descriptor is incomplete.
	ErrInvalidKind = errors.New("drafts: invalid kind")

	// ErrMissingDependency indicates a required collaborator is nil.
	ErrMissingDependency = errors.New("drafts: missing dependency")

	// ErrUnknownField indicates Patch named a field the entity does not have.
	ErrUnknownField = errors.New("drafts: unknown field")
)

// TransportError wraps a failure of a server collaborator.
type TransportError struct {
	Op  string
	ID  string
	Err error
}

func (e *TransportError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("drafts: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("drafts: %s %q: %v", e.Op, e.ID, e.Err)
}

// Unwrap exposes both ErrTransport and the cause to errors.Is/As.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

func transportError(op, id string, err error) error {
	return &TransportError{Op: op, ID: id, Err: err}
}
