package drafts

import (
	"fmt"

	"github.com/jonwraymond/draftops/keyed"
)

// FocusCategory is the cache category holding one FocusRecord per kind.
const FocusCategory = "focus"

// Record is a parked draft: the working copy together with the backup it
// diverged from.
type Record[E Entity, A any] struct {
	Parent    string `json:"parent,omitempty"`
	Backup    E      `json:"backup"`
	Current   E      `json:"current"`
	Auxiliary *A     `json:"auxiliary,omitempty"`
}

// ID returns the cache key of the record.
func (r Record[E, A]) ID() string {
	return r.Backup.EntityID()
}

// Name returns the display name of the working copy.
func (r Record[E, A]) Name() string {
	return r.Current.EntityName()
}

// FocusRecord names the entity open in the editor of one kind.
type FocusRecord struct {
	Entity  string `json:"entity"`
	Parent  string `json:"parent,omitempty"`
	Context string `json:"context,omitempty"`
}

// FocusTracker persists the focused entity per kind in a shared store.
//
// Contract:
//   - Concurrency: safe for concurrent use when the store is.
//   - Cardinality: at most one FocusRecord exists per kind.
type FocusTracker struct {
	store keyed.Store
	codec keyed.Codec
}

// NewFocusTracker creates a tracker over store. A nil codec uses
// keyed.DefaultCodec.
func NewFocusTracker(store keyed.Store, codec keyed.Codec) *FocusTracker {
	if codec == nil {
		codec = keyed.DefaultCodec
	}
	return &FocusTracker{store: store, codec: codec}
}

// SetFocus upserts the focus record of kind.
func (t *FocusTracker) SetFocus(kind string, rec FocusRecord) error {
	if err := keyed.Put(t.store, t.codec, FocusCategory, kind, rec); err != nil {
		return fmt.Errorf("drafts: set focus %s: %w", kind, err)
	}
	return nil
}

// GetFocus returns the focus record of kind.
func (t *FocusTracker) GetFocus(kind string) (FocusRecord, bool, error) {
	return keyed.Get[FocusRecord](t.store, t.codec, FocusCategory, kind)
}

// ClearFocus removes the focus record of kind.
func (t *FocusTracker) ClearFocus(kind string) {
	if t.store != nil {
		t.store.Remove(FocusCategory, kind)
	}
}
