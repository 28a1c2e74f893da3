package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/draftops/auth"
	"github.com/jonwraymond/draftops/drafts"
	"github.com/jonwraymond/draftops/keyed"
)

// Stampable is an entity the server can assign an id, owner, and
// timestamp to.
type Stampable[E any] interface {
	drafts.Entity
	Stamp(id, owner string, at time.Time) E
}

// Memory is an in-process EntityStore.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Copies: entities are deep-copied on the way in and out.
//   - Identity: the owner of a write is the identity carried by ctx; an
//     anonymous or missing identity writes as auth.AnonymousPrincipal.
//   - Order: ListAllForOwner returns entities in first-insert order.
type Memory[E Stampable[E]] struct {
	mu    sync.RWMutex
	items map[string][]byte
	order []string
	codec keyed.Codec
	now   func() time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	codec keyed.Codec
	now   func() time.Time
}

// WithMemoryCodec sets the codec used to copy entities.
func WithMemoryCodec(c keyed.Codec) MemoryOption {
	return func(o *memoryOptions) { o.codec = c }
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) { o.now = now }
}

// NewMemory returns an empty store.
func NewMemory[E Stampable[E]](opts ...MemoryOption) *Memory[E] {
	o := memoryOptions{codec: keyed.DefaultCodec, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memory[E]{
		items: make(map[string][]byte),
		codec: o.codec,
		now:   o.now,
	}
}

// FindByID returns the entity stored under id regardless of its owner.
func (m *Memory[E]) FindByID(ctx context.Context, id string) (E, error) {
	var zero E
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	m.mu.RLock()
	data, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%w: %s", drafts.ErrNotFound, id)
	}
	return m.decode(data)
}

// InsertOrUpdate stores e for the identity in ctx. An empty id gets a new
// uuid; a known id owned by someone else fails with ErrOwnerMismatch.
func (m *Memory[E]) InsertOrUpdate(ctx context.Context, e E) (E, error) {
	var zero E
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	owner := auth.IdentityFromContext(ctx).Owner()

	m.mu.Lock()
	defer m.mu.Unlock()

	id := e.EntityID()
	if id == "" {
		id = uuid.NewString()
	}
	if data, ok := m.items[id]; ok {
		prev, err := m.decode(data)
		if err != nil {
			return zero, err
		}
		if prev.EntityOwner() != owner {
			return zero, fmt.Errorf("%w: %s", drafts.ErrOwnerMismatch, id)
		}
	} else {
		m.order = append(m.order, id)
	}

	stamped := e.Stamp(id, owner, m.now().UTC())
	data, err := m.codec.Marshal(stamped)
	if err != nil {
		return zero, fmt.Errorf("store: encode %s: %w", id, err)
	}
	m.items[id] = data
	return m.decode(data)
}

// ListAllForOwner returns the entities owned by the identity in ctx.
func (m *Memory[E]) ListAllForOwner(ctx context.Context) ([]E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	owner := auth.IdentityFromContext(ctx).Owner()

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]E, 0, len(m.order))
	for _, id := range m.order {
		e, err := m.decode(m.items[id])
		if err != nil {
			return nil, err
		}
		if e.EntityOwner() == owner {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the number of stored entities across all owners.
func (m *Memory[E]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory[E]) decode(data []byte) (E, error) {
	var e E
	if err := m.codec.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("store: decode: %w", err)
	}
	return e, nil
}
