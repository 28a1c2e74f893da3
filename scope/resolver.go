package scope

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/draftops/drafts"
	"github.com/jonwraymond/draftops/entity"
)

// ErrNoContexts is returned by NewResolver without a context store.
var ErrNoContexts = errors.New("scope: context store is required")

// Resolver implements drafts.ScopeResolver over entity stores.
//
// Contract:
//   - Concurrency: safe for concurrent use; concurrent loads of the same
//     context or collection share one store call.
//   - Isolation: the active scope is kept per entity kind (ScopeRef.Kind).
//   - Failure: a failed load clears the active scope of the kind and
//     returns the error; a missing reference clears it without error.
type Resolver struct {
	contexts    drafts.EntityStore[entity.Context]
	collections drafts.EntityStore[entity.Collection]

	group singleflight.Group

	mu     sync.RWMutex
	active map[string]entity.Context
	refs   map[string]drafts.ScopeRef
}

// NewResolver returns a resolver loading contexts from contexts. When
// collections is nil, parent references are ignored.
func NewResolver(contexts drafts.EntityStore[entity.Context], collections drafts.EntityStore[entity.Collection]) (*Resolver, error) {
	if contexts == nil {
		return nil, ErrNoContexts
	}
	return &Resolver{
		contexts:    contexts,
		collections: collections,
		active:      make(map[string]entity.Context),
		refs:        make(map[string]drafts.ScopeRef),
	}, nil
}

// Resolve loads the context ref points to and makes it the active scope
// of ref.Kind. An explicit context wins over the parent collection's.
func (r *Resolver) Resolve(ctx context.Context, ref drafts.ScopeRef) error {
	id := ref.Context
	if id == "" && ref.Parent != "" && r.collections != nil {
		parent, err := r.loadCollection(ctx, ref.Parent)
		switch {
		case errors.Is(err, drafts.ErrNotFound):
		case err != nil:
			r.set(ref, nil)
			return err
		default:
			id = parent.Context
		}
	}
	if id == "" {
		r.set(ref, nil)
		return nil
	}

	c, err := r.loadContext(ctx, id)
	if err != nil {
		r.set(ref, nil)
		if errors.Is(err, drafts.ErrNotFound) {
			return nil
		}
		return err
	}
	r.set(ref, &c)
	return nil
}

// Active returns the active scope of kind. Its rows are shared with the
// resolver and must not be modified.
func (r *Resolver) Active(kind string) (entity.Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.active[kind]
	return c, ok
}

// Ref returns the last reference resolved for kind.
func (r *Resolver) Ref(kind string) drafts.ScopeRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refs[kind]
}

// Variables returns the active variables of kind by key. Secrets shadow
// plain variables; inactive rows are left out.
func (r *Resolver) Variables(kind string) map[string]string {
	c, ok := r.Active(kind)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(c.Variables)+len(c.Secrets))
	for _, rows := range [][]entity.Row{c.Variables, c.Secrets} {
		for _, row := range rows {
			if row.Active && row.Key != "" {
				out[row.Key] = row.Value
			}
		}
	}
	return out
}

// Invalidate drops the active scope of every kind that uses context id,
// typically after the context was saved elsewhere.
func (r *Resolver) Invalidate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for kind, c := range r.active {
		if c.ID == id {
			delete(r.active, kind)
		}
	}
}

func (r *Resolver) set(ref drafts.ScopeRef, c *entity.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[ref.Kind] = ref
	if c == nil {
		delete(r.active, ref.Kind)
		return
	}
	r.active[ref.Kind] = *c
}

func (r *Resolver) loadContext(ctx context.Context, id string) (entity.Context, error) {
	v, err, _ := r.group.Do("context/"+id, func() (any, error) {
		return r.contexts.FindByID(ctx, id)
	})
	if err != nil {
		return entity.Context{}, fmt.Errorf("scope: load context %s: %w", id, err)
	}
	return v.(entity.Context), nil
}

func (r *Resolver) loadCollection(ctx context.Context, id string) (entity.Collection, error) {
	v, err, _ := r.group.Do("collection/"+id, func() (any, error) {
		return r.collections.FindByID(ctx, id)
	})
	if err != nil {
		return entity.Collection{}, fmt.Errorf("scope: load collection %s: %w", id, err)
	}
	return v.(entity.Collection), nil
}

var _ drafts.ScopeResolver = (*Resolver)(nil)
