package drafts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonwraymond/draftops/auth"
	"github.com/jonwraymond/draftops/keyed"
	"github.com/jonwraymond/draftops/observe"
	"github.com/jonwraymond/draftops/session"
)

// Workspace owns the state shared by every controller of one editor
// session: the draft cache, the session coordinator, and the snapshot
// persister.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Ownership: a persisted snapshot is only restored for the owner that
//     saved it.
type Workspace struct {
	cache     *keyed.MemoryStore
	codec     keyed.Codec
	session   *session.Coordinator
	identity  auth.IdentityProvider
	persister keyed.Persister
	sink      NotificationSink
	prompt    NamePrompt
	mw        *observe.Middleware

	mu       sync.Mutex
	resumers []resumer
}

type resumer interface {
	Resume(ctx context.Context) error
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithPersister stores cache snapshots through p.
func WithPersister(p keyed.Persister) WorkspaceOption {
	return func(w *Workspace) { w.persister = p }
}

// WithSink sets the default notification sink of registered controllers.
func WithSink(s NotificationSink) WorkspaceOption {
	return func(w *Workspace) { w.sink = s }
}

// WithPrompt sets the default naming prompt of registered controllers.
func WithPrompt(p NamePrompt) WorkspaceOption {
	return func(w *Workspace) { w.prompt = p }
}

// WithMiddleware sets the default instrumentation of registered controllers.
func WithMiddleware(mw *observe.Middleware) WorkspaceOption {
	return func(w *Workspace) { w.mw = mw }
}

// WithCodec sets the record codec.
func WithCodec(c keyed.Codec) WorkspaceOption {
	return func(w *Workspace) { w.codec = c }
}

// NewWorkspace creates a workspace for identity. A nil identity is a static
// anonymous one. When identity accepts a notifier it is pointed at the
// workspace session.
func NewWorkspace(identity auth.IdentityProvider, opts ...WorkspaceOption) *Workspace {
	w := &Workspace{
		cache:   keyed.NewMemoryStore(),
		codec:   keyed.DefaultCodec,
		session: session.NewCoordinator(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if identity == nil {
		identity = auth.NewStaticProvider(nil, nil)
	}
	if n, ok := identity.(interface{ SetNotifier(auth.Notifier) }); ok {
		n.SetNotifier(w.session)
	}
	w.identity = identity
	if w.mw == nil {
		w.mw = observe.NopMiddleware()
	}
	return w
}

// Cache returns the shared draft store.
func (w *Workspace) Cache() *keyed.MemoryStore {
	return w.cache
}

// Session returns the session coordinator.
func (w *Workspace) Session() *session.Coordinator {
	return w.session
}

// Identity returns the identity provider.
func (w *Workspace) Identity() auth.IdentityProvider {
	return w.identity
}

// Register creates a controller for kind on ws and attaches it to the
// session. Unset deps default to the workspace's collaborators.
func Register[E Entity, A any](ws *Workspace, kind Kind[E], deps Deps[E]) (*Controller[E, A], error) {
	if deps.Cache == nil {
		deps.Cache = ws.cache
	}
	if deps.Codec == nil {
		deps.Codec = ws.codec
	}
	if deps.Identity == nil {
		deps.Identity = ws.identity
	}
	if deps.Prompt == nil {
		deps.Prompt = ws.prompt
	}
	if deps.Sink == nil {
		deps.Sink = ws.sink
	}
	if deps.Observe == nil {
		deps.Observe = ws.mw
	}

	c, err := NewController[E, A](kind, deps)
	if err != nil {
		return nil, err
	}
	if err := c.Attach(ws.session); err != nil {
		return nil, fmt.Errorf("drafts: attach %s: %w", kind.Name, err)
	}

	ws.mu.Lock()
	ws.resumers = append(ws.resumers, c)
	ws.mu.Unlock()
	return c, nil
}

// Save persists the cache for the current owner. Without a persister Save
// is a no-op.
func (w *Workspace) Save(ctx context.Context) error {
	if w.persister == nil {
		return nil
	}
	owner := w.identity.Current().Owner()
	snap := w.cache.Snapshot(owner)
	err := w.mw.Run(ctx, observe.OpMeta{Operation: "save", Owner: owner}, func(ctx context.Context) error {
		return w.persister.Save(ctx, snap)
	})
	if err != nil {
		return fmt.Errorf("drafts: save workspace: %w", err)
	}
	return nil
}

// Open restores the persisted cache if it belongs to the current owner and
// reports whether anything was restored. A snapshot of another owner is
// cleared.
func (w *Workspace) Open(ctx context.Context) (bool, error) {
	if w.persister == nil {
		return false, nil
	}
	owner := w.identity.Current().Owner()
	log := w.mw.Logger().WithOperation(observe.OpMeta{Operation: "open", Owner: owner})

	snap, ok, err := w.persister.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("drafts: load workspace: %w", err)
	}
	if !ok {
		return false, nil
	}
	if snap.Owner != owner {
		log.Info(ctx, "discarding workspace of another owner", observe.Field{Key: "snapshot_owner", Value: snap.Owner})
		if err := w.persister.Clear(ctx); err != nil {
			return false, fmt.Errorf("drafts: clear workspace: %w", err)
		}
		return false, nil
	}
	if err := w.cache.Restore(snap); err != nil {
		return false, fmt.Errorf("drafts: restore workspace: %w", err)
	}
	log.Debug(ctx, "workspace restored", observe.Field{Key: "entries", Value: snap.Len()})
	return true, nil
}

// Resume opens the persisted cache and resumes every registered controller
// in registration order.
func (w *Workspace) Resume(ctx context.Context) error {
	var errs []error
	if _, err := w.Open(ctx); err != nil {
		errs = append(errs, err)
	}

	w.mu.Lock()
	rs := append([]resumer(nil), w.resumers...)
	w.mu.Unlock()

	for _, r := range rs {
		if err := r.Resume(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Comments returns the unsaved-work comments of every registered
// controller in registration order.
func (w *Workspace) Comments() []string {
	w.mu.Lock()
	rs := append([]resumer(nil), w.resumers...)
	w.mu.Unlock()

	var out []string
	for _, r := range rs {
		if c, ok := r.(interface{ CacheComments() []string }); ok {
			out = append(out, c.CacheComments()...)
		}
	}
	return out
}
