package drafts

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jonwraymond/draftops/auth"
	"github.com/jonwraymond/draftops/digest"
	"github.com/jonwraymond/draftops/keyed"
	"github.com/jonwraymond/draftops/observe"
	"github.com/jonwraymond/draftops/session"
)

// UntitledName is shown for drafts that have no name yet.
const UntitledName = "untitled"

// Deps are the collaborators of a Controller.
type Deps[E Entity] struct {
	// Cache is the shared draft store. Required.
	Cache keyed.Store

	// Codec encodes records. Defaults to keyed.DefaultCodec.
	Codec keyed.Codec

	// Store is the server API. Required.
	Store EntityStore[E]

	// Scope is refreshed on every focus change. Optional.
	Scope ScopeResolver

	// Identity supplies the current owner. Defaults to anonymous.
	Identity auth.IdentityProvider

	// Prompt names drafts on release. Without it unnamed drafts cannot be
	// released.
	Prompt NamePrompt

	// Sink receives user-visible notices. Optional.
	Sink NotificationSink

	// Observe instruments operations. Defaults to a no-op.
	Observe *observe.Middleware
}

// Controller keeps the focused draft of one entity kind and the parked
// drafts of that kind in the shared cache.
//
// Contract:
//   - Concurrency: safe for concurrent use. The lock is never held across
//     collaborator calls.
//   - Cache: a record for id exists iff its working copy differs from its
//     backup by content hash.
//   - Backup: replaced only by a loaded server entity or a successful release.
//   - Errors: only transport, validation, and naming failures are returned;
//     superseded results are dropped and reported as EventCancelled.
type Controller[E Entity, A any] struct {
	kind     Kind[E]
	cache    keyed.Store
	codec    keyed.Codec
	store    EntityStore[E]
	scope    ScopeResolver
	identity auth.IdentityProvider
	prompt   NamePrompt
	mw       *observe.Middleware
	hasher   *digest.Hasher[E]
	focus    *FocusTracker
	guard    *Guard
	events   observers

	mu      sync.Mutex
	defined bool
	epoch   uint64
	backup  E
	current E
	aux     *A
	parent  string
	context string
	tracker *digest.Tracker[E]
}

// NewController creates a controller for kind.
func NewController[E Entity, A any](kind Kind[E], deps Deps[E]) (*Controller[E, A], error) {
	if err := kind.validate(); err != nil {
		return nil, err
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("%w: cache", ErrMissingDependency)
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("%w: entity store", ErrMissingDependency)
	}
	if deps.Codec == nil {
		deps.Codec = keyed.DefaultCodec
	}
	if deps.Identity == nil {
		deps.Identity = auth.NewStaticProvider(nil, nil)
	}
	if deps.Observe == nil {
		deps.Observe = observe.NopMiddleware()
	}

	hasher := digest.NewHasher(kind.Canonicalize)
	return &Controller[E, A]{
		kind:     kind,
		cache:    deps.Cache,
		codec:    deps.Codec,
		store:    deps.Store,
		scope:    deps.Scope,
		identity: deps.Identity,
		prompt:   deps.Prompt,
		mw:       deps.Observe,
		hasher:   hasher,
		focus:    NewFocusTracker(deps.Cache, deps.Codec),
		guard:    NewGuard(kind.Name, deps.Sink),
		tracker:  digest.NewTracker(hasher),
	}, nil
}

// Kind returns the kind descriptor.
func (c *Controller[E, A]) Kind() Kind[E] {
	return c.kind
}

// Subscribe registers fn for state change events, delivered in
// subscription order. The returned function unsubscribes.
func (c *Controller[E, A]) Subscribe(fn func(Event)) func() {
	return c.events.subscribe(fn)
}

// Attach registers the controller's session callback under the kind name.
func (c *Controller[E, A]) Attach(coord *session.Coordinator) error {
	return coord.Register(c.kind.Name, c.onSessionChange)
}

// Detach removes the controller's session callback.
func (c *Controller[E, A]) Detach(coord *session.Coordinator) {
	coord.Unregister(c.kind.Name)
}

// Define focuses e as freshly loaded: backup and working copy both become e.
// A pending fetch or execute is cancelled first.
func (c *Controller[E, A]) Define(ctx context.Context, e E, opts ...Option) error {
	o := collect(opts)
	aux, err := auxiliary[A](o)
	if err != nil {
		return err
	}
	c.guard.Supersede(ctx)
	_, err = c.apply(ctx, focusChange[E, A]{backup: e, current: e, aux: aux, opts: o, event: EventDefined})
	return err
}

// Update mutates the working copy and re-checks dirtiness. It is cheap
// enough to call on every keystroke. mutate runs under the controller lock
// and must not call back into the controller.
func (c *Controller[E, A]) Update(ctx context.Context, mutate func(*E)) error {
	if mutate == nil {
		return nil
	}
	return c.update(ctx, func(cur *E) error {
		mutate(cur)
		return nil
	})
}

// Patch replaces the top-level field named by its JSON key.
func (c *Controller[E, A]) Patch(ctx context.Context, field string, value any) error {
	return c.update(ctx, func(cur *E) error {
		next, err := patchField(c.codec, *cur, field, value)
		if err != nil {
			return err
		}
		*cur = next
		return nil
	})
}

func (c *Controller[E, A]) update(ctx context.Context, mutate func(*E) error) error {
	c.mu.Lock()
	if !c.defined {
		c.mu.Unlock()
		return ErrNoFocus
	}
	if err := mutate(&c.current); err != nil {
		c.mu.Unlock()
		return err
	}
	dirty, err := c.syncLocked()
	id := c.backup.EntityID()
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.events.emit(Event{Type: EventUpdated, Kind: c.kind.Name, ID: id, Dirty: dirty})
	return nil
}

// SetAuxiliary replaces the companion data of the focused draft.
func (c *Controller[E, A]) SetAuxiliary(ctx context.Context, a *A) error {
	c.mu.Lock()
	if !c.defined {
		c.mu.Unlock()
		return ErrNoFocus
	}
	c.aux = a
	var err error
	if c.tracker.Dirty() {
		err = c.putRecordLocked()
	}
	id := c.backup.EntityID()
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.events.emit(Event{Type: EventAuxiliary, Kind: c.kind.Name, ID: id})
	return nil
}

// Discard reverts drafts. Without ids, or for the focused id, the working
// copy is reset to the backup and its record dropped. Any other id only
// drops that parked record. Discard is idempotent.
func (c *Controller[E, A]) Discard(ctx context.Context, ids ...string) error {
	c.mu.Lock()
	if len(ids) == 0 {
		if !c.defined {
			c.mu.Unlock()
			return nil
		}
		ids = []string{c.backup.EntityID()}
	}

	var discarded []Event
	for _, id := range ids {
		if c.defined && id == c.backup.EntityID() {
			wasDirty := c.tracker.Dirty()
			reverted, err := c.clone(c.backup)
			if err != nil {
				c.mu.Unlock()
				return err
			}
			c.current = reverted
			_, removed := c.cache.Remove(c.kind.Category(), id)
			if _, err := c.tracker.Check(c.current, c.backup); err != nil {
				c.mu.Unlock()
				return err
			}
			if wasDirty || removed {
				discarded = append(discarded, Event{Type: EventDiscarded, Kind: c.kind.Name, ID: id})
			}
			continue
		}
		if _, ok := c.cache.Remove(c.kind.Category(), id); ok {
			discarded = append(discarded, Event{Type: EventDiscarded, Kind: c.kind.Name, ID: id})
		}
	}
	c.mu.Unlock()

	for _, ev := range discarded {
		c.logger("discard", ev.ID).Debug(ctx, "draft discarded")
		c.events.emit(ev)
	}
	return nil
}

// Release persists the working copy. Unnamed or unsaved drafts are named
// through the NamePrompt first. On success the server's entity becomes the
// backup. The working copy becomes the server's entity too, except for edits
// made while the save was in flight, which stay dirty and cached. On failure
// the draft is left untouched.
func (c *Controller[E, A]) Release(ctx context.Context) (E, error) {
	var zero E

	c.mu.Lock()
	if !c.defined {
		c.mu.Unlock()
		return zero, ErrNoFocus
	}
	draft, err := c.clone(c.current)
	sent := c.copyOf(c.current)
	oldID := c.backup.EntityID()
	epoch := c.epoch
	parent, scopeCtx, aux := c.parent, c.context, c.aux
	c.mu.Unlock()
	if err != nil {
		return zero, err
	}

	if draft.EntityID() == "" || strings.TrimSpace(draft.EntityName()) == "" {
		name, err := c.askName(ctx, draft.EntityName())
		if err != nil {
			return zero, err
		}
		draft = c.kind.Rename(draft, name)
	}

	if c.kind.Validate != nil {
		if err := c.kind.Validate(draft); err != nil {
			return zero, fmt.Errorf("%w: %w", ErrInvalidEntity, err)
		}
	}

	var saved E
	err = c.run(ctx, c.meta("release", oldID), func(ctx context.Context) error {
		var err error
		saved, err = c.store.InsertOrUpdate(ctx, draft)
		return err
	})
	if err != nil {
		return zero, transportError("release", oldID, err)
	}

	applied, err := c.apply(ctx, focusChange[E, A]{
		backup:     saved,
		current:    saved,
		aux:        aux,
		opts:       options{parent: parent, context: scopeCtx},
		event:      EventReleased,
		epoch:      epoch,
		checkEpoch: true,
		release:    oldID,
		sent:       &sent,
	})
	if err != nil {
		return saved, err
	}
	if !applied {
		// Focus moved while saving. The parked draft is persisted unless it
		// was edited again in the meantime.
		c.mu.Lock()
		c.dropIfMatchesLocked(oldID, draft)
		c.mu.Unlock()
		c.events.emit(Event{Type: EventCancelled, Kind: c.kind.Name, ID: oldID})
	}
	return saved, nil
}

// Fetch focuses the entity with id. A parked draft for id is restored
// without a network call. Otherwise the entity is loaded from the store;
// a missing or foreign entity triggers identity re-validation and falls
// back to a fresh entity.
func (c *Controller[E, A]) Fetch(ctx context.Context, id string, opts ...Option) error {
	o := collect(opts)

	rec, cached, err := keyed.Get[Record[E, A]](c.cache, c.codec, c.kind.Category(), id)
	if err != nil {
		c.logger("fetch", id).Warn(ctx, "dropping unreadable draft", observe.Field{Key: "error", Value: err.Error()})
		c.cache.Remove(c.kind.Category(), id)
		cached = false
	}
	if cached {
		if !c.ownedByCurrent(rec.Current) {
			return c.fallback(ctx, id, ErrOwnerMismatch, o)
		}
		return c.restore(ctx, rec, o)
	}

	if id == "" {
		return c.fresh(ctx, o, EventDefined)
	}

	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	opCtx, tok := c.guard.Begin(ctx, id)
	var found E
	err = c.run(opCtx, c.meta("fetch", id), func(ctx context.Context) error {
		var err error
		found, err = c.store.FindByID(ctx, id)
		return err
	})
	if !c.guard.Finish(tok) {
		c.events.emit(Event{Type: EventCancelled, Kind: c.kind.Name, ID: id})
		return nil
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return c.fallback(ctx, id, ErrNotFound, o)
	case isCancellation(ctx, err):
		c.events.emit(Event{Type: EventCancelled, Kind: c.kind.Name, ID: id})
		return nil
	default:
		return transportError("fetch", id, err)
	}

	if !c.ownedByCurrent(found) {
		return c.fallback(ctx, id, ErrOwnerMismatch, o)
	}

	aux, err := auxiliary[A](o)
	if err != nil {
		return err
	}
	applied, err := c.apply(ctx, focusChange[E, A]{
		backup:     found,
		current:    found,
		aux:        aux,
		opts:       o,
		event:      EventDefined,
		epoch:      epoch,
		checkEpoch: true,
	})
	if err == nil && !applied {
		c.events.emit(Event{Type: EventCancelled, Kind: c.kind.Name, ID: id})
	}
	return err
}

// Execute runs op against a snapshot of the working copy under the guard
// and attaches its result as auxiliary data, provided the same entity is
// still focused when op returns.
func (c *Controller[E, A]) Execute(ctx context.Context, op func(ctx context.Context, e E) (*A, error)) error {
	c.mu.Lock()
	if !c.defined {
		c.mu.Unlock()
		return ErrNoFocus
	}
	snapshot, err := c.clone(c.current)
	id := c.backup.EntityID()
	epoch := c.epoch
	c.mu.Unlock()
	if err != nil {
		return err
	}

	opCtx, tok := c.guard.Begin(ctx, id)
	var result *A
	err = c.run(opCtx, c.meta("execute", id), func(ctx context.Context) error {
		var err error
		result, err = op(ctx, snapshot)
		return err
	})
	if !c.guard.Finish(tok) {
		c.events.emit(Event{Type: EventCancelled, Kind: c.kind.Name, ID: id})
		return nil
	}
	if err != nil {
		if isCancellation(ctx, err) {
			c.events.emit(Event{Type: EventCancelled, Kind: c.kind.Name, ID: id})
			return nil
		}
		return transportError("execute", id, err)
	}

	c.mu.Lock()
	if c.epoch != epoch || c.backup.EntityID() != id {
		c.mu.Unlock()
		c.events.emit(Event{Type: EventCancelled, Kind: c.kind.Name, ID: id})
		return nil
	}
	c.aux = result
	if c.tracker.Dirty() {
		err = c.putRecordLocked()
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.events.emit(Event{Type: EventExecuted, Kind: c.kind.Name, ID: id})
	return nil
}

// Resume restores the editor state of the last session from the focus
// record. Any failure falls back to a fresh entity.
func (c *Controller[E, A]) Resume(ctx context.Context) error {
	rec, ok, err := c.focus.GetFocus(c.kind.Name)
	if err != nil {
		c.logger("resume", "").Warn(ctx, "unreadable focus record", observe.Field{Key: "error", Value: err.Error()})
		ok = false
	}
	if !ok {
		return c.fresh(ctx, options{}, EventDefined)
	}

	if err := c.Fetch(ctx, rec.Entity, WithParent(rec.Parent), WithContext(rec.Context)); err != nil {
		c.logger("resume", rec.Entity).Warn(ctx, "resume failed, starting fresh", observe.Field{Key: "error", Value: err.Error()})
		return c.fresh(ctx, options{parent: rec.Parent, context: rec.Context}, EventFallback)
	}
	return nil
}

// Reset drops every draft of this kind and focuses a fresh entity owned by
// owner.
func (c *Controller[E, A]) Reset(ctx context.Context, owner string) error {
	c.guard.Supersede(ctx)

	c.mu.Lock()
	c.cache.Excise(c.kind.Category())
	c.focus.ClearFocus(c.kind.Name)
	c.defined = false
	c.tracker.Reset()
	c.mu.Unlock()

	fresh := c.kind.New(owner)
	_, err := c.apply(ctx, focusChange[E, A]{backup: fresh, current: fresh, event: EventReset})
	return err
}

// List returns the entities of the current owner from the store.
func (c *Controller[E, A]) List(ctx context.Context) ([]E, error) {
	var out []E
	err := c.run(ctx, c.meta("list", ""), func(ctx context.Context) error {
		var err error
		out, err = c.store.ListAllForOwner(ctx)
		return err
	})
	if err != nil {
		return nil, transportError("list", "", err)
	}
	return out, nil
}

// IsDirty reports whether the focused draft differs from its backup.
func (c *Controller[E, A]) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Dirty()
}

// Current returns a copy of the working copy.
func (c *Controller[E, A]) Current() E {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyOf(c.current)
}

// Backup returns a copy of the backup.
func (c *Controller[E, A]) Backup() E {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyOf(c.backup)
}

// Auxiliary returns the companion data of the focused draft.
func (c *Controller[E, A]) Auxiliary() *A {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aux
}

// Focus returns the focus record of this kind.
func (c *Controller[E, A]) Focus() (FocusRecord, bool) {
	rec, ok, err := c.focus.GetFocus(c.kind.Name)
	if err != nil {
		return FocusRecord{}, false
	}
	return rec, ok
}

// Defined reports whether an entity is focused.
func (c *Controller[E, A]) Defined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defined
}

// Waiting reports whether a fetch or execute is pending.
func (c *Controller[E, A]) Waiting() bool {
	return c.guard.Waiting()
}

// CacheLength returns the number of parked drafts of this kind.
func (c *Controller[E, A]) CacheLength() int {
	return c.cache.Length(c.kind.Category())
}

// IsParentCached reports whether any parked draft belongs to parent.
func (c *Controller[E, A]) IsParentCached(parent string) bool {
	if parent == "" {
		return false
	}
	return c.cache.Exists(c.kind.Category(), func(_ string, data []byte) bool {
		var head struct {
			Parent string `json:"parent"`
		}
		if err := c.codec.Unmarshal(data, &head); err != nil {
			return false
		}
		return head.Parent == parent
	})
}

// Records returns the parked drafts in cache order.
func (c *Controller[E, A]) Records() ([]Record[E, A], error) {
	return keyed.All[Record[E, A]](c.cache, c.codec, c.kind.Category())
}

// CacheComments describes every parked draft, in cache order, for
// unsaved-work warnings.
func (c *Controller[E, A]) CacheComments() []string {
	records, err := c.Records()
	if err != nil {
		c.logger("comments", "").Warn(context.Background(), "unreadable drafts skipped", observe.Field{Key: "error", Value: err.Error()})
	}
	comments := make([]string, 0, len(records))
	for _, r := range records {
		comments = append(comments, c.comment(r))
	}
	return comments
}

func (c *Controller[E, A]) comment(r Record[E, A]) string {
	name := strings.TrimSpace(r.Name())
	if name == "" {
		name = UntitledName
	}
	if r.Parent != "" {
		return fmt.Sprintf("Unsaved collected %s '%s'.", c.kind.noun(), name)
	}
	return fmt.Sprintf("Unsaved %s '%s'.", c.kind.noun(), name)
}

// focusChange describes a replacement of the focused state.
type focusChange[E Entity, A any] struct {
	backup  E
	current E
	aux     *A
	opts    options
	event   EventType

	// When checkEpoch is set the change is dropped if another focus change
	// happened since epoch was read.
	epoch      uint64
	checkEpoch bool

	// release is the pre-save id whose record a successful release removes.
	release string
	// sent is the working copy as it was when the release started.
	sent *E
}

// apply installs fc and runs the define side effects: focus record,
// housekeeping of the previous draft, and scope refresh.
func (c *Controller[E, A]) apply(ctx context.Context, fc focusChange[E, A]) (bool, error) {
	backup, err := c.clone(fc.backup)
	if err != nil {
		return false, err
	}
	current, err := c.clone(fc.current)
	if err != nil {
		return false, err
	}
	ref := c.scopeFor(current, fc.opts)

	c.mu.Lock()
	if fc.checkEpoch && fc.epoch != c.epoch {
		c.mu.Unlock()
		return false, nil
	}

	previous, hasPrevious := fc.opts.previous, fc.opts.hasPrevious
	if !hasPrevious && c.defined {
		previous, hasPrevious = c.backup.EntityID(), true
	}

	aux := fc.aux
	id := backup.EntityID()
	switch {
	case fc.sent != nil:
		// Edits made while the release was in flight survive on top of
		// the saved entity.
		if edited, err := c.hasher.IsDirty(c.current, *fc.sent); err == nil && edited {
			if merged, err := rebaseEdits(c.codec, *fc.sent, c.current, backup); err == nil {
				current = merged
			}
		}
	case fc.event != EventRestored:
		// A parked draft of the incoming id takes precedence over the
		// loaded copy, as in Fetch.
		if rec, ok := c.parkedLocked(id); ok {
			current = rec.Current
			if aux == nil {
				aux = rec.Auxiliary
			}
		}
	}

	c.backup, c.current, c.aux = backup, current, aux
	c.parent, c.context = ref.Parent, ref.Context
	c.defined = true
	c.epoch++
	c.tracker.Reset()
	dirty, err := c.tracker.Check(c.current, c.backup)
	if err != nil {
		c.mu.Unlock()
		return true, err
	}

	if fc.event == EventReleased {
		c.cache.Remove(c.kind.Category(), fc.release)
	}
	if hasPrevious && previous != id {
		c.dropIfCleanLocked(previous)
	}
	if dirty {
		err = c.putRecordLocked()
	} else {
		c.cache.Remove(c.kind.Category(), id)
	}
	if err == nil {
		err = c.focus.SetFocus(c.kind.Name, FocusRecord{Entity: id, Parent: ref.Parent, Context: ref.Context})
	}
	c.mu.Unlock()
	if err != nil {
		return true, err
	}

	c.resolveScope(ctx, ref)
	c.logger(string(fc.event), id).Debug(ctx, "focus changed", observe.Field{Key: "dirty", Value: dirty})
	c.events.emit(Event{Type: fc.event, Kind: c.kind.Name, ID: id, Dirty: dirty})
	return true, nil
}

func (c *Controller[E, A]) restore(ctx context.Context, rec Record[E, A], o options) error {
	if o.parent == "" {
		o.parent = rec.Parent
	}
	aux := rec.Auxiliary
	if o.hasAux {
		a, err := auxiliary[A](o)
		if err != nil {
			return err
		}
		aux = a
	}
	c.guard.Supersede(ctx)
	_, err := c.apply(ctx, focusChange[E, A]{backup: rec.Backup, current: rec.Current, aux: aux, opts: o, event: EventRestored})
	return err
}

func (c *Controller[E, A]) fresh(ctx context.Context, o options, ev EventType) error {
	c.guard.Supersede(ctx)
	e := c.kind.New(c.identity.Current().Owner())
	_, err := c.apply(ctx, focusChange[E, A]{backup: e, current: e, opts: options{parent: o.parent, context: o.context}, event: ev})
	return err
}

// fallback handles a missing or foreign entity: the identity is re-checked
// and the editor starts over with a fresh entity.
func (c *Controller[E, A]) fallback(ctx context.Context, id string, cause error, o options) error {
	log := c.logger("fetch", id)
	log.Warn(ctx, "entity unavailable, falling back", observe.Field{Key: "cause", Value: cause.Error()})
	if err := c.identity.Revalidate(ctx); err != nil {
		log.Warn(ctx, "identity revalidation failed", observe.Field{Key: "error", Value: err.Error()})
	}
	return c.fresh(ctx, o, EventFallback)
}

func (c *Controller[E, A]) onSessionChange(ctx context.Context, next, prev *auth.Identity) error {
	if !auth.SameUser(next, prev) {
		return c.Reset(ctx, next.Owner())
	}
	if err := c.resync(ctx, next); err != nil {
		c.logger("resync", "").Warn(ctx, "re-sync failed, resetting", observe.Field{Key: "error", Value: err.Error()})
		return c.Reset(ctx, next.Owner())
	}
	return nil
}

// resync re-validates the focused entity for an unchanged user without
// dropping drafts. A missing or foreign entity is an error; transport
// failures keep the current state.
func (c *Controller[E, A]) resync(ctx context.Context, id *auth.Identity) error {
	c.mu.Lock()
	if !c.defined {
		c.mu.Unlock()
		return nil
	}
	focusID := c.backup.EntityID()
	owner := c.current.EntityOwner()
	dirty := c.tracker.Dirty()
	epoch := c.epoch
	parent, scopeCtx, aux := c.parent, c.context, c.aux
	c.mu.Unlock()

	if owner != "" && owner != id.Owner() {
		return ErrOwnerMismatch
	}
	if focusID == "" {
		return nil
	}

	opCtx, tok := c.guard.Begin(ctx, focusID)
	var found E
	err := c.run(opCtx, c.meta("resync", focusID), func(ctx context.Context) error {
		var err error
		found, err = c.store.FindByID(ctx, focusID)
		return err
	})
	if !c.guard.Finish(tok) {
		return nil
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case isCancellation(ctx, err):
		return nil
	default:
		c.logger("resync", focusID).Warn(ctx, "re-sync skipped", observe.Field{Key: "error", Value: err.Error()})
		return nil
	}
	if o := found.EntityOwner(); o != "" && o != id.Owner() {
		return ErrOwnerMismatch
	}
	if dirty {
		return nil
	}

	_, err = c.apply(ctx, focusChange[E, A]{
		backup:     found,
		current:    found,
		aux:        aux,
		opts:       options{parent: parent, context: scopeCtx},
		event:      EventResynced,
		epoch:      epoch,
		checkEpoch: true,
	})
	return err
}

// syncLocked re-checks dirtiness and keeps the cache in step: a dirty draft
// is (re)written, a draft that just became clean is removed.
func (c *Controller[E, A]) syncLocked() (bool, error) {
	wasDirty := c.tracker.Dirty()
	dirty, err := c.tracker.Check(c.current, c.backup)
	if err != nil {
		return wasDirty, err
	}
	switch {
	case dirty:
		return true, c.putRecordLocked()
	case wasDirty:
		c.cache.Remove(c.kind.Category(), c.backup.EntityID())
	}
	return false, nil
}

func (c *Controller[E, A]) putRecordLocked() error {
	return keyed.Put(c.cache, c.codec, c.kind.Category(), c.backup.EntityID(), Record[E, A]{
		Parent:    c.parent,
		Backup:    c.backup,
		Current:   c.current,
		Auxiliary: c.aux,
	})
}

// parkedLocked returns the parked record of id when it belongs to the
// current user. Unreadable or foreign records are removed.
func (c *Controller[E, A]) parkedLocked(id string) (Record[E, A], bool) {
	rec, ok, err := keyed.Get[Record[E, A]](c.cache, c.codec, c.kind.Category(), id)
	if err != nil || (ok && !c.ownedByCurrent(rec.Current)) {
		c.cache.Remove(c.kind.Category(), id)
		return Record[E, A]{}, false
	}
	return rec, ok
}

// dropIfCleanLocked removes the parked record of id if it no longer differs
// from its backup.
func (c *Controller[E, A]) dropIfCleanLocked(id string) {
	rec, ok, err := keyed.Get[Record[E, A]](c.cache, c.codec, c.kind.Category(), id)
	if err != nil || !ok {
		return
	}
	if dirty, err := c.hasher.IsDirty(rec.Current, rec.Backup); err == nil && !dirty {
		c.cache.Remove(c.kind.Category(), id)
	}
}

// dropIfMatchesLocked removes the parked record of id if its working copy
// equals saved in content.
func (c *Controller[E, A]) dropIfMatchesLocked(id string, saved E) {
	rec, ok, err := keyed.Get[Record[E, A]](c.cache, c.codec, c.kind.Category(), id)
	if err != nil || !ok {
		return
	}
	if dirty, err := c.hasher.IsDirty(rec.Current, saved); err == nil && !dirty {
		c.cache.Remove(c.kind.Category(), id)
	}
}

func (c *Controller[E, A]) askName(ctx context.Context, suggested string) (string, error) {
	if c.prompt == nil || c.kind.Rename == nil {
		return "", ErrNamingAborted
	}
	name, ok, err := c.prompt.AskName(ctx, c.kind.noun(), suggested)
	if err != nil {
		return "", fmt.Errorf("drafts: ask name: %w", err)
	}
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", ErrNamingAborted
	}
	return name, nil
}

func (c *Controller[E, A]) scopeFor(e E, o options) ScopeRef {
	ref := ScopeRef{Kind: c.kind.Name, Parent: o.parent, Context: o.context}
	if c.kind.Scope != nil {
		s := c.kind.Scope(e)
		if ref.Parent == "" {
			ref.Parent = s.Parent
		}
		if ref.Context == "" {
			ref.Context = s.Context
		}
	}
	return ref
}

func (c *Controller[E, A]) resolveScope(ctx context.Context, ref ScopeRef) {
	if c.scope == nil {
		return
	}
	err := c.run(ctx, c.meta("scope", ref.Context), func(ctx context.Context) error {
		return c.scope.Resolve(ctx, ref)
	})
	if err != nil {
		c.logger("scope", ref.Context).Warn(ctx, "scope refresh failed", observe.Field{Key: "error", Value: err.Error()})
	}
}

func (c *Controller[E, A]) ownedByCurrent(e E) bool {
	owner := e.EntityOwner()
	return owner == "" || owner == c.identity.Current().Owner()
}

func (c *Controller[E, A]) clone(e E) (E, error) {
	var out E
	data, err := c.codec.Marshal(e)
	if err != nil {
		return out, fmt.Errorf("drafts: encode %s: %w", c.kind.Name, err)
	}
	if err := c.codec.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("drafts: decode %s: %w", c.kind.Name, err)
	}
	return out, nil
}

func (c *Controller[E, A]) copyOf(e E) E {
	out, err := c.clone(e)
	if err != nil {
		return e
	}
	return out
}

func (c *Controller[E, A]) meta(op, id string) observe.OpMeta {
	return observe.OpMeta{
		Kind:      c.kind.Name,
		Operation: op,
		EntityID:  id,
		Owner:     c.identity.Current().Owner(),
	}
}

// run instruments fn and hands the current identity to collaborators.
func (c *Controller[E, A]) run(ctx context.Context, meta observe.OpMeta, fn func(ctx context.Context) error) error {
	return c.mw.Run(auth.WithIdentity(ctx, c.identity.Current()), meta, fn)
}

func (c *Controller[E, A]) logger(op, id string) observe.Logger {
	return c.mw.Logger().WithOperation(c.meta(op, id))
}

// patchField replaces one top-level JSON field of e.
func patchField[E any](codec keyed.Codec, e E, field string, value any) (E, error) {
	var out E
	if strings.TrimSpace(field) == "" {
		return out, fmt.Errorf("%w: empty name", ErrUnknownField)
	}

	fields, err := toFields(codec, e)
	if err != nil {
		return out, err
	}
	_, known := fields[field]
	fields[field] = value

	data, err := codec.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("drafts: patch %s: %w", field, err)
	}
	if err := codec.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("drafts: patch %s: %w", field, err)
	}
	if !known {
		after, err := toFields(codec, out)
		if err != nil {
			return out, err
		}
		if _, ok := after[field]; !ok {
			return out, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}
	return out, nil
}

// rebaseEdits applies the top-level fields that differ between base and
// edited onto onto.
func rebaseEdits[E any](codec keyed.Codec, base, edited, onto E) (E, error) {
	var out E
	from, err := toFields(codec, base)
	if err != nil {
		return out, err
	}
	to, err := toFields(codec, edited)
	if err != nil {
		return out, err
	}
	fields, err := toFields(codec, onto)
	if err != nil {
		return out, err
	}
	for k, v := range to {
		if old, ok := from[k]; !ok || !reflect.DeepEqual(old, v) {
			fields[k] = v
		}
	}
	data, err := codec.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("drafts: rebase: %w", err)
	}
	if err := codec.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("drafts: rebase: %w", err)
	}
	return out, nil
}

func toFields[E any](codec keyed.Codec, e E) (map[string]any, error) {
	data, err := codec.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("drafts: encode: %w", err)
	}
	var fields map[string]any
	if err := codec.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("drafts: decode: %w", err)
	}
	if fields == nil {
		fields = make(map[string]any)
	}
	return fields, nil
}

func auxiliary[A any](o options) (*A, error) {
	if !o.hasAux || o.aux == nil {
		return nil, nil
	}
	a, ok := o.aux.(*A)
	if !ok {
		return nil, fmt.Errorf("drafts: auxiliary has type %T, want %T", o.aux, (*A)(nil))
	}
	return a, nil
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, ErrCancelled) ||
		(ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)))
}
