package drafts

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/draftops/auth"
	"github.com/jonwraymond/draftops/keyed"
)

type note struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Owner      string   `json:"owner"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags"`
	Focus      int      `json:"focus"`
	Collection string   `json:"collection"`
	Context    string   `json:"context"`
}

func (n note) EntityID() string    { return n.ID }
func (n note) EntityName() string  { return n.Name }
func (n note) EntityOwner() string { return n.Owner }

type result struct {
	Status int `json:"status"`
}

func canonNote(n note) any {
	n.Focus = 0
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n
}

func noteKind() Kind[note] {
	return Kind[note]{
		Name:         "note",
		Noun:         "note",
		Canonicalize: canonNote,
		New: func(owner string) note {
			return note{Owner: owner, Tags: []string{}}
		},
		Rename: func(n note, name string) note {
			n.Name = name
			return n
		},
		Scope: func(n note) ScopeRef {
			return ScopeRef{Parent: n.Collection, Context: n.Context}
		},
	}
}

// fakeStore is an in-memory EntityStore with failure injection.
type fakeStore struct {
	mu      sync.Mutex
	items   map[string]note
	seq     int
	finds   int
	saves   int
	findErr error
	saveErr error
	gate    chan struct{}
	onSave  func(note)
}

func newFakeStore(items ...note) *fakeStore {
	s := &fakeStore{items: make(map[string]note)}
	for _, n := range items {
		s.items[n.ID] = n
	}
	return s
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (note, error) {
	s.mu.Lock()
	s.finds++
	gate, err := s.gate, s.findErr
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return note{}, ctx.Err()
		}
	}
	if err != nil {
		return note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return note{}, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	return n, nil
}

func (s *fakeStore) InsertOrUpdate(_ context.Context, n note) (note, error) {
	if s.onSave != nil {
		s.onSave(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return note{}, s.saveErr
	}
	if n.ID == "" {
		s.seq++
		n.ID = fmt.Sprintf("n%d", s.seq)
	}
	s.items[n.ID] = n
	return n, nil
}

func (s *fakeStore) ListAllForOwner(ctx context.Context) ([]note, error) {
	owner := auth.IdentityFromContext(ctx).Owner()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []note
	for _, n := range s.items {
		if n.Owner == owner {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeStore) put(n note) {
	s.mu.Lock()
	s.items[n.ID] = n
	s.mu.Unlock()
}

func (s *fakeStore) findCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds
}

// countingIdentity is a static identity that counts revalidations.
type countingIdentity struct {
	*auth.StaticProvider
	mu          sync.Mutex
	revalidated int
}

func (c *countingIdentity) Revalidate(ctx context.Context) error {
	c.mu.Lock()
	c.revalidated++
	c.mu.Unlock()
	return c.StaticProvider.Revalidate(ctx)
}

func (c *countingIdentity) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revalidated
}

type recorder struct {
	mu      sync.Mutex
	events  []Event
	notices []Notice
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}
	}
	return r.events[len(r.events)-1]
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Message
	}
	return out
}

type fixture struct {
	ctrl     *Controller[note, result]
	cache    *keyed.MemoryStore
	store    *fakeStore
	identity *countingIdentity
	rec      *recorder
}

func alice() *auth.Identity {
	return &auth.Identity{Principal: "alice", Method: auth.AuthMethodStatic}
}

func newFixture(t *testing.T, store *fakeStore, mod ...func(*Deps[note])) *fixture {
	t.Helper()
	f := &fixture{
		cache:    keyed.NewMemoryStore(),
		store:    store,
		identity: &countingIdentity{StaticProvider: auth.NewStaticProvider(alice(), nil)},
		rec:      &recorder{},
	}
	deps := Deps[note]{
		Cache:    f.cache,
		Store:    store,
		Identity: f.identity,
		Sink:     f.rec,
		Prompt: PromptFunc(func(_ context.Context, _, suggested string) (string, bool, error) {
			return "named", true, nil
		}),
	}
	for _, m := range mod {
		m(&deps)
	}
	ctrl, err := NewController[note, result](noteKind(), deps)
	require.NoError(t, err)
	ctrl.Subscribe(f.rec.record)
	f.ctrl = ctrl
	return f
}
