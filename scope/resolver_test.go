package scope

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/draftops/drafts"
	"github.com/jonwraymond/draftops/entity"
)

// contextStore serves fixed contexts and counts lookups. A non-nil gate
// blocks FindByID until it is closed.
type contextStore struct {
	items map[string]entity.Context
	err   error
	gate  chan struct{}
	finds atomic.Int32
}

func (s *contextStore) FindByID(ctx context.Context, id string) (entity.Context, error) {
	s.finds.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return entity.Context{}, ctx.Err()
		}
	}
	if s.err != nil {
		return entity.Context{}, s.err
	}
	c, ok := s.items[id]
	if !ok {
		return entity.Context{}, drafts.ErrNotFound
	}
	return c, nil
}

func (s *contextStore) InsertOrUpdate(_ context.Context, c entity.Context) (entity.Context, error) {
	return c, nil
}

func (s *contextStore) ListAllForOwner(context.Context) ([]entity.Context, error) {
	return nil, nil
}

type collectionStore struct {
	items map[string]entity.Collection
}

func (s *collectionStore) FindByID(_ context.Context, id string) (entity.Collection, error) {
	c, ok := s.items[id]
	if !ok {
		return entity.Collection{}, drafts.ErrNotFound
	}
	return c, nil
}

func (s *collectionStore) InsertOrUpdate(_ context.Context, c entity.Collection) (entity.Collection, error) {
	return c, nil
}

func (s *collectionStore) ListAllForOwner(context.Context) ([]entity.Collection, error) {
	return nil, nil
}

func prod() entity.Context {
	return entity.Context{
		ID:   "ctx-prod",
		Name: "prod",
		Variables: []entity.Row{
			{Key: "host", Value: "api.example.com", Active: true},
			{Key: "token", Value: "plain", Active: true},
			{Key: "old", Value: "x", Active: false},
		},
		Secrets: []entity.Row{
			{Key: "token", Value: "s3cret", Active: true},
		},
	}
}

func newTestResolver(t *testing.T, contexts *contextStore) *Resolver {
	t.Helper()
	r, err := NewResolver(contexts, &collectionStore{items: map[string]entity.Collection{
		"col-1": {ID: "col-1", Name: "users", Context: "ctx-prod"},
		"col-2": {ID: "col-2", Name: "bare"},
	}})
	require.NoError(t, err)
	return r
}

func TestNewResolver_RequiresContexts(t *testing.T) {
	_, err := NewResolver(nil, nil)
	require.ErrorIs(t, err, ErrNoContexts)
}

func TestResolver_DirectContext(t *testing.T) {
	r := newTestResolver(t, &contextStore{items: map[string]entity.Context{"ctx-prod": prod()}})

	ref := drafts.ScopeRef{Kind: "request", Context: "ctx-prod"}
	require.NoError(t, r.Resolve(context.Background(), ref))

	c, ok := r.Active("request")
	require.True(t, ok)
	assert.Equal(t, "prod", c.Name)
	assert.Equal(t, ref, r.Ref("request"))
	assert.Equal(t, map[string]string{"host": "api.example.com", "token": "s3cret"}, r.Variables("request"))

	_, ok = r.Active("collection")
	assert.False(t, ok)
	assert.Empty(t, r.Variables("collection"))
}

func TestResolver_ThroughParent(t *testing.T) {
	r := newTestResolver(t, &contextStore{items: map[string]entity.Context{"ctx-prod": prod()}})

	require.NoError(t, r.Resolve(context.Background(), drafts.ScopeRef{Kind: "request", Parent: "col-1"}))
	c, ok := r.Active("request")
	require.True(t, ok)
	assert.Equal(t, "ctx-prod", c.ID)
}

func TestResolver_ClearsScope(t *testing.T) {
	r := newTestResolver(t, &contextStore{items: map[string]entity.Context{"ctx-prod": prod()}})
	ctx := context.Background()

	require.NoError(t, r.Resolve(ctx, drafts.ScopeRef{Kind: "request", Context: "ctx-prod"}))

	tests := []struct {
		name string
		ref  drafts.ScopeRef
	}{
		{"no reference", drafts.ScopeRef{Kind: "request"}},
		{"parent without context", drafts.ScopeRef{Kind: "request", Parent: "col-2"}},
		{"missing parent", drafts.ScopeRef{Kind: "request", Parent: "gone"}},
		{"missing context", drafts.ScopeRef{Kind: "request", Context: "gone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, r.Resolve(ctx, drafts.ScopeRef{Kind: "request", Context: "ctx-prod"}))
			require.NoError(t, r.Resolve(ctx, tt.ref))
			_, ok := r.Active("request")
			assert.False(t, ok)
		})
	}
}

func TestResolver_LoadFailure(t *testing.T) {
	boom := errors.New("unavailable")
	store := &contextStore{items: map[string]entity.Context{"ctx-prod": prod()}}
	r := newTestResolver(t, store)
	ctx := context.Background()

	require.NoError(t, r.Resolve(ctx, drafts.ScopeRef{Kind: "request", Context: "ctx-prod"}))
	store.err = boom

	err := r.Resolve(ctx, drafts.ScopeRef{Kind: "request", Context: "ctx-prod"})
	require.ErrorIs(t, err, boom)
	_, ok := r.Active("request")
	assert.False(t, ok)
}

func TestResolver_DeduplicatesConcurrentLoads(t *testing.T) {
	store := &contextStore{
		items: map[string]entity.Context{"ctx-prod": prod()},
		gate:  make(chan struct{}),
	}
	r := newTestResolver(t, store)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Resolve(context.Background(), drafts.ScopeRef{Kind: "request", Context: "ctx-prod"})
		}()
	}

	require.Eventually(t, func() bool { return store.finds.Load() >= 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(store.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, store.finds.Load())
}

func TestResolver_Invalidate(t *testing.T) {
	r := newTestResolver(t, &contextStore{items: map[string]entity.Context{"ctx-prod": prod()}})
	ctx := context.Background()

	require.NoError(t, r.Resolve(ctx, drafts.ScopeRef{Kind: "request", Context: "ctx-prod"}))
	require.NoError(t, r.Resolve(ctx, drafts.ScopeRef{Kind: "collection", Context: "ctx-prod"}))

	r.Invalidate("ctx-prod")
	_, ok := r.Active("request")
	assert.False(t, ok)
	_, ok = r.Active("collection")
	assert.False(t, ok)
}
