package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/draftops/auth"
)

func TestCoordinator_NotifyInRegistrationOrder(t *testing.T) {
	c := NewCoordinator()
	var calls []string

	for _, key := range []string{"request", "context", "collection", "endpoint"} {
		key := key
		require.NoError(t, c.Register(key, func(context.Context, *auth.Identity, *auth.Identity) error {
			calls = append(calls, key)
			return nil
		}))
	}

	require.NoError(t, c.Notify(context.Background(), &auth.Identity{Principal: "bob"}, &auth.Identity{Principal: "alice"}))
	assert.Equal(t, []string{"request", "context", "collection", "endpoint"}, calls)
}

func TestCoordinator_RegisterReplacesInPlace(t *testing.T) {
	c := NewCoordinator()
	var calls []string
	record := func(tag string) Callback {
		return func(context.Context, *auth.Identity, *auth.Identity) error {
			calls = append(calls, tag)
			return nil
		}
	}

	require.NoError(t, c.Register("a", record("a1")))
	require.NoError(t, c.Register("b", record("b")))
	require.NoError(t, c.Register("a", record("a2")))

	assert.Equal(t, []string{"a", "b"}, c.Keys())
	require.NoError(t, c.Notify(context.Background(), nil, nil))
	assert.Equal(t, []string{"a2", "b"}, calls)
}

func TestCoordinator_Unregister(t *testing.T) {
	c := NewCoordinator()
	called := false
	require.NoError(t, c.Register("a", func(context.Context, *auth.Identity, *auth.Identity) error {
		called = true
		return nil
	}))

	c.Unregister("a")
	c.Unregister("missing")
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.Notify(context.Background(), nil, nil))
	assert.False(t, called)
}

func TestCoordinator_RegisterValidation(t *testing.T) {
	c := NewCoordinator()
	assert.ErrorIs(t, c.Register("  ", func(context.Context, *auth.Identity, *auth.Identity) error { return nil }), ErrInvalidKey)
	assert.ErrorIs(t, c.Register("a", nil), ErrNilCallback)
}

func TestCoordinator_AllCallbacksRunAndErrorsJoin(t *testing.T) {
	c := NewCoordinator()
	errA := errors.New("a failed")
	errC := errors.New("c failed")
	ran := 0

	require.NoError(t, c.Register("a", func(context.Context, *auth.Identity, *auth.Identity) error { ran++; return errA }))
	require.NoError(t, c.Register("b", func(context.Context, *auth.Identity, *auth.Identity) error { ran++; return nil }))
	require.NoError(t, c.Register("c", func(context.Context, *auth.Identity, *auth.Identity) error { ran++; return errC }))

	err := c.Notify(context.Background(), nil, nil)
	assert.Equal(t, 3, ran)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)
}

func TestCoordinator_NilIdentitiesAreAnonymous(t *testing.T) {
	c := NewCoordinator()
	require.NoError(t, c.Register("a", func(_ context.Context, next, prev *auth.Identity) error {
		require.NotNil(t, next)
		require.NotNil(t, prev)
		assert.True(t, next.IsAnonymous())
		assert.True(t, prev.IsAnonymous())
		return nil
	}))
	require.NoError(t, c.Notify(context.Background(), nil, nil))
}

func TestCoordinator_CallbackMayUnregister(t *testing.T) {
	c := NewCoordinator()
	require.NoError(t, c.Register("once", func(context.Context, *auth.Identity, *auth.Identity) error {
		c.Unregister("once")
		return nil
	}))

	require.NoError(t, c.Notify(context.Background(), nil, nil))
	assert.Equal(t, 0, c.Len())
}

func TestCoordinator_DrivenByStaticProvider(t *testing.T) {
	c := NewCoordinator()
	var got []string
	require.NoError(t, c.Register("a", func(_ context.Context, next, prev *auth.Identity) error {
		got = append(got, prev.Owner()+"->"+next.Owner())
		return nil
	}))

	p := auth.NewStaticProvider(nil, c)
	require.NoError(t, p.Set(context.Background(), &auth.Identity{Principal: "alice", Method: auth.AuthMethodStatic}))
	assert.Equal(t, []string{"anonymous->alice"}, got)
}
