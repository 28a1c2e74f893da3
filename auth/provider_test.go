package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type recordedChange struct {
	next, prev string
}

type recorder struct {
	changes []recordedChange
	err     error
}

func (r *recorder) Notify(_ context.Context, next, prev *Identity) error {
	r.changes = append(r.changes, recordedChange{next: next.Owner(), prev: prev.Owner()})
	return r.err
}

func tokenFor(t *testing.T, sub string) string {
	return signToken(t, jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()})
}

func TestTokenProvider_NotifiesOnlyOnChange(t *testing.T) {
	token := tokenFor(t, "alice")
	rec := &recorder{}
	p := NewTokenProvider(
		func(context.Context) (string, error) { return token, nil },
		NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider(testSecret)),
		rec,
	)

	if !p.Current().IsAnonymous() {
		t.Fatal("provider should start anonymous")
	}

	ctx := context.Background()
	if err := p.Revalidate(ctx); err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if p.Current().Principal != "alice" {
		t.Errorf("Current = %q, want alice", p.Current().Principal)
	}

	// Same user again: no notification
	_ = p.Revalidate(ctx)
	if len(rec.changes) != 1 {
		t.Fatalf("changes = %v, want exactly one", rec.changes)
	}
	if rec.changes[0] != (recordedChange{next: "alice", prev: AnonymousPrincipal}) {
		t.Errorf("change = %+v", rec.changes[0])
	}

	// A different principal behind the token
	token = tokenFor(t, "bob")
	_ = p.Revalidate(ctx)
	if len(rec.changes) != 2 || rec.changes[1] != (recordedChange{next: "bob", prev: "alice"}) {
		t.Errorf("changes = %v, want alice->bob", rec.changes)
	}
}

func TestTokenProvider_RefreshForcesNotification(t *testing.T) {
	token := tokenFor(t, "alice")
	rec := &recorder{}
	p := NewTokenProvider(
		func(context.Context) (string, error) { return token, nil },
		NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider(testSecret)),
		rec,
	)

	ctx := context.Background()
	_ = p.Revalidate(ctx)
	_ = p.Refresh(ctx)

	if len(rec.changes) != 2 {
		t.Fatalf("changes = %v, want two", rec.changes)
	}
	if rec.changes[1] != (recordedChange{next: "alice", prev: "alice"}) {
		t.Errorf("forced change = %+v, want alice->alice", rec.changes[1])
	}
}

func TestTokenProvider_InvalidTokenSignsOut(t *testing.T) {
	token := tokenFor(t, "alice")
	rec := &recorder{}
	p := NewTokenProvider(
		func(context.Context) (string, error) { return token, nil },
		NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider(testSecret)),
		rec,
	)
	ctx := context.Background()
	_ = p.Revalidate(ctx)

	token = "garbage"
	if err := p.Revalidate(ctx); err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if !p.Current().IsAnonymous() {
		t.Error("invalid token should sign the user out")
	}
	if len(rec.changes) != 2 || rec.changes[1].next != AnonymousPrincipal {
		t.Errorf("changes = %v, want sign-out notification", rec.changes)
	}
}

func TestTokenProvider_SourceError(t *testing.T) {
	boom := errors.New("keychain locked")
	p := NewTokenProvider(
		func(context.Context) (string, error) { return "", boom },
		NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider(testSecret)),
		nil,
	)
	if err := p.Revalidate(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Revalidate = %v, want wrapped source error", err)
	}

	if err := NewTokenProvider(nil, nil, nil).Revalidate(context.Background()); err != ErrNoTokenSource {
		t.Errorf("Revalidate with nil source = %v, want ErrNoTokenSource", err)
	}
}

func TestStaticProvider_Set(t *testing.T) {
	rec := &recorder{err: errors.New("subscriber failed")}
	p := NewStaticProvider(nil, rec)

	ctx := context.Background()
	err := p.Set(ctx, &Identity{Principal: "alice", Method: AuthMethodStatic})
	if err == nil {
		t.Error("Set should surface the notifier error")
	}
	if p.Current().Principal != "alice" {
		t.Errorf("Current = %q, want alice", p.Current().Principal)
	}

	rec.err = nil
	_ = p.Set(ctx, &Identity{Principal: "alice", Method: AuthMethodStatic})
	if len(rec.changes) != 1 {
		t.Errorf("changes = %v, re-setting the same user should not notify", rec.changes)
	}

	_ = p.Set(ctx, nil)
	if !p.Current().IsAnonymous() || len(rec.changes) != 2 {
		t.Errorf("Set(nil) should sign out and notify, changes = %v", rec.changes)
	}
	if err := p.Revalidate(ctx); err != nil {
		t.Errorf("Revalidate = %v", err)
	}
}

func TestStaticProvider_RevalidateSignsOutExpired(t *testing.T) {
	rec := &recorder{}
	p := NewStaticProvider(&Identity{
		Principal: "alice",
		Method:    AuthMethodStatic,
		ExpiresAt: time.Now().Add(-time.Minute),
	}, rec)

	if err := p.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate = %v", err)
	}
	if !p.Current().IsAnonymous() {
		t.Errorf("Current = %q, want anonymous", p.Current().Principal)
	}
	if len(rec.changes) != 1 {
		t.Errorf("changes = %v, want one sign-out notification", rec.changes)
	}
}

func TestNotifierFunc(t *testing.T) {
	called := false
	var n Notifier = NotifierFunc(func(context.Context, *Identity, *Identity) error {
		called = true
		return nil
	})
	_ = n.Notify(context.Background(), nil, nil)
	if !called {
		t.Error("NotifierFunc was not called")
	}
}
