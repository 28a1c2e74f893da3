package auth

import (
	"context"
	"fmt"
	"sync"
)

// Notifier receives identity changes. session.Coordinator implements it.
type Notifier interface {
	Notify(ctx context.Context, next, prev *Identity) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, next, prev *Identity) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, next, prev *Identity) error {
	return f(ctx, next, prev)
}

// IdentityProvider exposes the current user and re-checks it on demand.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: Revalidate must honor cancellation/deadlines.
//   - Notification: a change of owner is delivered to the Notifier exactly once.
//   - Reentrancy: Revalidate must not be called from inside a Notifier callback.
type IdentityProvider interface {
	// Current returns the current identity. Never nil.
	Current() *Identity

	// Revalidate re-reads the identity and notifies on change.
	Revalidate(ctx context.Context) error
}

// TokenSource returns the current raw token. An empty token means signed out.
type TokenSource func(ctx context.Context) (string, error)

// TokenProvider derives the identity from a token source via a JWT
// authenticator.
type TokenProvider struct {
	source   TokenSource
	authn    *JWTAuthenticator
	notifier Notifier

	mu      sync.Mutex
	current *Identity
}

// NewTokenProvider creates a provider that starts out anonymous. Call
// Revalidate once to resolve the initial identity.
func NewTokenProvider(source TokenSource, authn *JWTAuthenticator, notifier Notifier) *TokenProvider {
	return &TokenProvider{
		source:   source,
		authn:    authn,
		notifier: notifier,
		current:  AnonymousIdentity(),
	}
}

// SetNotifier replaces the notifier.
func (p *TokenProvider) SetNotifier(n Notifier) {
	p.mu.Lock()
	p.notifier = n
	p.mu.Unlock()
}

// Current returns the current identity.
func (p *TokenProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Revalidate re-reads the token and notifies only when the owner changed.
// An invalid or missing token signs the user out.
func (p *TokenProvider) Revalidate(ctx context.Context) error {
	return p.resolve(ctx, false)
}

// Refresh re-reads the token and always notifies, so subscribers can re-sync
// even when the owner is unchanged.
func (p *TokenProvider) Refresh(ctx context.Context) error {
	return p.resolve(ctx, true)
}

func (p *TokenProvider) resolve(ctx context.Context, force bool) error {
	if p.source == nil {
		return ErrNoTokenSource
	}

	token, err := p.source(ctx)
	if err != nil {
		return fmt.Errorf("auth: read token: %w", err)
	}

	next := AnonymousIdentity()
	if token != "" {
		result, err := p.authn.AuthenticateToken(ctx, token)
		if err != nil {
			return fmt.Errorf("auth: authenticate: %w", err)
		}
		if result.Authenticated && result.Identity.Principal != "" {
			next = result.Identity
		}
	}

	p.mu.Lock()
	prev := p.current
	p.current = next
	notifier := p.notifier
	p.mu.Unlock()

	if notifier == nil || (!force && SameUser(next, prev)) {
		return nil
	}
	return notifier.Notify(ctx, next, prev)
}

// StaticProvider is an IdentityProvider whose identity is set explicitly,
// for hosts that authenticate elsewhere.
type StaticProvider struct {
	notifier Notifier

	mu      sync.Mutex
	current *Identity
}

// NewStaticProvider creates a provider holding id (nil means anonymous).
func NewStaticProvider(id *Identity, notifier Notifier) *StaticProvider {
	if id == nil {
		id = AnonymousIdentity()
	}
	return &StaticProvider{current: id, notifier: notifier}
}

// SetNotifier replaces the notifier.
func (p *StaticProvider) SetNotifier(n Notifier) {
	p.mu.Lock()
	p.notifier = n
	p.mu.Unlock()
}

// Current returns the current identity.
func (p *StaticProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Revalidate signs the user out once the identity has expired. Otherwise
// the identity only changes through Set.
func (p *StaticProvider) Revalidate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.Current().IsExpired() {
		return nil
	}
	return p.Set(ctx, nil)
}

// Set switches to id and notifies when the owner changed.
func (p *StaticProvider) Set(ctx context.Context, id *Identity) error {
	if id == nil {
		id = AnonymousIdentity()
	}

	p.mu.Lock()
	prev := p.current
	p.current = id
	notifier := p.notifier
	p.mu.Unlock()

	if notifier == nil || SameUser(id, prev) {
		return nil
	}
	return notifier.Notify(ctx, id, prev)
}

var (
	_ IdentityProvider = (*TokenProvider)(nil)
	_ IdentityProvider = (*StaticProvider)(nil)
)
