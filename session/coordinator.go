package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jonwraymond/draftops/auth"
)

// Sentinel errors for registration.
var (
	ErrInvalidKey  = errors.New("session: key is invalid")
	ErrNilCallback = errors.New("session: callback is nil")
)

// Callback reacts to an identity change. next and prev are never nil; when
// auth.SameUser(next, prev) the notification is a forced re-sync.
type Callback func(ctx context.Context, next, prev *auth.Identity) error

// Coordinator is an ordered registry of named callbacks.
//
// Contract:
//   - Concurrency: safe for concurrent use; Notify calls run without the
//     registry lock held, so callbacks may register or unregister.
//   - Ordering: callbacks run sequentially in registration order.
//   - Errors: every callback runs; failures are joined.
type Coordinator struct {
	mu        sync.RWMutex
	keys      []string
	callbacks map[string]Callback
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{callbacks: make(map[string]Callback)}
}

// Register adds cb under key. Registering an existing key replaces its
// callback and keeps its position.
func (c *Coordinator) Register(key string, cb Callback) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidKey
	}
	if cb == nil {
		return ErrNilCallback
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.callbacks[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.callbacks[key] = cb
	return nil
}

// Unregister removes key. Unknown keys are ignored.
func (c *Coordinator) Unregister(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.callbacks[key]; !exists {
		return
	}
	delete(c.callbacks, key)
	c.keys = slices.DeleteFunc(c.keys, func(k string) bool { return k == key })
}

// Keys returns the registered keys in registration order.
func (c *Coordinator) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.keys)
}

// Len returns the number of registered callbacks.
func (c *Coordinator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Notify delivers an identity change to every callback. nil identities are
// treated as anonymous.
func (c *Coordinator) Notify(ctx context.Context, next, prev *auth.Identity) error {
	if next == nil {
		next = auth.AnonymousIdentity()
	}
	if prev == nil {
		prev = auth.AnonymousIdentity()
	}

	c.mu.RLock()
	keys := slices.Clone(c.keys)
	callbacks := make([]Callback, len(keys))
	for i, k := range keys {
		callbacks[i] = c.callbacks[k]
	}
	c.mu.RUnlock()

	var errs []error
	for i, cb := range callbacks {
		if err := cb(ctx, next, prev); err != nil {
			errs = append(errs, fmt.Errorf("session: %s: %w", keys[i], err))
		}
	}
	return errors.Join(errs...)
}

// Ensure Coordinator implements auth.Notifier
var _ auth.Notifier = (*Coordinator)(nil)
