package store

import (
	"context"

	"github.com/jonwraymond/draftops/drafts"
	"github.com/jonwraymond/draftops/resilience"
)

// Resilient runs every call of an inner store through a resilience
// executor.
//
// Contract:
//   - Retries: only transient failures are retried; see Permanent. Creates
//     (entities without an id) are never retried, since a lost response
//     would otherwise produce duplicates.
//   - Breaker: while open, calls fail fast with resilience.ErrCircuitOpen,
//     which the drafts controller reports as a transport failure.
type Resilient[E drafts.Entity] struct {
	next drafts.EntityStore[E]
	exec *resilience.Executor
}

// NewResilient wraps next with exec.
func NewResilient[E drafts.Entity](next drafts.EntityStore[E], exec *resilience.Executor) *Resilient[E] {
	return &Resilient[E]{next: next, exec: exec}
}

// WithDefaults wraps next with the standard executor for cfg, classifying
// errors with Permanent.
func WithDefaults[E drafts.Entity](name string, next drafts.EntityStore[E], cfg resilience.Config) *Resilient[E] {
	return NewResilient(next, resilience.New(name, cfg, Permanent))
}

// Executor returns the wrapped executor.
func (r *Resilient[E]) Executor() *resilience.Executor {
	return r.exec
}

// FindByID loads the entity with id, retrying transient failures.
func (r *Resilient[E]) FindByID(ctx context.Context, id string) (E, error) {
	var out E
	err := r.exec.Execute(ctx, func(ctx context.Context) error {
		e, err := r.next.FindByID(ctx, id)
		if err == nil {
			out = e
		}
		return err
	})
	return out, err
}

// InsertOrUpdate saves e. Updates are retried like reads; a create is
// attempted once.
func (r *Resilient[E]) InsertOrUpdate(ctx context.Context, e E) (E, error) {
	run := r.exec.Execute
	if e.EntityID() == "" {
		run = r.exec.ExecuteOnce
	}
	var out E
	err := run(ctx, func(ctx context.Context) error {
		saved, err := r.next.InsertOrUpdate(ctx, e)
		if err == nil {
			out = saved
		}
		return err
	})
	return out, err
}

// ListAllForOwner lists the entities of the identity carried by ctx,
// retrying transient failures.
func (r *Resilient[E]) ListAllForOwner(ctx context.Context) ([]E, error) {
	var out []E
	err := r.exec.Execute(ctx, func(ctx context.Context) error {
		list, err := r.next.ListAllForOwner(ctx)
		if err == nil {
			out = list
		}
		return err
	})
	return out, err
}
