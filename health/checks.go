package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/draftops/drafts"
	"github.com/jonwraymond/draftops/keyed"
	"github.com/jonwraymond/draftops/resilience"
)

// StoreChecker reports whether an entity store answers by listing the
// entities of the identity in ctx.
func StoreChecker[E drafts.Entity](name string, s drafts.EntityStore[E]) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		list, err := s.ListAllForOwner(ctx)
		if err != nil {
			return Unhealthy(fmt.Sprintf("store unreachable: %v", err), err)
		}
		return Healthy("store reachable").WithDetails(map[string]any{"entities": len(list)})
	})
}

// PersisterChecker reports whether the saved drafts can be read back.
func PersisterChecker(name string, p keyed.Persister) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		snap, ok, err := p.Load(ctx)
		if err != nil {
			return Unhealthy(fmt.Sprintf("drafts unreadable: %v", err), err)
		}
		if !ok {
			return Healthy("no saved drafts")
		}
		return Healthy("saved drafts readable").WithDetails(map[string]any{"owner": snap.Owner})
	})
}

// BreakerChecker maps the state of a circuit breaker: open is unhealthy,
// half-open is degraded.
func BreakerChecker(name string, cb *resilience.CircuitBreaker) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		m := cb.Metrics()
		details := map[string]any{
			"state":                m.State.String(),
			"consecutive_failures": m.ConsecutiveFailures,
		}
		switch m.State {
		case resilience.StateOpen:
			return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
		case resilience.StateHalfOpen:
			return Degraded("circuit half-open").WithDetails(details)
		default:
			return Healthy("circuit closed").WithDetails(details)
		}
	})
}
