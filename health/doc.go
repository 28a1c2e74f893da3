// Package health reports whether the collaborators of a draft workspace
// are reachable.
//
// A Checker reports one component: an entity store, the draft persister,
// or the circuit breaker guarding a store. An Aggregator runs a set of
// checkers concurrently and folds their results into one Status, which a
// client shows as its connection indicator.
//
//	agg := health.NewAggregator()
//	agg.Register(health.StoreChecker("requests", requests))
//	agg.Register(health.PersisterChecker("drafts", persister))
//	agg.Register(health.BreakerChecker("requests-breaker", exec.CircuitBreaker()))
//
//	results := agg.CheckAll(ctx)
//	if agg.OverallStatus(results) != health.StatusHealthy {
//	    // show offline banner
//	}
package health
