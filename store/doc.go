// Package store provides drafts.EntityStore implementations.
//
// Memory is an in-process server double that assigns ids and timestamps
// and scopes listings to the identity carried by the context. HTTP talks
// to a REST server, one resource collection per entity kind. Resilient
// wraps either with retries and a circuit breaker.
//
// # Errors
//
// Every store reports a missing id with an error wrapping
// drafts.ErrNotFound and a write to a foreign entity with
// drafts.ErrOwnerMismatch. HTTP maps other non-2xx answers to *StatusError.
package store
