// Package observe provides observability primitives for draft operations.
//
// It is a pure instrumentation library: tracing, metrics, and structured
// logging with no knowledge of drafts beyond OpMeta. Controllers wrap their
// network-bound operations with a Middleware built from an Observer.
package observe
