// Package keyed provides the category-partitioned key/value store shared by
// every draft controller.
//
// Values are opaque encoded bytes. Each category keeps its own insertion
// order, has no eviction policy and disappears once its last key is removed.
// Typed access goes through a Codec (Put, Get, Take, Find, All), and the whole
// store can be captured as a Snapshot and written through a Persister so
// unsaved drafts survive a restart.
package keyed
