// Package entity defines the server-owned entities edited through drafts:
// requests, variable contexts, collections, and mock end-points.
//
// Every entity is a plain JSON-tagged value implementing drafts.Entity. Each
// kind has a drafts.Kind descriptor (RequestKind, ContextKind,
// CollectionKind, EndpointKind) whose canonicalizer strips the fields that
// change without content edits (focus markers, tree expansion, server
// timestamps) so they never make a draft dirty.
//
// Validate checks the struct tags of an entity before it is released.
package entity
