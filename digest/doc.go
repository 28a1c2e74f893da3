// Package digest decides whether an entity's working copy has diverged from
// its baseline.
//
// A Hasher reduces an entity to a canonical form (kind-specific volatile
// fields removed, map keys sorted) and digests it with SHA-256. A Tracker
// keeps the baseline digest for the entity currently being edited.
package digest
