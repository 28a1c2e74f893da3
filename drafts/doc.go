// Package drafts keeps in-memory working copies of server-owned entities.
//
// A Controller tracks one focused entity per kind (request, context,
// collection, end-point). Edits go to the working copy; once it diverges
// from the last server-agreed backup the draft is parked in a shared
// keyed.Store so it survives focus changes, and is removed again when the
// edit is reverted, discarded, or released to the server.
//
// Network-bound operations (Fetch, Release, Execute) run without the
// controller lock held. A Guard tracks the one outstanding fetch or execute
// per controller; a newer focus change cancels it and its late result is
// dropped.
//
// Controllers attach to a session.Coordinator so that a change of user
// clears every draft the previous user left behind.
package drafts
