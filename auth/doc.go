// Package auth resolves who the current user is.
//
// It provides the Identity type that owns drafts, a JWT authenticator with
// static or JWKS verification keys, and IdentityProvider implementations
// that detect identity changes (login, logout, a refreshed token revealing
// a different principal) and hand them to a Notifier such as
// session.Coordinator. BearerTransport authenticates outgoing entity store
// calls with the same token.
package auth
