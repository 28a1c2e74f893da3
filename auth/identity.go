package auth

import "time"

// AuthMethod indicates how authentication was performed.
type AuthMethod string

const (
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodStatic    AuthMethod = "static"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// AnonymousPrincipal is the principal of the signed-out user.
const AnonymousPrincipal = "anonymous"

// Identity represents an authenticated principal. Drafts are owned by the
// Principal of the identity that created them.
type Identity struct {
	// Principal is the unique identifier (e.g., user ID, email).
	Principal string

	// TenantID is the tenant this identity belongs to (multi-tenancy).
	TenantID string

	// Name is a display name, if the token carries one.
	Name string

	// Roles are the roles assigned to this identity.
	Roles []string

	// Method indicates how authentication was performed.
	Method AuthMethod

	// Claims contains the raw claims from the token.
	Claims map[string]any

	// ExpiresAt is when this identity expires.
	ExpiresAt time.Time

	// IssuedAt is when this identity was created.
	IssuedAt time.Time
}

// IsExpired checks if the identity has expired.
func (id *Identity) IsExpired() bool {
	if id == nil || id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

// IsAnonymous returns true if this is an anonymous identity.
func (id *Identity) IsAnonymous() bool {
	return id == nil || id.Method == AuthMethodAnonymous || id.Principal == "" || id.Principal == AnonymousPrincipal
}

// Owner returns the owner key used to tag drafts. Anonymous identities share
// the AnonymousPrincipal owner.
func (id *Identity) Owner() string {
	if id.IsAnonymous() {
		return AnonymousPrincipal
	}
	if id.TenantID != "" {
		return id.TenantID + "/" + id.Principal
	}
	return id.Principal
}

// AnonymousIdentity creates a default anonymous identity.
func AnonymousIdentity() *Identity {
	return &Identity{
		Principal: AnonymousPrincipal,
		Method:    AuthMethodAnonymous,
		Claims:    make(map[string]any),
	}
}

// SameUser reports whether a and b name the same owner. nil is anonymous.
func SameUser(a, b *Identity) bool {
	return a.Owner() == b.Owner()
}
