package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected iss claim. Empty accepts any issuer.
	Issuer string

	// Audience is the expected aud claim. Empty accepts any audience.
	Audience string

	// Methods restricts the accepted signing algorithms (e.g. "RS256").
	// Empty accepts any algorithm matching the key type.
	Methods []string

	// Leeway tolerates clock skew when checking exp, nbf and iat.
	Leeway time.Duration

	// HeaderName is the header containing the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is the prefix before the token in the header.
	// Default: "Bearer "
	TokenPrefix string

	// PrincipalClaim holds the user principal, which owns drafts.
	// Default: "sub"
	PrincipalClaim string

	// TenantClaim holds the tenant ID.
	TenantClaim string

	// NameClaim holds the display name.
	// Default: "name"
	NameClaim string

	// RolesClaim holds the user roles.
	RolesClaim string
}

// KeyProvider retrieves signing keys for JWT validation.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: an unknown key id returns an error wrapping ErrKeyNotFound.
type KeyProvider interface {
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider serves one HMAC secret for every key id.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	if len(p.key) == 0 {
		return nil, ErrKeyNotFound
	}
	return p.key, nil
}

// JWTAuthenticator turns bearer tokens into identities.
type JWTAuthenticator struct {
	config      JWTConfig
	keyProvider KeyProvider
	parser      *jwt.Parser
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keyProvider KeyProvider) *JWTAuthenticator {
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	if config.NameClaim == "" {
		config.NameClaim = "name"
	}

	opts := []jwt.ParserOption{jwt.WithIssuedAt()}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	if len(config.Methods) > 0 {
		opts = append(opts, jwt.WithValidMethods(config.Methods))
	}
	if config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(config.Leeway))
	}

	return &JWTAuthenticator{
		config:      config,
		keyProvider: keyProvider,
		parser:      jwt.NewParser(opts...),
	}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Config returns the effective configuration.
func (a *JWTAuthenticator) Config() JWTConfig {
	return a.config
}

// Authenticate validates the JWT token carried in the configured header.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	header := req.GetHeader(a.config.HeaderName)
	token, found := strings.CutPrefix(header, a.config.TokenPrefix)
	if header == "" || !found {
		return AuthFailure(ErrMissingCredentials), nil
	}
	return a.AuthenticateToken(ctx, strings.TrimSpace(token))
}

// AuthenticateToken validates a raw token string. Rejections are reported
// in the result; the error return is reserved for infrastructure failures.
func (a *JWTAuthenticator) AuthenticateToken(ctx context.Context, raw string) (*AuthResult, error) {
	if raw == "" {
		return AuthFailure(ErrMissingCredentials), nil
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return a.keyProvider.GetKey(ctx, kid)
	})
	switch {
	case err == nil:
		return AuthSuccess(a.identity(claims)), nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return AuthFailure(ErrTokenExpired), nil
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return AuthFailure(ErrInvalidCredentials), nil
	default:
		return AuthFailure(ErrTokenMalformed), nil
	}
}

func (a *JWTAuthenticator) identity(claims jwt.MapClaims) *Identity {
	id := &Identity{
		Method:    AuthMethodJWT,
		Principal: stringClaim(claims, a.config.PrincipalClaim),
		Name:      stringClaim(claims, a.config.NameClaim),
		TenantID:  stringClaim(claims, a.config.TenantClaim),
		Roles:     listClaim(claims, a.config.RolesClaim),
		Claims:    make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		id.Claims[k] = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	return id
}

func stringClaim(claims jwt.MapClaims, name string) string {
	if name == "" {
		return ""
	}
	s, _ := claims[name].(string)
	return s
}

func listClaim(claims jwt.MapClaims, name string) []string {
	if name == "" {
		return nil
	}
	raw, ok := claims[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)
