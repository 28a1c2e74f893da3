package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwksServer serves the public halves of keys by kid. It fails with 500
// while down is set.
type jwksServer struct {
	*httptest.Server
	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	fetches atomic.Int32
	down    atomic.Bool
}

func newJWKSServer(t *testing.T) *jwksServer {
	t.Helper()
	s := &jwksServer{keys: make(map[string]*rsa.PublicKey)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		if s.down.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		var set struct {
			Keys []map[string]string `json:"keys"`
		}
		for kid, pub := range s.keys {
			set.Keys = append(set.Keys, map[string]string{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			})
		}
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) add(t *testing.T, kid string) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	s.mu.Lock()
	s.keys[kid] = &key.PublicKey
	s.mu.Unlock()
	return key
}

func TestJWKSKeyProvider_CachesKeys(t *testing.T) {
	srv := newJWKSServer(t)
	priv := srv.add(t, "k1")
	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL})

	for i := 0; i < 3; i++ {
		key, err := p.GetKey(context.Background(), "k1")
		if err != nil {
			t.Fatalf("GetKey() error = %v", err)
		}
		pub, ok := key.(*rsa.PublicKey)
		if !ok || pub.N.Cmp(priv.N) != 0 || pub.E != priv.E {
			t.Fatalf("GetKey() = %v, want the published key", key)
		}
	}
	if got := srv.fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}

	// A single key also matches an empty kid.
	if _, err := p.GetKey(context.Background(), ""); err != nil {
		t.Errorf("GetKey(\"\") error = %v", err)
	}
}

func TestJWKSKeyProvider_UnknownKidRefreshes(t *testing.T) {
	srv := newJWKSServer(t)
	srv.add(t, "k1")
	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL})

	if _, err := p.GetKey(context.Background(), "k1"); err != nil {
		t.Fatalf("GetKey(k1) error = %v", err)
	}
	srv.add(t, "k2")
	if _, err := p.GetKey(context.Background(), "k2"); err != nil {
		t.Fatalf("GetKey(k2) error = %v", err)
	}
	if got := srv.fetches.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2", got)
	}

	_, err := p.GetKey(context.Background(), "missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("GetKey(missing) error = %v, want ErrKeyNotFound", err)
	}

	// Two keys make an empty kid ambiguous.
	if _, err := p.GetKey(context.Background(), ""); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("GetKey(\"\") error = %v, want ErrKeyNotFound", err)
	}
}

func TestJWKSKeyProvider_KeepsKeysWhenServerFails(t *testing.T) {
	srv := newJWKSServer(t)
	srv.add(t, "k1")
	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL, CacheTTL: time.Millisecond})

	if _, err := p.GetKey(context.Background(), "k1"); err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	srv.down.Store(true)
	time.Sleep(5 * time.Millisecond)

	if _, err := p.GetKey(context.Background(), "k1"); err != nil {
		t.Errorf("GetKey() after failure error = %v, want cached key", err)
	}
	if _, err := p.GetKey(context.Background(), "k2"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("GetKey(k2) error = %v, want ErrKeyNotFound", err)
	}
}

func TestJWKSKeyProvider_VerifiesTokens(t *testing.T) {
	srv := newJWKSServer(t)
	priv := srv.add(t, "k1")
	authn := NewJWTAuthenticator(JWTConfig{Issuer: "drafts"}, NewJWKSKeyProvider(JWKSConfig{URL: srv.URL}))

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "alice",
		"iss": "drafts",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(priv)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	res, err := authn.AuthenticateToken(context.Background(), signed)
	if err != nil {
		t.Fatalf("AuthenticateToken() error = %v", err)
	}
	if !res.Authenticated || res.Identity.Owner() != "alice" {
		t.Errorf("result = %+v, want alice", res)
	}
}
