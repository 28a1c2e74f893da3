package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
)

// ErrNilHasher is returned when a Tracker has no hasher.
var ErrNilHasher = errors.New("digest: hasher is nil")

// canonicalAPI keeps numbers as literals so large integers are not rounded
// through float64 before hashing.
var canonicalAPI = sonic.Config{
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// Canonicalizer returns the hashable view of an entity. Implementations
// remove fields that change without the user editing content, such as
// which row currently has focus.
type Canonicalizer[E any] func(E) any

// Hasher computes content digests for entities of one kind.
//
// Contract:
//   - Determinism: equal canonical content yields equal digests regardless of
//     map iteration order or key order in dynamic maps.
//   - Concurrency: safe for concurrent use.
type Hasher[E any] struct {
	canon Canonicalizer[E]
}

// NewHasher creates a hasher. A nil canonicalizer hashes the entity as is.
func NewHasher[E any](canon Canonicalizer[E]) *Hasher[E] {
	if canon == nil {
		canon = func(e E) any { return e }
	}
	return &Hasher[E]{canon: canon}
}

// Hash returns the hex SHA-256 of the canonical form of e.
func (h *Hasher[E]) Hash(e E) (string, error) {
	canonical, err := Canonical(h.canon(e))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// IsDirty reports whether current and backup differ in content.
func (h *Hasher[E]) IsDirty(current, backup E) (bool, error) {
	a, err := h.Hash(current)
	if err != nil {
		return false, err
	}
	b, err := h.Hash(backup)
	if err != nil {
		return false, err
	}
	return a != b, nil
}

// Canonical produces a deterministic JSON encoding of v. Structs are first
// reduced to generic maps so that nested dynamic maps and struct fields are
// ordered the same way.
func Canonical(v any) ([]byte, error) {
	raw, err := canonicalAPI.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("digest: failed to encode: %w", err)
	}

	var generic any
	if err := canonicalAPI.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("digest: failed to decode: %w", err)
	}
	return canonicalize(generic)
}

func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return canonicalAPI.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := canonicalAPI.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}
