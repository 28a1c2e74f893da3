package keyed

import (
	"errors"
	"strings"
)

// MaxCategoryLength is the maximum allowed length for a category name.
const MaxCategoryLength = 256

// Sentinel errors for store operations.
var (
	ErrNilStore            = errors.New("keyed: store is nil")
	ErrInvalidCategory     = errors.New("keyed: category is invalid")
	ErrCategoryTooLong     = errors.New("keyed: category exceeds max length")
	ErrUnsupportedSnapshot = errors.New("keyed: unsupported snapshot version")
)

// Store is a category-partitioned key/value store.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Visibility: every mutation is visible to the next call; nothing is buffered.
//   - Lifetime: entries never expire on their own; only Remove and Excise delete.
//   - Ownership: returned byte slices belong to the caller.
type Store interface {
	// Insert upserts value at key and returns the stored value.
	Insert(category, key string, value []byte) []byte

	// Search returns the value at key. Returns (nil, false) on miss.
	Search(category, key string) ([]byte, bool)

	// Locate returns the first value in insertion order accepted by match.
	Locate(category string, match func(key string, value []byte) bool) ([]byte, bool)

	// Exists reports whether any entry in category is accepted by match.
	Exists(category string, match func(key string, value []byte) bool) bool

	// Remove deletes key and returns its prior value. Removing the last key
	// of a category removes the category.
	Remove(category, key string) ([]byte, bool)

	// Gather returns a snapshot of every value in category.
	Gather(category string) [][]byte

	// Excise removes every key in category.
	Excise(category string)

	// Length returns the number of keys in category.
	Length(category string) int

	// Categories returns the names of all non-empty categories.
	Categories() []string
}

// ValidateCategory checks if a category name is usable.
func ValidateCategory(category string) error {
	if category == "" || strings.TrimSpace(category) == "" {
		return ErrInvalidCategory
	}
	if len(category) > MaxCategoryLength {
		return ErrCategoryTooLong
	}
	if strings.ContainsAny(category, "\n\r") {
		return ErrInvalidCategory
	}
	return nil
}

// MatchAll accepts every entry.
func MatchAll(string, []byte) bool { return true }
