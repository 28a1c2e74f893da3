package keyed

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Codec encodes typed values into store bytes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// DefaultCodec is sonic configured for encoding/json compatibility with
// sorted map keys, so equal values always encode to equal bytes.
var DefaultCodec Codec = sonic.ConfigStd

// Put encodes v and inserts it at key.
func Put[T any](s Store, c Codec, category, key string, v T) error {
	if s == nil {
		return ErrNilStore
	}
	data, err := c.Marshal(v)
	if err != nil {
		return fmt.Errorf("keyed: encode %s/%s: %w", category, key, err)
	}
	s.Insert(category, key, data)
	return nil
}

// Get decodes the value at key.
func Get[T any](s Store, c Codec, category, key string) (T, bool, error) {
	var zero T
	if s == nil {
		return zero, false, ErrNilStore
	}
	data, ok := s.Search(category, key)
	if !ok {
		return zero, false, nil
	}
	return decode[T](c, category, key, data)
}

// Take removes the value at key and returns it decoded.
func Take[T any](s Store, c Codec, category, key string) (T, bool, error) {
	var zero T
	if s == nil {
		return zero, false, ErrNilStore
	}
	data, ok := s.Remove(category, key)
	if !ok {
		return zero, false, nil
	}
	return decode[T](c, category, key, data)
}

// Find returns the first decoded value in category accepted by match.
// Entries that fail to decode are skipped and the first decode error is
// returned alongside the result.
func Find[T any](s Store, c Codec, category string, match func(key string, v T) bool) (T, bool, error) {
	var (
		found    T
		firstErr error
	)
	if s == nil {
		return found, false, ErrNilStore
	}
	_, ok := s.Locate(category, func(key string, data []byte) bool {
		v, _, err := decode[T](c, category, key, data)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return false
		}
		if match(key, v) {
			found = v
			return true
		}
		return false
	})
	return found, ok, firstErr
}

// All decodes every value in category in insertion order.
func All[T any](s Store, c Codec, category string) ([]T, error) {
	if s == nil {
		return nil, ErrNilStore
	}
	values := s.Gather(category)
	out := make([]T, 0, len(values))
	for _, data := range values {
		v, _, err := decode[T](c, category, "", data)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decode[T any](c Codec, category, key string, data []byte) (T, bool, error) {
	var v T
	if err := c.Unmarshal(data, &v); err != nil {
		return v, true, fmt.Errorf("keyed: decode %s/%s: %w", category, key, err)
	}
	return v, true, nil
}
