package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable marks failures to reach or operate the underlying entry store.
	ErrStoreUnavailable = errors.New("cache: store unavailable")
	// ErrAlreadyExists is returned by Store.InsertIfAbsent when a live entry occupies the key.
	ErrAlreadyExists = errors.New("cache: key already exists")
	// ErrInvalidKey is returned for empty keys or keys longer than MaxKeyLength.
	ErrInvalidKey = errors.New("cache: invalid key")
)

// SerializationError reports a value that could not be encoded or decoded.
type SerializationError struct {
	Key string
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("cache: %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap exposes the codec error for errors.Is / errors.As compatibility.
func (e *SerializationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("cache: %s: %w", op, errors.Join(ErrStoreUnavailable, err))
}

func validateKey(key string) error {
	if key == "" || len(key) > MaxKeyLength {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
