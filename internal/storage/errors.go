package storage

import (
	"errors"
	"fmt"
)

// errNotFound is the sentinel wrapped by ErrKeyNotFound.
var errNotFound = errors.New("key not found")

// ErrKeyNotFound creates an error for a missing key.
func ErrKeyNotFound(key string) error {
	return fmt.Errorf("%w: %s", errNotFound, key)
}

// IsNotFound reports whether err is a missing-key error.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}
