// Package storage provides the durable key/value store backing the guest
// cart. Reads and writes are synchronous: the local cart contract promises
// immediate visibility with no network latency.
package storage

// Store is a synchronous key/value store. Implementations must make writes
// immediately visible to subsequent reads.
type Store interface {
	// Read returns the value under key, or ErrKeyNotFound.
	Read(key string) ([]byte, error)

	// Write stores value under key, replacing any previous value.
	Write(key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key string) error
}
