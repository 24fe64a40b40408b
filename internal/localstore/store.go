// Package localstore provides the durable key/value storage that backs the
// local cache and the mutation queue. Values are whole JSON blobs replaced
// wholesale; there are no transactions and no indices.
package localstore

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when a key has no stored value.
var ErrKeyNotFound = errors.New("localstore: key not found")

// Store is a durable key/value store. Implementations must tolerate
// concurrent access; last write wins.
type Store interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every key. Used on sign-out.
	Clear(ctx context.Context) error
	// Close releases any underlying resources.
	Close() error
}
