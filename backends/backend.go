// Package backends holds the persistent key-value stores the offline cache
// writes its envelopes to. Values are opaque bytes; encoding them is the
// cache store's job.
package backends

import (
	"context"
	"errors"
)

// ErrClosed is returned by every operation on a backend after Close.
var ErrClosed = errors.New("backend is closed")

// Backend defines the interface for cache storage backends.
// Implementations can be swapped to use different storage mechanisms.
type Backend interface {
	// Put stores value under key, replacing any previous value wholesale.
	Put(ctx context.Context, key string, value []byte) error

	// Get retrieves the value stored under key. A missing key is reported
	// with ok=false and a nil error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Delete removes the given keys in one batch. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Clear removes all entries owned by this backend.
	Clear(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}
