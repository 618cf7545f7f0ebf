// Package persist stores small named values (the document index) across restarts.
package persist

import "context"

// Gateway is a key/value store for workspace metadata.
// Consumers should depend on this interface rather than the concrete *SQLite
// type to facilitate testing with fakes.
type Gateway interface {
	// Get returns the value stored under key. ok is false when key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}

// Verify *SQLite satisfies Gateway at compile time.
var _ Gateway = (*SQLite)(nil)
