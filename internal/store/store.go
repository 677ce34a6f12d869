// Package store provides durable best-effort key-value persistence for the
// daemon's client-side state: linked provider credentials, discovery cache
// blobs, and rotation state. Stored values are opaque JSON; absence or
// corruption is always reported as a miss, never as a failure that should
// interrupt rendering.
package store

import "context"

// StateStore persists namespaced JSON blobs.
//
// Get returns the raw bytes for a key and whether the key was present.
// Backends never distinguish "absent" from "unreadable"; both are a miss.
// Set overwrites the value wholesale. Callers treat Set errors as
// best-effort and log rather than propagate them.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
