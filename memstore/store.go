// Package memstore implements the backing store behind the shared-memory
// provider plugin (§4.10): namespaced key/value storage with TTL, a size
// cap, and per-key metadata, grounded on
// provider/capabilities/shared_memory.rs's Metadata envelope.
package memstore

import (
	"context"
	"time"

	"github.com/kairei-project/kairei/kaireierr"
	"github.com/kairei-project/kairei/value"
)

// Metadata mirrors shared_memory.rs's Metadata struct: created_at,
// last_modified, content_type, size, tags.
type Metadata struct {
	CreatedAt    time.Time
	LastModified time.Time
	ContentType  string
	Size         int
	Tags         map[string]string
}

// DefaultMetadata matches shared_memory.rs's Default impl: "application/json"
// content type and no tags.
func DefaultMetadata(now time.Time) Metadata {
	return Metadata{CreatedAt: now, LastModified: now, ContentType: "application/json", Tags: map[string]string{}}
}

// Store is the shared-memory plugin's persistence contract: the six
// operations of spec.md's "Shared-memory plugin contract" (get, set,
// delete, exists, get_metadata, list_keys). Namespace isolation is the
// caller's responsibility: pass already-namespaced keys (e.g.
// "<agent>/<key>"). Keys matches glob patterns (`*` and `?`) against the
// full key, not merely a prefix.
type Store interface {
	Get(ctx context.Context, key string) (value.Value, Metadata, error)
	Set(ctx context.Context, key string, v value.Value, ttl time.Duration, contentType string, tags map[string]string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetMetadata(ctx context.Context, key string) (Metadata, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// ErrNotFound is returned by Get/GetMetadata/Delete for an absent key.
var ErrNotFound = kaireierr.ErrStorageKeyNotFound

// ErrCapacityFull is returned by Set when the store is at capacity and no
// entry is eligible for LRU eviction. NewInMemory treats a capacity <= 0 as
// unbounded, so such a store never reports it.
var ErrCapacityFull = kaireierr.ErrStorageCapacityFull
