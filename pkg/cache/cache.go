// Package cache provides the byte caches behind the editor's backend lookups.
//
// The properties panel resolves combo box options and the host shell loads
// the page model through the REST client; both go through a [Cache] so that
// repeated selections of the same component do not hit the backend again.
//
// Implementations:
//   - [MemoryCache]: in-process, for a single editing session
//   - [FileCache]: on disk, for the CLI (~/.cache/pagecomposer/)
//   - [RedisCache]: shared between dev backend instances
//
// A nil Cache disables caching in the REST client.
//
// Keys come from a [Keyer]; backends sharing one cache are isolated with
// [NewScopedKeyer].
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/matzehuels/pagecomposer/pkg/observability"
)

// Cache stores opaque byte values with an optional time-to-live.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the cache's resources.
	Close() error
}

// GetJSON reads key and unmarshals it into v. Entries that no longer
// decode are dropped and reported as a miss.
func GetJSON(ctx context.Context, c Cache, key string, v any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, keyType(key))
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, keyType(key))
		return false, nil
	}
	observability.Cache().OnCacheHit(ctx, keyType(key))
	return true, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	return nil
}

// keyType returns the leading segment of key, skipping a scope prefix.
func keyType(key string) string {
	for _, part := range strings.Split(key, ":") {
		switch part {
		case "documents", "pagemodel", "toolkit", "http":
			return part
		}
	}
	t, _, _ := strings.Cut(key, ":")
	return t
}
