// Package cache provides caching for computed layouts and exported artifacts.
//
// Force-directed layout is quadratic in the number of tables per iteration,
// so the pipeline caches layout results (node positions) keyed by a content
// hash of the diagram structure and the layout parameters. Exported
// artifacts are cached the same way, keyed by a hash of the positioned
// diagram and the export options.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [FileCache]: JSON files under ~/.cache/schemagraph, for the CLI
//   - [MemoryCache]: bounded in-process cache (otter), for the server
//
// # Keys
//
// A [Keyer] derives keys; [ScopedKeyer] adds a namespace prefix so several
// connections can share one cache without collisions:
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "conn:prod:")
//	key := keyer.LayoutKey(cache.DiagramHash(d), cache.LayoutKeyOpts{Algorithm: "force"})
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented cache with per-entry expiry.
type Cache interface {
	// Get returns the cached value. A miss or an expired entry returns
	// hit=false and a nil error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}

// TTLs for cached values.
const (
	// TTLLayout is how long computed positions stay cached.
	TTLLayout = 7 * 24 * time.Hour

	// TTLArtifact is how long rendered outputs stay cached.
	TTLArtifact = 24 * time.Hour
)
