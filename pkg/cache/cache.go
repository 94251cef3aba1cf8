// Package cache stores rendered chart artifacts and reprojection results so
// repeated CLI runs and API requests skip the work.
//
// Three backends implement [Cache]:
//   - [FileCache]: JSON entries under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for `geokit serve` replicas
//   - [NullCache]: stores nothing, for --no-cache and tests
//
// # Keys
//
// A [Keyer] turns request parameters into stable keys. [DefaultKeyer]
// hashes every parameter that changes the output, so two requests share an
// entry only when they would produce identical bytes. [NewScopedKeyer]
// prefixes keys to keep environments apart on one Redis instance; the CLI
// and server use it when the config sets `[cache] scope`.
//
// # Usage
//
//	c, err := cache.NewFileCache(dir)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	key := cache.NewDefaultKeyer().ArtifactKey(cache.Hash(input), cache.ArtifactKeyOpts{
//	    Chart: "fdc", Format: "png", Width: 8, Height: 5, DPI: 300,
//	})
//	if data, ok, _ := c.Get(ctx, key); ok {
//	    return data, nil
//	}
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional per-entry expiry.
// Implementations are safe for concurrent use.
type Cache interface {
	// Get returns the stored bytes and true, or false on a miss.
	// Expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

// Keyer builds cache keys.
type Keyer interface {
	// TransformKey keys a reprojection of a payload between two CRSs.
	TransformKey(src, dst, payloadHash string) string

	// ArtifactKey keys a rendered chart of some input data.
	ArtifactKey(dataHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts lists every setting that changes a rendered chart.
type ArtifactKeyOpts struct {
	Chart   string            `json:"chart"`
	Format  string            `json:"format"`
	Width   float64           `json:"width"`
	Height  float64           `json:"height"`
	DPI     int               `json:"dpi"`
	Options map[string]string `json:"options,omitempty"`
}

// DefaultKeyer hashes key parts with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// TransformKey returns "reproject:<hash>".
func (DefaultKeyer) TransformKey(src, dst, payloadHash string) string {
	return hashKey("reproject", src, dst, payloadHash)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(dataHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", dataHash, opts)
}
