// Package cache stores rendered pages between requests. The in-process
// Memory cache is the default; Redis shares pages between replicas.
package cache

import (
	"context"
	"time"
)

// Entry is a rendered response.
type Entry struct {
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
	ETag        string `json:"etag,omitempty"`
}

// Cache is a keyed store of rendered responses with a fixed time to live.
type Cache interface {
	// Get returns the entry for key. ok is false on a miss.
	Get(ctx context.Context, key string) (e Entry, ok bool, err error)
	Set(ctx context.Context, key string, e Entry) error
	// Purge drops every entry, used when content is reloaded.
	Purge(ctx context.Context) error
	Close() error
}

// DefaultTTL applies when a cache is created with a non-positive TTL.
const DefaultTTL = 10 * time.Minute
