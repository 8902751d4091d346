package cache

import (
	"context"
	"time"

	"chunklab/internal/chunker"
)

// Cache stores computed previews keyed by a digest of the request.
type Cache interface {
	// GetPreview retrieves a cached preview by key.
	// Returns nil if not found.
	GetPreview(ctx context.Context, key string) (*Entry, error)

	// SetPreview stores a preview with TTL.
	SetPreview(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// Purge removes every cached preview and reports how many were dropped.
	Purge(ctx context.Context) (int, error)

	Close() error
}

// Entry is the cached part of a preview response.
type Entry struct {
	Chunks  []chunker.Chunk `json:"chunks"`
	Metrics chunker.Metrics `json:"metrics"`
}
