package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used when caching is disabled or Redis is unavailable: every lookup
// is a miss and every write succeeds.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetPreview(context.Context, string) (*Entry, error) {
	return nil, nil
}

func (c *NoOpCache) SetPreview(context.Context, string, *Entry, time.Duration) error {
	return nil
}

func (c *NoOpCache) Purge(context.Context) (int, error) {
	return 0, nil
}

func (c *NoOpCache) Close() error {
	return nil
}
