package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encodable values by key.
type Cache interface {
	// Get decodes the value under key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

type Noop struct{}

func (Noop) Get(_ context.Context, _ string, _ interface{}) (bool, error) {
	return false, nil
}

func (Noop) Set(_ context.Context, _ string, _ interface{}, _ time.Duration) error {
	return nil
}

func (Noop) DeletePrefix(_ context.Context, _ string) error {
	return nil
}

func (Noop) Close() error {
	return nil
}
