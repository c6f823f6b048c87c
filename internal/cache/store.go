package cache

import (
	"context"
	"errors"
)

// ErrMiss is returned by stores when no live entry exists.
var ErrMiss = errors.New("cache miss")

// Store persists cache entries.
type Store interface {
	Get(ctx context.Context, key Key) (Entry, error)
	Put(ctx context.Context, entry Entry) error
}
