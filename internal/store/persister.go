package store

import "context"

// Persister writes full snapshots under a key. Every mutating store operation
// rewrites the whole collection; there is no incremental log.
type Persister interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) (data []byte, found bool, err error)
	Delete(ctx context.Context, key string) error
}
