package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KeyValueStore.Get when the key is absent
var ErrNotFound = errors.New("key not found")

// KeyValueStore is a small durable key/value slot used for the session
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
