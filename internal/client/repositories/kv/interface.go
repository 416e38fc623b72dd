// Package kv defines the on-device key-value store that all durable state
// of the todo keeper lives in: a flat string-keyed namespace with
// JSON-encoded values.
package kv

import (
	"context"
)

// Repository is the storage substrate contract.
//
// Get returns (nil, nil) when the key is absent; absence is not an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
