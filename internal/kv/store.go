package kv

import (
	"context"
	"errors"
)

// Store is a string-keyed persistent store. Consumers hold the interface, the
// backends below implement it.
type Store interface {
	// Get returns ErrNotFound when key has never been set or was deleted.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

var ErrNotFound = errors.New("key not found")

// Namespace returns a Store that prefixes every key with prefix. Close is a
// no-op so that many namespaces can share one backend.
func Namespace(s Store, prefix string) Store {
	return namespaced{inner: s, prefix: prefix}
}

type namespaced struct {
	inner  Store
	prefix string
}

func (n namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n namespaced) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

func (n namespaced) Close() error { return nil }
