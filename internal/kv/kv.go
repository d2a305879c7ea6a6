// Package kv defines the durable key-value store the collection store writes
// to. Values are opaque bytes, replaced whole on every Put.
package kv

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("kv: key not found")

// Store is a scoped byte store. Scope isolates one customer's data from
// another's; key names the value within a scope.
type Store interface {
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Put(ctx context.Context, scope, key string, value []byte) error
	Ping(ctx context.Context) error
}

// Scoped binds a Store to a single scope.
type Scoped struct {
	store Store
	scope string
}

// Scope returns a view of s restricted to scope.
func Scope(s Store, scope string) *Scoped {
	return &Scoped{store: s, scope: scope}
}

// Get reads key within the bound scope.
func (s *Scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.store.Get(ctx, s.scope, key)
}

// Put replaces key within the bound scope.
func (s *Scoped) Put(ctx context.Context, key string, value []byte) error {
	return s.store.Put(ctx, s.scope, key, value)
}

// Name returns the bound scope.
func (s *Scoped) Name() string {
	return s.scope
}
