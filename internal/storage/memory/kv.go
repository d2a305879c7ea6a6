// Package memory provides process-local storage adapters. Contents are lost
// on restart; they back tests and single-node development runs.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/waffle-kart/internal/kv"
)

var _ kv.Store = (*KV)(nil)

type entryKey struct {
	scope string
	key   string
}

// KV is an in-memory kv.Store.
type KV struct {
	mu      sync.RWMutex
	entries map[entryKey][]byte
}

// NewKV returns an empty store.
func NewKV() *KV {
	return &KV{entries: make(map[entryKey][]byte)}
}

// Get returns a copy of the stored value.
func (s *KV) Get(_ context.Context, scope, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[entryKey{scope, key}]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value.
func (s *KV) Put(_ context.Context, scope, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entryKey{scope, key}] = append([]byte(nil), value...)
	return nil
}

// Ping always succeeds.
func (s *KV) Ping(context.Context) error {
	return nil
}
