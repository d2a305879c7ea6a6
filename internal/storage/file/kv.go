// Package file stores kv values as files under a root directory, one file per
// scope and key.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/waffle-kart/internal/kv"
)

var _ kv.Store = (*KV)(nil)

// KV is a directory-backed kv.Store. Writes go to a temporary file that is
// renamed over the target, so a reader never sees a half-written value.
type KV struct {
	root string
}

// NewKV creates root if needed and returns a store rooted there.
func NewKV(root string) (*KV, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating kv root %q: %w", root, err)
	}
	return &KV{root: root}, nil
}

// path names scope and key by their SHA-256 digests. Client strings cannot
// escape the root directory, and every path element is 64 bytes whatever
// the input length.
func (s *KV) path(scope, key string) string {
	return filepath.Join(s.root, digest(scope), digest(key))
}

func digest(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// Get reads the value file.
func (s *KV) Get(_ context.Context, scope, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(scope, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s/%s: %w", scope, key, err)
	}
	return data, nil
}

// Put atomically replaces the value file.
func (s *KV) Put(_ context.Context, scope, key string, value []byte) error {
	target := s.path(scope, key)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating scope dir for %s: %w", scope, err)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s/%s: %w", scope, key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s/%s: %w", scope, key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s/%s: %w", scope, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s/%s: %w", scope, key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replacing %s/%s: %w", scope, key, err)
	}
	return nil
}

// Ping checks that the root directory is still there.
func (s *KV) Ping(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat kv root: %w", err)
	}
	if !info.IsDir() {
		return errors.Errorf("kv root %q is not a directory", s.root)
	}
	return nil
}
