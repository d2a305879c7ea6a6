package collection

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/waffle-kart/internal/domain/composition"
	"github.com/xenking/waffle-kart/internal/kv"
)

// Store is CRUD over the persisted list. It keeps no cache: every call reads
// the backend, so the list always reflects the last successful write.
//
// Save, Delete and Merge hold mu across their read-modify-write so two writes
// for the key never interleave.
type Store struct {
	backend Backend

	mu    sync.Locker
	now   func() time.Time
	newID func() string
}

// NewStore returns a Store writing through backend. It must be the only
// Store for that backend key.
func NewStore(backend Backend) *Store {
	return NewLockedStore(backend, new(sync.Mutex))
}

// NewLockedStore returns a Store whose writes hold mu. Stores sharing a
// backend key must share mu; see KeyLocks.
func NewLockedStore(backend Backend, mu sync.Locker) *Store {
	return &Store{
		backend: backend,
		mu:      mu,
		now:     time.Now,
		newID:   newCompositionID,
	}
}

// newCompositionID returns a UUIDv7: a millisecond timestamp followed by
// random bits.
func newCompositionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// read returns the stored list. A missing or corrupt value reads as empty;
// only backend failures are returned.
func (s *Store) read(ctx context.Context) ([]SavedComposition, error) {
	data, err := s.backend.Get(ctx, StorageKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read collection")
	}

	items, err := Decode(data)
	if err != nil {
		zctx.From(ctx).Warn("Saved collection is corrupt, treating as empty",
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return nil, nil
	}
	return items, nil
}

func (s *Store) write(ctx context.Context, items []SavedComposition) error {
	data, err := Encode(items)
	if err != nil {
		return errors.Wrap(err, "encode collection")
	}
	if err := s.backend.Put(ctx, StorageKey, data); err != nil {
		return errors.Wrap(err, "write collection")
	}
	return nil
}

// LoadAll returns the saved compositions, most recent first.
func (s *Store) LoadAll(ctx context.Context) ([]SavedComposition, error) {
	items, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []SavedComposition{}
	}
	return items, nil
}

// Get returns a single saved composition.
func (s *Store) Get(ctx context.Context, id string) (SavedComposition, error) {
	items, err := s.read(ctx)
	if err != nil {
		return SavedComposition{}, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return SavedComposition{}, ErrNotFound
}

// Save snapshots cfg under name, prepends it and writes the whole list back.
func (s *Store) Save(ctx context.Context, cfg *composition.Configuration, name string) (SavedComposition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read(ctx)
	if err != nil {
		return SavedComposition{}, err
	}

	saved := SavedComposition{
		ID:         s.newID(),
		Name:       name,
		BaseID:     cfg.BaseID(),
		ToppingIDs: cfg.ToppingIDs(),
		// Stored with millisecond precision; truncate so the returned value
		// matches what LoadAll will read back.
		CreatedAt: time.UnixMilli(s.now().UnixMilli()).UTC(),
		Note:      cfg.Note(),
	}

	updated := make([]SavedComposition, 0, len(items)+1)
	updated = append(updated, saved)
	updated = append(updated, items...)
	if err := s.write(ctx, updated); err != nil {
		return SavedComposition{}, err
	}
	return saved, nil
}

// Delete removes the composition with id. Unknown ids are a no-op and cause
// no write.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read(ctx)
	if err != nil {
		return err
	}

	updated := make([]SavedComposition, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			updated = append(updated, item)
		}
	}
	if len(updated) == len(items) {
		return nil
	}
	return s.write(ctx, updated)
}

// Merge adds items whose ids are not stored yet and keeps the list ordered
// most recent first. It returns how many were added.
func (s *Store) Merge(ctx context.Context, items []SavedComposition) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(ctx)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(existing)+len(items))
	for _, item := range existing {
		seen[item.ID] = struct{}{}
	}
	updated := append([]SavedComposition{}, existing...)
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		updated = append(updated, item)
	}

	added := len(updated) - len(existing)
	if added == 0 {
		return 0, nil
	}
	sort.SliceStable(updated, func(i, j int) bool {
		return updated[i].CreatedAt.After(updated[j].CreatedAt)
	})
	if err := s.write(ctx, updated); err != nil {
		return 0, err
	}
	return added, nil
}
