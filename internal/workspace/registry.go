package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/waffle-kart/internal/domain/collection"
	"github.com/xenking/waffle-kart/internal/kv"
)

const maxIDLength = 128

// Registry owns the live workspaces, keyed by session id.
//
// A closed session can be reopened while a save from its previous workspace
// is still running. Both workspaces write the same key, so the write locks
// live here rather than in the workspace.
type Registry struct {
	deps    Deps
	idleTTL time.Duration
	now     func() time.Time
	locks   *collection.KeyLocks

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewRegistry returns an empty registry. Workspaces unused for idleTTL are
// closed by Sweep; zero disables expiry.
func NewRegistry(deps Deps, idleTTL time.Duration) (*Registry, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Registry{
		deps:       deps,
		idleTTL:    idleTTL,
		now:        time.Now,
		locks:      collection.NewKeyLocks(),
		workspaces: make(map[string]*Workspace),
	}, nil
}

// ValidID reports whether id may be used as a session id. Ids become storage
// scopes, so they are limited to a conservative character set.
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Open returns the workspace for id, creating it if needed. An empty id
// creates a workspace with a fresh one.
func (r *Registry) Open(id string) (*Workspace, error) {
	if id == "" {
		id = newSessionID()
	}
	if !ValidID(id) {
		return nil, ErrInvalidID
	}

	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.workspaces[id]; ok {
		w.touch(now)
		return w, nil
	}
	saved := collection.NewLockedStore(kv.Scope(r.deps.Store, id), r.locks.For(id))
	w := newWorkspace(id, r.deps, saved, now)
	r.workspaces[id] = w
	return w, nil
}

// Lookup returns a live workspace without creating one.
func (r *Registry) Lookup(id string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.workspaces[id]
	if ok {
		w.touch(r.now())
	}
	return w, ok
}

// Close removes and closes the workspace. It reports whether one existed.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	w, ok := r.workspaces[id]
	delete(r.workspaces, id)
	r.mu.Unlock()

	if ok {
		w.Close()
	}
	return ok
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Sweep closes workspaces idle for longer than the TTL and returns how many
// were closed.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	var expired []*Workspace
	r.mu.Lock()
	for id, w := range r.workspaces {
		if w.idleSince(cutoff) {
			expired = append(expired, w)
			delete(r.workspaces, id)
		}
	}
	r.mu.Unlock()

	for _, w := range expired {
		w.Close()
	}
	if len(expired) > 0 {
		zctx.From(ctx).Info("Swept idle workspaces",
			zap.Int("closed", len(expired)),
			zap.Int("remaining", r.Len()),
		)
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes all workspaces.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	defer r.CloseAll()
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// CloseAll closes every workspace.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.workspaces
	r.workspaces = make(map[string]*Workspace)
	r.mu.Unlock()

	for _, w := range all {
		w.Close()
	}
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
