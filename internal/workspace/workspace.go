// Package workspace binds one customer's composition, cart, checkout and
// saved collection together and serializes access to them.
package workspace

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/waffle-kart/internal/domain/advisory"
	"github.com/xenking/waffle-kart/internal/domain/cart"
	"github.com/xenking/waffle-kart/internal/domain/catalog"
	"github.com/xenking/waffle-kart/internal/domain/checkout"
	"github.com/xenking/waffle-kart/internal/domain/collection"
	"github.com/xenking/waffle-kart/internal/domain/composition"
	"github.com/xenking/waffle-kart/internal/kv"
)

const (
	// UnavailableDescription replaces a description when no advisory
	// service is configured.
	UnavailableDescription = "Our AI chef is currently on break (API Key missing). Enjoy your creation!"
	// FailedDescription replaces a description when the call failed.
	FailedDescription = "A unique combination of flavors that excites the palate."
)

var (
	ErrClosed     = errors.New("workspace closed")
	ErrBusy       = errors.New("request already in progress")
	ErrEmptyMood  = errors.New("mood is empty")
	ErrInvalidID  = errors.New("invalid workspace id")
	ErrNoCatalog  = errors.New("catalog required")
	ErrNoKVStore  = errors.New("kv store required")
	ErrNoPayments = errors.New("payment processor required")
)

// Deps are the collaborators shared by every workspace.
type Deps struct {
	Catalog   *catalog.Catalog
	Store     kv.Store
	Advisor   advisory.Advisor
	Describer advisory.Describer
	Processor checkout.Processor
	// Orders may be nil; paid orders are then not recorded.
	Orders  checkout.OrderPlacer
	Metrics *checkout.Metrics
}

func (d *Deps) validate() error {
	switch {
	case d.Catalog == nil:
		return ErrNoCatalog
	case d.Store == nil:
		return ErrNoKVStore
	case d.Processor == nil:
		return ErrNoPayments
	}
	if d.Advisor == nil {
		d.Advisor = advisory.Unavailable{}
	}
	if d.Describer == nil {
		d.Describer = advisory.Unavailable{}
	}
	return nil
}

// Workspace is one customer session.
//
// mu guards the configuration and the flags below it. The advisory call runs
// without mu; its result is applied only if the workspace is still open when
// it returns.
type Workspace struct {
	id      string
	catalog *catalog.Catalog
	deps    Deps

	cart     *cart.Cart
	checkout *checkout.Machine
	saved    *collection.Store

	mu         sync.Mutex
	config     *composition.Configuration
	curating   bool
	describing bool
	closed     bool
	lastSeen   time.Time
}

func newWorkspace(id string, deps Deps, saved *collection.Store, now time.Time) *Workspace {
	c := cart.New()
	return &Workspace{
		id:       id,
		catalog:  deps.Catalog,
		deps:     deps,
		cart:     c,
		checkout: checkout.NewMachine(c, deps.Processor, deps.Orders, deps.Metrics),
		saved:    saved,
		config:   composition.New(deps.Catalog),
		lastSeen: now,
	}
}

// ID returns the session id.
func (w *Workspace) ID() string { return w.id }

// Catalog returns the menu the workspace validates against.
func (w *Workspace) Catalog() *catalog.Catalog { return w.catalog }

// Cart returns the workspace cart.
func (w *Workspace) Cart() *cart.Cart { return w.cart }

// Checkout returns the workspace checkout machine.
func (w *Workspace) Checkout() *checkout.Machine { return w.checkout }

// Composition is a read-only view of the configuration.
type Composition struct {
	Base       catalog.BaseOption
	Toppings   []catalog.ToppingOption
	Note       string
	Total      decimal.Decimal
	Curating   bool
	Describing bool
}

func (w *Workspace) viewLocked() Composition {
	return Composition{
		Base:       w.config.Base(),
		Toppings:   w.config.Toppings(),
		Note:       w.config.Note(),
		Total:      w.config.Total(),
		Curating:   w.curating,
		Describing: w.describing,
	}
}

// mutate runs f against the configuration under the lock.
func (w *Workspace) mutate(f func(cfg *composition.Configuration) error) (Composition, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return Composition{}, ErrClosed
	}
	if err := f(w.config); err != nil {
		return w.viewLocked(), err
	}
	return w.viewLocked(), nil
}

// Composition returns the current configuration.
func (w *Workspace) Composition() Composition {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

// SetBase replaces the base.
func (w *Workspace) SetBase(id string) (Composition, error) {
	return w.mutate(func(cfg *composition.Configuration) error { return cfg.SetBase(id) })
}

// ToggleTopping adds or removes a topping.
func (w *Workspace) ToggleTopping(id string) (Composition, error) {
	return w.mutate(func(cfg *composition.Configuration) error { return cfg.ToggleTopping(id) })
}

// SetNote replaces the free-text note.
func (w *Workspace) SetNote(note string) (Composition, error) {
	return w.mutate(func(cfg *composition.Configuration) error {
		cfg.SetNote(strings.TrimSpace(note))
		return nil
	})
}

// ResetComposition returns to the default base with no toppings or note.
func (w *Workspace) ResetComposition() (Composition, error) {
	return w.mutate(func(cfg *composition.Configuration) error {
		cfg.Reset()
		return nil
	})
}

// Curate asks the advisor for a combination and merges the valid part of the
// answer. Edits made while the call is pending are overwritten by the result.
func (w *Workspace) Curate(ctx context.Context, mood string) (Composition, advisory.Outcome, error) {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		return w.Composition(), advisory.Outcome{}, ErrEmptyMood
	}

	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return Composition{}, advisory.Outcome{}, ErrClosed
	case w.curating:
		v := w.viewLocked()
		w.mu.Unlock()
		return v, advisory.Outcome{}, ErrBusy
	}
	w.curating = true
	w.mu.Unlock()

	suggestion, err := w.deps.Advisor.Curate(ctx, mood)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.curating = false

	lg := zctx.From(ctx).With(zap.String("workspace", w.id))
	if w.closed {
		lg.Info("Discarding advisory result for closed workspace")
		return Composition{}, advisory.Outcome{}, ErrClosed
	}
	if err != nil {
		return w.viewLocked(), advisory.Outcome{}, err
	}

	outcome, err := advisory.Apply(w.config, suggestion)
	if err != nil {
		return w.viewLocked(), outcome, errors.Wrap(err, "apply suggestion")
	}
	if !outcome.BaseApplied || len(outcome.Dropped) > 0 {
		lg.Info("Advisory suggestion partially applied",
			zap.String("suggested_base", suggestion.BaseID),
			zap.Bool("base_applied", outcome.BaseApplied),
			zap.Strings("dropped_toppings", outcome.Dropped),
		)
	}
	return w.viewLocked(), outcome, nil
}

// Describe asks for a description of the current composition and stores it
// as the note. Advisory failures produce a fixed fallback text instead of an
// error.
func (w *Workspace) Describe(ctx context.Context) (Composition, error) {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return Composition{}, ErrClosed
	case w.describing:
		v := w.viewLocked()
		w.mu.Unlock()
		return v, ErrBusy
	}
	w.describing = true
	baseName := w.config.Base().Name
	toppings := w.config.Toppings()
	w.mu.Unlock()

	names := make([]string, len(toppings))
	for i, t := range toppings {
		names[i] = t.Name
	}

	lg := zctx.From(ctx).With(zap.String("workspace", w.id))
	text, err := w.deps.Describer.Describe(ctx, baseName, names)
	switch {
	case errors.Is(err, advisory.ErrUnavailable):
		text = UnavailableDescription
	case err != nil:
		lg.Warn("Description request failed", zap.Error(err))
		text = FailedDescription
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.describing = false

	if w.closed {
		lg.Info("Discarding description for closed workspace")
		return Composition{}, ErrClosed
	}
	w.config.SetNote(text)
	return w.viewLocked(), nil
}

// AddCompositionToCart snapshots the configuration into a new cart line.
func (w *Workspace) AddCompositionToCart() (cart.Line, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return cart.Line{}, ErrClosed
	}
	return w.cart.AddLine(w.config.Snapshot()), nil
}

// AddSpecialToCart adds a ready-made special at its menu price.
func (w *Workspace) AddSpecialToCart(id string) (cart.Line, error) {
	if w.isClosed() {
		return cart.Line{}, ErrClosed
	}
	s, ok := w.catalog.FindSpecial(id)
	if !ok {
		return cart.Line{}, &catalog.UnknownIDError{Kind: catalog.KindSpecial, ID: id}
	}
	return w.cart.AddLine(specialLine(s)), nil
}

func specialLine(s catalog.Special) cart.LineData {
	return cart.LineData{
		Name:        s.Title,
		Description: s.Description,
		UnitPrice:   s.Price,
		ImageRef:    s.ImageRef,
		Category:    cart.CategorySpecial,
	}
}

// RemoveCartLine removes a line; unknown ids are ignored.
func (w *Workspace) RemoveCartLine(id string) error {
	if w.isClosed() {
		return ErrClosed
	}
	w.cart.RemoveLine(id)
	return nil
}

// SaveComposition persists the current configuration. An empty name
// defaults to the cart line name, e.g. "Custom Classic Vanilla".
func (w *Workspace) SaveComposition(ctx context.Context, name string) (collection.SavedComposition, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return collection.SavedComposition{}, ErrClosed
	}
	cfg := w.config.Clone()
	w.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = cfg.Snapshot().Name
	}
	return w.saved.Save(ctx, cfg, name)
}

// SavedCompositions lists the saved collection, most recent first.
func (w *Workspace) SavedCompositions(ctx context.Context) ([]collection.SavedComposition, error) {
	return w.saved.LoadAll(ctx)
}

// DeleteSaved removes a saved composition. Unknown ids are ignored.
func (w *Workspace) DeleteSaved(ctx context.Context, id string) error {
	return w.saved.Delete(ctx, id)
}

// restore builds a configuration from a saved record. Toppings that have
// left the menu are dropped and logged; an unknown base fails.
func (w *Workspace) restore(ctx context.Context, s collection.SavedComposition) (*composition.Configuration, error) {
	valid := make([]string, 0, len(s.ToppingIDs))
	var dropped []string
	for _, id := range s.ToppingIDs {
		if _, ok := w.catalog.FindTopping(id); ok {
			valid = append(valid, id)
		} else {
			dropped = append(dropped, id)
		}
	}
	if len(dropped) > 0 {
		zctx.From(ctx).Warn("Saved composition references unknown toppings",
			zap.String("saved_id", s.ID),
			zap.Strings("dropped_toppings", dropped),
		)
	}

	cfg := composition.New(w.catalog)
	if err := cfg.Replace(s.BaseID, valid, s.Note); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSaved replaces the current configuration with a saved one.
func (w *Workspace) LoadSaved(ctx context.Context, id string) (Composition, error) {
	s, err := w.saved.Get(ctx, id)
	if err != nil {
		return Composition{}, err
	}
	cfg, err := w.restore(ctx, s)
	if err != nil {
		return Composition{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return Composition{}, ErrClosed
	}
	w.config = cfg
	return w.viewLocked(), nil
}

// AddSavedToCart adds a saved composition to the cart under its saved name
// without touching the current configuration.
func (w *Workspace) AddSavedToCart(ctx context.Context, id string) (cart.Line, error) {
	s, err := w.saved.Get(ctx, id)
	if err != nil {
		return cart.Line{}, err
	}
	cfg, err := w.restore(ctx, s)
	if err != nil {
		return cart.Line{}, err
	}
	if w.isClosed() {
		return cart.Line{}, ErrClosed
	}

	data := cfg.Snapshot()
	data.Name = s.Name
	return w.cart.AddLine(data), nil
}

func (w *Workspace) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

// idleSince reports whether the workspace has been unused since cutoff. A
// pending advisory or payment call keeps it alive.
func (w *Workspace) idleSince(cutoff time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.curating || w.describing {
		return false
	}
	if w.checkout.Snapshot().Status == checkout.StatusSubmitting {
		return false
	}
	return w.lastSeen.Before(cutoff)
}

// Close tears the workspace down. Pending calls complete but their results
// are discarded. The saved collection is durable and is not affected.
func (w *Workspace) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.checkout.Close()
}
