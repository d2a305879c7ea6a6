package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/waffle-kart/internal/domain/advisory"
	"github.com/xenking/waffle-kart/internal/domain/cart"
	"github.com/xenking/waffle-kart/internal/domain/catalog"
	"github.com/xenking/waffle-kart/internal/domain/checkout"
	"github.com/xenking/waffle-kart/internal/domain/collection"
	"github.com/xenking/waffle-kart/internal/storage/memory"
)

// --- Mock implementations ---

type mockAdvisor struct {
	suggestion *advisory.Suggestion
	err        error
	started    chan struct{}
	release    chan struct{}
	moods      []string
}

func (m *mockAdvisor) Curate(_ context.Context, mood string) (*advisory.Suggestion, error) {
	m.moods = append(m.moods, mood)
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	return m.suggestion, m.err
}

type mockDescriber struct {
	text     string
	err      error
	base     string
	toppings []string
}

func (m *mockDescriber) Describe(_ context.Context, base string, toppings []string) (string, error) {
	m.base, m.toppings = base, toppings
	return m.text, m.err
}

type mockProcessor struct{}

func (mockProcessor) Charge(context.Context, decimal.Decimal, checkout.Details) (checkout.Receipt, error) {
	return checkout.Receipt{Reference: "pay"}, nil
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestDeps() Deps {
	return Deps{
		Catalog:   catalog.Default(),
		Store:     memory.NewKV(),
		Processor: mockProcessor{},
	}
}

func newTestWorkspace(t *testing.T, deps Deps) *Workspace {
	t.Helper()
	r, err := NewRegistry(deps, 0)
	require.NoError(t, err)
	w, err := r.Open("test-session")
	require.NoError(t, err)
	return w
}

func toppingIDs(v Composition) []string {
	ids := make([]string, len(v.Toppings))
	for i, t := range v.Toppings {
		ids[i] = t.ID
	}
	return ids
}

// --- Tests ---

func TestCompose(t *testing.T) {
	w := newTestWorkspace(t, newTestDeps())

	v := w.Composition()
	assert.Equal(t, "classic", v.Base.ID)
	assert.True(t, d("8").Equal(v.Total))

	v, err := w.SetBase("matcha")
	require.NoError(t, err)
	assert.Equal(t, "matcha", v.Base.ID)

	_, err = w.ToggleTopping("nuts")
	require.NoError(t, err)
	v, err = w.ToggleTopping("strawberry")
	require.NoError(t, err)
	assert.Equal(t, []string{"strawberry", "nuts"}, toppingIDs(v))
	assert.True(t, d("14").Equal(v.Total), v.Total.String())

	v, err = w.SetBase("nope")
	require.ErrorIs(t, err, catalog.ErrUnknownCatalogID)
	assert.Equal(t, "matcha", v.Base.ID)

	v, err = w.SetNote("  crunchy  ")
	require.NoError(t, err)
	assert.Equal(t, "crunchy", v.Note)

	v, err = w.ResetComposition()
	require.NoError(t, err)
	assert.Equal(t, "classic", v.Base.ID)
	assert.Empty(t, v.Toppings)
	assert.Empty(t, v.Note)
}

func TestCurate_SanitizesSuggestion(t *testing.T) {
	deps := newTestDeps()
	deps.Advisor = &mockAdvisor{suggestion: &advisory.Suggestion{
		BaseID:     "nope",
		ToppingIDs: []string{"maple", "bogus"},
		Reason:     "sticky",
	}}
	w := newTestWorkspace(t, deps)
	_, err := w.SetBase("choco")
	require.NoError(t, err)

	v, outcome, err := w.Curate(context.Background(), "  cosy  ")
	require.NoError(t, err)

	assert.Equal(t, "choco", v.Base.ID)
	assert.Equal(t, []string{"maple"}, toppingIDs(v))
	assert.Equal(t, "sticky", v.Note)
	assert.False(t, outcome.BaseApplied)
	assert.Equal(t, []string{"bogus"}, outcome.Dropped)
	assert.Equal(t, []string{"cosy"}, deps.Advisor.(*mockAdvisor).moods)
}

func TestCurate_Errors(t *testing.T) {
	w := newTestWorkspace(t, newTestDeps())

	_, _, err := w.Curate(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyMood)

	_, _, err = w.Curate(context.Background(), "happy")
	require.ErrorIs(t, err, advisory.ErrUnavailable)

	deps := newTestDeps()
	deps.Advisor = &mockAdvisor{err: &advisory.RequestFailedError{Op: "curate", Err: errors.New("boom")}}
	w = newTestWorkspace(t, deps)
	_, err = w.ToggleTopping("oreo")
	require.NoError(t, err)

	v, _, err := w.Curate(context.Background(), "happy")
	require.ErrorIs(t, err, advisory.ErrRequestFailed)
	assert.Equal(t, []string{"oreo"}, toppingIDs(v), "failed call changes nothing")
	assert.False(t, v.Curating)
}

func TestCurate_BusyAndLateEditOverwritten(t *testing.T) {
	adv := &mockAdvisor{
		suggestion: &advisory.Suggestion{BaseID: "redvelvet", ToppingIDs: []string{"banana"}, Reason: "r"},
		started:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	deps := newTestDeps()
	deps.Advisor = adv
	w := newTestWorkspace(t, deps)

	type result struct {
		v   Composition
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, _, err := w.Curate(context.Background(), "bold")
		done <- result{v, err}
	}()
	<-adv.started

	_, _, err := w.Curate(context.Background(), "again")
	require.ErrorIs(t, err, ErrBusy)
	assert.True(t, w.Composition().Curating)

	// Manual edits stay possible while the call is pending.
	_, err = w.ToggleTopping("nuts")
	require.NoError(t, err)

	close(adv.release)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "redvelvet", res.v.Base.ID)
	assert.Equal(t, []string{"banana"}, toppingIDs(res.v))
	assert.False(t, res.v.Curating)
}

func TestCurate_ClosedDuringCallIsDiscarded(t *testing.T) {
	adv := &mockAdvisor{
		suggestion: &advisory.Suggestion{BaseID: "redvelvet", ToppingIDs: []string{}, Reason: "r"},
		started:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	deps := newTestDeps()
	deps.Advisor = adv
	w := newTestWorkspace(t, deps)

	done := make(chan error, 1)
	go func() {
		_, _, err := w.Curate(context.Background(), "bold")
		done <- err
	}()
	<-adv.started

	w.Close()
	close(adv.release)
	require.ErrorIs(t, <-done, ErrClosed)
	assert.Equal(t, "classic", w.Composition().Base.ID)
}

func TestDescribe(t *testing.T) {
	desc := &mockDescriber{text: "Golden."}
	deps := newTestDeps()
	deps.Describer = desc
	w := newTestWorkspace(t, deps)
	_, err := w.ToggleTopping("maple")
	require.NoError(t, err)

	v, err := w.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Golden.", v.Note)
	assert.Equal(t, "Classic Vanilla", desc.base)
	assert.Equal(t, []string{"Maple Syrup"}, desc.toppings)
}

func TestDescribe_Fallbacks(t *testing.T) {
	w := newTestWorkspace(t, newTestDeps())
	v, err := w.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, UnavailableDescription, v.Note)

	deps := newTestDeps()
	deps.Describer = &mockDescriber{err: &advisory.RequestFailedError{Op: "describe", Err: errors.New("boom")}}
	w = newTestWorkspace(t, deps)
	v, err = w.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FailedDescription, v.Note)
}

func TestCartOperations(t *testing.T) {
	w := newTestWorkspace(t, newTestDeps())

	for _, id := range []string{"belgian-royal", "chocolate-lava", "berry-bliss"} {
		_, err := w.AddSpecialToCart(id)
		require.NoError(t, err)
	}
	totals := w.Cart().Totals()
	assert.True(t, d("40.00").Equal(totals.Subtotal))
	assert.True(t, d("3.20").Equal(totals.Tax))
	assert.True(t, d("43.20").Equal(totals.Total))
	assert.True(t, w.Cart().Open())

	_, err := w.AddSpecialToCart("waffle-of-the-void")
	require.ErrorIs(t, err, catalog.ErrUnknownCatalogID)

	_, err = w.ToggleTopping("banana")
	require.NoError(t, err)
	line, err := w.AddCompositionToCart()
	require.NoError(t, err)
	assert.Equal(t, "Custom Classic Vanilla", line.Name)
	assert.Equal(t, "With Sliced Banana", line.Description)
	assert.Equal(t, cart.CategoryCustom, line.Category)
	assert.True(t, d("9.50").Equal(line.UnitPrice))

	// The line is frozen: later edits do not reach it.
	_, err = w.ToggleTopping("nuts")
	require.NoError(t, err)
	lines := w.Cart().Lines()
	assert.True(t, d("9.50").Equal(lines[len(lines)-1].UnitPrice))

	require.NoError(t, w.RemoveCartLine(line.ID))
	require.NoError(t, w.RemoveCartLine("missing"))
	assert.Equal(t, 3, w.Cart().Len())
}

func TestSavedCollection(t *testing.T) {
	ctx := context.Background()
	w := newTestWorkspace(t, newTestDeps())

	_, err := w.SetBase("choco")
	require.NoError(t, err)
	_, err = w.ToggleTopping("oreo")
	require.NoError(t, err)
	_, err = w.SetNote("midnight")
	require.NoError(t, err)

	saved, err := w.SaveComposition(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Custom Dark Chocolate", saved.Name)

	named, err := w.SaveComposition(ctx, "Late Night")
	require.NoError(t, err)

	list, err := w.SavedCompositions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, named.ID, list[0].ID)

	_, err = w.ResetComposition()
	require.NoError(t, err)
	v, err := w.LoadSaved(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "choco", v.Base.ID)
	assert.Equal(t, []string{"oreo"}, toppingIDs(v))
	assert.Equal(t, "midnight", v.Note)

	line, err := w.AddSavedToCart(ctx, named.ID)
	require.NoError(t, err)
	assert.Equal(t, "Late Night", line.Name)
	assert.Equal(t, "With Oreo Crumbs", line.Description)

	_, err = w.LoadSaved(ctx, "missing")
	require.ErrorIs(t, err, collection.ErrNotFound)

	require.NoError(t, w.DeleteSaved(ctx, saved.ID))
	require.NoError(t, w.DeleteSaved(ctx, saved.ID))
	list, err = w.SavedCompositions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSavedCollection_StaleCatalogIDs(t *testing.T) {
	ctx := context.Background()
	deps := newTestDeps()
	w := newTestWorkspace(t, deps)

	raw := `[
		{"id":"a","name":"Old","baseId":"classic","toppingIds":["maple","discontinued"],"date":1},
		{"id":"b","name":"Gone","baseId":"blueberry","toppingIds":[],"date":2}
	]`
	require.NoError(t, deps.Store.Put(ctx, w.ID(), collection.StorageKey, []byte(raw)))

	v, err := w.LoadSaved(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"maple"}, toppingIDs(v))

	_, err = w.LoadSaved(ctx, "b")
	require.ErrorIs(t, err, catalog.ErrUnknownCatalogID)
	_, err = w.AddSavedToCart(ctx, "b")
	require.ErrorIs(t, err, catalog.ErrUnknownCatalogID)
	assert.Zero(t, w.Cart().Len())
}

func TestClosedWorkspaceRejectsMutations(t *testing.T) {
	w := newTestWorkspace(t, newTestDeps())
	w.Close()
	w.Close()

	_, err := w.SetBase("choco")
	require.ErrorIs(t, err, ErrClosed)
	_, err = w.AddCompositionToCart()
	require.ErrorIs(t, err, ErrClosed)
	_, err = w.AddSpecialToCart("berry-bliss")
	require.ErrorIs(t, err, ErrClosed)
	_, err = w.SaveComposition(context.Background(), "x")
	require.ErrorIs(t, err, ErrClosed)
}

func TestCheckoutThroughWorkspace(t *testing.T) {
	w := newTestWorkspace(t, newTestDeps())
	_, err := w.AddSpecialToCart("berry-bliss")
	require.NoError(t, err)

	_, err = w.Checkout().Open()
	require.NoError(t, err)
	v, err := w.Checkout().Submit(context.Background(), checkout.Details{
		Name: "Ada", CardNumber: "4242424242424242", Expiry: "12/99", CVC: "123",
	})
	require.NoError(t, err)
	assert.Equal(t, checkout.StatusSucceeded, v.Status)
	assert.Zero(t, w.Cart().Len())
}

func TestIdleSince(t *testing.T) {
	w := newWorkspace("x", newTestDeps(), nil, time.Unix(100, 0))
	assert.True(t, w.idleSince(time.Unix(200, 0)))
	assert.False(t, w.idleSince(time.Unix(50, 0)))

	w.curating = true
	assert.False(t, w.idleSince(time.Unix(200, 0)), "pending calls keep a workspace alive")
}
