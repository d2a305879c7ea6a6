package composition

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/waffle-kart/internal/domain/cart"
	"github.com/xenking/waffle-kart/internal/domain/catalog"
)

func TestTotal_MatchesCatalogPrices(t *testing.T) {
	c := catalog.Default()

	tests := []struct {
		name     string
		base     string
		toppings []string
	}{
		{name: "plain classic", base: "classic"},
		{name: "choco with fruit", base: "choco", toppings: []string{"strawberry", "banana"}},
		{name: "matcha everything", base: "matcha", toppings: []string{"strawberry", "banana", "maple", "chocolate_sauce", "nuts", "oreo"}},
		{name: "redvelvet crunch", base: "redvelvet", toppings: []string{"oreo", "nuts"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New(c)
			require.NoError(t, cfg.SetBase(tt.base))
			for _, id := range tt.toppings {
				require.NoError(t, cfg.ToggleTopping(id))
			}

			base, _ := c.FindBase(tt.base)
			want := base.UnitPrice
			for _, id := range tt.toppings {
				top, _ := c.FindTopping(id)
				want = want.Add(top.UnitPrice)
			}
			assert.True(t, want.Equal(cfg.Total()), "want %s, got %s", want, cfg.Total())
		})
	}
}

func TestToggleTopping_IsItsOwnInverse(t *testing.T) {
	cfg := New(catalog.Default())
	require.NoError(t, cfg.ToggleTopping("maple"))
	before := cfg.ToppingIDs()

	for _, id := range []string{"maple", "nuts"} {
		require.NoError(t, cfg.ToggleTopping(id))
		require.NoError(t, cfg.ToggleTopping(id))
		assert.Equal(t, before, cfg.ToppingIDs())
	}
}

func TestUnknownIDs_LeaveConfigurationUnchanged(t *testing.T) {
	cfg := New(catalog.Default())
	require.NoError(t, cfg.SetBase("matcha"))
	require.NoError(t, cfg.ToggleTopping("oreo"))
	cfg.SetNote("calm")

	err := cfg.SetBase("nope")
	require.ErrorIs(t, err, catalog.ErrUnknownCatalogID)

	err = cfg.ToggleTopping("bogus")
	require.ErrorIs(t, err, catalog.ErrUnknownCatalogID)

	err = cfg.SetToppings([]string{"maple", "bogus"})
	require.ErrorIs(t, err, catalog.ErrUnknownCatalogID)

	err = cfg.Replace("classic", []string{"bogus"}, "other")
	require.ErrorIs(t, err, catalog.ErrUnknownCatalogID)

	assert.Equal(t, "matcha", cfg.BaseID())
	assert.Equal(t, []string{"oreo"}, cfg.ToppingIDs())
	assert.Equal(t, "calm", cfg.Note())
}

func TestReset(t *testing.T) {
	c := catalog.Default()
	cfg := New(c)
	require.NoError(t, cfg.SetBase("redvelvet"))
	require.NoError(t, cfg.ToggleTopping("nuts"))
	cfg.SetNote("note")

	cfg.Reset()

	assert.Equal(t, c.DefaultBase().ID, cfg.BaseID())
	assert.Empty(t, cfg.ToppingIDs())
	assert.Empty(t, cfg.Note())
}

func TestToppingIDs_MenuOrder(t *testing.T) {
	cfg := New(catalog.Default())
	for _, id := range []string{"oreo", "strawberry", "maple"} {
		require.NoError(t, cfg.ToggleTopping(id))
	}

	assert.Equal(t, []string{"strawberry", "maple", "oreo"}, cfg.ToppingIDs())
}

func TestSnapshot(t *testing.T) {
	cfg := New(catalog.Default())
	require.NoError(t, cfg.SetBase("choco"))

	plain := cfg.Snapshot()
	assert.Equal(t, "Custom Dark Chocolate", plain.Name)
	assert.Equal(t, PlainDescription, plain.Description)
	assert.True(t, decimal.NewFromInt(9).Equal(plain.UnitPrice))
	assert.Equal(t, cart.CategoryCustom, plain.Category)
	assert.Equal(t, ImageRef, plain.ImageRef)

	require.NoError(t, cfg.ToggleTopping("nuts"))
	require.NoError(t, cfg.ToggleTopping("strawberry"))

	topped := cfg.Snapshot()
	assert.Equal(t, "With Fresh Strawberries, Candied Pecans", topped.Description)
	assert.True(t, decimal.NewFromInt(13).Equal(topped.UnitPrice))
}

func TestReplace(t *testing.T) {
	cfg := New(catalog.Default())

	require.NoError(t, cfg.Replace("matcha", []string{"banana", "maple", "banana"}, "zen"))

	assert.Equal(t, "matcha", cfg.BaseID())
	assert.Equal(t, []string{"banana", "maple"}, cfg.ToppingIDs())
	assert.Equal(t, "zen", cfg.Note())
}

func TestClone_IsIndependent(t *testing.T) {
	cfg := New(catalog.Default())
	require.NoError(t, cfg.ToggleTopping("maple"))

	clone := cfg.Clone()
	require.NoError(t, clone.ToggleTopping("maple"))
	require.NoError(t, clone.SetBase("choco"))

	assert.True(t, cfg.HasTopping("maple"))
	assert.Equal(t, "classic", cfg.BaseID())
	assert.False(t, clone.HasTopping("maple"))
}
