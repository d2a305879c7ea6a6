package catalog

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Lookups(t *testing.T) {
	c := Default()

	base, ok := c.FindBase("choco")
	require.True(t, ok)
	assert.Equal(t, "Dark Chocolate", base.Name)
	assert.True(t, decimal.NewFromInt(9).Equal(base.UnitPrice))

	top, ok := c.FindTopping("banana")
	require.True(t, ok)
	assert.Equal(t, CategoryFruit, top.Category)
	assert.True(t, decimal.RequireFromString("1.5").Equal(top.UnitPrice))

	_, ok = c.FindBase("nope")
	assert.False(t, ok)
	_, ok = c.FindTopping("bogus")
	assert.False(t, ok)

	sp, ok := c.FindSpecial("berry-bliss")
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("13.50").Equal(sp.Price))
}

func TestDefault_StableOrderAndDefaultBase(t *testing.T) {
	c := Default()

	bases := c.ListBases()
	require.Len(t, bases, 4)
	assert.Equal(t, bases[0], c.DefaultBase())
	assert.Equal(t, "classic", c.DefaultBase().ID)

	ids := make([]string, 0, 6)
	for _, top := range c.ListToppings() {
		ids = append(ids, top.ID)
	}
	assert.Equal(t, []string{"strawberry", "banana", "maple", "chocolate_sauce", "nuts", "oreo"}, ids)
	assert.Equal(t, 2, c.ToppingIndex("maple"))
	assert.Equal(t, -1, c.ToppingIndex("bogus"))
}

func TestListReturnsCopies(t *testing.T) {
	c := Default()

	bases := c.ListBases()
	bases[0].Name = "mutated"

	assert.Equal(t, "Classic Vanilla", c.DefaultBase().Name)
}

func TestNew_Validation(t *testing.T) {
	base := BaseOption{ID: "b", Name: "B", UnitPrice: decimal.NewFromInt(1)}

	tests := []struct {
		name     string
		bases    []BaseOption
		toppings []ToppingOption
	}{
		{name: "no bases"},
		{name: "duplicate base", bases: []BaseOption{base, base}},
		{
			name:     "duplicate topping",
			bases:    []BaseOption{base},
			toppings: []ToppingOption{{ID: "t", Category: CategoryFruit}, {ID: "t", Category: CategoryFruit}},
		},
		{
			name:     "unknown category",
			bases:    []BaseOption{base},
			toppings: []ToppingOption{{ID: "t", Category: "sprinkles"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.bases, tt.toppings, nil)
			require.Error(t, err)
		})
	}
}

func TestUnknownIDError(t *testing.T) {
	var err error = &UnknownIDError{Kind: KindTopping, ID: "bogus"}

	require.ErrorIs(t, err, ErrUnknownCatalogID)
	assert.Equal(t, `unknown topping id "bogus"`, err.Error())

	var uerr *UnknownIDError
	require.True(t, errors.As(errors.Wrap(err, "toggle"), &uerr))
	assert.Equal(t, "bogus", uerr.ID)
}
