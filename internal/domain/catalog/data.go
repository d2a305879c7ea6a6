package catalog

import "github.com/shopspring/decimal"

// Default returns the Waffle Mania menu.
func Default() *Catalog {
	c, err := New(defaultBases(), defaultToppings(), defaultSpecials())
	if err != nil {
		// The literals below are fixed; a failure here is a typo in this file.
		panic(err)
	}
	return c
}

func defaultBases() []BaseOption {
	return []BaseOption{
		{ID: "classic", Name: "Classic Vanilla", UnitPrice: decimal.NewFromInt(8)},
		{ID: "choco", Name: "Dark Chocolate", UnitPrice: decimal.NewFromInt(9)},
		{ID: "matcha", Name: "Kyoto Matcha", UnitPrice: decimal.NewFromInt(10)},
		{ID: "redvelvet", Name: "Red Velvet", UnitPrice: decimal.NewFromInt(10)},
	}
}

func defaultToppings() []ToppingOption {
	return []ToppingOption{
		{ID: "strawberry", Name: "Fresh Strawberries", Category: CategoryFruit, UnitPrice: decimal.NewFromInt(2)},
		{ID: "banana", Name: "Sliced Banana", Category: CategoryFruit, UnitPrice: decimal.RequireFromString("1.50")},
		{ID: "maple", Name: "Maple Syrup", Category: CategorySyrup, UnitPrice: decimal.NewFromInt(1)},
		{ID: "chocolate_sauce", Name: "Belgian Choco Sauce", Category: CategorySyrup, UnitPrice: decimal.RequireFromString("1.50")},
		{ID: "nuts", Name: "Candied Pecans", Category: CategoryCrunch, UnitPrice: decimal.NewFromInt(2)},
		{ID: "oreo", Name: "Oreo Crumbs", Category: CategoryCrunch, UnitPrice: decimal.RequireFromString("1.50")},
	}
}

func defaultSpecials() []Special {
	return []Special{
		{
			ID:          "belgian-royal",
			Title:       "The Belgian Royal",
			Description: "Classic crispy dough, powdered sugar, and premium whipped cream.",
			Price:       decimal.RequireFromString("12.50"),
			Calories:    450,
			ImageRef:    "images/specials/belgian-royal.jpg",
		},
		{
			ID:          "chocolate-lava",
			Title:       "Chocolate Lava",
			Description: "Dark chocolate batter, molten core, drizzled with white ganache.",
			Price:       decimal.RequireFromString("14.00"),
			Calories:    620,
			ImageRef:    "images/specials/chocolate-lava.jpg",
		},
		{
			ID:          "berry-bliss",
			Title:       "Berry Bliss",
			Description: "Vanilla base topped with fresh organic blueberries and tart jam.",
			Price:       decimal.RequireFromString("13.50"),
			Calories:    380,
			ImageRef:    "images/specials/berry-bliss.jpg",
		},
		{
			ID:          "lotus-biscoff",
			Title:       "Lotus Biscoff Dream",
			Description: "Crushed Biscoff cookies, caramel drizzle, and vanilla gelato.",
			Price:       decimal.RequireFromString("15.00"),
			Calories:    700,
			ImageRef:    "images/specials/lotus-biscoff.jpg",
		},
	}
}
