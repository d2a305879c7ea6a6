// Package composition models the customer's in-progress waffle: one base plus
// a set of toppings, always valid against the catalog.
package composition

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/waffle-kart/internal/domain/cart"
	"github.com/xenking/waffle-kart/internal/domain/catalog"
)

const (
	// ImageRef is the picture used for every custom composition line.
	ImageRef = "images/custom/waffle.jpg"
	// PlainDescription describes a composition without toppings.
	PlainDescription = "Plain custom creation"
)

// Configuration is a mutable selection. Every mutation validates against the
// catalog first and leaves the value untouched on failure. It is not safe for
// concurrent use; the owning workspace serializes access.
type Configuration struct {
	catalog  *catalog.Catalog
	baseID   string
	toppings map[string]struct{}
	note     string
}

// New returns a configuration holding the catalog's default base.
func New(c *catalog.Catalog) *Configuration {
	return &Configuration{
		catalog:  c,
		baseID:   c.DefaultBase().ID,
		toppings: make(map[string]struct{}),
	}
}

// Catalog returns the catalog the configuration validates against.
func (c *Configuration) Catalog() *catalog.Catalog {
	return c.catalog
}

// SetBase replaces the base.
func (c *Configuration) SetBase(id string) error {
	if _, ok := c.catalog.FindBase(id); !ok {
		return &catalog.UnknownIDError{Kind: catalog.KindBase, ID: id}
	}
	c.baseID = id
	return nil
}

// ToggleTopping adds the topping when absent and removes it when present.
func (c *Configuration) ToggleTopping(id string) error {
	if _, ok := c.catalog.FindTopping(id); !ok {
		return &catalog.UnknownIDError{Kind: catalog.KindTopping, ID: id}
	}
	if _, ok := c.toppings[id]; ok {
		delete(c.toppings, id)
	} else {
		c.toppings[id] = struct{}{}
	}
	return nil
}

// SetToppings replaces the whole topping set. Either every id is known or
// nothing changes.
func (c *Configuration) SetToppings(ids []string) error {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := c.catalog.FindTopping(id); !ok {
			return &catalog.UnknownIDError{Kind: catalog.KindTopping, ID: id}
		}
		next[id] = struct{}{}
	}
	c.toppings = next
	return nil
}

// Replace swaps base, toppings and note in one step.
func (c *Configuration) Replace(baseID string, toppingIDs []string, note string) error {
	if _, ok := c.catalog.FindBase(baseID); !ok {
		return &catalog.UnknownIDError{Kind: catalog.KindBase, ID: baseID}
	}
	if err := c.SetToppings(toppingIDs); err != nil {
		return err
	}
	c.baseID = baseID
	c.note = note
	return nil
}

// SetNote attaches a free-text description, usually from the advisory service.
func (c *Configuration) SetNote(note string) {
	c.note = note
}

// Reset returns to the default base with no toppings and no note.
func (c *Configuration) Reset() {
	c.baseID = c.catalog.DefaultBase().ID
	c.toppings = make(map[string]struct{})
	c.note = ""
}

// BaseID returns the selected base id.
func (c *Configuration) BaseID() string {
	return c.baseID
}

// Base returns the selected base.
func (c *Configuration) Base() catalog.BaseOption {
	b, _ := c.catalog.FindBase(c.baseID)
	return b
}

// Note returns the attached description, if any.
func (c *Configuration) Note() string {
	return c.note
}

// HasTopping reports whether the topping is selected.
func (c *Configuration) HasTopping(id string) bool {
	_, ok := c.toppings[id]
	return ok
}

// ToppingIDs returns the selected toppings in menu order.
func (c *Configuration) ToppingIDs() []string {
	ids := make([]string, 0, len(c.toppings))
	for id := range c.toppings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return c.catalog.ToppingIndex(ids[i]) < c.catalog.ToppingIndex(ids[j])
	})
	return ids
}

// Toppings returns the selected toppings in menu order.
func (c *Configuration) Toppings() []catalog.ToppingOption {
	ids := c.ToppingIDs()
	out := make([]catalog.ToppingOption, 0, len(ids))
	for _, id := range ids {
		t, _ := c.catalog.FindTopping(id)
		out = append(out, t)
	}
	return out
}

// Total is the base price plus every selected topping price.
func (c *Configuration) Total() decimal.Decimal {
	total := c.Base().UnitPrice
	for _, t := range c.Toppings() {
		total = total.Add(t.UnitPrice)
	}
	return total
}

// Snapshot converts the configuration into cart-ready data. All add-to-cart
// paths for compositions go through here.
func (c *Configuration) Snapshot() cart.LineData {
	toppings := c.Toppings()
	description := PlainDescription
	if len(toppings) > 0 {
		names := make([]string, len(toppings))
		for i, t := range toppings {
			names[i] = t.Name
		}
		description = "With " + strings.Join(names, ", ")
	}
	return cart.LineData{
		Name:        "Custom " + c.Base().Name,
		Description: description,
		UnitPrice:   c.Total(),
		ImageRef:    ImageRef,
		Category:    cart.CategoryCustom,
	}
}

// Clone returns an independent copy.
func (c *Configuration) Clone() *Configuration {
	toppings := make(map[string]struct{}, len(c.toppings))
	for id := range c.toppings {
		toppings[id] = struct{}{}
	}
	return &Configuration{
		catalog:  c.catalog,
		baseID:   c.baseID,
		toppings: toppings,
		note:     c.note,
	}
}
