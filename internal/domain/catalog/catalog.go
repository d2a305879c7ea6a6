// Package catalog holds the read-only waffle menu: bases, toppings and
// house specials. A Catalog never changes after construction, so lookups are
// safe from any goroutine.
package catalog

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrUnknownCatalogID is the sentinel behind every UnknownIDError.
var ErrUnknownCatalogID = errors.New("unknown catalog id")

// Kind names the catalog table an id was looked up in.
type Kind string

const (
	KindBase    Kind = "base"
	KindTopping Kind = "topping"
	KindSpecial Kind = "special"
)

// UnknownIDError reports a selection that references an id missing from the
// catalog.
type UnknownIDError struct {
	Kind Kind
	ID   string
}

func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("unknown %s id %q", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrUnknownCatalogID) match.
func (e *UnknownIDError) Is(target error) bool {
	return target == ErrUnknownCatalogID
}

// Category groups toppings by kind.
type Category string

const (
	CategoryFruit  Category = "fruit"
	CategorySyrup  Category = "syrup"
	CategoryCrunch Category = "crunch"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFruit, CategorySyrup, CategoryCrunch:
		return true
	default:
		return false
	}
}

// BaseOption is the batter a composition is built on.
type BaseOption struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
}

// ToppingOption is an optional add-on priced on top of the base.
type ToppingOption struct {
	ID        string
	Name      string
	Category  Category
	UnitPrice decimal.Decimal
}

// Special is a ready-made menu item sold at a fixed price.
type Special struct {
	ID          string
	Title       string
	Description string
	Price       decimal.Decimal
	Calories    int
	ImageRef    string
}

// Catalog is an immutable set of lookup tables.
type Catalog struct {
	bases    []BaseOption
	toppings []ToppingOption
	specials []Special

	baseByID    map[string]int
	toppingByID map[string]int
	specialByID map[string]int
}

// New builds a Catalog. The first base becomes the default base, so at least
// one base is required. Ids must be unique within each table.
func New(bases []BaseOption, toppings []ToppingOption, specials []Special) (*Catalog, error) {
	if len(bases) == 0 {
		return nil, errors.New("catalog requires at least one base")
	}

	c := &Catalog{
		bases:       append([]BaseOption(nil), bases...),
		toppings:    append([]ToppingOption(nil), toppings...),
		specials:    append([]Special(nil), specials...),
		baseByID:    make(map[string]int, len(bases)),
		toppingByID: make(map[string]int, len(toppings)),
		specialByID: make(map[string]int, len(specials)),
	}
	for i, b := range c.bases {
		if _, dup := c.baseByID[b.ID]; dup || b.ID == "" {
			return nil, errors.Errorf("invalid or duplicate base id %q", b.ID)
		}
		c.baseByID[b.ID] = i
	}
	for i, t := range c.toppings {
		if _, dup := c.toppingByID[t.ID]; dup || t.ID == "" {
			return nil, errors.Errorf("invalid or duplicate topping id %q", t.ID)
		}
		if !t.Category.Valid() {
			return nil, errors.Errorf("topping %q has unknown category %q", t.ID, t.Category)
		}
		c.toppingByID[t.ID] = i
	}
	for i, s := range c.specials {
		if _, dup := c.specialByID[s.ID]; dup || s.ID == "" {
			return nil, errors.Errorf("invalid or duplicate special id %q", s.ID)
		}
		c.specialByID[s.ID] = i
	}
	return c, nil
}

// ListBases returns the bases in menu order.
func (c *Catalog) ListBases() []BaseOption {
	return append([]BaseOption(nil), c.bases...)
}

// ListToppings returns the toppings in menu order.
func (c *Catalog) ListToppings() []ToppingOption {
	return append([]ToppingOption(nil), c.toppings...)
}

// ListSpecials returns the house specials in menu order.
func (c *Catalog) ListSpecials() []Special {
	return append([]Special(nil), c.specials...)
}

// DefaultBase is the base a reset configuration starts from.
func (c *Catalog) DefaultBase() BaseOption {
	return c.bases[0]
}

// FindBase looks up a base by id.
func (c *Catalog) FindBase(id string) (BaseOption, bool) {
	i, ok := c.baseByID[id]
	if !ok {
		return BaseOption{}, false
	}
	return c.bases[i], true
}

// FindTopping looks up a topping by id.
func (c *Catalog) FindTopping(id string) (ToppingOption, bool) {
	i, ok := c.toppingByID[id]
	if !ok {
		return ToppingOption{}, false
	}
	return c.toppings[i], true
}

// FindSpecial looks up a special by id.
func (c *Catalog) FindSpecial(id string) (Special, bool) {
	i, ok := c.specialByID[id]
	if !ok {
		return Special{}, false
	}
	return c.specials[i], true
}

// ToppingIndex returns the menu position of a topping, or -1. Callers use it
// to keep topping lists in a stable menu order.
func (c *Catalog) ToppingIndex(id string) int {
	if i, ok := c.toppingByID[id]; ok {
		return i
	}
	return -1
}
