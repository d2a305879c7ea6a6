// Package cart holds the customer's pending purchase as a list of frozen,
// priced line snapshots.
package cart

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRate is applied uniformly to the cart subtotal.
var TaxRate = decimal.RequireFromString("0.08")

// currencyPlaces is the rounding precision for derived money values.
const currencyPlaces = 2

// Category tells ready-made specials apart from customer compositions. It
// does not affect pricing.
type Category string

const (
	CategorySpecial Category = "special"
	CategoryCustom  Category = "custom"
)

// LineData is everything needed to create a line, minus its id.
type LineData struct {
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	ImageRef    string
	Category    Category
}

// Line is a frozen snapshot. It carries no catalog ids, so later menu changes
// cannot alter a pending order.
type Line struct {
	ID          string
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	ImageRef    string
	Category    Category
}

// Cart is an ordered collection of lines. It is safe for concurrent use; the
// checkout machine and request handlers share one instance per workspace.
type Cart struct {
	mu    sync.Mutex
	lines []Line
	open  bool
	newID func() string
}

// New returns an empty, closed cart.
func New() *Cart {
	return &Cart{newID: newLineID}
}

func newLineID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// AddLine appends a line with a fresh id and opens the cart display.
func (c *Cart) AddLine(data LineData) Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := Line{
		ID:          c.newID(),
		Name:        data.Name,
		Description: data.Description,
		UnitPrice:   data.UnitPrice,
		ImageRef:    data.ImageRef,
		Category:    data.Category,
	}
	c.lines = append(c.lines, line)
	c.open = true
	return line
}

// RemoveLine drops the line with the given id. Unknown ids are ignored.
func (c *Cart) RemoveLine(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, l := range c.lines {
		if l.ID == id {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveLines drops every line whose id is in ids and returns how many were
// removed. A successful checkout uses it to take out the paid lines only.
func (c *Cart) RemoveLines(ids []string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.lines[:0]
	for _, l := range c.lines {
		if _, ok := drop[l.ID]; !ok {
			kept = append(kept, l)
		}
	}
	removed := len(c.lines) - len(kept)
	clear(c.lines[len(kept):])
	c.lines = kept
	return removed
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Line(nil), c.lines...)
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.lines)
}

// Open reports whether the cart display is shown.
func (c *Cart) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.open
}

// SetOpen shows or hides the cart display.
func (c *Cart) SetOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = open
}

// Subtotal is the sum of line prices.
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	return subtotal(c.lines)
}

// Tax is the subtotal times TaxRate, rounded to cents.
func (c *Cart) Tax() decimal.Decimal {
	return c.Totals().Tax
}

// Total is subtotal plus tax.
func (c *Cart) Total() decimal.Decimal {
	return c.Totals().Total
}

// Totals holds the three derived amounts computed from one consistent view of
// the lines.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Totals computes subtotal, tax and total under a single lock.
func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ComputeTotals(c.lines)
}

// ComputeTotals derives the money amounts for a list of lines.
func ComputeTotals(lines []Line) Totals {
	sub := subtotal(lines)
	tax := sub.Mul(TaxRate).Round(currencyPlaces)
	return Totals{
		Subtotal: sub,
		Tax:      tax,
		Total:    sub.Add(tax).Round(currencyPlaces),
	}
}

func subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice)
	}
	return sum
}
