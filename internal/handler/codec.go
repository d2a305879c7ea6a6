package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/waffle-kart/internal/domain/advisory"
	"github.com/xenking/waffle-kart/internal/domain/cart"
	"github.com/xenking/waffle-kart/internal/domain/catalog"
	"github.com/xenking/waffle-kart/internal/domain/checkout"
	"github.com/xenking/waffle-kart/internal/domain/collection"
	"github.com/xenking/waffle-kart/internal/workspace"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, code int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// readObject decodes a flat JSON object, calling field for each key. Unknown
// keys must be skipped by field. An empty body reads as {}.
func readObject(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return &badRequestError{err: err}
	}
	if len(data) > maxBodyBytes {
		return &badRequestError{err: errors.New("body too large")}
	}
	if len(data) == 0 {
		return nil
	}
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return &badRequestError{err: errors.New("expected object")}
	}
	if err := d.Obj(field); err != nil {
		return &badRequestError{err: err}
	}
	return nil
}

// readStrings decodes the named string fields; others are ignored.
func readStrings(r *http.Request, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	err := readObject(r, func(d *jx.Decoder, key string) error {
		for _, n := range names {
			if n == key {
				v, err := d.Str()
				if err != nil {
					return errors.Wrap(err, key)
				}
				out[key] = v
				return nil
			}
		}
		return d.Skip()
	})
	return out, err
}

func money(e *jx.Encoder, v decimal.Decimal) {
	e.Str(v.StringFixed(2))
}

func str(v string) func(e *jx.Encoder) {
	return func(e *jx.Encoder) { e.Str(v) }
}

func strs(v []string) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, s := range v {
				e.Str(s)
			}
		})
	}
}

func encodeCatalog(e *jx.Encoder, c *catalog.Catalog) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("bases", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, b := range c.ListBases() {
					encodeBase(e, b)
				}
			})
		})
		e.Field("toppings", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, t := range c.ListToppings() {
					encodeTopping(e, t)
				}
			})
		})
		e.Field("specials", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, s := range c.ListSpecials() {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", str(s.ID))
						e.Field("title", str(s.Title))
						e.Field("description", str(s.Description))
						e.Field("price", func(e *jx.Encoder) { money(e, s.Price) })
						e.Field("calories", func(e *jx.Encoder) { e.Int(s.Calories) })
						e.Field("imageRef", str(s.ImageRef))
					})
				}
			})
		})
	})
}

func encodeBase(e *jx.Encoder, b catalog.BaseOption) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", str(b.ID))
		e.Field("name", str(b.Name))
		e.Field("price", func(e *jx.Encoder) { money(e, b.UnitPrice) })
	})
}

func encodeTopping(e *jx.Encoder, t catalog.ToppingOption) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", str(t.ID))
		e.Field("name", str(t.Name))
		e.Field("category", str(string(t.Category)))
		e.Field("price", func(e *jx.Encoder) { money(e, t.UnitPrice) })
	})
}

func encodeComposition(e *jx.Encoder, v workspace.Composition) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("base", func(e *jx.Encoder) { encodeBase(e, v.Base) })
		e.Field("toppings", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, t := range v.Toppings {
					encodeTopping(e, t)
				}
			})
		})
		if v.Note != "" {
			e.Field("note", str(v.Note))
		}
		e.Field("total", func(e *jx.Encoder) { money(e, v.Total) })
		e.Field("curating", func(e *jx.Encoder) { e.Bool(v.Curating) })
		e.Field("describing", func(e *jx.Encoder) { e.Bool(v.Describing) })
	})
}

func encodeOutcome(e *jx.Encoder, o advisory.Outcome) {
	dropped := o.Dropped
	if dropped == nil {
		dropped = []string{}
	}
	e.Obj(func(e *jx.Encoder) {
		e.Field("baseApplied", func(e *jx.Encoder) { e.Bool(o.BaseApplied) })
		e.Field("appliedToppings", strs(o.Toppings))
		e.Field("droppedToppings", strs(dropped))
	})
}

func encodeLine(e *jx.Encoder, l cart.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", str(l.ID))
		e.Field("name", str(l.Name))
		e.Field("description", str(l.Description))
		e.Field("price", func(e *jx.Encoder) { money(e, l.UnitPrice) })
		e.Field("imageRef", str(l.ImageRef))
		e.Field("category", str(string(l.Category)))
	})
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	lines := c.Lines()
	totals := cart.ComputeTotals(lines)
	e.Obj(func(e *jx.Encoder) {
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range lines {
					encodeLine(e, l)
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { money(e, totals.Subtotal) })
		e.Field("tax", func(e *jx.Encoder) { money(e, totals.Tax) })
		e.Field("total", func(e *jx.Encoder) { money(e, totals.Total) })
		e.Field("open", func(e *jx.Encoder) { e.Bool(c.Open()) })
	})
}

func encodeSaved(e *jx.Encoder, s collection.SavedComposition) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", str(s.ID))
		e.Field("name", str(s.Name))
		e.Field("baseId", str(s.BaseID))
		e.Field("toppingIds", strs(s.ToppingIDs))
		e.Field("createdAt", func(e *jx.Encoder) { e.Int64(s.CreatedAt.UnixMilli()) })
		if s.Note != "" {
			e.Field("note", str(s.Note))
		}
	})
}

func encodeCheckout(e *jx.Encoder, v checkout.View) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", str(v.Status.String()))
		e.Field("amountDue", func(e *jx.Encoder) { money(e, v.AmountDue) })
		e.Field("closing", func(e *jx.Encoder) { e.Bool(v.Closing) })
		if v.Error != "" {
			e.Field("error", str(v.Error))
		}
		if v.Order != nil {
			o := v.Order
			e.Field("order", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", str(o.ID))
					e.Field("paymentRef", str(o.PaymentRef))
					e.Field("subtotal", func(e *jx.Encoder) { money(e, o.Subtotal) })
					e.Field("tax", func(e *jx.Encoder) { money(e, o.Tax) })
					e.Field("total", func(e *jx.Encoder) { money(e, o.Total) })
					e.Field("lineCount", func(e *jx.Encoder) { e.Int(len(o.Lines)) })
				})
			})
		}
	})
}
