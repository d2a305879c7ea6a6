// Package advisory is the boundary to the external waffle sommelier. Anything
// it returns is untrusted until it has been parsed and checked against the
// catalog.
package advisory

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/waffle-kart/internal/domain/catalog"
	"github.com/xenking/waffle-kart/internal/domain/composition"
)

var (
	// ErrUnavailable is returned when no advisory service is configured.
	ErrUnavailable = errors.New("advisory service unavailable")
	// ErrRequestFailed is the sentinel behind every RequestFailedError.
	ErrRequestFailed = errors.New("advisory request failed")
)

// RequestFailedError wraps a transport, status or decoding failure.
type RequestFailedError struct {
	Op  string
	Err error
}

func (e *RequestFailedError) Error() string {
	return "advisory " + e.Op + ": " + e.Err.Error()
}

func (e *RequestFailedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRequestFailed) match.
func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}

// Suggestion is a curated combination as returned by the service.
type Suggestion struct {
	BaseID     string
	ToppingIDs []string
	Reason     string
}

// Advisor maps free-text mood to a suggestion.
type Advisor interface {
	Curate(ctx context.Context, mood string) (*Suggestion, error)
}

// Describer writes a short description for a composition.
type Describer interface {
	Describe(ctx context.Context, baseName string, toppingNames []string) (string, error)
}

// Unavailable is the advisor used when the service is not configured.
type Unavailable struct{}

var (
	_ Advisor   = Unavailable{}
	_ Describer = Unavailable{}
)

// Curate always fails with ErrUnavailable.
func (Unavailable) Curate(context.Context, string) (*Suggestion, error) {
	return nil, ErrUnavailable
}

// Describe always fails with ErrUnavailable.
func (Unavailable) Describe(context.Context, string, []string) (string, error) {
	return "", ErrUnavailable
}

// ParseSuggestion decodes {baseId, toppingIds, reason}. All three fields must
// be present with the right JSON types; unknown fields are skipped.
func ParseSuggestion(data []byte) (*Suggestion, error) {
	var (
		s                           Suggestion
		hasBase, hasTops, hasReason bool
	)
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return nil, errors.New("suggestion is not an object")
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "baseId":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "baseId")
			}
			s.BaseID, hasBase = v, true
		case "toppingIds":
			s.ToppingIDs = []string{}
			if err := d.Arr(func(d *jx.Decoder) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				s.ToppingIDs = append(s.ToppingIDs, v)
				return nil
			}); err != nil {
				return errors.Wrap(err, "toppingIds")
			}
			hasTops = true
		case "reason":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "reason")
			}
			s.Reason, hasReason = v, true
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode suggestion")
	}
	// Whitespace may follow the object; anything else may not.
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after suggestion")
	}

	switch {
	case !hasBase:
		return nil, errors.New("suggestion missing baseId")
	case !hasTops:
		return nil, errors.New("suggestion missing toppingIds")
	case !hasReason:
		return nil, errors.New("suggestion missing reason")
	}
	return &s, nil
}

// Outcome reports what Apply actually changed.
type Outcome struct {
	// BaseApplied is false when the suggested base was not in the catalog and
	// the configuration kept its previous base.
	BaseApplied bool
	// Toppings is the valid subset that was applied, in suggestion order.
	Toppings []string
	// Dropped lists suggested topping ids that were not in the catalog.
	Dropped []string
}

// Sanitize filters a suggestion against the catalog. The base is kept only if
// it exists; each topping is checked on its own and unknown ones are dropped,
// so one bad id does not throw away the rest of the suggestion.
func Sanitize(c *catalog.Catalog, s *Suggestion) (baseID string, out Outcome) {
	if _, ok := c.FindBase(s.BaseID); ok {
		baseID = s.BaseID
		out.BaseApplied = true
	}
	seen := make(map[string]struct{}, len(s.ToppingIDs))
	out.Toppings = make([]string, 0, len(s.ToppingIDs))
	for _, id := range s.ToppingIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := c.FindTopping(id); !ok {
			out.Dropped = append(out.Dropped, id)
			continue
		}
		out.Toppings = append(out.Toppings, id)
	}
	return baseID, out
}

// Apply merges a sanitized suggestion into cfg: the base when valid, the valid
// topping subset (possibly empty) and the reason as the note.
func Apply(cfg *composition.Configuration, s *Suggestion) (Outcome, error) {
	baseID, out := Sanitize(cfg.Catalog(), s)
	if baseID != "" {
		if err := cfg.SetBase(baseID); err != nil {
			return out, err
		}
	}
	if err := cfg.SetToppings(out.Toppings); err != nil {
		return out, err
	}
	cfg.SetNote(s.Reason)
	return out, nil
}
