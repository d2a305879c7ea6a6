// Package collection persists the customer's named favourite compositions as
// one serialized list under a fixed key.
package collection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
)

// StorageKey is the single key the whole list lives under.
const StorageKey = "waffle_mania_saved"

// ErrNotFound is returned by Get for an unknown composition id.
var ErrNotFound = errors.New("saved composition not found")

// SavedComposition is a named, persisted configuration. It is never updated
// in place; editing one produces a new in-memory configuration.
type SavedComposition struct {
	ID         string
	Name       string
	BaseID     string
	ToppingIDs []string
	CreatedAt  time.Time
	Note       string
}

// Backend is the durable byte store the list is written to, already bound to
// the customer's scope.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// record is the on-disk shape. Unknown fields are ignored on read and a
// missing aiDescription stays absent.
type record struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	BaseID        string   `json:"baseId"`
	ToppingIDs    []string `json:"toppingIds"`
	Date          int64    `json:"date"`
	AIDescription *string  `json:"aiDescription,omitempty"`
}

func (r record) toDomain() SavedComposition {
	s := SavedComposition{
		ID:         r.ID,
		Name:       r.Name,
		BaseID:     r.BaseID,
		ToppingIDs: append([]string{}, r.ToppingIDs...),
		CreatedAt:  time.UnixMilli(r.Date).UTC(),
	}
	if r.AIDescription != nil {
		s.Note = *r.AIDescription
	}
	return s
}

func fromDomain(s SavedComposition) record {
	r := record{
		ID:         s.ID,
		Name:       s.Name,
		BaseID:     s.BaseID,
		ToppingIDs: append([]string{}, s.ToppingIDs...),
		Date:       s.CreatedAt.UnixMilli(),
	}
	if s.Note != "" {
		note := s.Note
		r.AIDescription = &note
	}
	return r
}

// Decode parses a stored list. It is exported for bulk import tooling that
// reads the same format.
func Decode(data []byte) ([]SavedComposition, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	out := make([]SavedComposition, 0, len(records))
	for _, r := range records {
		if r.ID == "" || r.BaseID == "" {
			return nil, errors.Errorf("record %q missing id or baseId", r.ID)
		}
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Encode serializes a list in the stored format.
func Encode(items []SavedComposition) ([]byte, error) {
	records := make([]record, len(items))
	for i, s := range items {
		records[i] = fromDomain(s)
	}
	return json.Marshal(records)
}
