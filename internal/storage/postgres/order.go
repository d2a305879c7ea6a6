package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/waffle-kart/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

type orderLine struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ImageRef    string          `json:"image_ref"`
	Category    string          `json:"category"`
}

// Create persists a new order. The lines are serialized to JSON for storage
// in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	lines := make([]orderLine, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLine{
			ID:          l.ID,
			Name:        l.Name,
			Description: l.Description,
			UnitPrice:   l.UnitPrice,
			ImageRef:    l.ImageRef,
			Category:    string(l.Category),
		}
	}
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO orders (id, lines, subtotal, tax, total, payment_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, linesJSON, o.Subtotal, o.Tax, o.Total, o.PaymentRef, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}
