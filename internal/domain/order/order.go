package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/waffle-kart/internal/domain/cart"
)

// Order is a confirmed purchase: the cart lines as they were charged.
type Order struct {
	ID         string
	Lines      []cart.Line
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	PaymentRef string
	CreatedAt  time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}
