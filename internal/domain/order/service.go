package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/waffle-kart/internal/domain/cart"
)

// Sentinel errors for order validation.
var (
	ErrEmptyLines        = fmt.Errorf("lines required")
	ErrMissingPaymentRef = fmt.Errorf("payment reference required")
)

// PlaceOrderRequest holds the input for recording a paid order.
type PlaceOrderRequest struct {
	Lines      []cart.Line
	PaymentRef string
}

// Service records orders once a charge has gone through.
type Service struct {
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service writing to orders.
func NewService(orders Repository) *Service {
	return &Service{
		orders: orders,
		now:    time.Now,
	}
}

// PlaceOrder prices the lines, assigns an id and persists the order. Lines
// are copied so the caller may clear its cart afterwards.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	if req.PaymentRef == "" {
		return nil, ErrMissingPaymentRef
	}

	lines := append([]cart.Line(nil), req.Lines...)
	totals := cart.ComputeTotals(lines)

	o := &Order{
		ID:         newOrderID(),
		Lines:      lines,
		Subtotal:   totals.Subtotal,
		Tax:        totals.Tax,
		Total:      totals.Total,
		PaymentRef: req.PaymentRef,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return o, nil
}

func newOrderID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
