package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xenking/waffle-kart/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository keeps orders in creation order.
type OrderRepository struct {
	mu     sync.Mutex
	orders []order.Order
	ids    map[string]struct{}
}

// NewOrderRepository returns an empty repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{ids: make(map[string]struct{})}
}

// Create stores a copy of o. Ids must be unique.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[o.ID]; ok {
		return fmt.Errorf("creating order %q: duplicate id", o.ID)
	}
	stored := *o
	stored.Lines = append(stored.Lines[:0:0], o.Lines...)
	r.orders = append(r.orders, stored)
	r.ids[o.ID] = struct{}{}
	return nil
}

// List returns all orders, oldest first.
func (r *OrderRepository) List() []order.Order {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]order.Order(nil), r.orders...)
}
