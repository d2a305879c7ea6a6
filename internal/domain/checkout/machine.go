package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/waffle-kart/internal/domain/cart"
	"github.com/xenking/waffle-kart/internal/domain/order"
)

// OrderPlacer records a paid order.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
}

// View is a point-in-time copy of the machine state.
type View struct {
	Status    Status
	AmountDue decimal.Decimal
	// Closing is set between Dismiss and Reset.
	Closing bool
	// Error is the last payment failure, set only in StatusFailed.
	Error string
	// Order is the recorded order after a successful payment, when recording
	// worked.
	Order *order.Order
}

// Machine is one customer's checkout session.
//
// Payment is the only blocking step and runs without the lock held, so other
// calls proceed while a charge is pending. Each Dismiss starts a new
// generation; a charge that completes under an older generation is dropped.
type Machine struct {
	cart      *cart.Cart
	processor Processor
	orders    OrderPlacer
	metrics   *Metrics
	now       func() time.Time

	mu         sync.Mutex
	status     Status
	amountDue  decimal.Decimal
	lines      []cart.Line
	closing    bool
	generation uint64
	lastErr    string
	lastOrder  *order.Order
}

// NewMachine returns an idle machine over c. orders may be nil, in which case
// paid orders are not recorded.
func NewMachine(c *cart.Cart, processor Processor, orders OrderPlacer, metrics *Metrics) *Machine {
	return &Machine{
		cart:      c,
		processor: processor,
		orders:    orders,
		metrics:   metrics,
		now:       time.Now,
		status:    StatusIdle,
		amountDue: decimal.Zero,
	}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Machine) viewLocked() View {
	return View{
		Status:    m.status,
		AmountDue: m.amountDue,
		Closing:   m.closing,
		Error:     m.lastErr,
		Order:     m.lastOrder,
	}
}

// Open shows the payment form and freezes the cart lines and their total.
// Lines added afterwards are neither charged nor recorded and stay in the
// cart after payment.
func (m *Machine) Open() (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Retry, not Open, is the way back to the form from failed.
	if m.closing || m.status != StatusIdle {
		return m.viewLocked(), &InvalidTransitionError{From: m.status, To: StatusForm}
	}
	if m.cart.Len() == 0 {
		return m.viewLocked(), ErrEmptyCart
	}

	m.status = StatusForm
	m.lines = m.cart.Lines()
	m.amountDue = cart.ComputeTotals(m.lines).Total
	return m.viewLocked(), nil
}

// Submit charges the frozen amount. It blocks until the processor answers.
// A second Submit while one is pending fails with ErrSubmitInProgress and
// never reaches the processor.
func (m *Machine) Submit(ctx context.Context, details Details) (View, error) {
	details = details.Normalized()

	m.mu.Lock()
	switch {
	case m.status == StatusSubmitting:
		m.mu.Unlock()
		return m.Snapshot(), ErrSubmitInProgress
	case m.closing:
		err := &InvalidTransitionError{From: m.status, To: StatusSubmitting}
		v := m.viewLocked()
		m.mu.Unlock()
		return v, err
	}
	if err := validateTransition(m.status, StatusSubmitting); err != nil {
		v := m.viewLocked()
		m.mu.Unlock()
		return v, err
	}
	if err := details.Validate(m.now()); err != nil {
		v := m.viewLocked()
		m.mu.Unlock()
		return v, err
	}

	m.status = StatusSubmitting
	m.lastErr = ""
	gen := m.generation
	amount := m.amountDue
	lines := m.lines
	m.mu.Unlock()

	receipt, chargeErr := m.processor.Charge(ctx, amount, details)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		zctx.From(ctx).Info("Discarding payment result for dismissed checkout",
			zap.String("amount", amount.StringFixed(2)),
			zap.Bool("charged", chargeErr == nil),
		)
		m.metrics.discard(ctx)
		return m.viewLocked(), ErrDismissed
	}

	if chargeErr != nil {
		m.status = StatusFailed
		m.lastErr = chargeErr.Error()
		m.metrics.attempt(ctx, StatusFailed)
		return m.viewLocked(), &PaymentFailedError{Err: chargeErr}
	}

	m.status = StatusSucceeded
	paid := make([]string, len(lines))
	for i, l := range lines {
		paid[i] = l.ID
	}
	m.cart.RemoveLines(paid)
	m.metrics.attempt(ctx, StatusSucceeded)
	m.lastOrder = m.recordOrder(ctx, lines, receipt)
	return m.viewLocked(), nil
}

// recordOrder persists the paid order. The customer has been charged, so a
// recording failure is logged and does not fail the checkout.
func (m *Machine) recordOrder(ctx context.Context, lines []cart.Line, receipt Receipt) *order.Order {
	if m.orders == nil {
		return nil
	}
	o, err := m.orders.PlaceOrder(context.WithoutCancel(ctx), order.PlaceOrderRequest{
		Lines:      lines,
		PaymentRef: receipt.Reference,
	})
	if err != nil {
		zctx.From(ctx).Error("Failed to record paid order",
			zap.String("payment_ref", receipt.Reference),
			zap.Error(err),
		)
		return nil
	}
	return o
}

// Retry returns a failed checkout to the form with the same amount due.
func (m *Machine) Retry() (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusFailed || m.closing {
		return m.viewLocked(), &InvalidTransitionError{From: m.status, To: StatusForm}
	}
	m.status = StatusForm
	m.lastErr = ""
	return m.viewLocked(), nil
}

// Dismiss closes the checkout from any state. The state stays visible until
// Reset acknowledges the close; a pending payment result is discarded.
// Dismissing an idle machine does nothing.
func (m *Machine) Dismiss() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusIdle && !m.closing {
		return m.viewLocked()
	}
	if !m.closing {
		m.closing = true
		m.generation++
	}
	return m.viewLocked()
}

// Reset completes a dismissal and restores the pristine idle state. It fails
// if Dismiss was not called first, except on an already idle machine.
func (m *Machine) Reset() (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closing {
		if m.status == StatusIdle {
			return m.viewLocked(), nil
		}
		return m.viewLocked(), errors.Wrap(
			&InvalidTransitionError{From: m.status, To: StatusIdle},
			"dismiss before reset",
		)
	}

	m.status = StatusIdle
	m.amountDue = decimal.Zero
	m.lines = nil
	m.closing = false
	m.lastErr = ""
	m.lastOrder = nil
	return m.viewLocked(), nil
}

// Close dismisses and resets in one step. The owning workspace calls it on
// teardown.
func (m *Machine) Close() {
	m.Dismiss()
	_, _ = m.Reset()
}
