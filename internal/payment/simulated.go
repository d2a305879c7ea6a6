// Package payment provides payment processors for checkout.
package payment

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/waffle-kart/internal/domain/checkout"
)

// ErrDeclined is returned for cards the simulator is configured to refuse.
var ErrDeclined = errors.New("card declined")

var _ checkout.Processor = (*Simulated)(nil)

// Simulated approves every charge after a fixed delay, except for card
// numbers ending in DeclineSuffix.
type Simulated struct {
	Delay         time.Duration
	DeclineSuffix string
}

// NewSimulated returns a simulator with the given latency and decline rule.
// An empty suffix declines nothing.
func NewSimulated(delay time.Duration, declineSuffix string) *Simulated {
	return &Simulated{Delay: delay, DeclineSuffix: declineSuffix}
}

// Charge waits out the delay, then approves or declines.
func (s *Simulated) Charge(ctx context.Context, amount decimal.Decimal, details checkout.Details) (checkout.Receipt, error) {
	if !amount.IsPositive() {
		return checkout.Receipt{}, errors.Errorf("invalid amount %s", amount.StringFixed(2))
	}

	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return checkout.Receipt{}, errors.Wrap(ctx.Err(), "charge")
		case <-timer.C:
		}
	}

	lg := zctx.From(ctx)
	if s.DeclineSuffix != "" && strings.HasSuffix(details.CardNumber, s.DeclineSuffix) {
		lg.Info("Simulated charge declined", zap.String("amount", amount.StringFixed(2)))
		return checkout.Receipt{}, ErrDeclined
	}

	ref := "sim_" + uuid.NewString()
	lg.Info("Simulated charge approved",
		zap.String("amount", amount.StringFixed(2)),
		zap.String("reference", ref),
	)
	return checkout.Receipt{Reference: ref}, nil
}
