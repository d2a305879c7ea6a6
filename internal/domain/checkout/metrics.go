package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts payment attempts by outcome. A nil *Metrics records nothing.
type Metrics struct {
	attempts metric.Int64Counter
	discards metric.Int64Counter
}

// NewMetrics registers the checkout instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("waffle-kart/checkout")

	attempts, err := meter.Int64Counter("checkout.payment.attempts",
		metric.WithDescription("Payment attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "attempts counter")
	}
	discards, err := meter.Int64Counter("checkout.payment.discarded",
		metric.WithDescription("Payment results that arrived after the checkout was dismissed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "discards counter")
	}
	return &Metrics{attempts: attempts, discards: discards}, nil
}

func (m *Metrics) attempt(ctx context.Context, outcome Status) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
}

func (m *Metrics) discard(ctx context.Context) {
	if m == nil {
		return
	}
	m.discards.Add(ctx, 1)
}
