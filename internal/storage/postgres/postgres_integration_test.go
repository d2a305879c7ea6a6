//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/waffle-kart/internal/domain/cart"
	"github.com/xenking/waffle-kart/internal/domain/order"
	"github.com/xenking/waffle-kart/internal/kv"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "waffle",
				"POSTGRES_PASSWORD": "waffle",
				"POSTGRES_DB":       "waffle",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	pool, err := NewPool(ctx, fmt.Sprintf("postgres://waffle:waffle@%s:%s/waffle?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// Idempotent.
	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func TestPostgres(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	t.Run("KV", func(t *testing.T) {
		s := NewKVStore(pool)
		require.NoError(t, s.Ping(ctx))

		_, err := s.Get(ctx, "alice", "waffle_mania_saved")
		require.ErrorIs(t, err, kv.ErrNotFound)

		require.NoError(t, s.Put(ctx, "alice", "waffle_mania_saved", []byte(`[]`)))
		require.NoError(t, s.Put(ctx, "alice", "waffle_mania_saved", []byte(`[{"id":"1"}]`)))
		require.NoError(t, s.Put(ctx, "bob", "waffle_mania_saved", []byte(`[]`)))

		got, err := s.Get(ctx, "alice", "waffle_mania_saved")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"1"}]`, string(got))
	})

	t.Run("Orders", func(t *testing.T) {
		r := NewOrderRepository(pool)
		o := &order.Order{
			ID: "order-1",
			Lines: []cart.Line{{
				ID:        "line-1",
				Name:      "Berry Bliss",
				UnitPrice: decimal.RequireFromString("13.50"),
				Category:  cart.CategorySpecial,
			}},
			Subtotal:   decimal.RequireFromString("13.50"),
			Tax:        decimal.RequireFromString("1.08"),
			Total:      decimal.RequireFromString("14.58"),
			PaymentRef: "sim_1",
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, r.Create(ctx, o))

		var total decimal.Decimal
		require.NoError(t, pool.QueryRow(ctx, `SELECT total FROM orders WHERE id = $1`, o.ID).Scan(&total))
		assert.True(t, o.Total.Equal(total), total.String())

		require.Error(t, r.Create(ctx, o), "duplicate id")
	})
}
