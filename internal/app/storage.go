package app

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/waffle-kart/internal/domain/order"
	"github.com/xenking/waffle-kart/internal/kv"
	"github.com/xenking/waffle-kart/internal/storage/file"
	"github.com/xenking/waffle-kart/internal/storage/memory"
	"github.com/xenking/waffle-kart/internal/storage/postgres"
)

// Storage is the opened storage driver.
type Storage struct {
	KV     kv.Store
	Orders order.Repository
	// Durable reports whether paid orders survive a restart.
	Durable bool

	close func()
}

// Close releases the driver's resources.
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage opens the configured driver. The postgres driver applies
// migrations before returning.
func OpenStorage(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	switch cfg.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		return &Storage{
			KV:      postgres.NewKVStore(pool),
			Orders:  postgres.NewOrderRepository(pool),
			Durable: true,
			close:   pool.Close,
		}, nil
	case DriverFile:
		store, err := file.NewKV(cfg.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "open file storage")
		}
		return &Storage{KV: store, Orders: memory.NewOrderRepository()}, nil
	case DriverMemory, "":
		return &Storage{KV: memory.NewKV(), Orders: memory.NewOrderRepository()}, nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
