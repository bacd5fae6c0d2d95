// Package store creates the storage backends selected by the service
// configuration.
//
//   - memory: readings and inventory in process memory (default). Data is lost
//     on restart.
//   - redis: readings and update history in Redis, inventory in memory.
//   - postgres: readings, update history and inventory in Postgres.
//
// Initialization is fail-fast: the backend is pinged before it is returned.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/HatiCode/healthwatch/cmd/healthwatch/config"
	"github.com/HatiCode/healthwatch/pkg/storage"
)

const (
	pingTimeout      = 5 * time.Second
	postgresMaxConns = 10
)

// Stores holds the backends for both domains.
type Stores struct {
	Readings  storage.ReadingStore
	Inventory storage.InventoryStore

	closers []func() error
}

// Ping checks the readings backend.
func (s *Stores) Ping(ctx context.Context) error {
	return s.Readings.Ping(ctx)
}

// Close releases every backend connection.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// New creates the backends for cfg.Storage.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Stores, error) {
	switch cfg.Storage {
	case config.StorageRedis:
		logger.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("initializing redis storage")
		rs, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("redis storage: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis health check: %w", err)
		}
		logger.Info().Msg("redis storage initialized, inventory kept in memory")
		return &Stores{
			Readings:  rs,
			Inventory: storage.NewMemoryStore(),
			closers:   []func() error{rs.Close},
		}, nil

	case config.StoragePostgres:
		logger.Info().Msg("initializing postgres storage")
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		ps, err := storage.NewPostgresStore(pingCtx, cfg.PostgresDSN, postgresMaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres storage: %w", err)
		}
		logger.Info().Msg("postgres storage initialized")
		return &Stores{
			Readings:  ps,
			Inventory: ps,
			closers:   []func() error{ps.Close},
		}, nil

	case config.StorageMemory:
		logger.Info().Msg("initializing in-memory storage")
		ms := storage.NewMemoryStore()
		return &Stores{Readings: ms, Inventory: ms}, nil

	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.Storage)
	}
}
