package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codemaster-service/internal/app"
	"codemaster-service/internal/config"
	"codemaster-service/internal/infra/bolt"
	"codemaster-service/internal/infra/memory"
	pgstore "codemaster-service/internal/infra/postgres"
	redisstore "codemaster-service/internal/infra/redis"
	"codemaster-service/internal/logger"
)

// openUserStore opens the configured learner store. If it cannot be reached
// the service keeps running on the in-memory store.
func openUserStore(ctx context.Context, cfg config.Config, client *redis.Client, log *logger.Logger) (app.UserStore, func()) {
	store, closer, err := dialUserStore(ctx, cfg, client)
	if err != nil {
		log.Warn("learner store unavailable, falling back to memory", "driver", cfg.Store.Driver, "error", err)
		return memory.NewUserStore(), func() {}
	}
	log.Info("learner store ready", "driver", cfg.Store.Driver)
	return store, closer
}

func dialUserStore(ctx context.Context, cfg config.Config, client *redis.Client) (app.UserStore, func(), error) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.NewUserStore(), func() {}, nil
	case config.DriverBolt:
		store, err := bolt.Open(cfg.Store.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.DriverRedis:
		if client == nil {
			return nil, nil, fmt.Errorf("redis store: redis.addr not configured")
		}
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis store: %w", err)
		}
		return redisstore.NewUserStore(client), func() {}, nil
	case config.DriverPostgres:
		if cfg.Postgres.URL == "" {
			return nil, nil, fmt.Errorf("postgres store: postgres.url not configured")
		}
		db := pgstore.OpenDB(cfg.Postgres.URL)
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		return pgstore.NewUserStore(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
