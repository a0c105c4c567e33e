package auth

import (
	"context"

	"git.carhub.se/carhub/carhub/src/config"
	"git.carhub.se/carhub/carhub/src/db"
	"git.carhub.se/carhub/carhub/src/logging"
	"git.carhub.se/carhub/carhub/src/oops"
	"github.com/redis/go-redis/v9"
)

// OpenStore connects to the session backend named by cfg.Session.Store. The
// returned close func releases the backend's connections.
func OpenStore(ctx context.Context, cfg config.CarHubConfig) (SessionStore, func(), error) {
	switch cfg.Session.Store {
	case config.StorePostgres:
		pool, err := db.NewConnPoolWithConfig(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, oops.New(err, "failed to open postgres session store")
		}
		return NewPostgresStore(pool, cfg.Session.MaxAge), pool.Close, nil
	case config.StoreRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, oops.New(err, "failed to open redis session store")
		}
		return NewRedisStore(client, cfg.Session.MaxAge), func() {
			if err := client.Close(); err != nil {
				logging.Warn().Err(err).Msg("failed to close redis client")
			}
		}, nil
	case config.StoreMemory:
		if cfg.Env == config.Live {
			logging.Warn().Msg("Using the in-memory session store; sessions will not survive a restart")
		}
		return NewMemoryStore(cfg.Session.MaxAge), func() {}, nil
	default:
		return nil, nil, oops.New(nil, "unknown session store %q", cfg.Session.Store)
	}
}

// Creates a redis client and waits for the server to answer a PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := db.RetryConnect(ctx, "redis", func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, oops.New(err, "failed to ping redis at %s", cfg.Addr)
	}
	return client, nil
}
