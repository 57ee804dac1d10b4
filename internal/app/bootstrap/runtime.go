// Package bootstrap assembles the assistant from configuration. Binaries
// share it so the server, the terminal chat and the smoke tests wire the
// same stack.
package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/store"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Storage is the opened persistence layer. Redis is nil unless REDIS_ADDR
// points at a reachable server.
type Storage struct {
	Store  store.Store
	Redis  *redis.Client
	Driver string

	closers []func()
}

// Close releases every handle opened by OpenStorage, newest first.
func (s *Storage) Close() {
	if s == nil {
		return
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStorage opens the appointment store named by STORE_DRIVER. When Redis
// is reachable, history and sessions move there and appointments stay in
// the SQL store.
func OpenStorage(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	st := &Storage{Driver: cfg.StoreDriver}
	switch cfg.StoreDriver {
	case "memory":
		st.Store = store.NewMemoryStore()
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, errors.New("bootstrap: DATABASE_URL is required for the postgres store")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		st.Store = store.NewPostgresStore(pool)
		st.closers = append(st.closers, pool.Close)
	case "", "sqlite":
		sqlite, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open sqlite: %w", err)
		}
		st.Driver = "sqlite"
		st.Store = sqlite
		st.closers = append(st.closers, func() { _ = sqlite.Close() })
	default:
		return nil, fmt.Errorf("bootstrap: unknown store driver %q", cfg.StoreDriver)
	}

	if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
		st.Redis = client
		st.Store = store.NewComposite(store.NewRedisConversationStore(client, cfg.ConversationTTL), st.Store)
		st.closers = append(st.closers, func() { _ = client.Close() })
		logger.Info("conversation state stored in redis", "ttl", cfg.ConversationTTL.String())
	}

	logger.Info("store opened", "driver", st.Driver)
	return st, nil
}
