package lease

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gamewatch/internal/config"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease is a single-holder lock with expiry, shared by every replica
// pointing at the same key.
type RedisLease struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLease(cfg config.LeaseConfig, logger *slog.Logger) (*RedisLease, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("lease: redis address is required")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("lease: key is required")
	}
	ttl := config.ParseDuration(cfg.TTL)
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisLease{
		client: client,
		key:    cfg.Key,
		ttl:    ttl,
		logger: logger.With("component", "lease", "key", cfg.Key),
	}, nil
}

func (l *RedisLease) Name() string {
	return "lease"
}

func (l *RedisLease) Validate() error {
	return nil
}

func (l *RedisLease) Initialize(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("lease: failed to reach redis: %w", err)
	}
	l.logger.Info("Cycle lease ready", "ttl", l.ttl)
	return nil
}

// Acquire takes the lease if it is free. The returned release func is nil
// when acquired is false.
func (l *RedisLease) Acquire(ctx context.Context) (func(context.Context) error, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lease: acquire: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("lease: release: %w", err)
		}
		return nil
	}

	return release, true, nil
}

func (l *RedisLease) Close(ctx context.Context) error {
	return l.client.Close()
}
