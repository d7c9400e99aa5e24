// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"dispatch-workers/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient holds the connection used for per-doctor dispatch locks.
type RedisClient struct {
	Client *redis.Client
	addr   string
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	return &RedisClient{Client: redis.NewClient(redisOptions(cfg)), addr: cfg.Address}, nil
}

// redisOptions sizes the pool for short lock round trips. Every lock attempt is one SET NX or
// one EVAL, so read and write timeouts stay well under the lock wait.
func redisOptions(cfg config.RedisConfig) *redis.Options {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	return &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     poolSize,
		MinIdleConns: 2,
		MaxRetries:   1,
	}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.addr, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
