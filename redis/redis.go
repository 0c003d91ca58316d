package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"rdr-dashboard/config"
)

// NewClient connects to the shared response cache and verifies the
// connection with a PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		ReadTimeout:  time.Duration(cfg.OperationTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.OperationTimeout) * time.Second,
	})

	if err := Ping(ctx, rdb, time.Duration(cfg.OperationTimeout)*time.Second); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Address, err)
	}

	log.Info().Str("address", cfg.Address).Int("db", cfg.DB).Msg("Connected to Redis successfully")
	return rdb, nil
}

// Ping checks the connection within timeout
func Ping(ctx context.Context, rdb *redis.Client, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
