package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Tiered is the backend response cache: an in-process tier in front of an
// optional redis tier shared between dashboard instances. Either tier may
// be nil. Redis failures degrade to a miss.
type Tiered struct {
	local   *Cache
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewTiered combines the tiers. ttl applies to redis entries.
func NewTiered(local *Cache, rdb *redis.Client, prefix string, ttl, timeout time.Duration) *Tiered {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Tiered{local: local, rdb: rdb, prefix: prefix, ttl: ttl, timeout: timeout}
}

// Key maps a request URL to its cache key
func (t *Tiered) Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return t.prefix + hex.EncodeToString(sum[:])
}

// Get looks the URL up in process first, then in redis. A redis hit is
// promoted to the local tier.
func (t *Tiered) Get(ctx context.Context, url string) ([]byte, bool) {
	key := t.Key(url)
	if body, ok := t.local.Get(key); ok {
		return body, true
	}
	if t.rdb == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	body, err := t.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("Redis cache read failed")
		}
		return nil, false
	}
	t.local.Set(key, body)
	return body, true
}

// Set stores body in every configured tier
func (t *Tiered) Set(ctx context.Context, url string, body []byte) {
	key := t.Key(url)
	t.local.Set(key, body)
	if t.rdb == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if err := t.rdb.Set(ctx, key, body, t.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis cache write failed")
	}
}

// Local returns the in-process tier, possibly nil
func (t *Tiered) Local() *Cache { return t.local }
