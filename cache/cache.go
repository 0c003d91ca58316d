package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"

	"rdr-dashboard/config"
)

// Cache wraps Ristretto to hold backend response bodies in process
type Cache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

// New creates a new cache instance with the given configuration
func New(cfg config.CacheConfig) (*Cache, error) {
	// Bodies are costed by their length, so MaxCost is a byte budget
	maxCost := int64(cfg.MaxSizeMB) * 1024 * 1024

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.CounterSize), // Number of keys to track frequency for admission
		MaxCost:     maxCost,
		BufferItems: 64, // Number of keys per Get buffer
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("max_size_mb", cfg.MaxSizeMB).
		Int("ttl_seconds", cfg.TTLSeconds).
		Int("counter_size", cfg.CounterSize).
		Msg("Response cache initialized")

	return &Cache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

// Get returns the body stored under key
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	v, ok := c.client.Get(key)
	if !ok {
		return nil, false
	}
	body, ok := v.([]byte)
	return body, ok
}

// Set stores body with the configured TTL. Admission is asynchronous and
// may drop the entry; the result reports whether it was queued.
func (c *Cache) Set(key string, body []byte) bool {
	if c == nil || c.client == nil {
		return false
	}
	return c.client.SetWithTTL(key, body, int64(len(body))+int64(len(key)), c.ttl)
}

// Delete removes a key from the cache
func (c *Cache) Delete(key string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(key)
}

// Wait blocks until queued sets are applied
func (c *Cache) Wait() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Wait()
}

// Close cleanly shuts down the cache
func (c *Cache) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
		log.Info().Msg("Response cache closed")
	}
}

// MetricsSnapshot is the JSON form of the Ristretto counters
type MetricsSnapshot struct {
	Hits         uint64  `json:"hits"`
	Misses       uint64  `json:"misses"`
	KeysAdded    uint64  `json:"keys_added"`
	KeysEvicted  uint64  `json:"keys_evicted"`
	CostAdded    uint64  `json:"cost_added"`
	CostEvicted  uint64  `json:"cost_evicted"`
	SetsDropped  uint64  `json:"sets_dropped"`
	SetsRejected uint64  `json:"sets_rejected"`
	GetsDropped  uint64  `json:"gets_dropped"`
	HitRatio     float64 `json:"hit_ratio"`
	TTLSeconds   int     `json:"ttl_seconds"`
}

// GetMetricsSnapshot returns current cache metrics as a snapshot
func (c *Cache) GetMetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return MetricsSnapshot{}
	}
	if c.client == nil || c.client.Metrics == nil {
		return MetricsSnapshot{TTLSeconds: int(c.ttl.Seconds())}
	}

	m := c.client.Metrics
	return MetricsSnapshot{
		Hits:         m.Hits(),
		Misses:       m.Misses(),
		KeysAdded:    m.KeysAdded(),
		KeysEvicted:  m.KeysEvicted(),
		CostAdded:    m.CostAdded(),
		CostEvicted:  m.CostEvicted(),
		SetsDropped:  m.SetsDropped(),
		SetsRejected: m.SetsRejected(),
		GetsDropped:  m.GetsDropped(),
		HitRatio:     m.Ratio(),
		TTLSeconds:   int(c.ttl.Seconds()),
	}
}
