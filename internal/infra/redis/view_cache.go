package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ViewCache caches encoded view payloads in Redis and falls back to the
// loader on a miss. Entries are stored as: SET {prefix}view:{key} {payload} EX ttl
type ViewCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewViewCache(client *redis.Client, prefix string, ttl time.Duration) *ViewCache {
	return &ViewCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ViewCache) Fetch(ctx context.Context, key string, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	redisKey := c.key(key)
	if payload, err := c.client.Get(ctx, redisKey).Bytes(); err == nil {
		return payload, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if payload, err := c.client.Get(ctx, redisKey).Bytes(); err == nil {
			return payload, nil
		}

		payload, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			// best effort: a failed write only costs a reload
			_ = c.client.Set(ctx, redisKey, payload, ttl).Err()
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Invalidate drops a cached view.
func (c *ViewCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *ViewCache) key(key string) string {
	return c.prefix + "view:" + key
}

func (c *ViewCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
