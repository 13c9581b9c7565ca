package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ViewCache caches encoded view payloads with TTL to avoid repeated API hits.
type ViewCache struct {
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedView
}

type cachedView struct {
	payload   []byte
	expiresAt time.Time
}

func NewViewCache(ttl time.Duration) *ViewCache {
	return &ViewCache{
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedView),
	}
}

// NewViewCacheWithClock is test-only for deterministic expiry.
func NewViewCacheWithClock(ttl time.Duration, now func() time.Time) *ViewCache {
	c := NewViewCache(ttl)
	c.clock = now
	return c
}

func (c *ViewCache) Fetch(ctx context.Context, key string, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if payload, ok := c.lookup(key); ok {
		return payload, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if payload, ok := c.lookup(key); ok {
			return payload, nil
		}

		payload, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			c.cache[key] = cachedView{
				payload:   payload,
				expiresAt: c.clock().Add(c.ttlWithJitter()),
			}
			c.mu.Unlock()
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Invalidate drops a cached view.
func (c *ViewCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
	return nil
}

func (c *ViewCache) lookup(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return entry.payload, true
}

func (c *ViewCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
