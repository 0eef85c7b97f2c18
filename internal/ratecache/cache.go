// Package ratecache caches the effective interest rate per account type in Redis.
package ratecache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sacco/internal/domain"
)

const keyPrefix = "sacco:rate:"

// Cache keeps effective rates for a bounded TTL.
//
// Entries are keyed by UTC day and never outlive it, so a rate published
// with a future effective date is picked up on that date.
type Cache struct {
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// Option configures Cache.
type Option func(*Cache)

// WithClock replaces the wall clock that picks the cache day.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New returns a Cache backed by the given redis client.
func New(rdb *redis.Client, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		cache: cache.New(&cache.Options{Redis: rdb}),
		ttl:   ttl,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func key(accountType domain.AccountType, day time.Time) string {
	return keyPrefix + string(accountType) + ":" + day.Format("20060102")
}

// entry returns the key for today and a TTL that ends no later than midnight UTC.
func (c *Cache) entry(accountType domain.AccountType) (string, time.Duration) {
	now := c.now().UTC()
	day := now.Truncate(24 * time.Hour)

	ttl := c.ttl
	if left := day.Add(24 * time.Hour).Sub(now); left < ttl {
		ttl = left
	}

	// go-redis/cache replaces TTLs under a second with its one hour default.
	if ttl < time.Second {
		ttl = time.Second
	}

	return key(accountType, day), ttl
}

// Once returns the cached rate of the account type or stores the loaded one.
//
// Concurrent misses for the same key call load only once.
func (c *Cache) Once(ctx context.Context, accountType domain.AccountType, load func(ctx context.Context) (decimal.Decimal, error)) (decimal.Decimal, error) {
	var raw string

	k, ttl := c.entry(accountType)

	err := c.cache.Once(&cache.Item{
		Ctx:   ctx,
		Key:   k,
		Value: &raw,
		TTL:   ttl,
		Do: func(*cache.Item) (interface{}, error) {
			rate, err := load(ctx)
			if err != nil {
				return nil, err
			}

			return rate.String(), nil
		},
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	return decimal.NewFromString(raw)
}

// Invalidate drops today's cached rate of the account type.
func (c *Cache) Invalidate(ctx context.Context, accountType domain.AccountType) error {
	k, _ := c.entry(accountType)

	err := c.cache.Delete(ctx, k)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return err
	}

	return nil
}
