// Package cache keeps the latest published NAV per ISIN in Redis so intake
// can price collateral lines submitted without a NAV.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	navKeyPrefix  = "nav:"
	defaultNAVTTL = 24 * time.Hour
)

// ErrNAVNotCached is returned when no NAV is known for an ISIN.
var ErrNAVNotCached = errors.New("NAV not cached")

// NAVCache stores NAVs keyed by ISIN.
type NAVCache struct {
	Rdb *redis.Client
	TTL time.Duration
}

// NewNAVCache wraps rdb. A non-positive ttl falls back to one day.
func NewNAVCache(rdb *redis.Client, ttl time.Duration) *NAVCache {
	if ttl <= 0 {
		ttl = defaultNAVTTL
	}
	return &NAVCache{Rdb: rdb, TTL: ttl}
}

func (c *NAVCache) SetNAV(ctx context.Context, isin string, nav decimal.Decimal) error {
	return c.Rdb.Set(ctx, navKeyPrefix+isin, nav.StringFixed(2), c.TTL).Err()
}

func (c *NAVCache) GetNAV(ctx context.Context, isin string) (decimal.Decimal, error) {
	s, err := c.Rdb.Get(ctx, navKeyPrefix+isin).Result()
	if err == redis.Nil {
		return decimal.Zero, ErrNAVNotCached
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}
