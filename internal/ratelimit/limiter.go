// Package ratelimit throttles storefront endpoints per client key. Backed by
// ulule/limiter: Redis store in production, in-memory store in tests.
package ratelimit

import (
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limitermem "github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Rate builds a limiter rate of max events per period.
func Rate(max int64, period time.Duration) limiter.Rate {
	return limiter.Rate{Limit: max, Period: period}
}

// NewRedis builds a limiter backed by a shared Redis store so the limit holds
// across API replicas.
func NewRedis(rdb *redis.Client, rate limiter.Rate, prefix string) (*limiter.Limiter, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

// NewMemory builds a process-local limiter for tests and development.
func NewMemory(rate limiter.Rate) *limiter.Limiter {
	return limiter.New(limitermem.NewStore(), rate)
}
