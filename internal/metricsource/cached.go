package metricsource

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/gridsight/control-plane/pkg/contracts"
	"github.com/gridsight/control-plane/pkg/models"
)

// Cached wraps a MetricsProvider and memoizes successful reads for a short
// TTL. Failures are never cached.
type Cached struct {
	next  contracts.MetricsProvider
	cache *expirable.LRU[string, any]
}

// NewCached returns next unchanged when ttl is not positive.
func NewCached(next contracts.MetricsProvider, ttl time.Duration) contracts.MetricsProvider {
	if ttl <= 0 {
		return next
	}
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[string, any](64, nil, ttl),
	}
}

func (c *Cached) LatestMetrics(ctx context.Context) (models.MetricsSnapshot, error) {
	v, err := lookup(c, "latest", func() (models.MetricsSnapshot, error) {
		return c.next.LatestMetrics(ctx)
	})
	return v.Clone(), err
}

func (c *Cached) DriftStatus(ctx context.Context) (models.DriftStatus, error) {
	return lookup(c, "drift", func() (models.DriftStatus, error) {
		return c.next.DriftStatus(ctx)
	})
}

func (c *Cached) RecentLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	return lookup(c, fmt.Sprintf("logs:%d", limit), func() ([]models.LogEntry, error) {
		return c.next.RecentLogs(ctx, limit)
	})
}

func (c *Cached) MetricsHistory(ctx context.Context, limit int) ([]models.MetricsSnapshot, error) {
	return lookup(c, fmt.Sprintf("history:%d", limit), func() ([]models.MetricsSnapshot, error) {
		return c.next.MetricsHistory(ctx, limit)
	})
}

// Purge drops every cached entry.
func (c *Cached) Purge() {
	c.cache.Purge()
}

func lookup[T any](c *Cached, key string, load func() (T, error)) (T, error) {
	if v, ok := c.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			log.Debug().Str("key", key).Msg("Metrics cache hit")
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.cache.Add(key, v)
	return v, nil
}
