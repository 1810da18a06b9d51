// Package redis implements the storefront's Redis-backed stores.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
)

const catalogKey = "storefront:catalog:available"

// CatalogCache implements repository.CatalogCache.
type CatalogCache struct {
	client  redis.UniversalClient
	ttl     time.Duration
	lookups *prometheus.CounterVec
}

// NewCatalogCache creates a cache whose entries live for ttl. Lookups are
// counted by result on reg when reg is non-nil.
func NewCatalogCache(client redis.UniversalClient, ttl time.Duration, reg prometheus.Registerer) *CatalogCache {
	c := &CatalogCache{client: client, ttl: ttl}
	if reg != nil {
		c.lookups = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_catalog_cache_lookups_total",
			Help: "Catalog cache lookups by result.",
		}, []string{"result"})
	}
	return c
}

func (c *CatalogCache) observe(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}

// GetAvailable returns the cached in-stock list.
func (c *CatalogCache) GetAvailable(ctx context.Context) ([]domain.Product, bool, error) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.observe("miss")
			return nil, false, nil
		}
		c.observe("error")
		return nil, false, fmt.Errorf("redis get catalog: %w", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		c.observe("error")
		return nil, false, fmt.Errorf("unmarshal catalog: %w", err)
	}
	c.observe("hit")
	return products, true, nil
}

// SetAvailable stores the in-stock list for the configured TTL.
func (c *CatalogCache) SetAvailable(ctx context.Context, products []domain.Product) error {
	if products == nil {
		products = []domain.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := c.client.Set(ctx, catalogKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set catalog: %w", err)
	}
	return nil
}

// Invalidate drops the cached list.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, catalogKey).Err(); err != nil {
		return fmt.Errorf("redis del catalog: %w", err)
	}
	return nil
}
