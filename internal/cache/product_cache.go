package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrimarket/marketplace-api/internal/models"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

// Key layout and TTLs for cached entries
const (
	keyProduct = "product:%s"
)

var ttlProduct = 5 * time.Minute

// ProductCache is a read-through cache for product lookups. Cache failures are
// never surfaced to callers; a broken cache degrades to plain database reads.
type ProductCache struct {
	rdb    *redis.Client
	logger logger.Logger
}

// New creates a redis client for the given address
func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// NewProductCache creates a ProductCache backed by the given redis client
func NewProductCache(rdb *redis.Client, logger logger.Logger) *ProductCache {
	return &ProductCache{
		rdb:    rdb,
		logger: logger,
	}
}

// Get returns the cached product and whether it was present
func (c *ProductCache) Get(ctx context.Context, productID string) (*models.Product, bool) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf(keyProduct, productID)).Bytes()

	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Product cache read failed", "error", err, "productID", productID)
		}
		return nil, false
	}

	var product models.Product

	if err := json.Unmarshal(data, &product); err != nil {
		c.logger.Warn("Product cache entry corrupt, dropping", "error", err, "productID", productID)
		c.Invalidate(ctx, productID)
		return nil, false
	}

	return &product, true
}

// Set stores the product with the standard TTL
func (c *ProductCache) Set(ctx context.Context, product *models.Product) {
	data, err := json.Marshal(product)

	if err != nil {
		c.logger.Warn("Failed to marshal product for cache", "error", err, "productID", product.ID)
		return
	}

	if err := c.rdb.Set(ctx, fmt.Sprintf(keyProduct, product.ID), data, ttlProduct).Err(); err != nil {
		c.logger.Warn("Product cache write failed", "error", err, "productID", product.ID)
	}
}

// Invalidate drops the cached entry after a stock, price, or rating mutation
func (c *ProductCache) Invalidate(ctx context.Context, productID string) {
	if err := c.rdb.Del(ctx, fmt.Sprintf(keyProduct, productID)).Err(); err != nil {
		c.logger.Warn("Product cache invalidation failed", "error", err, "productID", productID)
	}
}
