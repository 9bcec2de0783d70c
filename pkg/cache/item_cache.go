package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultItemCacheTTL is used when NewItemCache gets a non-positive TTL.
	DefaultItemCacheTTL = 5 * time.Minute

	itemCacheKeyPrefix = "item"
)

// CachedItem is the read model of a remote item stored in Redis.
// Estimates are kept as decimal strings so no precision is lost.
type CachedItem struct {
	ID           int       `json:"id"`
	SaleNumber   int       `json:"sale_number"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Consignor    string    `json:"consignor"`
	EstimateLow  string    `json:"estimate_low"`
	EstimateHigh string    `json:"estimate_high"`
	CachedAt     time.Time `json:"cached_at"`
}

// ItemCache reads and writes remote item snapshots as Redis hashes.
// Keys are scoped by namespace so several remote stores can share one Redis.
// Key format: "item:{namespace}:{itemID}"
type ItemCache struct {
	client    *RedisClient
	namespace string
	ttl       time.Duration
}

// NewItemCache creates an ItemCache backed by r.
func NewItemCache(r *RedisClient, namespace string, ttl time.Duration) *ItemCache {
	if ttl <= 0 {
		ttl = DefaultItemCacheTTL
	}
	return &ItemCache{client: r, namespace: namespace, ttl: ttl}
}

// Get retrieves a cached item.
// Returns redis.Nil when the key does not exist or has expired.
func (c *ItemCache) Get(ctx context.Context, itemID int) (*CachedItem, error) {
	vals, err := c.client.Client().HGetAll(ctx, c.key(itemID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil
	}

	id, err := strconv.Atoi(vals["id"])
	if err != nil {
		return nil, fmt.Errorf("cache parse id: %w", err)
	}
	sale, err := strconv.Atoi(vals["sale_number"])
	if err != nil {
		return nil, fmt.Errorf("cache parse sale_number: %w", err)
	}
	cachedAt, err := time.Parse(time.RFC3339Nano, vals["cached_at"])
	if err != nil {
		return nil, fmt.Errorf("cache parse cached_at: %w", err)
	}

	return &CachedItem{
		ID:           id,
		SaleNumber:   sale,
		Title:        vals["title"],
		Description:  vals["description"],
		Consignor:    vals["consignor"],
		EstimateLow:  vals["estimate_low"],
		EstimateHigh: vals["estimate_high"],
		CachedAt:     cachedAt,
	}, nil
}

// Set writes item as a hash and (re)arms its TTL in one pipeline.
func (c *ItemCache) Set(ctx context.Context, item *CachedItem) error {
	key := c.key(item.ID)
	pipe := c.client.Client().TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"id", strconv.Itoa(item.ID),
		"sale_number", strconv.Itoa(item.SaleNumber),
		"title", item.Title,
		"description", item.Description,
		"consignor", item.Consignor,
		"estimate_low", item.EstimateLow,
		"estimate_high", item.EstimateHigh,
		"cached_at", item.CachedAt.UTC().Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes a cached item. Deleting a missing key is not an error.
func (c *ItemCache) Delete(ctx context.Context, itemID int) error {
	if err := c.client.Client().Del(ctx, c.key(itemID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *ItemCache) key(itemID int) string {
	return fmt.Sprintf("%s:%s:%d", itemCacheKeyPrefix, c.namespace, itemID)
}
