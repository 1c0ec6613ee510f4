package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"curvot-backend/models"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// ProductCache is a read-through cache in front of the catalog table. The
// cart handlers hit it on every add, so product lookups must not fall over
// when Redis is down; callers treat any error other than ErrCacheMiss as a
// miss too.
type ProductCache interface {
	Get(ctx context.Context, productID string) (*models.Product, error)
	Set(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, productID string) error
}

func NewRedisProductCache(client *redis.Client) *RedisProductCache {
	return &RedisProductCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisProductCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisProductCache) Get(ctx context.Context, productID string) (*models.Product, error) {
	data, err := r.client.Get(ctx, productKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("unmarshal product failed: %w", err)
	}

	return &product, nil
}

func (r *RedisProductCache) Set(ctx context.Context, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	// Jitter the TTL so a catalog import does not expire every key at once.
	ttl := r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
	if err := r.client.Set(ctx, productKey(product.ID.String()), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisProductCache) Delete(ctx context.Context, productID string) error {
	if err := r.client.Del(ctx, productKey(productID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func productKey(productID string) string {
	return fmt.Sprintf("product:%s", productID)
}

// NoopProductCache is used when REDIS_ADDR is not configured. Every Get is
// a miss and writes are discarded, so handlers always read the database.
type NoopProductCache struct{}

func (NoopProductCache) Get(ctx context.Context, productID string) (*models.Product, error) {
	return nil, ErrCacheMiss
}

func (NoopProductCache) Set(ctx context.Context, product *models.Product) error { return nil }

func (NoopProductCache) Delete(ctx context.Context, productID string) error { return nil }
