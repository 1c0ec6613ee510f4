package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"curvot-backend/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*RedisProductCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisProductCache(client), mr
}

func testProduct() *models.Product {
	return &models.Product{
		ID:    uuid.New(),
		Name:  "Ceramic Mug",
		Price: 1299,
		Stock: 10,
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	product := testProduct()
	data, _ := json.Marshal(product)
	mr.Set(productKey(product.ID.String()), string(data))

	result, err := cache.Get(ctx, product.ID.String())
	require.NoError(t, err)
	assert.Equal(t, product.ID, result.ID)
	assert.Equal(t, "Ceramic Mug", result.Name)
	assert.Equal(t, 1299.0, result.Price)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestCache(t)

	result, err := cache.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestCache(t)

	id := uuid.NewString()
	require.NoError(t, mr.Set(productKey(id), "{not json"))

	_, err := cache.Get(context.Background(), id)
	require.ErrorContains(t, err, "unmarshal product failed")
}

func TestSet_Success(t *testing.T) {
	cache, mr := setupTestCache(t)

	product := testProduct()
	require.NoError(t, cache.Set(context.Background(), product))

	stored, err := mr.Get(productKey(product.ID.String()))
	require.NoError(t, err)

	var restored models.Product
	require.NoError(t, json.Unmarshal([]byte(stored), &restored))
	assert.Equal(t, product.Name, restored.Name)
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr := setupTestCache(t)

	product := testProduct()
	require.NoError(t, cache.Set(context.Background(), product))

	ttl := mr.TTL(productKey(product.ID.String()))
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestDelete_Success(t *testing.T) {
	cache, mr := setupTestCache(t)

	product := testProduct()
	require.NoError(t, cache.Set(context.Background(), product))
	assert.True(t, mr.Exists(productKey(product.ID.String())))

	require.NoError(t, cache.Delete(context.Background(), product.ID.String()))
	assert.False(t, mr.Exists(productKey(product.ID.String())))
}

func TestDelete_NonExistentKey(t *testing.T) {
	cache, _ := setupTestCache(t)

	assert.NoError(t, cache.Delete(context.Background(), uuid.NewString()))
}

func TestNoopCache(t *testing.T) {
	var cache ProductCache = NoopProductCache{}
	ctx := context.Background()

	product := testProduct()
	assert.NoError(t, cache.Set(ctx, product))

	_, err := cache.Get(ctx, product.ID.String())
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, cache.Delete(ctx, product.ID.String()))
}
