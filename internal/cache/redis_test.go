package cache

import (
	"context"
	"testing"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, mr, cleanup
}

func testProduct() *domain.Product {
	return &domain.Product{
		ID:            7,
		ProductHeadID: 1,
		SizeID:        2,
		ColorID:       3,
		Price:         decimal.RequireFromString("100.00"),
		Discount:      decimal.NewNullDecimal(decimal.NewFromInt(10)),
		Inventory:     5,
	}
}

func TestProductCache_SetGet(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedisCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testProduct()))
	assert.True(t, mr.Exists(productKey(7)))

	ttl := mr.TTL(productKey(7))
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)

	got, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.True(t, decimal.RequireFromString("90").Equal(got.EffectivePrice()))
	assert.Equal(t, 5, got.Inventory)
}

func TestProductCache_Miss(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := NewRedisCache(client).Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestProductCache_Delete(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedisCache(client)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, testProduct()))

	require.NoError(t, c.Delete(ctx, 7))
	assert.False(t, mr.Exists(productKey(7)))
}

func TestProductCache_CorruptedData(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set(productKey(9), "{not json"))

	_, err := NewRedisCache(client).Get(context.Background(), 9)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestIdempotency_ReserveSaveReplay(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	s := NewRedisIdempotencyStore(client)
	ctx := context.Background()

	_, err := s.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	ok, err := s.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrInProgress)

	require.NoError(t, s.Save(ctx, "k1", &StoredResponse{Status: 201, Body: []byte(`{"id":1}`)}, time.Hour))
	got, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 201, got.Status)
	assert.JSONEq(t, `{"id":1}`, string(got.Body))

	mr.FastForward(2 * time.Hour)
	_, err = s.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestIdempotency_Release(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	s := NewRedisIdempotencyStore(client)
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "k2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Release(ctx, "k2"))
	ok, err = s.Reserve(ctx, "k2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
