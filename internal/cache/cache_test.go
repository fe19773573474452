package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/repo"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client, time.Minute), mr
}

type countingSource struct {
	calls   atomic.Int32
	product *models.Product
	delay   time.Duration
}

func (s *countingSource) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	if s.product == nil || s.product.ID != id {
		return nil, repo.ErrProductNotFound
	}
	cp := *s.product
	return &cp, nil
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, &models.Product{ID: "p1", Name: "wheat", Price: 20, PerPackQuantity: 5}))
	assert.True(t, mr.Exists(cacheKey("p1")))
	assert.Greater(t, mr.TTL(cacheKey("p1")), time.Duration(0))

	got, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "wheat", got.Name)
	assert.InDelta(t, 5, got.PerPackQuantity, 1e-9)

	require.NoError(t, c.Delete(ctx, "p1"))
	_, err = c.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_InvalidJSON(t *testing.T) {
	c, mr := setupTestRedis(t)

	require.NoError(t, mr.Set(cacheKey("bad"), "{not json"))
	_, err := c.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestProductReader_ReadsThrough(t *testing.T) {
	c, _ := setupTestRedis(t)
	src := &countingSource{product: &models.Product{ID: "p1", Name: "wheat"}}
	r := NewProductReader(src, c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := r.GetProduct(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "wheat", p.Name)
	}
	assert.EqualValues(t, 1, src.calls.Load())

	_, err := r.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, repo.ErrProductNotFound)
}

func TestProductReader_CollapsesConcurrentMisses(t *testing.T) {
	c, _ := setupTestRedis(t)
	src := &countingSource{product: &models.Product{ID: "p1"}, delay: 50 * time.Millisecond}
	r := NewProductReader(src, c)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.GetProduct(context.Background(), "p1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, src.calls.Load(), int32(2))
}

func TestProductReader_DegradesWhenRedisDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	src := &countingSource{product: &models.Product{ID: "p1", Name: "wheat"}}
	r := NewProductReader(src, c)
	mr.Close()

	p, err := r.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "wheat", p.Name)
}

func TestProductReader_NoCache(t *testing.T) {
	src := &countingSource{product: &models.Product{ID: "p1"}}
	r := NewProductReader(src, nil)

	_, err := r.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	_, err = r.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}
