package cache

import (
	"context"
	"errors"

	"github.com/agrohub/marketplace/internal/logging"
	"github.com/agrohub/marketplace/internal/models"
	"golang.org/x/sync/singleflight"
)

type ProductSource interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// ProductReader serves products from the cache and collapses concurrent misses for the same id
// into one source lookup. Cache failures degrade to the source.
type ProductReader struct {
	source ProductSource
	cache  ProductCache
	group  singleflight.Group
}

func NewProductReader(source ProductSource, c ProductCache) *ProductReader {
	return &ProductReader{source: source, cache: c}
}

func (r *ProductReader) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if r.cache == nil {
		return r.source.GetProduct(ctx, id)
	}
	l := logging.FromContext(ctx).With("component", "product.cache")

	p, err := r.cache.Get(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		l.Warn("cache_get_error", "product_id", id, "error", err)
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		p, err := r.source.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(ctx, p); err != nil {
			l.Warn("cache_set_error", "product_id", id, "error", err)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*models.Product)
	return &cp, nil
}
