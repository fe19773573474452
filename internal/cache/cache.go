package cache

import (
	"context"
	"errors"

	"github.com/agrohub/marketplace/internal/models"
)

type ProductCache interface {
	Get(ctx context.Context, productID string) (*models.Product, error)
	Set(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, productID string) error
}

var ErrCacheMiss = errors.New("cache miss")
