package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrohub/marketplace/internal/cache"
	"github.com/agrohub/marketplace/internal/logging"
	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/mykafka"
	"github.com/agrohub/marketplace/internal/repo"
)

// ProductIndex is the full-text search backend. It is optional.
type ProductIndex interface {
	IndexProduct(ctx context.Context, p models.Product) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type ProductService struct {
	Products repo.Products
	Reader   ProductLookup
	Index    ProductIndex
	Events   mykafka.Publisher
}

// NewProductService reads single products through the cache when c is non-nil.
func NewProductService(products repo.Products, c cache.ProductCache, index ProductIndex, events mykafka.Publisher) *ProductService {
	s := &ProductService{Products: products, Reader: products, Index: index, Events: events}
	if c != nil {
		s.Reader = cache.NewProductReader(products, c)
	}
	return s
}

type ProductInput struct {
	Name            string
	PerPackQuantity float64
	Price           float64
	Description     string
	ImageURI        string
	Rating          float64
	Category        string
}

func (in ProductInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("product name is required: %w", ErrValidation)
	case in.PerPackQuantity < 1:
		return fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	case in.Price < 0.01:
		return fmt.Errorf("price must be at least 0.01: %w", ErrValidation)
	case in.Rating < 0 || in.Rating > 5:
		return fmt.Errorf("rating must be between 0 and 5: %w", ErrValidation)
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, sellerEmail string, in ProductInput) (*models.Product, error) {
	if sellerEmail == "" {
		return nil, fmt.Errorf("seller is required: %w", ErrValidation)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &models.Product{
		ID:              uuid.NewString(),
		SellerEmail:     sellerEmail,
		Name:            strings.TrimSpace(in.Name),
		PerPackQuantity: in.PerPackQuantity,
		Price:           in.Price,
		Description:     in.Description,
		ImageURI:        in.ImageURI,
		Rating:          in.Rating,
		Category:        strings.ToLower(strings.TrimSpace(in.Category)),
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.Products.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, *p); err != nil {
			logging.FromContext(ctx).Warn("index_product_error", "product_id", p.ID, "error", err)
		}
	}
	mykafka.Emit(ctx, s.Events, mykafka.TopicProductEvents, p.ID, map[string]any{
		"type":      "product_created",
		"productId": p.ID,
		"seller":    p.SellerEmail,
		"category":  p.Category,
	})
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	if !validID(id) {
		return nil, fmt.Errorf("malformed product id %q: %w", id, ErrValidation)
	}
	p, err := s.Reader.GetProduct(ctx, id)
	if errors.Is(err, repo.ErrProductNotFound) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *ProductService) List(ctx context.Context, f models.ProductFilter, offset, limit int) (int64, []models.Product, error) {
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	return s.Products.ListProducts(ctx, f, offset, limit)
}

func (s *ProductService) Search(ctx context.Context, query string, offset, limit int) (int64, []models.Product, error) {
	if s.Index == nil {
		return 0, nil, fmt.Errorf("search is not configured: %w", ErrUnavailable)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, fmt.Errorf("query is required: %w", ErrValidation)
	}

	total, items, err := s.Index.Search(ctx, query, offset, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("search products: %v: %w", err, ErrUpstream)
	}
	return total, items, nil
}
