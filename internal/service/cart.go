package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agrohub/marketplace/internal/metrics"
	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/mykafka"
	"github.com/agrohub/marketplace/internal/repo"
)

type CartService struct {
	Carts    repo.Carts
	Products ProductLookup
	Events   mykafka.Publisher
	Metrics  *metrics.ServerMetrics
}

func NewCartService(carts repo.Carts, products ProductLookup, events mykafka.Publisher, m *metrics.ServerMetrics) *CartService {
	return &CartService{Carts: carts, Products: products, Events: events, Metrics: m}
}

// Aggregate joins every cart entry with its product. Entries whose product cannot be
// resolved come back as stale lines instead of being dropped.
func (s *CartService) Aggregate(ctx context.Context, email string) ([]models.CartLine, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("email is required: %w", ErrValidation)
	}

	entries, err := s.Carts.GetCart(ctx, email)
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	lines := make([]models.CartLine, 0, len(entries))
	for _, e := range entries {
		if !validID(e.ProductID) {
			lines = append(lines, staleLine(e))
			continue
		}
		p, err := s.Products.GetProduct(ctx, e.ProductID)
		if errors.Is(err, repo.ErrProductNotFound) {
			lines = append(lines, staleLine(e))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get product %s: %w", e.ProductID, err)
		}
		lines = append(lines, resolvedLine(e, p))
	}
	return lines, nil
}

func staleLine(e models.CartEntry) models.CartLine {
	return models.CartLine{ProductID: e.ProductID, Count: e.Count, Status: models.LineStale}
}

func resolvedLine(e models.CartEntry, p *models.Product) models.CartLine {
	total := decimal.NewFromFloat(p.PerPackQuantity).Mul(decimal.NewFromInt(int64(e.Count)))
	amount := decimal.NewFromFloat(p.Price).Mul(total)

	return models.CartLine{
		ProductID:       p.ID,
		ProductName:     p.Name,
		SellerEmail:     p.SellerEmail,
		Description:     p.Description,
		ImageURI:        p.ImageURI,
		Rating:          p.Rating,
		Category:        p.Category,
		Price:           p.Price,
		PerPackQuantity: p.PerPackQuantity,
		Count:           e.Count,
		TotalQuantity:   total.InexactFloat64(),
		Amount:          amount.InexactFloat64(),
		Status:          models.LineResolved,
	}
}

func validateCartInput(email, productID string) error {
	if strings.TrimSpace(email) == "" || productID == "" {
		return fmt.Errorf("email and product id are required: %w", ErrValidation)
	}
	if !validID(productID) {
		return fmt.Errorf("malformed product id %q: %w", productID, ErrValidation)
	}
	return nil
}

// AddToCart adds one pack of the product. Repeated calls add repeated packs.
func (s *CartService) AddToCart(ctx context.Context, email, productID string) ([]models.CartEntry, error) {
	if err := validateCartInput(email, productID); err != nil {
		return nil, err
	}

	if _, err := s.Products.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, repo.ErrProductNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	cart, err := s.Carts.IncrementCartEntry(ctx, email, productID)
	s.Metrics.CartMutation("add", err)
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicCartEvents, email, map[string]any{
		"type":      "cart_item_added",
		"email":     email,
		"productId": productID,
	})
	return cart, nil
}

// RemoveFromCart takes one pack away; the entry disappears when its last pack is removed.
func (s *CartService) RemoveFromCart(ctx context.Context, email, productID string) ([]models.CartEntry, error) {
	if err := validateCartInput(email, productID); err != nil {
		return nil, err
	}

	cart, err := s.Carts.DecrementCartEntry(ctx, email, productID)
	s.Metrics.CartMutation("remove", err)
	switch {
	case errors.Is(err, repo.ErrUserNotFound):
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	case errors.Is(err, repo.ErrEntryNotFound):
		return nil, fmt.Errorf("product %s not in cart: %w", productID, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("remove from cart: %w", err)
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicCartEvents, email, map[string]any{
		"type":      "cart_item_removed",
		"email":     email,
		"productId": productID,
	})
	return cart, nil
}

func (s *CartService) ClearCart(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email is required: %w", ErrValidation)
	}

	err := s.Carts.ClearCart(ctx, email)
	s.Metrics.CartMutation("clear", err)
	if errors.Is(err, repo.ErrUserNotFound) {
		return fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicCartEvents, email, map[string]any{
		"type":  "cart_cleared",
		"email": email,
	})
	return nil
}
