package repo

import (
	"context"
	"errors"
	"time"

	"github.com/agrohub/marketplace/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrEntryNotFound   = errors.New("cart entry not found")
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrSchemeNotFound  = errors.New("scheme not found")
	ErrDuplicate       = errors.New("already exists")
)

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Products interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, f models.ProductFilter, offset, limit int) (int64, []models.Product, error)
}

// Carts mutates pack counts with single conditional updates so concurrent adds never lose an increment.
type Carts interface {
	GetCart(ctx context.Context, email string) ([]models.CartEntry, error)
	IncrementCartEntry(ctx context.Context, email, productID string) ([]models.CartEntry, error)
	DecrementCartEntry(ctx context.Context, email, productID string) ([]models.CartEntry, error)
	// RemoveCartEntries drops the entries for the given products and leaves the rest of the cart.
	RemoveCartEntries(ctx context.Context, email string, productIDs []string) error
	ClearCart(ctx context.Context, email string) error
}

type Schemes interface {
	CreateScheme(ctx context.Context, s *models.Scheme) error
	GetScheme(ctx context.Context, id string) (*models.Scheme, error)
	ListSchemes(ctx context.Context) ([]models.Scheme, error)
	ApplyScheme(ctx context.Context, email, schemeID string, at time.Time) error
}

type SettleOutcome struct {
	AlreadySettled bool
	Applied        []models.RevenuePosting
	Duplicates     []models.RevenuePosting
	MissingSellers []models.RevenuePosting
}

type Checkouts interface {
	CreateSession(ctx context.Context, s *models.CheckoutSession) error
	GetSession(ctx context.Context, id string) (*models.CheckoutSession, error)
	// SettleSession posts each revenue line at most once per session and marks the session settled.
	SettleSession(ctx context.Context, sessionID string, postings []models.RevenuePosting, at time.Time) (SettleOutcome, error)
	ExpireSession(ctx context.Context, id string) error
}

type Repository interface {
	Users
	Products
	Carts
	Schemes
	Checkouts

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
