package gormrepo

import (
	"time"

	"github.com/agrohub/marketplace/internal/models"
)

type userRow struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null"`
	Img          string
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

type productRow struct {
	ID              string  `gorm:"primaryKey;type:varchar(36)"`
	SellerEmail     string  `gorm:"index;not null"`
	Name            string  `gorm:"not null"`
	PerPackQuantity float64 `gorm:"not null;check:per_pack_quantity >= 1"`
	Price           float64 `gorm:"not null;check:price > 0"`
	Description     string
	ImageURI        string
	Rating          float64
	Category        string `gorm:"index"`
	CreatedAt       time.Time
}

func (productRow) TableName() string { return "products" }

type cartEntryRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"uniqueIndex:idx_cart_user_product;not null"`
	ProductID string `gorm:"uniqueIndex:idx_cart_user_product;not null"`
	PackCount int    `gorm:"not null;default:1;check:pack_count > 0"`
}

func (cartEntryRow) TableName() string { return "cart_entries" }

type profitEntryRow struct {
	ID                uint    `gorm:"primaryKey;autoIncrement"`
	UserID            string  `gorm:"uniqueIndex:idx_profit_user_product;not null"`
	ProductID         string  `gorm:"uniqueIndex:idx_profit_user_product;not null"`
	CumulativeRevenue float64 `gorm:"not null;default:0"`
}

func (profitEntryRow) TableName() string { return "profit_entries" }

type profitPostingRow struct {
	SessionID   string `gorm:"primaryKey;type:varchar(255)"`
	ProductID   string `gorm:"primaryKey;type:varchar(36)"`
	SellerEmail string `gorm:"not null"`
	Revenue     float64
	PostedAt    time.Time
}

func (profitPostingRow) TableName() string { return "profit_postings" }

type schemeRow struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Title       string `gorm:"not null"`
	Description string
	Ministry    string
	Benefit     string
	CreatedAt   time.Time
}

func (schemeRow) TableName() string { return "schemes" }

type appliedSchemeRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"uniqueIndex:idx_applied_user_scheme;not null"`
	SchemeID  string `gorm:"uniqueIndex:idx_applied_user_scheme;not null"`
	Status    string `gorm:"not null"`
	AppliedAt time.Time
}

func (appliedSchemeRow) TableName() string { return "applied_schemes" }

type checkoutSessionRow struct {
	ID         string                `gorm:"primaryKey;type:varchar(255)"`
	BuyerEmail string                `gorm:"index"`
	Currency   string                `gorm:"not null"`
	Lines      []models.CheckoutLine `gorm:"serializer:json;type:text"`
	Status     string                `gorm:"index;not null"`
	CreatedAt  time.Time
	SettledAt  *time.Time
}

func (checkoutSessionRow) TableName() string { return "checkout_sessions" }

func allRows() []any {
	return []any{
		&userRow{},
		&productRow{},
		&cartEntryRow{},
		&profitEntryRow{},
		&profitPostingRow{},
		&schemeRow{},
		&appliedSchemeRow{},
		&checkoutSessionRow{},
	}
}

func productFromRow(r productRow) models.Product {
	return models.Product{
		ID:              r.ID,
		SellerEmail:     r.SellerEmail,
		Name:            r.Name,
		PerPackQuantity: r.PerPackQuantity,
		Price:           r.Price,
		Description:     r.Description,
		ImageURI:        r.ImageURI,
		Rating:          r.Rating,
		Category:        r.Category,
		CreatedAt:       r.CreatedAt,
	}
}

func schemeFromRow(r schemeRow) models.Scheme {
	return models.Scheme{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Ministry:    r.Ministry,
		Benefit:     r.Benefit,
		CreatedAt:   r.CreatedAt,
	}
}

func sessionFromRow(r checkoutSessionRow) models.CheckoutSession {
	lines := r.Lines
	if lines == nil {
		lines = []models.CheckoutLine{}
	}
	return models.CheckoutSession{
		ID:         r.ID,
		BuyerEmail: r.BuyerEmail,
		Currency:   r.Currency,
		Lines:      lines,
		Status:     models.SessionStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		SettledAt:  r.SettledAt,
	}
}
