package transport

import (
	"time"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/report"
)

type CartRequest struct {
	Mail   string `json:"mail"`
	ProdID string `json:"prodId"`
}

// CheckoutProduct is one detailed cart line as the client submits it.
type CheckoutProduct struct {
	ID            string  `json:"_id"`
	ProductName   string  `json:"productname"`
	Price         float64 `json:"price"`
	TotalQuantity float64 `json:"totalQuantity"`
}

type CheckoutRequest struct {
	Mail     string            `json:"mail"`
	Products []CheckoutProduct `json:"products"`
}

func (r CheckoutRequest) Lines() []models.CheckoutLine {
	lines := make([]models.CheckoutLine, 0, len(r.Products))
	for _, p := range r.Products {
		lines = append(lines, models.CheckoutLine{
			ProductID:     p.ID,
			ProductName:   p.ProductName,
			Price:         p.Price,
			TotalQuantity: p.TotalQuantity,
		})
	}
	return lines
}

type CheckoutResponse struct {
	ID string `json:"id"`
}

type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
	Img      string      `json:"img"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PublicUser struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
	Img  string      `json:"img"`
}

type Profile struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Email          string                 `json:"email"`
	Role           models.Role            `json:"role"`
	Img            string                 `json:"img"`
	Cart           []models.CartEntry     `json:"cart"`
	AppliedSchemes []models.AppliedScheme `json:"appliedSchemes"`
	ProductProfits []models.ProfitEntry   `json:"productProfits"`
	CreatedAt      time.Time              `json:"createdAt"`
}

func ProfileFrom(u *models.User) Profile {
	p := Profile{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		Img:            u.Img,
		Cart:           u.Cart,
		AppliedSchemes: u.AppliedSchemes,
		ProductProfits: u.ProductProfits,
		CreatedAt:      u.CreatedAt,
	}
	if p.Cart == nil {
		p.Cart = []models.CartEntry{}
	}
	if p.AppliedSchemes == nil {
		p.AppliedSchemes = []models.AppliedScheme{}
	}
	if p.ProductProfits == nil {
		p.ProductProfits = []models.ProfitEntry{}
	}
	return p
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Profile   `json:"user"`
}

type CreateProductRequest struct {
	ProductName string  `json:"productname"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	URI         string  `json:"uri"`
	Rating      float64 `json:"rating"`
	Category    string  `json:"category"`
}

type CreateSchemeRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Ministry    string `json:"ministry"`
	Benefit     string `json:"benefit"`
}

type ApplySchemeRequest struct {
	Mail     string `json:"mail"`
	SchemeID string `json:"schemeId"`
}

type ProductSales struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productname"`
	Category    string  `json:"category"`
	Revenue     float64 `json:"revenue"`
}

type CategorySales struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
}

type SalesResponse struct {
	Email      string          `json:"email"`
	Total      float64         `json:"total"`
	ByProduct  []ProductSales  `json:"byProduct"`
	ByCategory []CategorySales `json:"byCategory"`
}

func SalesFrom(s *report.Sales) SalesResponse {
	out := SalesResponse{
		Email:      s.SellerEmail,
		Total:      s.Total,
		ByProduct:  make([]ProductSales, 0, len(s.ByProduct)),
		ByCategory: make([]CategorySales, 0, len(s.ByCategory)),
	}
	for _, p := range s.ByProduct {
		out.ByProduct = append(out.ByProduct, ProductSales(p))
	}
	for _, c := range s.ByCategory {
		out.ByCategory = append(out.ByCategory, CategorySales(c))
	}
	return out
}
