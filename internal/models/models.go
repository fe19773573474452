package models

import (
	"time"
)

type Role string

const (
	RoleFarmer      Role = "farmer"
	RoleBusinessman Role = "businessman"
)

func (r Role) Valid() bool {
	return r == RoleFarmer || r == RoleBusinessman
}

type SchemeStatus string

const (
	SchemePending  SchemeStatus = "pending"
	SchemeGranted  SchemeStatus = "granted"
	SchemeRejected SchemeStatus = "rejected"
)

type User struct {
	ID             string          `json:"id"              bson:"_id"`
	Name           string          `json:"name"            bson:"name"`
	Email          string          `json:"email"           bson:"email"`
	PasswordHash   string          `json:"-"               bson:"password"`
	Role           Role            `json:"role"            bson:"role"`
	Img            string          `json:"img"             bson:"img"`
	Cart           []CartEntry     `json:"cart"            bson:"cart"`
	ProductProfits []ProfitEntry   `json:"productProfits"  bson:"productProfits"`
	AppliedSchemes []AppliedScheme `json:"appliedSchemes"  bson:"appliedSchemes"`
	CreatedAt      time.Time       `json:"createdAt"       bson:"createdAt"`
}

// CartEntry is one product reference in a user's cart. Count is never below one.
type CartEntry struct {
	ProductID string `json:"productId" bson:"productId"`
	Count     int    `json:"count"     bson:"count"`
}

type ProfitEntry struct {
	ProductID         string   `json:"productId"         bson:"productId"`
	CumulativeRevenue float64  `json:"cumulativeRevenue" bson:"cumulativeRevenue"`
	Pending           []string `json:"-"                 bson:"pending,omitempty"`
}

type AppliedScheme struct {
	SchemeID  string       `json:"schemeId"  bson:"schemeId"`
	Status    SchemeStatus `json:"status"    bson:"status"`
	AppliedAt time.Time    `json:"appliedAt" bson:"appliedAt"`
}

type Product struct {
	ID              string    `json:"_id"             bson:"_id"`
	SellerEmail     string    `json:"email"           bson:"email"`
	Name            string    `json:"productname"     bson:"productname"`
	PerPackQuantity float64   `json:"quantity"        bson:"quantity"`
	Price           float64   `json:"price"           bson:"price"`
	Description     string    `json:"description"     bson:"description"`
	ImageURI        string    `json:"uri"             bson:"uri"`
	Rating          float64   `json:"rating"          bson:"rating"`
	Category        string    `json:"category"        bson:"category"`
	CreatedAt       time.Time `json:"createdAt"       bson:"createdAt"`
}

type ProductFilter struct {
	Category    string
	SellerEmail string
}

type Scheme struct {
	ID          string    `json:"id"          bson:"_id"`
	Title       string    `json:"title"       bson:"title"`
	Description string    `json:"description" bson:"description"`
	Ministry    string    `json:"ministry"    bson:"ministry"`
	Benefit     string    `json:"benefit"     bson:"benefit"`
	CreatedAt   time.Time `json:"createdAt"   bson:"createdAt"`
}

type LineStatus string

const (
	LineResolved LineStatus = "resolved"
	LineStale    LineStatus = "stale"
)

// CartLine is a cart entry joined with its product. Stale lines carry only ProductID and Count.
type CartLine struct {
	ProductID       string     `json:"_id"`
	ProductName     string     `json:"productname"`
	SellerEmail     string     `json:"email"`
	Description     string     `json:"description"`
	ImageURI        string     `json:"uri"`
	Rating          float64    `json:"rating"`
	Category        string     `json:"category"`
	Price           float64    `json:"price"`
	PerPackQuantity float64    `json:"unitSize"`
	Count           int        `json:"count"`
	TotalQuantity   float64    `json:"totalQuantity"`
	Amount          float64    `json:"amount"`
	Status          LineStatus `json:"status"`
}

type SessionStatus string

const (
	SessionPending SessionStatus = "pending"
	SessionSettled SessionStatus = "settled"
	SessionExpired SessionStatus = "expired"
)

// CheckoutLine is a submitted cart line as recorded on the checkout session.
type CheckoutLine struct {
	ProductID     string  `json:"productId"     bson:"productId"`
	ProductName   string  `json:"productName"   bson:"productName"`
	Price         float64 `json:"price"         bson:"price"`
	TotalQuantity float64 `json:"totalQuantity" bson:"totalQuantity"`
	UnitAmount    int64   `json:"unitAmount"    bson:"unitAmount"`
}

type CheckoutSession struct {
	ID         string         `json:"id"                  bson:"_id"`
	BuyerEmail string         `json:"buyerEmail"          bson:"buyerEmail"`
	Currency   string         `json:"currency"            bson:"currency"`
	Lines      []CheckoutLine `json:"lines"               bson:"lines"`
	Status     SessionStatus  `json:"status"              bson:"status"`
	CreatedAt  time.Time      `json:"createdAt"           bson:"createdAt"`
	SettledAt  *time.Time     `json:"settledAt,omitempty" bson:"settledAt,omitempty"`
}

// RevenuePosting is revenue owed to one seller for one product within one session.
type RevenuePosting struct {
	SellerEmail string  `json:"sellerEmail"`
	ProductID   string  `json:"productId"`
	Revenue     float64 `json:"revenue"`
}

type SkipReason string

const (
	SkipMalformedID    SkipReason = "malformed_product_id"
	SkipMissingProduct SkipReason = "missing_product"
	SkipMissingSeller  SkipReason = "missing_seller"
)

type SkippedLine struct {
	ProductID string     `json:"productId"`
	Reason    SkipReason `json:"reason"`
}

type SettlementReport struct {
	SessionID      string           `json:"sessionId"`
	AlreadySettled bool             `json:"alreadySettled"`
	Applied        []RevenuePosting `json:"applied"`
	Duplicates     []RevenuePosting `json:"duplicates,omitempty"`
	Skipped        []SkippedLine    `json:"skipped,omitempty"`
}
