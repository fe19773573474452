package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/agrohub/marketplace/internal/repo"
	"github.com/agrohub/marketplace/internal/report"
)

const uncategorized = "uncategorized"

type AnalyticsService struct {
	Users    repo.Users
	Products ProductLookup
}

func NewAnalyticsService(users repo.Users, products ProductLookup) *AnalyticsService {
	return &AnalyticsService{Users: users, Products: products}
}

// Sales summarizes a seller's profit ledger by product and by category, largest first.
func (s *AnalyticsService) Sales(ctx context.Context, email string) (*report.Sales, error) {
	u, err := s.Users.GetUserByEmail(ctx, email)
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	total := decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	out := &report.Sales{SellerEmail: u.Email}

	for _, e := range u.ProductProfits {
		ps := report.ProductSales{ProductID: e.ProductID, Category: uncategorized, Revenue: e.CumulativeRevenue}

		p, err := s.Products.GetProduct(ctx, e.ProductID)
		switch {
		case err == nil:
			ps.ProductName = p.Name
			if p.Category != "" {
				ps.Category = p.Category
			}
		case errors.Is(err, repo.ErrProductNotFound):
		default:
			return nil, fmt.Errorf("get product %s: %w", e.ProductID, err)
		}

		rev := decimal.NewFromFloat(e.CumulativeRevenue)
		total = total.Add(rev)
		byCategory[ps.Category] = byCategory[ps.Category].Add(rev)
		out.ByProduct = append(out.ByProduct, ps)
	}

	for cat, rev := range byCategory {
		out.ByCategory = append(out.ByCategory, report.CategorySales{Category: cat, Revenue: rev.InexactFloat64()})
	}
	sort.SliceStable(out.ByProduct, func(i, j int) bool {
		return out.ByProduct[i].Revenue > out.ByProduct[j].Revenue
	})
	sort.Slice(out.ByCategory, func(i, j int) bool {
		if out.ByCategory[i].Revenue == out.ByCategory[j].Revenue {
			return out.ByCategory[i].Category < out.ByCategory[j].Category
		}
		return out.ByCategory[i].Revenue > out.ByCategory[j].Revenue
	})
	out.Total = total.InexactFloat64()
	return out, nil
}

func (s *AnalyticsService) Export(ctx context.Context, email string, w io.Writer) error {
	sales, err := s.Sales(ctx, email)
	if err != nil {
		return err
	}
	return report.WriteSalesWorkbook(w, *sales)
}
