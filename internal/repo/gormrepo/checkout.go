package gormrepo

import (
	"context"
	"errors"
	"time"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/repo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *GormRepo) CreateSession(ctx context.Context, s *models.CheckoutSession) error {
	row := checkoutSessionRow{
		ID:         s.ID,
		BuyerEmail: s.BuyerEmail,
		Currency:   s.Currency,
		Lines:      s.Lines,
		Status:     string(s.Status),
		CreatedAt:  s.CreatedAt,
		SettledAt:  s.SettledAt,
	}
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrDuplicate
	}
	return nil
}

func (r *GormRepo) GetSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	var row checkoutSessionRow
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrSessionNotFound
		}
		return nil, err
	}
	s := sessionFromRow(row)
	return &s, nil
}

// SettleSession runs in one transaction. The profit_postings primary key (session, product)
// guarantees a replay never adds the same revenue twice.
func (r *GormRepo) SettleSession(ctx context.Context, sessionID string, postings []models.RevenuePosting, at time.Time) (repo.SettleOutcome, error) {
	var out repo.SettleOutcome
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess checkoutSessionRow
		if err := tx.Select("id", "status").Where("id = ?", sessionID).First(&sess).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repo.ErrSessionNotFound
			}
			return err
		}
		if sess.Status == string(models.SessionSettled) {
			out.AlreadySettled = true
			return nil
		}

		for _, p := range postings {
			sellerID, err := userIDByEmail(tx, p.SellerEmail)
			if errors.Is(err, repo.ErrUserNotFound) {
				out.MissingSellers = append(out.MissingSellers, p)
				continue
			}
			if err != nil {
				return err
			}

			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&profitPostingRow{
				SessionID:   sessionID,
				ProductID:   p.ProductID,
				SellerEmail: p.SellerEmail,
				Revenue:     p.Revenue,
				PostedAt:    at,
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				out.Duplicates = append(out.Duplicates, p)
				continue
			}

			if err := addRevenue(tx, sellerID, p.ProductID, p.Revenue); err != nil {
				return err
			}
			out.Applied = append(out.Applied, p)
		}

		return tx.Model(&checkoutSessionRow{}).
			Where("id = ?", sessionID).
			Updates(map[string]any{"status": string(models.SessionSettled), "settled_at": at}).Error
	})
	if err != nil {
		return repo.SettleOutcome{}, err
	}
	return out, nil
}

func addRevenue(tx *gorm.DB, userID, productID string, revenue float64) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{"cumulative_revenue": gorm.Expr("profit_entries.cumulative_revenue + ?", revenue)}),
	}).Create(&profitEntryRow{UserID: userID, ProductID: productID, CumulativeRevenue: revenue}).Error
}

func (r *GormRepo) ExpireSession(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Model(&checkoutSessionRow{}).
		Where("id = ? AND status = ?", id, string(models.SessionPending)).
		Update("status", string(models.SessionExpired))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := r.DB.WithContext(ctx).Model(&checkoutSessionRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrSessionNotFound
	}
	return nil
}
