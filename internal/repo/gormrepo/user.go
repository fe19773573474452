package gormrepo

import (
	"context"
	"errors"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/repo"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	row := userRow{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Img:          u.Img,
		CreatedAt:    u.CreatedAt,
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userRow{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return repo.ErrDuplicate
		}
		return tx.Create(&row).Error
	})
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "email = ?", email)
}

func (r *GormRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *GormRepo) getUser(ctx context.Context, cond string, arg string) (*models.User, error) {
	db := r.DB.WithContext(ctx)

	var row userRow
	if err := db.Where(cond, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrUserNotFound
		}
		return nil, err
	}

	cart, err := loadCart(db, row.ID)
	if err != nil {
		return nil, err
	}

	var profits []profitEntryRow
	if err := db.Where("user_id = ?", row.ID).Order("id").Find(&profits).Error; err != nil {
		return nil, err
	}

	var applied []appliedSchemeRow
	if err := db.Where("user_id = ?", row.ID).Order("id").Find(&applied).Error; err != nil {
		return nil, err
	}

	u := &models.User{
		ID:             row.ID,
		Name:           row.Name,
		Email:          row.Email,
		PasswordHash:   row.PasswordHash,
		Role:           models.Role(row.Role),
		Img:            row.Img,
		Cart:           cart,
		ProductProfits: make([]models.ProfitEntry, 0, len(profits)),
		AppliedSchemes: make([]models.AppliedScheme, 0, len(applied)),
		CreatedAt:      row.CreatedAt,
	}
	for _, p := range profits {
		u.ProductProfits = append(u.ProductProfits, models.ProfitEntry{
			ProductID:         p.ProductID,
			CumulativeRevenue: p.CumulativeRevenue,
		})
	}
	for _, a := range applied {
		u.AppliedSchemes = append(u.AppliedSchemes, models.AppliedScheme{
			SchemeID:  a.SchemeID,
			Status:    models.SchemeStatus(a.Status),
			AppliedAt: a.AppliedAt,
		})
	}
	return u, nil
}
