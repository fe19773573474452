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

func (r *GormRepo) CreateScheme(ctx context.Context, s *models.Scheme) error {
	row := schemeRow{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Ministry:    s.Ministry,
		Benefit:     s.Benefit,
		CreatedAt:   s.CreatedAt,
	}
	return r.DB.WithContext(ctx).Create(&row).Error
}

func (r *GormRepo) GetScheme(ctx context.Context, id string) (*models.Scheme, error) {
	var row schemeRow
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrSchemeNotFound
		}
		return nil, err
	}
	s := schemeFromRow(row)
	return &s, nil
}

func (r *GormRepo) ListSchemes(ctx context.Context) ([]models.Scheme, error) {
	var rows []schemeRow
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Scheme, 0, len(rows))
	for _, row := range rows {
		out = append(out, schemeFromRow(row))
	}
	return out, nil
}

func (r *GormRepo) ApplyScheme(ctx context.Context, email, schemeID string, at time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID, err := userIDByEmail(tx, email)
		if err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&appliedSchemeRow{
			UserID:    userID,
			SchemeID:  schemeID,
			Status:    string(models.SchemePending),
			AppliedAt: at,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrDuplicate
		}
		return nil
	})
}
