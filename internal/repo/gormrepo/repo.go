package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrohub/marketplace/internal/repo"
	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB
}

var _ repo.Repository = (*GormRepo)(nil)

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	if err := r.DB.WithContext(ctx).AutoMigrate(allRows()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormRepo) Close(_ context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func userIDByEmail(tx *gorm.DB, email string) (string, error) {
	var u userRow
	if err := tx.Select("id").Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", repo.ErrUserNotFound
		}
		return "", err
	}
	return u.ID, nil
}
