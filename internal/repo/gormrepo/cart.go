package gormrepo

import (
	"context"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/repo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func loadCart(tx *gorm.DB, userID string) ([]models.CartEntry, error) {
	var rows []cartEntryRow
	if err := tx.Where("user_id = ?", userID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.CartEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.CartEntry{ProductID: row.ProductID, Count: row.PackCount})
	}
	return out, nil
}

func (r *GormRepo) GetCart(ctx context.Context, email string) ([]models.CartEntry, error) {
	db := r.DB.WithContext(ctx)
	userID, err := userIDByEmail(db, email)
	if err != nil {
		return nil, err
	}
	return loadCart(db, userID)
}

func (r *GormRepo) IncrementCartEntry(ctx context.Context, email, productID string) ([]models.CartEntry, error) {
	var cart []models.CartEntry
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID, err := userIDByEmail(tx, email)
		if err != nil {
			return err
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"pack_count": gorm.Expr("cart_entries.pack_count + ?", 1)}),
		}).Create(&cartEntryRow{UserID: userID, ProductID: productID, PackCount: 1}).Error
		if err != nil {
			return err
		}

		cart, err = loadCart(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *GormRepo) DecrementCartEntry(ctx context.Context, email, productID string) ([]models.CartEntry, error) {
	var cart []models.CartEntry
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID, err := userIDByEmail(tx, email)
		if err != nil {
			return err
		}

		res := tx.Model(&cartEntryRow{}).
			Where("user_id = ? AND product_id = ? AND pack_count > 1", userID, productID).
			Update("pack_count", gorm.Expr("pack_count - ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			del := tx.Where("user_id = ? AND product_id = ? AND pack_count <= 1", userID, productID).
				Delete(&cartEntryRow{})
			if del.Error != nil {
				return del.Error
			}
			if del.RowsAffected == 0 {
				return repo.ErrEntryNotFound
			}
		}

		cart, err = loadCart(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *GormRepo) RemoveCartEntries(ctx context.Context, email string, productIDs []string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID, err := userIDByEmail(tx, email)
		if err != nil {
			return err
		}
		if len(productIDs) == 0 {
			return nil
		}
		return tx.Where("user_id = ? AND product_id IN ?", userID, productIDs).Delete(&cartEntryRow{}).Error
	})
}

func (r *GormRepo) ClearCart(ctx context.Context, email string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID, err := userIDByEmail(tx, email)
		if err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&cartEntryRow{}).Error
	})
}
