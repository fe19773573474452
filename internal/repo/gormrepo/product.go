package gormrepo

import (
	"context"
	"errors"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/repo"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	row := productRow{
		ID:              p.ID,
		SellerEmail:     p.SellerEmail,
		Name:            p.Name,
		PerPackQuantity: p.PerPackQuantity,
		Price:           p.Price,
		Description:     p.Description,
		ImageURI:        p.ImageURI,
		Rating:          p.Rating,
		Category:        p.Category,
		CreatedAt:       p.CreatedAt,
	}
	return r.DB.WithContext(ctx).Create(&row).Error
}

func (r *GormRepo) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var row productRow
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrProductNotFound
		}
		return nil, err
	}
	p := productFromRow(row)
	return &p, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, f models.ProductFilter, offset, limit int) (int64, []models.Product, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		if f.Category != "" {
			q = q.Where("category = ?", f.Category)
		}
		if f.SellerEmail != "" {
			q = q.Where("seller_email = ?", f.SellerEmail)
		}
		return q
	}
	db := r.DB.WithContext(ctx)

	var total int64
	if err := db.Model(&productRow{}).Scopes(filter).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var rows []productRow
	if err := db.Scopes(filter).Order("created_at DESC").Order("id").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		items = append(items, productFromRow(row))
	}
	return total, items, nil
}
