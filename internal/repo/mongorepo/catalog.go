package mongorepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/repo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (m *MongoRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	if _, err := m.products.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (m *MongoRepo) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := m.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repo.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (m *MongoRepo) ListProducts(ctx context.Context, f models.ProductFilter, offset, limit int) (int64, []models.Product, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.SellerEmail != "" {
		filter["email"] = f.SellerEmail
	}

	total, err := m.products.CountDocuments(ctx, filter)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := m.products.Find(ctx, filter, opts)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list products: %w", err)
	}

	items := []models.Product{}
	if err := cur.All(ctx, &items); err != nil {
		return 0, nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return total, items, nil
}

func (m *MongoRepo) CreateScheme(ctx context.Context, s *models.Scheme) error {
	if _, err := m.schemes.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("failed to insert scheme: %w", err)
	}
	return nil
}

func (m *MongoRepo) GetScheme(ctx context.Context, id string) (*models.Scheme, error) {
	var s models.Scheme
	if err := m.schemes.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repo.ErrSchemeNotFound
		}
		return nil, fmt.Errorf("failed to get scheme: %w", err)
	}
	return &s, nil
}

func (m *MongoRepo) ListSchemes(ctx context.Context) ([]models.Scheme, error) {
	cur, err := m.schemes.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list schemes: %w", err)
	}
	out := []models.Scheme{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode schemes: %w", err)
	}
	return out, nil
}
