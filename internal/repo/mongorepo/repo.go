package mongorepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrohub/marketplace/internal/repo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxAttempts bounds the retries of two-step conditional updates that lost a race.
const maxAttempts = 3

var errContended = errors.New("concurrent update did not settle")

type MongoRepo struct {
	db       *mongo.Database
	users    *mongo.Collection
	products *mongo.Collection
	schemes  *mongo.Collection
	sessions *mongo.Collection
	postings *mongo.Collection
}

var _ repo.Repository = (*MongoRepo)(nil)

func New(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		db:       db,
		users:    db.Collection("users"),
		products: db.Collection("products"),
		schemes:  db.Collection("schemes"),
		sessions: db.Collection("checkout_sessions"),
		postings: db.Collection("profit_postings"),
	}
}

func (m *MongoRepo) CreateIndexes(ctx context.Context) error {
	if _, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	if _, err := m.products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create products indexes: %w", err)
	}

	if _, err := m.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "buyerEmail", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create checkout_sessions index: %w", err)
	}

	if _, err := m.postings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sessionId", Value: 1}, {Key: "productId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create profit_postings index: %w", err)
	}
	return nil
}

func (m *MongoRepo) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, nil)
}

func (m *MongoRepo) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}

func (m *MongoRepo) userExists(ctx context.Context, email string) (bool, error) {
	n, err := m.users.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return n > 0, nil
}
