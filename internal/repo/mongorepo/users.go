package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/repo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartDoc struct {
	Cart []models.CartEntry `bson:"cart"`
}

func normalizeUser(u *models.User) {
	if u.Cart == nil {
		u.Cart = []models.CartEntry{}
	}
	if u.ProductProfits == nil {
		u.ProductProfits = []models.ProfitEntry{}
	}
	if u.AppliedSchemes == nil {
		u.AppliedSchemes = []models.AppliedScheme{}
	}
}

func (m *MongoRepo) CreateUser(ctx context.Context, u *models.User) error {
	doc := *u
	normalizeUser(&doc)

	if _, err := m.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (m *MongoRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *MongoRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id})
}

func (m *MongoRepo) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := m.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repo.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	normalizeUser(&u)
	return &u, nil
}

func (m *MongoRepo) GetCart(ctx context.Context, email string) ([]models.CartEntry, error) {
	var doc cartDoc
	err := m.users.FindOne(ctx, bson.M{"email": email}, options.FindOne().SetProjection(bson.M{"cart": 1})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repo.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if doc.Cart == nil {
		doc.Cart = []models.CartEntry{}
	}
	return doc.Cart, nil
}

// updateCart applies a conditional update and returns the cart after it. ok is false when the filter matched nothing.
func (m *MongoRepo) updateCart(ctx context.Context, filter, update bson.M) ([]models.CartEntry, bool, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"cart": 1})

	var doc cartDoc
	err := m.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to update cart: %w", err)
	}
	if doc.Cart == nil {
		doc.Cart = []models.CartEntry{}
	}
	return doc.Cart, true, nil
}

func (m *MongoRepo) IncrementCartEntry(ctx context.Context, email, productID string) ([]models.CartEntry, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cart, ok, err := m.updateCart(ctx,
			bson.M{"email": email, "cart.productId": productID},
			bson.M{"$inc": bson.M{"cart.$.count": 1}},
		)
		if err != nil || ok {
			return cart, err
		}

		cart, ok, err = m.updateCart(ctx,
			bson.M{"email": email, "cart.productId": bson.M{"$ne": productID}},
			bson.M{"$push": bson.M{"cart": models.CartEntry{ProductID: productID, Count: 1}}},
		)
		if err != nil || ok {
			return cart, err
		}

		exists, err := m.userExists(ctx, email)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, repo.ErrUserNotFound
		}
	}
	return nil, fmt.Errorf("increment cart entry: %w", errContended)
}

func (m *MongoRepo) DecrementCartEntry(ctx context.Context, email, productID string) ([]models.CartEntry, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cart, ok, err := m.updateCart(ctx,
			bson.M{"email": email, "cart": bson.M{"$elemMatch": bson.M{"productId": productID, "count": bson.M{"$gt": 1}}}},
			bson.M{"$inc": bson.M{"cart.$.count": -1}},
		)
		if err != nil || ok {
			return cart, err
		}

		cart, ok, err = m.updateCart(ctx,
			bson.M{"email": email, "cart": bson.M{"$elemMatch": bson.M{"productId": productID, "count": bson.M{"$lte": 1}}}},
			bson.M{"$pull": bson.M{"cart": bson.M{"productId": productID}}},
		)
		if err != nil || ok {
			return cart, err
		}

		exists, err := m.userExists(ctx, email)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, repo.ErrUserNotFound
		}
		n, err := m.users.CountDocuments(ctx, bson.M{"email": email, "cart.productId": productID})
		if err != nil {
			return nil, fmt.Errorf("failed to count cart entries: %w", err)
		}
		if n == 0 {
			return nil, repo.ErrEntryNotFound
		}
	}
	return nil, fmt.Errorf("decrement cart entry: %w", errContended)
}

func (m *MongoRepo) RemoveCartEntries(ctx context.Context, email string, productIDs []string) error {
	if len(productIDs) == 0 {
		exists, err := m.userExists(ctx, email)
		if err != nil {
			return err
		}
		if !exists {
			return repo.ErrUserNotFound
		}
		return nil
	}
	res, err := m.users.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$pull": bson.M{"cart": bson.M{"productId": bson.M{"$in": productIDs}}}},
	)
	if err != nil {
		return fmt.Errorf("failed to remove cart entries: %w", err)
	}
	if res.MatchedCount == 0 {
		return repo.ErrUserNotFound
	}
	return nil
}

func (m *MongoRepo) ClearCart(ctx context.Context, email string) error {
	res, err := m.users.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"cart": []models.CartEntry{}}})
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return repo.ErrUserNotFound
	}
	return nil
}

func (m *MongoRepo) ApplyScheme(ctx context.Context, email, schemeID string, at time.Time) error {
	res, err := m.users.UpdateOne(ctx,
		bson.M{"email": email, "appliedSchemes.schemeId": bson.M{"$ne": schemeID}},
		bson.M{"$push": bson.M{"appliedSchemes": models.AppliedScheme{
			SchemeID:  schemeID,
			Status:    models.SchemePending,
			AppliedAt: at,
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed to apply scheme: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	exists, err := m.userExists(ctx, email)
	if err != nil {
		return err
	}
	if !exists {
		return repo.ErrUserNotFound
	}
	return repo.ErrDuplicate
}
