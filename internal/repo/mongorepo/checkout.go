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
)

type postResult int

const (
	postApplied postResult = iota
	postDuplicate
	postMissingSeller
)

func (m *MongoRepo) CreateSession(ctx context.Context, s *models.CheckoutSession) error {
	doc := *s
	if doc.Lines == nil {
		doc.Lines = []models.CheckoutLine{}
	}
	if _, err := m.sessions.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("failed to insert checkout session: %w", err)
	}
	return nil
}

func (m *MongoRepo) GetSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	if err := m.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repo.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}
	if s.Lines == nil {
		s.Lines = []models.CheckoutLine{}
	}
	return &s, nil
}

// SettleSession is replayable. Each (session, product) pair owns one document in profit_postings,
// and a ledger entry carries the posting key only until that document is marked applied, so a
// crash at any step is repaired by settling again without double-counting.
func (m *MongoRepo) SettleSession(ctx context.Context, sessionID string, postings []models.RevenuePosting, at time.Time) (repo.SettleOutcome, error) {
	var out repo.SettleOutcome

	sess, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return out, err
	}
	if sess.Status == models.SessionSettled {
		out.AlreadySettled = true
		return out, nil
	}

	for _, p := range postings {
		res, err := m.postRevenue(ctx, sessionID, p, at)
		if err != nil {
			return repo.SettleOutcome{}, err
		}
		switch res {
		case postApplied:
			out.Applied = append(out.Applied, p)
		case postDuplicate:
			out.Duplicates = append(out.Duplicates, p)
		case postMissingSeller:
			out.MissingSellers = append(out.MissingSellers, p)
		}
	}

	if _, err := m.sessions.UpdateOne(ctx,
		bson.M{"_id": sessionID, "status": bson.M{"$ne": models.SessionSettled}},
		bson.M{"$set": bson.M{"status": models.SessionSettled, "settledAt": at}},
	); err != nil {
		return repo.SettleOutcome{}, fmt.Errorf("failed to mark session settled: %w", err)
	}
	return out, nil
}

type postingDoc struct {
	SessionID   string    `bson:"sessionId"`
	ProductID   string    `bson:"productId"`
	SellerEmail string    `bson:"sellerEmail"`
	Revenue     float64   `bson:"revenue"`
	Applied     bool      `bson:"applied"`
	PostedAt    time.Time `bson:"postedAt"`
}

func postingKey(sessionID, productID string) string {
	return sessionID + "/" + productID
}

func (m *MongoRepo) postRevenue(ctx context.Context, sessionID string, p models.RevenuePosting, at time.Time) (postResult, error) {
	exists, err := m.userExists(ctx, p.SellerEmail)
	if err != nil {
		return 0, err
	}
	if !exists {
		return postMissingSeller, nil
	}

	filter := bson.M{"sessionId": sessionID, "productId": p.ProductID}
	key := postingKey(sessionID, p.ProductID)

	_, err = m.postings.InsertOne(ctx, postingDoc{
		SessionID:   sessionID,
		ProductID:   p.ProductID,
		SellerEmail: p.SellerEmail,
		Revenue:     p.Revenue,
		PostedAt:    at,
	})
	if err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("failed to record posting: %w", err)
		}
		var prev postingDoc
		if err := m.postings.FindOne(ctx, filter).Decode(&prev); err != nil {
			return 0, fmt.Errorf("failed to load posting: %w", err)
		}
		if prev.Applied {
			if err := m.releasePosting(ctx, prev.SellerEmail, prev.ProductID, key); err != nil {
				return 0, err
			}
			return postDuplicate, nil
		}
		// an earlier attempt stopped before finishing; resume with what it recorded
		p = models.RevenuePosting{SellerEmail: prev.SellerEmail, ProductID: prev.ProductID, Revenue: prev.Revenue}
	}

	found, err := m.accumulate(ctx, key, p)
	if err != nil {
		return 0, err
	}
	if !found {
		if _, err := m.postings.DeleteOne(ctx, filter); err != nil {
			return 0, fmt.Errorf("failed to drop posting: %w", err)
		}
		return postMissingSeller, nil
	}

	if _, err := m.postings.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"applied": true}}); err != nil {
		return 0, fmt.Errorf("failed to mark posting applied: %w", err)
	}
	if err := m.releasePosting(ctx, p.SellerEmail, p.ProductID, key); err != nil {
		return 0, err
	}
	return postApplied, nil
}

// accumulate folds revenue into the seller's ledger entry at most once per posting key.
// found is false when the seller does not exist.
func (m *MongoRepo) accumulate(ctx context.Context, key string, p models.RevenuePosting) (bool, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		res, err := m.users.UpdateOne(ctx,
			bson.M{
				"email": p.SellerEmail,
				"productProfits": bson.M{"$elemMatch": bson.M{
					"productId": p.ProductID,
					"pending":   bson.M{"$ne": key},
				}},
			},
			bson.M{
				"$inc":  bson.M{"productProfits.$.cumulativeRevenue": p.Revenue},
				"$push": bson.M{"productProfits.$.pending": key},
			},
		)
		if err != nil {
			return false, fmt.Errorf("failed to accumulate revenue: %w", err)
		}
		if res.MatchedCount > 0 {
			return true, nil
		}

		res, err = m.users.UpdateOne(ctx,
			bson.M{"email": p.SellerEmail, "productProfits.productId": bson.M{"$ne": p.ProductID}},
			bson.M{"$push": bson.M{"productProfits": models.ProfitEntry{
				ProductID:         p.ProductID,
				CumulativeRevenue: p.Revenue,
				Pending:           []string{key},
			}}},
		)
		if err != nil {
			return false, fmt.Errorf("failed to create ledger entry: %w", err)
		}
		if res.MatchedCount > 0 {
			return true, nil
		}

		n, err := m.users.CountDocuments(ctx, bson.M{
			"email":          p.SellerEmail,
			"productProfits": bson.M{"$elemMatch": bson.M{"productId": p.ProductID, "pending": key}},
		})
		if err != nil {
			return false, fmt.Errorf("failed to check ledger entry: %w", err)
		}
		if n > 0 {
			return true, nil
		}

		exists, err := m.userExists(ctx, p.SellerEmail)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return false, fmt.Errorf("post revenue: %w", errContended)
}

func (m *MongoRepo) releasePosting(ctx context.Context, seller, productID, key string) error {
	_, err := m.users.UpdateOne(ctx,
		bson.M{"email": seller, "productProfits.productId": productID},
		bson.M{"$pull": bson.M{"productProfits.$.pending": key}},
	)
	if err != nil {
		return fmt.Errorf("failed to release posting: %w", err)
	}
	return nil
}

func (m *MongoRepo) ExpireSession(ctx context.Context, id string) error {
	res, err := m.sessions.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.SessionPending},
		bson.M{"$set": bson.M{"status": models.SessionExpired}},
	)
	if err != nil {
		return fmt.Errorf("failed to expire session: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := m.sessions.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}
	if n == 0 {
		return repo.ErrSessionNotFound
	}
	return nil
}
