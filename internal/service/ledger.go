package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrohub/marketplace/internal/logging"
	"github.com/agrohub/marketplace/internal/metrics"
	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/mykafka"
	"github.com/agrohub/marketplace/internal/repo"
)

// LedgerService posts checkout revenue into seller profit ledgers.
type LedgerService struct {
	Sessions repo.Checkouts
	Products ProductLookup
	Events   mykafka.Publisher
	Metrics  *metrics.ServerMetrics
	Now      func() time.Time
}

func NewLedgerService(sessions repo.Checkouts, products ProductLookup, events mykafka.Publisher, m *metrics.ServerMetrics) *LedgerService {
	return &LedgerService{Sessions: sessions, Products: products, Events: events, Metrics: m, Now: time.Now}
}

// Settle attributes every line of the session to its seller. It is safe to call any number
// of times: a settled session is reported as such and nothing is posted twice.
func (s *LedgerService) Settle(ctx context.Context, sessionID string) (*models.SettlementReport, error) {
	l := logging.FromContext(ctx).With("component", "ledger", "session_id", sessionID)

	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if errors.Is(err, repo.ErrSessionNotFound) {
		return nil, fmt.Errorf("checkout session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	report := &models.SettlementReport{SessionID: sessionID}
	if sess.Status == models.SessionSettled {
		report.AlreadySettled = true
		return report, nil
	}

	postings, skipped, err := s.resolve(ctx, sess.Lines)
	if err != nil {
		return nil, err
	}
	report.Skipped = skipped

	out, err := s.Sessions.SettleSession(ctx, sessionID, postings, s.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("settle session: %w", err)
	}
	report.AlreadySettled = out.AlreadySettled
	report.Applied = out.Applied
	report.Duplicates = out.Duplicates
	for _, p := range out.MissingSellers {
		report.Skipped = append(report.Skipped, models.SkippedLine{ProductID: p.ProductID, Reason: models.SkipMissingSeller})
	}

	var posted float64
	for _, p := range out.Applied {
		posted += p.Revenue
	}
	s.Metrics.Postings("applied", len(out.Applied), posted)
	s.Metrics.Postings("duplicate", len(out.Duplicates), 0)
	s.Metrics.Postings("skipped", len(report.Skipped), 0)

	for _, sk := range report.Skipped {
		l.Warn("ledger_line_skipped", "product_id", sk.ProductID, "reason", sk.Reason)
	}
	l.Info("session settled", "applied", len(out.Applied), "duplicates", len(out.Duplicates), "skipped", len(report.Skipped))

	if len(out.Applied) > 0 {
		mykafka.Emit(ctx, s.Events, mykafka.TopicLedgerEvents, sessionID, map[string]any{
			"type":      "revenue_posted",
			"sessionId": sessionID,
			"postings":  out.Applied,
		})
	}
	return report, nil
}

// resolve maps lines to per-product postings, summing repeated lines for the same product.
func (s *LedgerService) resolve(ctx context.Context, lines []models.CheckoutLine) ([]models.RevenuePosting, []models.SkippedLine, error) {
	var (
		skipped []models.SkippedLine
		order   []string
		sellers = map[string]string{}
		sums    = map[string]decimal.Decimal{}
	)

	for _, line := range lines {
		if !validID(line.ProductID) {
			skipped = append(skipped, models.SkippedLine{ProductID: line.ProductID, Reason: models.SkipMalformedID})
			continue
		}

		seller, seen := sellers[line.ProductID]
		if !seen {
			p, err := s.Products.GetProduct(ctx, line.ProductID)
			if errors.Is(err, repo.ErrProductNotFound) {
				skipped = append(skipped, models.SkippedLine{ProductID: line.ProductID, Reason: models.SkipMissingProduct})
				continue
			}
			if err != nil {
				return nil, nil, fmt.Errorf("get product %s: %w", line.ProductID, err)
			}
			seller = p.SellerEmail
			sellers[line.ProductID] = seller
			order = append(order, line.ProductID)
		}

		revenue := decimal.NewFromFloat(line.Price).Mul(decimal.NewFromFloat(line.TotalQuantity))
		sums[line.ProductID] = sums[line.ProductID].Add(revenue)
	}

	postings := make([]models.RevenuePosting, 0, len(order))
	for _, id := range order {
		postings = append(postings, models.RevenuePosting{
			SellerEmail: sellers[id],
			ProductID:   id,
			Revenue:     sums[id].InexactFloat64(),
		})
	}
	return postings, skipped, nil
}
