package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrohub/marketplace/internal/config"
	"github.com/agrohub/marketplace/internal/logging"
	"github.com/agrohub/marketplace/internal/metrics"
	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/mykafka"
	"github.com/agrohub/marketplace/internal/payment"
	"github.com/agrohub/marketplace/internal/repo"
)

type CheckoutService struct {
	Sessions repo.Checkouts
	Carts    repo.Carts
	Provider payment.Provider
	Ledger   *LedgerService
	Events   mykafka.Publisher
	Metrics  *metrics.ServerMetrics
	Config   config.Checkout
	Now      func() time.Time
}

func NewCheckoutService(sessions repo.Checkouts, carts repo.Carts, provider payment.Provider, ledger *LedgerService,
	events mykafka.Publisher, m *metrics.ServerMetrics, cfg config.Checkout) *CheckoutService {
	return &CheckoutService{
		Sessions: sessions,
		Carts:    carts,
		Provider: provider,
		Ledger:   ledger,
		Events:   events,
		Metrics:  m,
		Config:   cfg,
		Now:      time.Now,
	}
}

// UnitAmount converts a local line total into minor units of the settlement currency.
func UnitAmount(price, totalQuantity, rate float64) int64 {
	local := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(totalQuantity)).Mul(decimal.NewFromInt(100))
	return local.Div(decimal.NewFromFloat(rate)).Round(0).IntPart()
}

// CreateSession opens a provider checkout session for the submitted lines and records it
// as pending. Line prices are taken as submitted.
func (s *CheckoutService) CreateSession(ctx context.Context, buyerEmail string, lines []models.CheckoutLine) (string, error) {
	l := logging.FromContext(ctx).With("component", "checkout")

	recorded := make([]models.CheckoutLine, 0, len(lines))
	items := make([]payment.LineItem, 0, len(lines))
	for _, line := range lines {
		line.UnitAmount = UnitAmount(line.Price, line.TotalQuantity, s.Config.ExchangeRate)
		recorded = append(recorded, line)
		items = append(items, payment.LineItem{Name: line.ProductName, UnitAmount: line.UnitAmount, Quantity: 1})
	}

	id, err := s.Provider.CreateSession(ctx, payment.SessionRequest{
		Currency:   s.Config.Currency,
		BuyerEmail: buyerEmail,
		Reference:  buyerEmail,
		Lines:      items,
		SuccessURL: s.Config.SuccessURL,
		CancelURL:  s.Config.CancelURL,
	})
	if err != nil {
		s.Metrics.CheckoutSession("provider_error")
		return "", fmt.Errorf("create provider session: %v: %w", err, ErrUpstream)
	}

	sess := &models.CheckoutSession{
		ID:         id,
		BuyerEmail: buyerEmail,
		Currency:   s.Config.Currency,
		Lines:      recorded,
		Status:     models.SessionPending,
		CreatedAt:  s.Now().UTC(),
	}
	if err := s.Sessions.CreateSession(ctx, sess); err != nil {
		s.Metrics.CheckoutSession("store_error")
		return "", fmt.Errorf("store checkout session %s: %w", id, err)
	}
	s.Metrics.CheckoutSession("created")
	l.Info("checkout session created", "session_id", id, "lines", len(recorded))

	mykafka.Emit(ctx, s.Events, mykafka.TopicCheckoutEvents, id, map[string]any{
		"type":       "checkout_session_created",
		"sessionId":  id,
		"buyerEmail": buyerEmail,
		"lines":      len(recorded),
	})

	if s.Config.Attribution == config.AttributionSession {
		if _, err := s.Ledger.Settle(ctx, id); err != nil {
			return "", fmt.Errorf("settle session %s: %w", id, err)
		}
	}
	return id, nil
}

func (s *CheckoutService) GetSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required: %w", ErrValidation)
	}
	sess, err := s.Sessions.GetSession(ctx, id)
	if errors.Is(err, repo.ErrSessionNotFound) {
		return nil, fmt.Errorf("checkout session %s: %w", id, ErrNotFound)
	}
	return sess, err
}

// HandleWebhook verifies and applies a provider event. Unknown sessions and unpaid
// completions are acknowledged without changes. A nil report means nothing was settled.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) (*models.SettlementReport, error) {
	l := logging.FromContext(ctx).With("component", "checkout.webhook")

	ev, err := s.Provider.ParseWebhook(payload, sigHeader)
	if errors.Is(err, payment.ErrInvalidSignature) {
		return nil, fmt.Errorf("%v: %w", err, ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("parse webhook: %v: %w", err, ErrValidation)
	}

	switch ev.Type {
	case payment.EventSessionCompleted:
		if !ev.Paid {
			l.Info("checkout completed without payment", "session_id", ev.SessionID)
			return nil, nil
		}
		return s.confirm(ctx, ev.SessionID)

	case payment.EventSessionExpired:
		err := s.Sessions.ExpireSession(ctx, ev.SessionID)
		if errors.Is(err, repo.ErrSessionNotFound) {
			l.Warn("webhook_unknown_session", "session_id", ev.SessionID, "type", ev.Type)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("expire session: %w", err)
		}
		s.Metrics.CheckoutSession("expired")
		return nil, nil
	}
	return nil, nil
}

func (s *CheckoutService) confirm(ctx context.Context, sessionID string) (*models.SettlementReport, error) {
	l := logging.FromContext(ctx).With("component", "checkout.webhook", "session_id", sessionID)

	report, err := s.Ledger.Settle(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		l.Warn("webhook_unknown_session", "type", payment.EventSessionCompleted)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Metrics.CheckoutSession("paid")

	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.BuyerEmail != "" {
		err := s.Carts.RemoveCartEntries(ctx, sess.BuyerEmail, sessionProducts(sess))
		if err != nil && !errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("release_cart_error", "buyer", sess.BuyerEmail, "error", err)
		}
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicCheckoutEvents, sessionID, map[string]any{
		"type":      "checkout_session_paid",
		"sessionId": sessionID,
	})
	return report, nil
}

// sessionProducts lists the distinct products a session paid for. Cart entries for anything
// else, including packs added after checkout started, stay in the cart.
func sessionProducts(sess *models.CheckoutSession) []string {
	seen := make(map[string]struct{}, len(sess.Lines))
	out := make([]string, 0, len(sess.Lines))
	for _, line := range sess.Lines {
		if line.ProductID == "" {
			continue
		}
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		out = append(out, line.ProductID)
	}
	return out
}
