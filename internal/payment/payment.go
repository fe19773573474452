package payment

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnavailable      = errors.New("payment provider unavailable")
)

type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type SessionRequest struct {
	Currency   string
	BuyerEmail string
	// Reference is echoed back on webhook events as the client reference id.
	Reference  string
	Lines      []LineItem
	SuccessURL string
	CancelURL  string
}

type EventType string

const (
	EventSessionCompleted EventType = "checkout.session.completed"
	EventSessionExpired   EventType = "checkout.session.expired"
	EventIgnored          EventType = "ignored"
)

type WebhookEvent struct {
	Type      EventType
	SessionID string
	Paid      bool
}

type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (string, error)
	ParseWebhook(payload []byte, sigHeader string) (*WebhookEvent, error)
}
