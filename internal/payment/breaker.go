package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	OpenTimeout  time.Duration
	FailureRatio float64
	MinRequests  uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "payment-provider",
		MaxRequests:  1,
		Interval:     time.Minute,
		OpenTimeout:  30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// BreakerProvider guards session creation with a circuit breaker. Webhook parsing is local and bypasses it.
type BreakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker[string]
}

func NewBreakerProvider(next Provider, s BreakerSettings, l *slog.Logger) *BreakerProvider {
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < s.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit_breaker_state", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerProvider{next: next, cb: cb}
}

func (b *BreakerProvider) CreateSession(ctx context.Context, req SessionRequest) (string, error) {
	id, err := b.cb.Execute(func() (string, error) {
		return b.next.CreateSession(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return id, err
}

func (b *BreakerProvider) ParseWebhook(payload []byte, sigHeader string) (*WebhookEvent, error) {
	return b.next.ParseWebhook(payload, sigHeader)
}

func (b *BreakerProvider) State() gobreaker.State {
	return b.cb.State()
}
