package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func signPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, err := mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	require.NoError(t, err)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestSessionParams(t *testing.T) {
	t.Parallel()

	params := sessionParams(SessionRequest{
		Currency:   "usd",
		BuyerEmail: "alice@example.com",
		Reference:  "ref-1",
		SuccessURL: "http://localhost:5173/buy",
		CancelURL:  "http://localhost:5173/cart",
		Lines: []LineItem{
			{Name: "rice", UnitAmount: 112, Quantity: 1},
			{Name: "wheat", UnitAmount: 56, Quantity: 1},
		},
	})

	require.Len(t, params.LineItems, 2)
	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, "alice@example.com", *params.CustomerEmail)
	assert.Equal(t, "ref-1", *params.ClientReferenceID)
	assert.Equal(t, "ref-1", params.Metadata["reference"])
	assert.Equal(t, int64(112), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "usd", *params.LineItems[0].PriceData.Currency)
	assert.Equal(t, "wheat", *params.LineItems[1].PriceData.ProductData.Name)
	assert.Equal(t, int64(1), *params.LineItems[1].Quantity)
}

func TestSessionParams_NoLines(t *testing.T) {
	t.Parallel()

	params := sessionParams(SessionRequest{Currency: "usd"})
	assert.Empty(t, params.LineItems)
	assert.Nil(t, params.CustomerEmail)
	assert.Nil(t, params.ClientReferenceID)
}

func TestStripeProvider_ParseWebhook(t *testing.T) {
	t.Parallel()

	p := NewStripeProvider("sk_test_x", testWebhookSecret)

	tests := []struct {
		name     string
		payload  string
		wantType EventType
		wantID   string
		wantPaid bool
	}{
		{
			name:     "completed and paid",
			payload:  `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","payment_status":"paid"}}}`,
			wantType: EventSessionCompleted,
			wantID:   "cs_1",
			wantPaid: true,
		},
		{
			name:     "completed unpaid",
			payload:  `{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_2","object":"checkout.session","payment_status":"unpaid"}}}`,
			wantType: EventSessionCompleted,
			wantID:   "cs_2",
		},
		{
			name:     "expired",
			payload:  `{"id":"evt_3","object":"event","type":"checkout.session.expired","data":{"object":{"id":"cs_3","object":"checkout.session"}}}`,
			wantType: EventSessionExpired,
			wantID:   "cs_3",
		},
		{
			name:     "other event",
			payload:  `{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`,
			wantType: EventIgnored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			payload := []byte(tt.payload)
			ev, err := p.ParseWebhook(payload, signPayload(t, payload, testWebhookSecret))
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, ev.Type)
			assert.Equal(t, tt.wantID, ev.SessionID)
			assert.Equal(t, tt.wantPaid, ev.Paid)
		})
	}
}

func TestStripeProvider_ParseWebhookBadSignature(t *testing.T) {
	t.Parallel()

	p := NewStripeProvider("sk_test_x", testWebhookSecret)
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)

	_, err := p.ParseWebhook(payload, signPayload(t, payload, "whsec_other"))
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = p.ParseWebhook(payload, "")
	require.ErrorIs(t, err, ErrInvalidSignature)
}

type fakeProvider struct {
	calls int
	err   error
}

func (f *fakeProvider) CreateSession(ctx context.Context, req SessionRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "cs_fake", nil
}

func (f *fakeProvider) ParseWebhook(payload []byte, sigHeader string) (*WebhookEvent, error) {
	return &WebhookEvent{Type: EventIgnored}, nil
}

func TestBreakerProvider_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{err: errors.New("stripe down")}
	s := DefaultBreakerSettings()
	s.MinRequests = 3
	b := NewBreakerProvider(fake, s, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 3; i++ {
		_, err := b.CreateSession(context.Background(), SessionRequest{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.CreateSession(context.Background(), SessionRequest{})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, fake.calls)
}

func TestBreakerProvider_PassesThrough(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{}
	b := NewBreakerProvider(fake, DefaultBreakerSettings(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	id, err := b.CreateSession(context.Background(), SessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "cs_fake", id)

	ev, err := b.ParseWebhook(nil, "")
	require.NoError(t, err)
	assert.Equal(t, EventIgnored, ev.Type)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
