package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrohub/marketplace/internal/config"
	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/payment"
)

func TestUnitAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		price, total float64
		want         int64
	}{
		{10, 5, 56},
		{20, 10, 225},
		{0, 10, 0},
		{89.0053, 1, 100},
		{1, 0.5, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UnitAmount(tt.price, tt.total, 89.0053), "price=%v total=%v", tt.price, tt.total)
	}
}

func TestCheckout_ConfirmationMode(t *testing.T) {
	f := newCheckoutFixture(t, config.AttributionConfirmation)
	ctx := context.Background()

	seedUser(t, f.repo, "alice@example.com", models.RoleBusinessman)
	seedUser(t, f.repo, "bob@example.com", models.RoleFarmer)
	x := seedProduct(t, f.repo, "bob@example.com", "rice", "grain", 10, 5)
	_, err := f.carts.AddToCart(ctx, "alice@example.com", x.ID)
	require.NoError(t, err)

	id, err := f.checkout.CreateSession(ctx, "alice@example.com", []models.CheckoutLine{
		{ProductID: x.ID, ProductName: "rice", Price: 10, TotalQuantity: 5},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Len(t, f.provider.lastReq.Lines, 1)
	assert.Equal(t, payment.LineItem{Name: "rice", UnitAmount: 56, Quantity: 1}, f.provider.lastReq.Lines[0])
	assert.Equal(t, "usd", f.provider.lastReq.Currency)

	sess, err := f.checkout.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, sess.Status)
	assert.Equal(t, "alice@example.com", sess.BuyerEmail)
	assert.InDelta(t, 0, profitFor(t, f.repo, "bob@example.com", x.ID), 1e-9)

	f.provider.event = &payment.WebhookEvent{Type: payment.EventSessionCompleted, SessionID: id, Paid: true}
	rep, err := f.checkout.HandleWebhook(ctx, []byte("{}"), "sig")
	require.NoError(t, err)
	require.NotNil(t, rep)
	require.Len(t, rep.Applied, 1)
	assert.InDelta(t, 50, profitFor(t, f.repo, "bob@example.com", x.ID), 1e-9)

	cart, err := f.repo.GetCart(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, cart)

	// provider retries the same event
	rep, err = f.checkout.HandleWebhook(ctx, []byte("{}"), "sig")
	require.NoError(t, err)
	assert.True(t, rep.AlreadySettled)
	assert.InDelta(t, 50, profitFor(t, f.repo, "bob@example.com", x.ID), 1e-9)

	sess, err = f.checkout.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionSettled, sess.Status)
	assert.NotNil(t, sess.SettledAt)
}

func TestCheckout_SessionMode(t *testing.T) {
	f := newCheckoutFixture(t, config.AttributionSession)
	ctx := context.Background()

	seedUser(t, f.repo, "bob@example.com", models.RoleFarmer)
	x := seedProduct(t, f.repo, "bob@example.com", "rice", "grain", 10, 5)

	id, err := f.checkout.CreateSession(ctx, "", []models.CheckoutLine{
		{ProductID: x.ID, ProductName: "rice", Price: 10, TotalQuantity: 5},
	})
	require.NoError(t, err)
	assert.InDelta(t, 50, profitFor(t, f.repo, "bob@example.com", x.ID), 1e-9)

	sess, err := f.checkout.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionSettled, sess.Status)

	f.provider.event = &payment.WebhookEvent{Type: payment.EventSessionCompleted, SessionID: id, Paid: true}
	_, err = f.checkout.HandleWebhook(ctx, nil, "")
	require.NoError(t, err)
	assert.InDelta(t, 50, profitFor(t, f.repo, "bob@example.com", x.ID), 1e-9)
}

func TestCheckout_DefaultConfigCreditsSellerOnCreate(t *testing.T) {
	t.Setenv("PROFIT_ATTRIBUTION", "")
	t.Setenv("CHECKOUT_EXCHANGE_RATE", "")
	cfg := config.Load()

	r := newTestRepo(t)
	events := &recordingPublisher{}
	ledger := NewLedgerService(r, r, events, nil)
	svc := NewCheckoutService(r, r, &fakeProvider{}, ledger, events, nil, cfg.Checkout)
	ctx := context.Background()

	seedUser(t, r, "bob@example.com", models.RoleFarmer)
	x := seedProduct(t, r, "bob@example.com", "rice", "grain", 10, 5)

	id, err := svc.CreateSession(ctx, "alice@example.com", []models.CheckoutLine{
		{ProductID: x.ID, ProductName: "rice", Price: 10, TotalQuantity: 5},
	})
	require.NoError(t, err)
	assert.InDelta(t, 50, profitFor(t, r, "bob@example.com", x.ID), 1e-9)

	sess, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionSettled, sess.Status)
}

func TestCheckout_PaidSessionKeepsOtherCartEntries(t *testing.T) {
	f := newCheckoutFixture(t, config.AttributionConfirmation)
	ctx := context.Background()

	seedUser(t, f.repo, "alice@example.com", models.RoleBusinessman)
	seedUser(t, f.repo, "bob@example.com", models.RoleFarmer)
	x := seedProduct(t, f.repo, "bob@example.com", "rice", "grain", 10, 5)
	y := seedProduct(t, f.repo, "bob@example.com", "wheat", "grain", 12, 5)

	_, err := f.carts.AddToCart(ctx, "alice@example.com", x.ID)
	require.NoError(t, err)

	id, err := f.checkout.CreateSession(ctx, "alice@example.com", []models.CheckoutLine{
		{ProductID: x.ID, ProductName: "rice", Price: 10, TotalQuantity: 5},
	})
	require.NoError(t, err)

	// added in another tab while the payment page was open
	for i := 0; i < 2; i++ {
		_, err = f.carts.AddToCart(ctx, "alice@example.com", y.ID)
		require.NoError(t, err)
	}

	f.provider.event = &payment.WebhookEvent{Type: payment.EventSessionCompleted, SessionID: id, Paid: true}
	_, err = f.checkout.HandleWebhook(ctx, []byte("{}"), "sig")
	require.NoError(t, err)

	cart, err := f.repo.GetCart(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, []models.CartEntry{{ProductID: y.ID, Count: 2}}, cart)
}

func TestCheckout_EmptyProducts(t *testing.T) {
	f := newCheckoutFixture(t, config.AttributionSession)
	ctx := context.Background()
	seedUser(t, f.repo, "bob@example.com", models.RoleFarmer)

	id, err := f.checkout.CreateSession(ctx, "", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Empty(t, f.provider.lastReq.Lines)

	u, err := f.repo.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Empty(t, u.ProductProfits)
}

func TestCheckout_ProviderFailure(t *testing.T) {
	f := newCheckoutFixture(t, config.AttributionSession)
	ctx := context.Background()

	seedUser(t, f.repo, "bob@example.com", models.RoleFarmer)
	x := seedProduct(t, f.repo, "bob@example.com", "rice", "grain", 10, 5)
	f.provider.err = errors.New("card network down")

	id, err := f.checkout.CreateSession(ctx, "", []models.CheckoutLine{
		{ProductID: x.ID, Price: 10, TotalQuantity: 5},
	})
	require.ErrorIs(t, err, ErrUpstream)
	assert.Empty(t, id)
	assert.InDelta(t, 0, profitFor(t, f.repo, "bob@example.com", x.ID), 1e-9)
}

func TestCheckout_SkipsUnresolvableLines(t *testing.T) {
	f := newCheckoutFixture(t, config.AttributionSession)
	ctx := context.Background()

	seedUser(t, f.repo, "bob@example.com", models.RoleFarmer)
	x := seedProduct(t, f.repo, "bob@example.com", "rice", "grain", 10, 5)
	orphan := seedProduct(t, f.repo, "gone@example.com", "wheat", "grain", 3, 1)
	missing := uuid.NewString()

	id, err := f.checkout.CreateSession(ctx, "", []models.CheckoutLine{
		{ProductID: "bad-id", Price: 1, TotalQuantity: 1},
		{ProductID: missing, Price: 1, TotalQuantity: 1},
		{ProductID: orphan.ID, Price: 3, TotalQuantity: 1},
		{ProductID: x.ID, Price: 10, TotalQuantity: 5},
		{ProductID: x.ID, Price: 10, TotalQuantity: 2},
	})
	require.NoError(t, err)

	rep, err := f.ledger.Settle(ctx, id)
	require.NoError(t, err)
	assert.True(t, rep.AlreadySettled)
	assert.InDelta(t, 70, profitFor(t, f.repo, "bob@example.com", x.ID), 1e-9)
}

func TestLedger_SettleReport(t *testing.T) {
	f := newCheckoutFixture(t, config.AttributionConfirmation)
	ctx := context.Background()

	seedUser(t, f.repo, "bob@example.com", models.RoleFarmer)
	x := seedProduct(t, f.repo, "bob@example.com", "rice", "grain", 10, 5)
	orphan := seedProduct(t, f.repo, "gone@example.com", "wheat", "grain", 3, 1)
	missing := uuid.NewString()

	id, err := f.checkout.CreateSession(ctx, "", []models.CheckoutLine{
		{ProductID: "bad-id", Price: 1, TotalQuantity: 1},
		{ProductID: missing, Price: 1, TotalQuantity: 1},
		{ProductID: orphan.ID, Price: 3, TotalQuantity: 1},
		{ProductID: x.ID, Price: 10, TotalQuantity: 5},
	})
	require.NoError(t, err)

	rep, err := f.ledger.Settle(ctx, id)
	require.NoError(t, err)
	assert.False(t, rep.AlreadySettled)
	require.Len(t, rep.Applied, 1)
	assert.Equal(t, models.RevenuePosting{SellerEmail: "bob@example.com", ProductID: x.ID, Revenue: 50}, rep.Applied[0])
	assert.ElementsMatch(t, []models.SkippedLine{
		{ProductID: "bad-id", Reason: models.SkipMalformedID},
		{ProductID: missing, Reason: models.SkipMissingProduct},
		{ProductID: orphan.ID, Reason: models.SkipMissingSeller},
	}, rep.Skipped)
	assert.Contains(t, f.events.types(), "revenue_posted")

	_, err = f.ledger.Settle(ctx, "cs_unknown")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_AccumulatesAcrossSessions(t *testing.T) {
	f := newCheckoutFixture(t, config.AttributionSession)
	ctx := context.Background()

	seedUser(t, f.repo, "bob@example.com", models.RoleFarmer)
	x := seedProduct(t, f.repo, "bob@example.com", "rice", "grain", 10, 5)

	for i := 0; i < 3; i++ {
		_, err := f.checkout.CreateSession(ctx, "", []models.CheckoutLine{{ProductID: x.ID, Price: 10, TotalQuantity: 5}})
		require.NoError(t, err)
	}
	assert.InDelta(t, 150, profitFor(t, f.repo, "bob@example.com", x.ID), 1e-9)
}

func TestCheckout_Webhook(t *testing.T) {
	f := newCheckoutFixture(t, config.AttributionConfirmation)
	ctx := context.Background()

	seedUser(t, f.repo, "bob@example.com", models.RoleFarmer)
	x := seedProduct(t, f.repo, "bob@example.com", "rice", "grain", 10, 5)
	id, err := f.checkout.CreateSession(ctx, "", []models.CheckoutLine{{ProductID: x.ID, Price: 10, TotalQuantity: 5}})
	require.NoError(t, err)

	f.provider.parseErr = payment.ErrInvalidSignature
	_, err = f.checkout.HandleWebhook(ctx, nil, "")
	require.ErrorIs(t, err, ErrValidation)
	f.provider.parseErr = nil

	f.provider.event = &payment.WebhookEvent{Type: payment.EventSessionCompleted, SessionID: id, Paid: false}
	rep, err := f.checkout.HandleWebhook(ctx, nil, "")
	require.NoError(t, err)
	assert.Nil(t, rep)
	assert.InDelta(t, 0, profitFor(t, f.repo, "bob@example.com", x.ID), 1e-9)

	f.provider.event = &payment.WebhookEvent{Type: payment.EventSessionCompleted, SessionID: "cs_unknown", Paid: true}
	rep, err = f.checkout.HandleWebhook(ctx, nil, "")
	require.NoError(t, err)
	assert.Nil(t, rep)

	f.provider.event = &payment.WebhookEvent{Type: payment.EventIgnored}
	_, err = f.checkout.HandleWebhook(ctx, nil, "")
	require.NoError(t, err)

	f.provider.event = &payment.WebhookEvent{Type: payment.EventSessionExpired, SessionID: id}
	_, err = f.checkout.HandleWebhook(ctx, nil, "")
	require.NoError(t, err)

	sess, err := f.checkout.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionExpired, sess.Status)

	_, err = f.checkout.GetSession(ctx, "cs_unknown")
	require.ErrorIs(t, err, ErrNotFound)
}
