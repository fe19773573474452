package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/agrohub/marketplace/internal/config"
	"github.com/agrohub/marketplace/internal/db"
	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/payment"
	"github.com/agrohub/marketplace/internal/repo/gormrepo"
)

func newTestRepo(t *testing.T) *gormrepo.GormRepo {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, db.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)

	r := gormrepo.New(gdb)
	require.NoError(t, r.Migrate(ctx))
	t.Cleanup(func() { _ = r.Close(ctx) })
	return r
}

func seedUser(t *testing.T, r *gormrepo.GormRepo, email string, role models.Role) *models.User {
	t.Helper()

	u := &models.User{
		ID:           uuid.NewString(),
		Name:         "user " + email,
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, r *gormrepo.GormRepo, seller, name, category string, price, perPack float64) *models.Product {
	t.Helper()

	p := &models.Product{
		ID:              uuid.NewString(),
		SellerEmail:     seller,
		Name:            name,
		PerPackQuantity: perPack,
		Price:           price,
		Category:        category,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}

type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	err      error
	lastReq  payment.SessionRequest
	event    *payment.WebhookEvent
	parseErr error
}

func (f *fakeProvider) CreateSession(_ context.Context, req payment.SessionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("cs_test_%d_%s", f.calls, uuid.NewString()[:8]), nil
}

func (f *fakeProvider) ParseWebhook(_ []byte, _ string) (*payment.WebhookEvent, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.event, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []map[string]any
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.topics = append(p.topics, topic)
	if m, ok := event.(map[string]any); ok {
		p.events = append(p.events, m)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, fmt.Sprint(e["type"]))
	}
	return out
}

func testCheckoutConfig(attribution string) config.Checkout {
	return config.Checkout{
		Currency:     "usd",
		ExchangeRate: 89.0053,
		SuccessURL:   "http://localhost:5173/buy",
		CancelURL:    "http://localhost:5173/cart",
		Attribution:  attribution,
	}
}

type checkoutFixture struct {
	repo     *gormrepo.GormRepo
	provider *fakeProvider
	events   *recordingPublisher
	ledger   *LedgerService
	checkout *CheckoutService
	carts    *CartService
}

func newCheckoutFixture(t *testing.T, attribution string) *checkoutFixture {
	t.Helper()

	r := newTestRepo(t)
	prov := &fakeProvider{}
	events := &recordingPublisher{}
	ledger := NewLedgerService(r, r, events, nil)
	return &checkoutFixture{
		repo:     r,
		provider: prov,
		events:   events,
		ledger:   ledger,
		checkout: NewCheckoutService(r, r, prov, ledger, events, nil, testCheckoutConfig(attribution)),
		carts:    NewCartService(r, r, events, nil),
	}
}

func profitFor(t *testing.T, r *gormrepo.GormRepo, seller, productID string) float64 {
	t.Helper()

	u, err := r.GetUserByEmail(context.Background(), seller)
	require.NoError(t, err)
	for _, e := range u.ProductProfits {
		if e.ProductID == productID {
			return e.CumulativeRevenue
		}
	}
	return 0
}
