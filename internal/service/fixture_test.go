package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shopease-api/internal/lock"
	"github.com/iliyamo/shopease-api/internal/metrics"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/queue"
	"github.com/iliyamo/shopease-api/internal/repository/memstore"
	"github.com/iliyamo/shopease-api/internal/utils"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.OrderEvent
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	store   *memstore.Store
	events  *recordingPublisher
	metrics *metrics.Metrics
	auth    *AuthService
	catalog *CatalogService
	cart    *CartService
	orders  *OrderService
	admin   *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	rec := &recordingPublisher{}
	m := metrics.New("test")
	tokens := utils.NewTokenIssuer("test-secret", 7*24*time.Hour, 48*time.Hour)
	catalog := NewCatalogService(st)
	cart := NewCartService(st, catalog, lock.NewLocalLocker())
	return &fixture{
		store:   st,
		events:  rec,
		metrics: m,
		auth:    NewAuthService(st, st, tokens, 4),
		catalog: catalog,
		cart:    cart,
		orders:  NewOrderService(st, catalog, cart, rec, m),
		admin:   NewAdminService(st, rec, m, time.UTC),
	}
}

func (f *fixture) user(t *testing.T, email string) model.User {
	t.Helper()
	sess, err := f.auth.Register(context.Background(), "User "+email, email, "pw123456")
	require.NoError(t, err)
	return sess.User
}

func hint(name string, price int64) *model.ProductHint {
	return &model.ProductHint{Name: name, Price: decimal.NewFromInt(price)}
}

func shipping() model.ShippingAddress {
	return model.ShippingAddress{
		FullName: "Ada Lovelace", Email: "ada@x.com", Phone: "555-0100",
		Address: "1 Main St", City: "London", State: "LDN", ZipCode: "N1",
	}
}
