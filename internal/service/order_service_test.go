package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/queue"
)

func directOrder(items ...LineItemInput) CreateOrderInput {
	return CreateOrderInput{Items: items, Shipping: shipping()}
}

func line(ref string, price int64, qty int) LineItemInput {
	return LineItemInput{ExternalID: ref, Quantity: qty, Price: decimal.NewFromInt(price), Hint: hint("Product "+ref, price)}
}

func TestCreateOrderComputesTotal(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "a@x.com")

	o, err := f.orders.CreateOrder(context.Background(), u.ID, directOrder(line("A", 10, 2), line("B", 5, 1)))
	require.NoError(t, err)
	assert.True(t, o.TotalPrice.Equal(decimal.NewFromInt(25)), "total %s", o.TotalPrice)
	assert.Equal(t, model.StatusPending, o.Status)
	assert.Equal(t, model.PaymentCOD, o.PaymentMethod)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d+-\d{4}-[0-9a-f]{6}$`), o.OrderNumber)
	assert.Equal(t, o.CreatedAt.Add(7*24*time.Hour), EstimatedDelivery(o))

	assert.Equal(t, []string{queue.EventOrderCreated}, f.events.types())
}

func TestSnapshotPriceIsDecoupledFromCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	_, err := f.cart.AddItem(ctx, u.ID, "A", 1, hint("A", 99))
	require.NoError(t, err)

	o, err := f.orders.CreateOrder(ctx, u.ID, directOrder(line("A", 10, 1)))
	require.NoError(t, err)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, o.Items[0].Product.Price.Equal(decimal.NewFromInt(99)))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	cases := map[string]CreateOrderInput{
		"no items":       {Shipping: shipping()},
		"no shipping":    {Items: []LineItemInput{line("A", 1, 1)}},
		"zero quantity":  directOrder(line("A", 1, 0)),
		"zero price":     directOrder(line("A", 0, 1)),
		"no product id":  directOrder(LineItemInput{Quantity: 1, Price: decimal.NewFromInt(1)}),
		"bad payment":    {Items: []LineItemInput{line("A", 1, 1)}, Shipping: shipping(), PaymentMethod: "card"},
		"one bad of two": directOrder(line("A", 1, 1), line("B", -3, 1)),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(ctx, u.ID, in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	_, err := f.orders.CreateOrder(ctx, u.ID, directOrder(LineItemInput{ExternalID: "UNKNOWN", Quantity: 1, Price: decimal.NewFromInt(1)}))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	o, err := f.orders.CreateOrder(ctx, u.ID, CreateOrderInput{Items: []LineItemInput{line("A", 1, 1)}, Shipping: shipping(), PaymentMethod: "ONLINE"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentOnline, o.PaymentMethod)
}

func TestCreateOrderValidatesRoundedAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	priced := func(price string, qty int) CreateOrderInput {
		p := decimal.RequireFromString(price)
		return directOrder(LineItemInput{ExternalID: "A", Quantity: qty, Price: p, Hint: &model.ProductHint{Name: "A", Price: p}})
	}
	for name, in := range map[string]CreateOrderInput{
		"rounds to zero": priced("0.004", 1),
		"quantity cap":   priced("1", model.MaxQuantity+1),
		"unit too large": priced("10000000000", 1),
		"total overflow": priced("9999999999.99", 2),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(ctx, u.ID, in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
	orders, err := f.orders.ListOrders(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)

	in := priced("0.005", 3)
	o, err := f.orders.CreateOrder(ctx, u.ID, in)
	require.NoError(t, err)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("0.03")), "total %s", o.TotalPrice)
	assert.True(t, in.Items[0].Price.Equal(decimal.RequireFromString("0.005")))
}

func TestOrderNumbersAreUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				o, err := f.orders.CreateOrder(ctx, u.ID, directOrder(line("A", 1, 1)))
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				seen[o.OrderNumber] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1000)
}

func TestCancelOrderRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a@x.com")
	b := f.user(t, "b@x.com")

	pending, err := f.orders.CreateOrder(ctx, a.ID, directOrder(line("A", 1, 1)))
	require.NoError(t, err)
	got, err := f.orders.CancelOrder(ctx, a.ID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	confirmed, err := f.orders.CreateOrder(ctx, a.ID, directOrder(line("A", 1, 1)))
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateOrderStatus(ctx, confirmed.ID, model.StatusConfirmed))
	_, err = f.orders.CancelOrder(ctx, a.ID, confirmed.ID)
	require.NoError(t, err)

	shipped, err := f.orders.CreateOrder(ctx, a.ID, directOrder(line("A", 1, 1)))
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateOrderStatus(ctx, shipped.ID, model.StatusShipped))
	_, err = f.orders.CancelOrder(ctx, a.ID, shipped.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	after, err := f.orders.GetOrder(ctx, a.ID, shipped.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusShipped, after.Status)

	_, err = f.orders.CancelOrder(ctx, b.ID, shipped.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.orders.CancelOrder(ctx, a.ID, 123456)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListOrdersNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	f.orders.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	first, err := f.orders.CreateOrder(ctx, u.ID, directOrder(line("A", 1, 1)))
	require.NoError(t, err)
	second, err := f.orders.CreateOrder(ctx, u.ID, directOrder(line("B", 2, 1)))
	require.NoError(t, err)

	list, err := f.orders.ListOrders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "B", list[0].Items[0].Product.ExternalRef)

	other := f.user(t, "b@x.com")
	empty, err := f.orders.ListOrders(ctx, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestCheckoutSnapshotsCartAndClearsIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")

	_, err := f.orders.Checkout(ctx, u.ID, shipping(), "")
	assert.True(t, apperr.Is(err, apperr.KindValidation), "empty cart")

	_, err = f.cart.AddItem(ctx, u.ID, "A", 2, hint("A", 10))
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, u.ID, "B", 1, hint("B", 5))
	require.NoError(t, err)

	o, err := f.orders.Checkout(ctx, u.ID, shipping(), model.PaymentOnline)
	require.NoError(t, err)
	assert.True(t, o.TotalPrice.Equal(decimal.NewFromInt(25)))
	assert.Len(t, o.Items, 2)

	v, err := f.cart.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
}
