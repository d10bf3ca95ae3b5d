package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/queue"
)

// seedOrder stores an order directly so tests control its timestamp.
func (f *fixture) seedOrder(t *testing.T, u model.User, number string, total string, status model.OrderStatus, at time.Time) model.Order {
	t.Helper()
	o := model.Order{
		UserID:        u.ID,
		OrderNumber:   number,
		Status:        status,
		TotalPrice:    decimal.RequireFromString(total),
		PaymentMethod: model.PaymentCOD,
		Shipping:      model.ShippingAddress{FullName: u.Name, Email: u.Email},
		CreatedAt:     at,
	}
	require.NoError(t, f.store.CreateOrder(context.Background(), &o))
	return o
}

func TestAdminListDefaults(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "a@x.com")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 23; i++ {
		f.seedOrder(t, u, fmt.Sprintf("ORD-%02d", i), "10.00", model.StatusPending, base.Add(time.Duration(i)*time.Hour))
	}

	page, err := f.admin.ListOrders(context.Background(), model.OrderFilter{}, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.EqualValues(t, 23, page.Total)
	assert.Equal(t, 3, page.Pages)
	require.Len(t, page.Orders, 10)
	assert.Equal(t, "ORD-22", page.Orders[0].OrderNumber)
	for i := 1; i < len(page.Orders); i++ {
		assert.True(t, page.Orders[i-1].CreatedAt.After(page.Orders[i].CreatedAt))
	}
	assert.Equal(t, "a@x.com", page.Orders[0].Customer.Email)

	page, err = f.admin.ListOrders(context.Background(), model.OrderFilter{}, model.Page{Number: 3, Size: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)
	assert.Empty(t, page.Orders)
	assert.Equal(t, 1, page.Pages)
}

func TestAdminListEmptyHasOnePage(t *testing.T) {
	f := newFixture(t)
	page, err := f.admin.ListOrders(context.Background(), model.OrderFilter{}, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pages)
	assert.EqualValues(t, 0, page.Total)
}

func TestAdminListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "alice@x.com")
	b := f.user(t, "bob@x.com")
	day := func(d int) time.Time { return time.Date(2024, 2, d, 10, 0, 0, 0, time.UTC) }

	f.seedOrder(t, a, "ORD-100", "5.00", model.StatusPending, day(1))
	f.seedOrder(t, a, "ORD-200", "50.00", model.StatusShipped, day(2))
	f.seedOrder(t, b, "ORD-300", "500.00", model.StatusDelivered, day(3))
	f.seedOrder(t, b, "ORD-400", "75.50", model.StatusShipped, day(4))

	min, max := decimal.NewFromInt(50), decimal.NewFromInt(100)
	from, to := day(2), day(3)
	cases := []struct {
		name   string
		filter model.OrderFilter
		want   []string
	}{
		{"status many", model.OrderFilter{Statuses: []model.OrderStatus{model.StatusShipped, model.StatusDelivered}}, []string{"ORD-400", "ORD-300", "ORD-200"}},
		{"date range inclusive", model.OrderFilter{From: &from, To: &to}, []string{"ORD-300", "ORD-200"}},
		{"q on email", model.OrderFilter{Query: "BOB@"}, []string{"ORD-400", "ORD-300"}},
		{"q on number", model.OrderFilter{Query: "ord-2"}, []string{"ORD-200"}},
		{"total range", model.OrderFilter{MinTotal: &min, MaxTotal: &max}, []string{"ORD-400", "ORD-200"}},
		{"customer", model.OrderFilter{CustomerID: a.ID}, []string{"ORD-200", "ORD-100"}},
		{"sort total asc", model.OrderFilter{Sort: model.SortTotalAsc}, []string{"ORD-100", "ORD-200", "ORD-400", "ORD-300"}},
		{"sort total desc", model.OrderFilter{Sort: model.SortTotalDesc, Statuses: []model.OrderStatus{model.StatusShipped}}, []string{"ORD-400", "ORD-200"}},
		{"sort created asc", model.OrderFilter{Sort: model.SortCreatedAsc, CustomerID: b.ID}, []string{"ORD-300", "ORD-400"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := f.admin.ListOrders(ctx, tc.filter, model.Page{})
			require.NoError(t, err)
			var got []string
			for _, o := range page.Orders {
				got = append(got, o.OrderNumber)
			}
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := f.admin.ListOrders(ctx, model.OrderFilter{Sort: "price"}, model.Page{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.admin.ListOrders(ctx, model.OrderFilter{Statuses: []model.OrderStatus{"lost"}}, model.Page{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.admin.ListOrders(ctx, model.OrderFilter{From: &to, To: &from}, model.Page{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestExportOrdersEscapesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.auth.Register(ctx, `Smith, "Jo"`, "jo@x.com", "pw123456")
	require.NoError(t, err)
	f.seedOrder(t, sess.User, "ORD-1", "12.5", model.StatusPaid, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, f.admin.ExportOrders(ctx, model.OrderFilter{}, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "orderNumber,status,totalPrice,createdAt,customerName,customerEmail", lines[0])
	assert.Equal(t, `ORD-1,paid,12.50,2024-05-06T07:08:09.000Z,"Smith, ""Jo""",jo@x.com`, lines[1])
}

func TestOrderDetailTimeline(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "a@x.com")
	o := f.seedOrder(t, u, "ORD-9", "1.00", model.StatusPending, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	got, timeline, err := f.admin.OrderDetail(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Name, got.Customer.Name)
	require.Len(t, timeline, 2)
	assert.Equal(t, "created", timeline[0].Type)
	assert.Equal(t, "status", timeline[1].Type)
	assert.Contains(t, timeline[1].Message, "pending")

	_, _, err = f.admin.OrderDetail(context.Background(), 9999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAdminStatusActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")
	o := f.seedOrder(t, u, "ORD-1", "40.00", model.StatusDelivered, time.Now())

	// Permissive: any enumeration value from any state.
	got, err := f.admin.UpdateStatus(ctx, o.ID, "Pending", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)

	_, err = f.admin.UpdateStatus(ctx, o.ID, "teleported", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.admin.UpdateStatus(ctx, 4242, model.StatusPaid, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err = f.admin.Cancel(ctx, o.ID, "customer called")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, got.Status)
	_, err = f.admin.Cancel(ctx, 4242, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	evs := f.events.types()
	assert.Equal(t, []string{queue.EventOrderStatusChanged, queue.EventOrderStatusChanged}, evs)
}

func TestRefundBelowTotalIsSilentNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@x.com")
	o := f.seedOrder(t, u, "ORD-1", "40.00", model.StatusPaid, time.Now())

	got, err := f.admin.Refund(ctx, o.ID, decimal.NewFromInt(10), "partial")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, got.Status)

	got, err = f.admin.Refund(ctx, o.ID, decimal.NewFromInt(40), "full")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRefunded, got.Status)

	_, err = f.admin.Refund(ctx, o.ID, decimal.NewFromInt(-1), "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDailyMetrics(t *testing.T) {
	f := newFixture(t)
	loc := time.FixedZone("UTC+2", 2*3600)
	f.admin.loc = loc
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, loc)
	f.admin.now = func() time.Time { return now }
	u := f.user(t, "a@x.com")

	f.seedOrder(t, u, "T1", "10.00", model.StatusPending, now.Add(-1*time.Hour))
	f.seedOrder(t, u, "T2", "2.50", model.StatusPaid, now.Add(-8*time.Hour)) // 01:00 local, today
	f.seedOrder(t, u, "Y1", "7.00", model.StatusShipped, now.Add(-10*time.Hour)) // 23:00 local, yesterday
	f.seedOrder(t, u, "D3", "1.00", model.StatusPending, now.Add(-3*24*time.Hour))
	f.seedOrder(t, u, "OLD", "99.00", model.StatusDelivered, now.Add(-8*24*time.Hour))

	m, err := f.admin.DailyMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, m.OrdersToday)
	assert.True(t, m.RevenueToday.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, 2, m.StatusBreakdown[model.StatusPending])
	assert.Equal(t, 1, m.StatusBreakdown[model.StatusDelivered])

	require.Len(t, m.Trend, 3)
	assert.Equal(t, "2024-06-07", m.Trend[0].Date)
	assert.Equal(t, "2024-06-09", m.Trend[1].Date)
	assert.Equal(t, 1, m.Trend[1].Count)
	assert.Equal(t, "2024-06-10", m.Trend[2].Date)
	assert.Equal(t, 2, m.Trend[2].Count)
	assert.True(t, m.Trend[2].Revenue.Equal(decimal.RequireFromString("12.5")))
}
