package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/metrics"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/queue"
	"github.com/iliyamo/shopease-api/internal/repository"
)

// Admin list paging limits.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	trendWindow     = 7 * 24 * time.Hour
)

// ExportColumns is the header row of the CSV export.
var ExportColumns = []string{"orderNumber", "status", "totalPrice", "createdAt", "customerName", "customerEmail"}

// AdminService is the read-mostly reporting layer used by operators. It
// never touches carts.
type AdminService struct {
	orders OrderStore
	events eventSink
	loc    *time.Location
	now    func() time.Time
}

// NewAdminService builds the service. loc decides where "today" starts
// and how the trend is bucketed by day.
func NewAdminService(orders OrderStore, pub queue.Publisher, m *metrics.Metrics, loc *time.Location) *AdminService {
	if loc == nil {
		loc = time.Local
	}
	return &AdminService{orders: orders, events: newEventSink(pub, m), loc: loc, now: time.Now}
}

// NormalizePage applies the default and maximum page size.
func NormalizePage(p model.Page) model.Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func checkFilter(f *model.OrderFilter) error {
	if f.Sort == "" {
		f.Sort = model.SortCreatedDesc
	}
	if !f.Sort.Valid() {
		return apperr.Validation("Invalid sort: use createdAt, -createdAt, totalPrice or -totalPrice")
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			return apperr.Validation(fmt.Sprintf("Invalid status %q", st))
		}
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return apperr.Validation("from must not be after to")
	}
	if f.MinTotal != nil && f.MaxTotal != nil && f.MinTotal.GreaterThan(*f.MaxTotal) {
		return apperr.Validation("minTotal must not exceed maxTotal")
	}
	return nil
}

// ListOrders returns one page of orders matching f.
func (s *AdminService) ListOrders(ctx context.Context, f model.OrderFilter, p model.Page) (model.OrderPage, error) {
	if err := checkFilter(&f); err != nil {
		return model.OrderPage{}, err
	}
	p = NormalizePage(p)
	orders, total, err := s.orders.SearchOrders(ctx, f, &p)
	if err != nil {
		return model.OrderPage{}, apperr.Internal("search orders", err)
	}
	pages := int((total + int64(p.Size) - 1) / int64(p.Size))
	if pages < 1 {
		pages = 1
	}
	return model.OrderPage{Orders: orders, Total: total, Page: p.Number, Limit: p.Size, Pages: pages}, nil
}

// ExportOrders writes every order matching f as CSV. encoding/csv quotes
// fields containing commas, quotes or newlines and doubles embedded quotes.
func (s *AdminService) ExportOrders(ctx context.Context, f model.OrderFilter, w io.Writer) error {
	if err := checkFilter(&f); err != nil {
		return err
	}
	orders, _, err := s.orders.SearchOrders(ctx, f, nil)
	if err != nil {
		return apperr.Internal("search orders", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return apperr.Internal("write csv", err)
	}
	for _, o := range orders {
		name, email := "", ""
		if o.Customer != nil {
			name, email = o.Customer.Name, o.Customer.Email
		}
		rec := []string{
			o.OrderNumber,
			string(o.Status),
			o.TotalPrice.StringFixed(2),
			o.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			name,
			email,
		}
		if err := cw.Write(rec); err != nil {
			return apperr.Internal("write csv", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperr.Internal("write csv", err)
	}
	return nil
}

func (s *AdminService) load(ctx context.Context, id uint64) (model.Order, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Order{}, apperr.NotFound("Order not found")
	}
	if err != nil {
		return model.Order{}, apperr.Internal("load order", err)
	}
	return o, nil
}

// Timeline derives the order history shown to operators: when it was
// placed and its current status as of the last update.
func Timeline(o model.Order) []model.TimelineEvent {
	return []model.TimelineEvent{
		{Type: "created", Message: "Order " + o.OrderNumber + " placed", At: o.CreatedAt},
		{Type: "status", Message: "Status: " + string(o.Status), At: o.UpdatedAt},
	}
}

// OrderDetail returns an order with customer and products resolved.
func (s *AdminService) OrderDetail(ctx context.Context, id uint64) (model.Order, []model.TimelineEvent, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return model.Order{}, nil, err
	}
	return o, Timeline(o), nil
}

// setStatus writes status unconditionally and reports the change.
func (s *AdminService) setStatus(ctx context.Context, id uint64, status model.OrderStatus, reason string) (model.Order, error) {
	before, err := s.load(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if err := s.orders.UpdateOrderStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Order{}, apperr.NotFound("Order not found")
		}
		return model.Order{}, apperr.Internal("update order status", err)
	}
	after, err := s.load(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if before.Status != after.Status {
		s.events.statusChanged(ctx, after, before.Status, ActorAdmin, reason)
	}
	return after, nil
}

// UpdateStatus overwrites the status with any enumeration value. No
// transition graph is enforced at this layer.
func (s *AdminService) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus, reason string) (model.Order, error) {
	status = model.OrderStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return model.Order{}, apperr.Validation("Invalid status")
	}
	return s.setStatus(ctx, id, status, reason)
}

// Cancel marks the order canceled whatever its current status.
func (s *AdminService) Cancel(ctx context.Context, id uint64, reason string) (model.Order, error) {
	return s.setStatus(ctx, id, model.StatusCanceled, reason)
}

// Refund marks the order refunded when amount covers the total. A smaller
// amount changes nothing and is still reported as success.
func (s *AdminService) Refund(ctx context.Context, id uint64, amount decimal.Decimal, reason string) (model.Order, error) {
	if amount.IsNegative() {
		return model.Order{}, apperr.Validation("Refund amount cannot be negative")
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if amount.LessThan(o.TotalPrice) {
		return o, nil
	}
	return s.setStatus(ctx, id, model.StatusRefunded, reason)
}

// DailyMetrics summarises today's orders, the status mix of all orders
// and a per-day series over the trailing seven days. Only days with
// orders appear in the series, oldest first.
func (s *AdminService) DailyMetrics(ctx context.Context) (model.Metrics, error) {
	now := s.now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	stats, err := s.orders.OrderStatsSince(ctx, now.Add(-trendWindow))
	if err != nil {
		return model.Metrics{}, apperr.Internal("order stats", err)
	}
	counts, err := s.orders.StatusCounts(ctx)
	if err != nil {
		return model.Metrics{}, apperr.Internal("status counts", err)
	}

	m := model.Metrics{RevenueToday: decimal.Zero, StatusBreakdown: counts, Trend: []model.DayBucket{}}
	buckets := map[string]*model.DayBucket{}
	for _, st := range stats {
		at := st.CreatedAt.In(s.loc)
		if !at.Before(midnight) {
			m.OrdersToday++
			m.RevenueToday = m.RevenueToday.Add(st.TotalPrice)
		}
		day := at.Format("2006-01-02")
		b, ok := buckets[day]
		if !ok {
			b = &model.DayBucket{Date: day, Revenue: decimal.Zero}
			buckets[day] = b
		}
		b.Count++
		b.Revenue = b.Revenue.Add(st.TotalPrice)
	}
	for _, b := range buckets {
		b.Revenue = b.Revenue.Round(2)
		m.Trend = append(m.Trend, *b)
	}
	sort.Slice(m.Trend, func(i, j int) bool { return m.Trend[i].Date < m.Trend[j].Date })
	m.RevenueToday = m.RevenueToday.Round(2)
	return m, nil
}
