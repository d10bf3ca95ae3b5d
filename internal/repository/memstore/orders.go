package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/repository"
)

func (s *Store) CreateOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return repository.ErrDuplicate
		}
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now()
	}
	o.CreatedAt = o.CreatedAt.UTC().Truncate(time.Millisecond)
	o.UpdatedAt = o.CreatedAt
	o.ID = s.nextID()
	items := make([]model.OrderItem, len(o.Items))
	for i := range o.Items {
		o.Items[i].ID = s.nextID()
		o.Items[i].OrderID = o.ID
		items[i] = o.Items[i]
		items[i].Product = nil
	}
	stored := *o
	stored.Items = items
	stored.Customer = nil
	s.orders[o.ID] = stored
	return nil
}

// resolve returns a copy of o with its customer and live products filled in.
func (s *Store) resolve(o model.Order) model.Order {
	items := make([]model.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.Product = s.productPtr(it.ProductID)
		items[i] = it
	}
	o.Items = items
	if u, ok := s.users[o.UserID]; ok {
		o.Customer = &model.User{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
	}
	return o
}

func (s *Store) GetOrder(_ context.Context, id uint64) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, repository.ErrNotFound
	}
	return s.resolve(o), nil
}

func (s *Store) ListOrdersByUser(_ context.Context, userID uint64) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, s.resolve(o))
		}
	}
	sortOrders(out, model.SortCreatedDesc)
	return out, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id uint64, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status, o.UpdatedAt = status, now()
	s.orders[id] = o
	return nil
}

func (s *Store) TransitionOrderStatus(_ context.Context, id, userID uint64, from []model.OrderStatus, to model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.UserID != userID {
		return repository.ErrNotFound
	}
	for _, st := range from {
		if o.Status == st {
			o.Status, o.UpdatedAt = to, now()
			s.orders[id] = o
			return nil
		}
	}
	return repository.ErrConflict
}

func (s *Store) SearchOrders(_ context.Context, f model.OrderFilter, page *model.Page) ([]model.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []model.Order{}
	for _, o := range s.orders {
		if matches(o, f) {
			matched = append(matched, s.resolve(o))
		}
	}
	sortOrders(matched, f.Sort)
	total := int64(len(matched))
	if page == nil {
		return matched, total, nil
	}
	start := page.Offset()
	if start >= len(matched) {
		return []model.Order{}, total, nil
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *Store) StatusCounts(_ context.Context) (map[model.OrderStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[model.OrderStatus]int{}
	for _, o := range s.orders {
		out[o.Status]++
	}
	return out, nil
}

func (s *Store) OrderStatsSince(_ context.Context, since time.Time) ([]model.OrderStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OrderStat
	for _, o := range s.orders {
		if !o.CreatedAt.Before(since) {
			out = append(out, model.OrderStat{CreatedAt: o.CreatedAt, TotalPrice: o.TotalPrice})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func matches(o model.Order, f model.OrderFilter) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			if o.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.From != nil && o.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && o.CreatedAt.After(*f.To) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(o.OrderNumber), q) &&
			!strings.Contains(strings.ToLower(o.Shipping.Email), q) {
			return false
		}
	}
	if f.MinTotal != nil && o.TotalPrice.LessThan(*f.MinTotal) {
		return false
	}
	if f.MaxTotal != nil && o.TotalPrice.GreaterThan(*f.MaxTotal) {
		return false
	}
	if f.CustomerID != 0 && o.UserID != f.CustomerID {
		return false
	}
	return true
}

// sortOrders mirrors the ORDER BY clauses of the MySQL store, using the
// id as tie breaker.
func sortOrders(orders []model.Order, by model.OrderSort) {
	sort.Slice(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		switch by {
		case model.SortCreatedAsc:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		case model.SortTotalAsc:
			if c := a.TotalPrice.Cmp(b.TotalPrice); c != 0 {
				return c < 0
			}
			return a.ID < b.ID
		case model.SortTotalDesc:
			if c := a.TotalPrice.Cmp(b.TotalPrice); c != 0 {
				return c > 0
			}
			return a.ID > b.ID
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	})
}
