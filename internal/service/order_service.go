package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/metrics"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/queue"
	"github.com/iliyamo/shopease-api/internal/repository"
)

const (
	maxOrderNumberAttempts = 5
	deliveryWindow         = 7 * 24 * time.Hour
)

// LineItemInput is one requested order line. Price is the unit price the
// customer saw; it becomes the snapshot price.
type LineItemInput struct {
	ExternalID string
	Quantity   int
	Price      decimal.Decimal
	Hint       *model.ProductHint
}

// CreateOrderInput carries a direct purchase. Any client supplied total
// is deliberately absent: the total is always computed here.
type CreateOrderInput struct {
	Items         []LineItemInput
	Shipping      model.ShippingAddress
	PaymentMethod model.PaymentMethod
}

// OrderService creates customer orders and handles customer-side reads
// and cancellation.
type OrderService struct {
	orders  OrderStore
	catalog *CatalogService
	cart    *CartService
	events  eventSink
	now     func() time.Time
}

func NewOrderService(orders OrderStore, catalog *CatalogService, cart *CartService, pub queue.Publisher, m *metrics.Metrics) *OrderService {
	return &OrderService{
		orders:  orders,
		catalog: catalog,
		cart:    cart,
		events:  newEventSink(pub, m),
		now:     time.Now,
	}
}

// EstimatedDelivery is the delivery estimate shown for a new order.
func EstimatedDelivery(o model.Order) time.Time { return o.CreatedAt.Add(deliveryWindow) }

// NewOrderNumber builds ORD-<unix ms>-<last 4 digits of user id>-<6 hex>.
// The timestamp orders numbers roughly by time, the user suffix
// disambiguates customers and the random tail disambiguates one
// customer's orders within the same millisecond.
func NewOrderNumber(now time.Time, userID uint64) string {
	suffix := fmt.Sprintf("%04d", userID%10000)
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("ORD-%d-%s-%s", now.UnixMilli(), suffix, random)
}

func validateShipping(a model.ShippingAddress) error {
	fields := []struct{ name, value string }{
		{"fullName", a.FullName}, {"email", a.Email}, {"phone", a.Phone}, {"address", a.Address},
		{"city", a.City}, {"state", a.State}, {"zipCode", a.ZipCode},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("Missing required shipping fields: " + strings.Join(missing, ", "))
	}
	return nil
}

func normalizePayment(pm model.PaymentMethod) (model.PaymentMethod, error) {
	pm = model.PaymentMethod(strings.ToLower(strings.TrimSpace(string(pm))))
	if pm == "" {
		return model.PaymentCOD, nil
	}
	if !pm.Valid() {
		return "", apperr.Validation("Payment method must be cod or online")
	}
	return pm, nil
}

func trimShipping(a model.ShippingAddress) model.ShippingAddress {
	return model.ShippingAddress{
		FullName: strings.TrimSpace(a.FullName),
		Email:    strings.ToLower(strings.TrimSpace(a.Email)),
		Phone:    strings.TrimSpace(a.Phone),
		Address:  strings.TrimSpace(a.Address),
		City:     strings.TrimSpace(a.City),
		State:    strings.TrimSpace(a.State),
		ZipCode:  strings.TrimSpace(a.ZipCode),
	}
}

// CreateOrder validates a direct purchase, mirrors any unknown products
// and stores a pending order whose total is the sum of its snapshot lines.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint64, in CreateOrderInput) (model.Order, error) {
	if err := validateShipping(in.Shipping); err != nil {
		return model.Order{}, err
	}
	pm, err := normalizePayment(in.PaymentMethod)
	if err != nil {
		return model.Order{}, err
	}
	if len(in.Items) == 0 {
		return model.Order{}, apperr.Validation("At least one order item is required")
	}
	lines := append([]LineItemInput(nil), in.Items...)
	for i := range lines {
		li := &lines[i]
		li.Price = li.Price.Round(2)
		switch {
		case strings.TrimSpace(li.ExternalID) == "":
			return model.Order{}, apperr.Validation(fmt.Sprintf("Item %d: product ID is required", i+1))
		case li.Quantity < 1:
			return model.Order{}, apperr.Validation(fmt.Sprintf("Item %d: quantity must be at least 1", i+1))
		case li.Quantity > model.MaxQuantity:
			return model.Order{}, apperr.Validation(fmt.Sprintf("Item %d: quantity cannot exceed %d", i+1, model.MaxQuantity))
		case !li.Price.IsPositive():
			return model.Order{}, apperr.Validation(fmt.Sprintf("Item %d: price must be at least 0.01", i+1))
		case li.Price.GreaterThan(model.MaxAmount):
			return model.Order{}, apperr.Validation(fmt.Sprintf("Item %d: price is too large", i+1))
		}
	}
	total := decimal.Zero
	for _, li := range lines {
		total = total.Add(li.Price.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	if total.GreaterThan(model.MaxAmount) {
		return model.Order{}, apperr.Validation("Order total exceeds " + model.MaxAmount.StringFixed(2))
	}

	items := make([]model.OrderItem, 0, len(lines))
	for _, li := range lines {
		p, err := s.resolveLine(ctx, li)
		if err != nil {
			return model.Order{}, err
		}
		pc := p
		items = append(items, model.OrderItem{
			ProductID: p.ID,
			Quantity:  li.Quantity,
			UnitPrice: li.Price,
			Product:   &pc,
		})
	}
	return s.place(ctx, userID, items, trimShipping(in.Shipping), pm)
}

// resolveLine finds the product of a line, creating it from the hint when
// one is supplied. Without a hint an unknown product is NotFound.
func (s *OrderService) resolveLine(ctx context.Context, li LineItemInput) (model.Product, error) {
	if li.Hint == nil {
		return s.catalog.Resolve(ctx, li.ExternalID)
	}
	hint := *li.Hint
	if hint.Price.IsZero() {
		hint.Price = li.Price
	}
	p, _, err := s.catalog.GetOrCreate(ctx, li.ExternalID, &hint)
	return p, err
}

// place assigns an order number and persists the order, choosing a new
// number if the unique index reports a collision.
func (s *OrderService) place(ctx context.Context, userID uint64, items []model.OrderItem, ship model.ShippingAddress, pm model.PaymentMethod) (model.Order, error) {
	o := model.Order{
		UserID:        userID,
		Status:        model.StatusPending,
		TotalPrice:    model.SumItems(items).Round(2),
		PaymentMethod: pm,
		Shipping:      ship,
		Items:         items,
	}
	if o.TotalPrice.GreaterThan(model.MaxAmount) {
		return model.Order{}, apperr.Validation("Order total exceeds " + model.MaxAmount.StringFixed(2))
	}
	var err error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		o.CreatedAt = s.now().UTC()
		o.OrderNumber = NewOrderNumber(o.CreatedAt, userID)
		err = s.orders.CreateOrder(ctx, &o)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return model.Order{}, apperr.Internal("create order", err)
	}
	s.events.orderCreated(ctx, o)
	return o, nil
}

// Checkout turns the user's cart into one order at live catalog prices and
// empties the cart. It holds the cart lock throughout so the cart cannot
// change between snapshot and clear.
func (s *OrderService) Checkout(ctx context.Context, userID uint64, ship model.ShippingAddress, pm model.PaymentMethod) (model.Order, error) {
	if err := validateShipping(ship); err != nil {
		return model.Order{}, err
	}
	pm, err := normalizePayment(pm)
	if err != nil {
		return model.Order{}, err
	}
	var out model.Order
	err = s.cart.withLock(ctx, userID, func() error {
		cart, _, err := s.cart.load(ctx, userID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return apperr.Validation("Cart is empty")
		}
		items := make([]model.OrderItem, 0, len(cart.Items))
		for _, it := range cart.Items {
			items = append(items, model.OrderItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.Product.Price,
				Product:   it.Product,
			})
		}
		o, err := s.place(ctx, userID, items, trimShipping(ship), pm)
		if err != nil {
			return err
		}
		if err := s.cart.carts.ClearCart(ctx, cart.ID); err != nil {
			return apperr.Internal("clear cart after checkout", err)
		}
		out = o
		return nil
	})
	return out, err
}

// GetOrder returns one of the user's orders.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uint64) (model.Order, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && o.UserID != userID) {
		return model.Order{}, apperr.NotFound("Order not found")
	}
	if err != nil {
		return model.Order{}, apperr.Internal("load order", err)
	}
	return o, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID uint64) ([]model.Order, error) {
	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("list orders", err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// CancelOrder cancels a pending or confirmed order of the user. The
// status check and the write are one conditional update.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uint64) (model.Order, error) {
	before, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return model.Order{}, err
	}
	err = s.orders.TransitionOrderStatus(ctx, orderID, userID, model.UserCancellable, model.StatusCancelled)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.Order{}, apperr.NotFound("Order not found")
	case errors.Is(err, repository.ErrConflict):
		return model.Order{}, apperr.Conflict(fmt.Sprintf("Order cannot be cancelled in status %q", before.Status))
	case err != nil:
		return model.Order{}, apperr.Internal("cancel order", err)
	}
	after, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return model.Order{}, err
	}
	s.events.statusChanged(ctx, after, before.Status, ActorCustomer, "")
	return after, nil
}
