package handler

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/service"
)

// ----- request DTOs -----

// flexID accepts an identifier sent either as a JSON string or a number.
// Storefront catalogs use numeric ids; other clients quote them.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

// Uint parses the id as a numeric primary key.
func (f flexID) Uint() (uint64, bool) {
	n, err := strconv.ParseUint(string(f), 10, 64)
	return n, err == nil && n > 0
}

// productDetails is the client's description of an external product,
// used the first time the product is referenced.
type productDetails struct {
	Title       string          `json:"title"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Thumbnail   string          `json:"thumbnail"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Stock       *int            `json:"stock"`
}

func (d *productDetails) hint() *model.ProductHint {
	if d == nil {
		return nil
	}
	name := d.Title
	if name == "" {
		name = d.Name
	}
	image := d.Thumbnail
	if image == "" {
		image = d.Image
	}
	return &model.ProductHint{
		Name:        name,
		Price:       d.Price,
		Image:       image,
		Description: d.Description,
		Category:    d.Category,
		Stock:       d.Stock,
	}
}

type shippingReq struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
}

func (s *shippingReq) model() model.ShippingAddress {
	if s == nil {
		return model.ShippingAddress{}
	}
	return model.ShippingAddress{
		FullName: s.FullName, Email: s.Email, Phone: s.Phone, Address: s.Address,
		City: s.City, State: s.State, ZipCode: s.ZipCode,
	}
}

// ----- response DTOs -----

func money(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

type userJSON struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func toUser(u model.User) userJSON {
	return userJSON{ID: u.ID, Name: u.Name, Email: u.Email}
}

func toProfile(u model.User) userJSON {
	out := userJSON{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Address: u.Address}
	if !u.CreatedAt.IsZero() {
		at := u.CreatedAt
		out.CreatedAt = &at
	}
	return out
}

type adminJSON struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type cartItemJSON struct {
	ID          uint64  `json:"id"`
	Product     uint64  `json:"product"`
	ExternalID  string  `json:"externalId"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity"`
	Subtotal    float64 `json:"subtotal"`
}

type cartJSON struct {
	Items     []cartItemJSON `json:"items"`
	Total     float64        `json:"total"`
	ItemCount int            `json:"itemCount"`
}

func toCart(v model.CartView) cartJSON {
	out := cartJSON{Items: make([]cartItemJSON, 0, len(v.Items)), Total: money(v.Total), ItemCount: v.ItemCount()}
	for _, it := range v.Items {
		row := cartItemJSON{ID: it.ID, Product: it.ProductID, Quantity: it.Quantity, Subtotal: money(it.Subtotal())}
		if p := it.Product; p != nil {
			row.ExternalID, row.Name, row.Price = p.ExternalRef, p.Name, money(p.Price)
			row.Image, row.Description, row.Category = p.Image, p.Description, p.Category
		}
		out.Items = append(out.Items, row)
	}
	return out
}

type shippingJSON struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
}

type orderItemJSON struct {
	ID         uint64  `json:"id"`
	ProductID  uint64  `json:"productId"`
	ExternalID string  `json:"externalId,omitempty"`
	Name       string  `json:"name,omitempty"`
	Image      string  `json:"image,omitempty"`
	Category   string  `json:"category,omitempty"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Subtotal   float64 `json:"subtotal"`
}

type timelineJSON struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type orderJSON struct {
	ID                uint64          `json:"id"`
	OrderNumber       string          `json:"orderNumber"`
	UserID            uint64          `json:"userId"`
	User              *userJSON       `json:"user,omitempty"`
	Status            string          `json:"status"`
	TotalPrice        float64         `json:"totalPrice"`
	PaymentMethod     string          `json:"paymentMethod"`
	ShippingAddress   shippingJSON    `json:"shippingAddress"`
	Items             []orderItemJSON `json:"items"`
	Timeline          []timelineJSON  `json:"timeline,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func toOrder(o model.Order) orderJSON {
	s := o.Shipping
	out := orderJSON{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        string(o.Status),
		TotalPrice:    money(o.TotalPrice),
		PaymentMethod: string(o.PaymentMethod),
		ShippingAddress: shippingJSON{
			FullName: s.FullName, Email: s.Email, Phone: s.Phone, Address: s.Address,
			City: s.City, State: s.State, ZipCode: s.ZipCode,
		},
		Items:     make([]orderItemJSON, 0, len(o.Items)),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, it := range o.Items {
		row := orderItemJSON{
			ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity,
			Price: money(it.UnitPrice), Subtotal: money(it.Subtotal()),
		}
		if p := it.Product; p != nil {
			row.ExternalID, row.Name, row.Image, row.Category = p.ExternalRef, p.Name, p.Image, p.Category
		}
		out.Items = append(out.Items, row)
	}
	if o.Customer != nil {
		u := userJSON{ID: o.Customer.ID, Name: o.Customer.Name, Email: o.Customer.Email}
		out.User = &u
	}
	return out
}

// toNewOrder adds the delivery estimate shown right after purchase.
func toNewOrder(o model.Order) orderJSON {
	out := toOrder(o)
	eta := service.EstimatedDelivery(o)
	out.EstimatedDelivery = &eta
	return out
}

// toOrderDetail adds the customer's phone and the derived timeline.
func toOrderDetail(o model.Order, timeline []model.TimelineEvent) orderJSON {
	out := toOrder(o)
	if o.Customer != nil {
		out.User.Phone = o.Customer.Phone
	}
	out.Timeline = make([]timelineJSON, 0, len(timeline))
	for _, ev := range timeline {
		out.Timeline = append(out.Timeline, timelineJSON{Type: ev.Type, Message: ev.Message, At: ev.At})
	}
	return out
}

type dayJSON struct {
	Date    string  `json:"date"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type metricsJSON struct {
	OrdersToday     int                       `json:"ordersToday"`
	RevenueToday    float64                   `json:"revenueToday"`
	StatusBreakdown map[model.OrderStatus]int `json:"statusBreakdown"`
	Orders7dTrend   []dayJSON                 `json:"orders7dTrend"`
}

func toMetrics(m model.Metrics) metricsJSON {
	out := metricsJSON{
		OrdersToday:     m.OrdersToday,
		RevenueToday:    money(m.RevenueToday),
		StatusBreakdown: m.StatusBreakdown,
		Orders7dTrend:   make([]dayJSON, 0, len(m.Trend)),
	}
	if out.StatusBreakdown == nil {
		out.StatusBreakdown = map[model.OrderStatus]int{}
	}
	for _, d := range m.Trend {
		out.Orders7dTrend = append(out.Orders7dTrend, dayJSON{Date: d.Date, Count: d.Count, Revenue: money(d.Revenue)})
	}
	return out
}
