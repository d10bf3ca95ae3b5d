package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity bounds the quantity of one cart item or order line.
const MaxQuantity = 10000

// MaxAmount is the largest value the DECIMAL(12,2) money columns hold.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
	// StatusCanceled is the spelling written by the admin cancel action.
	// Both spellings are accepted everywhere.
	StatusCanceled OrderStatus = "canceled"
	StatusRefunded OrderStatus = "refunded"
)

// AllStatuses lists the enumeration in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPaid, StatusShipped,
	StatusDelivered, StatusCancelled, StatusCanceled, StatusRefunded,
}

// Valid reports whether s is one of the enumeration values.
func (s OrderStatus) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is expected from s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusCanceled, StatusRefunded:
		return true
	}
	return false
}

// UserCancellable lists the states from which a customer may cancel.
var UserCancellable = []OrderStatus{StatusPending, StatusConfirmed}

// PaymentMethod tags how the customer intends to pay.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

func (p PaymentMethod) Valid() bool { return p == PaymentCOD || p == PaymentOnline }

// ShippingAddress is the address snapshot stored with an order.
type ShippingAddress struct {
	FullName string
	Email    string
	Phone    string
	Address  string
	City     string
	State    string
	ZipCode  string
}

// Order records a purchase. Apart from Status and UpdatedAt an order is
// immutable once created; TotalPrice always equals the sum of its line
// subtotals at creation time.
//
// Fields:
//
//	ID            – primary key identifier.
//	UserID        – owning customer.
//	OrderNumber   – unique, human readable number.
//	Status        – lifecycle state.
//	TotalPrice    – server computed total.
//	PaymentMethod – cod or online.
//	Shipping      – address snapshot.
//	Items         – snapshot line items.
//	Customer      – owning user, populated by admin queries only.
type Order struct {
	ID            uint64
	UserID        uint64
	OrderNumber   string
	Status        OrderStatus
	TotalPrice    decimal.Decimal
	PaymentMethod PaymentMethod
	Shipping      ShippingAddress
	Items         []OrderItem
	Customer      *User
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem is a snapshot line: product identity, quantity and the unit
// price at purchase time. Product is the live product when resolved.
type OrderItem struct {
	ID        uint64
	OrderID   uint64
	ProductID uint64
	Quantity  int
	UnitPrice decimal.Decimal
	Product   *Product
}

// Subtotal returns UnitPrice × Quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SumItems computes the authoritative order total.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// TimelineEvent is one entry of the derived order timeline.
type TimelineEvent struct {
	Type    string
	Message string
	At      time.Time
}
