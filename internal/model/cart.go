package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the single cart owned by a user (`carts.user_id` is unique).
// A cart without items is a valid persisted state.
type Cart struct {
	ID        uint64
	UserID    uint64
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is one (product, quantity) pair of a cart. At most one item
// exists per (cart, product); adding the same product again increments
// Quantity. Product is nil when the referenced product no longer exists.
type CartItem struct {
	ID        uint64
	CartID    uint64
	ProductID uint64
	Quantity  int
	Product   *Product
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subtotal returns price × quantity for a resolved item.
func (i CartItem) Subtotal() decimal.Decimal {
	if i.Product == nil {
		return decimal.Zero
	}
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartView is the derived, resolved view of a cart returned to clients.
type CartView struct {
	Items []CartItem
	Total decimal.Decimal
}

// ItemCount is the number of distinct items in the cart.
func (v CartView) ItemCount() int { return len(v.Items) }
