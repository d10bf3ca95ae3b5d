// Package service implements the business rules of the shop: accounts,
// the lazily mirrored catalog, carts, orders and admin reporting. Services
// depend on the narrow store interfaces below; repository provides the
// MySQL implementation and repository/memstore the in-process one.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/shopease-api/internal/model"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id uint64) (model.User, error)
	UpdateUser(ctx context.Context, id uint64, upd model.ProfileUpdate) (model.User, error)
}

type AdminStore interface {
	GetAdminByEmail(ctx context.Context, email string) (model.Admin, error)
	CreateAdmin(ctx context.Context, a *model.Admin) error
}

type ProductStore interface {
	GetProductByID(ctx context.Context, id uint64) (model.Product, error)
	GetProductByExternalRef(ctx context.Context, ref string) (model.Product, error)
	GetOrCreateProduct(ctx context.Context, p model.Product) (model.Product, model.Resolution, error)
}

type CartStore interface {
	GetCartByUser(ctx context.Context, userID uint64) (model.Cart, error)
	GetOrCreateCart(ctx context.Context, userID uint64) (model.Cart, error)
	AddCartItem(ctx context.Context, cartID, productID uint64, qty int) error
	UpdateCartItemQuantity(ctx context.Context, cartID, itemID uint64, qty int) error
	DeleteCartItems(ctx context.Context, cartID uint64, itemIDs ...uint64) (int64, error)
	ClearCart(ctx context.Context, cartID uint64) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id uint64) (model.Order, error)
	ListOrdersByUser(ctx context.Context, userID uint64) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uint64, status model.OrderStatus) error
	TransitionOrderStatus(ctx context.Context, id, userID uint64, from []model.OrderStatus, to model.OrderStatus) error
	SearchOrders(ctx context.Context, f model.OrderFilter, page *model.Page) ([]model.Order, int64, error)
	StatusCounts(ctx context.Context) (map[model.OrderStatus]int, error)
	OrderStatsSince(ctx context.Context, since time.Time) ([]model.OrderStat, error)
}

// Stores bundles one implementation of every store.
type Stores struct {
	Users    UserStore
	Admins   AdminStore
	Products ProductStore
	Carts    CartStore
	Orders   OrderStore
}
