package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/shopease-api/internal/model"
)

// CartRepo stores carts and their items. Uniqueness of one cart per user
// and one item per (cart, product) is enforced by unique keys, and both
// creation paths are single upserts.
type CartRepo struct{ DB *sql.DB }

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{DB: db} }

// GetCartByUser loads the user's cart with its items. Items whose product
// has disappeared come back with a nil Product. ErrNotFound means the user
// has never had a cart.
func (r *CartRepo) GetCartByUser(ctx context.Context, userID uint64) (model.Cart, error) {
	var c model.Cart
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,created_at,updated_at FROM carts WHERE user_id=? LIMIT 1", userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT ci.id,ci.cart_id,ci.product_id,ci.quantity,ci.created_at,ci.updated_at,`+productColumns+`
		   FROM cart_items ci
		   LEFT JOIN products p ON p.id = ci.product_id
		  WHERE ci.cart_id=?
		  ORDER BY ci.id`, c.ID)
	if err != nil {
		return c, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it model.CartItem
			np nullProduct
		)
		dest := append([]any{&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt}, np.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return c, err
		}
		it.Product = np.product()
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

// GetOrCreateCart returns the user's cart row, creating it atomically on
// first use. Items are not loaded.
func (r *CartRepo) GetOrCreateCart(ctx context.Context, userID uint64) (model.Cart, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO carts (user_id,created_at,updated_at) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE id=LAST_INSERT_ID(id)`, userID, now, now)
	if err != nil {
		return model.Cart{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Cart{}, err
	}
	c := model.Cart{ID: uint64(id)}
	err = r.DB.QueryRowContext(ctx, "SELECT user_id,created_at,updated_at FROM carts WHERE id=?", id).
		Scan(&c.UserID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// AddCartItem inserts a (cart, product) item or, when one exists,
// increments its quantity by qty in the same statement.
func (r *CartRepo) AddCartItem(ctx context.Context, cartID, productID uint64, qty int) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id,product_id,quantity,created_at,updated_at) VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = VALUES(updated_at)`,
		cartID, productID, qty, now, now)
	return err
}

// UpdateCartItemQuantity overwrites the quantity of one item of the cart.
func (r *CartRepo) UpdateCartItemQuantity(ctx context.Context, cartID, itemID uint64, qty int) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE cart_items SET quantity=?, updated_at=? WHERE id=? AND cart_id=?",
		qty, time.Now().UTC().Truncate(time.Millisecond), itemID, cartID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Zero changed rows also happens when nothing changed at all.
	var one int
	err = r.DB.QueryRowContext(ctx, "SELECT 1 FROM cart_items WHERE id=? AND cart_id=?", itemID, cartID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// DeleteCartItems removes the given items of the cart and reports how
// many rows went away.
func (r *CartRepo) DeleteCartItems(ctx context.Context, cartID uint64, itemIDs ...uint64) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(itemIDs)+1)
	args = append(args, cartID)
	for _, id := range itemIDs {
		args = append(args, id)
	}
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id=? AND id IN ("+placeholders(len(itemIDs))+")", args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearCart deletes every item of the cart. The cart row itself stays.
func (r *CartRepo) ClearCart(ctx context.Context, cartID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id=?", cartID)
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
