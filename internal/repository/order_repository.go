package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopease-api/internal/database"
	"github.com/iliyamo/shopease-api/internal/model"
)

// OrderRepo persists orders and their snapshot line items.
type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

const orderColumns = `o.id,o.user_id,o.order_number,o.status,o.total_price,o.payment_method,
	o.ship_full_name,o.ship_email,o.ship_phone,o.ship_address,o.ship_city,o.ship_state,o.ship_zip_code,
	o.created_at,o.updated_at,u.id,u.name,u.email,u.phone`

const orderFrom = " FROM orders o LEFT JOIN users u ON u.id = o.user_id"

func scanOrder(row interface{ Scan(...any) error }) (model.Order, error) {
	var (
		o        model.Order
		uid      sql.NullInt64
		uname    sql.NullString
		uemail   sql.NullString
		uphone   sql.NullString
		status   string
		payment  string
		shipping = &o.Shipping
	)
	err := row.Scan(&o.ID, &o.UserID, &o.OrderNumber, &status, &o.TotalPrice, &payment,
		&shipping.FullName, &shipping.Email, &shipping.Phone, &shipping.Address, &shipping.City,
		&shipping.State, &shipping.ZipCode, &o.CreatedAt, &o.UpdatedAt,
		&uid, &uname, &uemail, &uphone)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	o.Status = model.OrderStatus(status)
	o.PaymentMethod = model.PaymentMethod(payment)
	if uid.Valid {
		o.Customer = &model.User{ID: uint64(uid.Int64), Name: uname.String, Email: uemail.String, Phone: uphone.String}
	}
	return o, nil
}

// CreateOrder inserts the order and its items in one transaction and fills
// in the generated ids. A clashing order number yields ErrDuplicate so the
// caller can pick a new one.
func (r *OrderRepo) CreateOrder(ctx context.Context, o *model.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.CreatedAt = o.CreatedAt.UTC().Truncate(time.Millisecond)
	o.UpdatedAt = o.CreatedAt

	err := database.WithRetry(ctx, r.DB, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		s := o.Shipping
		res, err := tx.ExecContext(ctx,
			`INSERT INTO orders (user_id,order_number,status,total_price,payment_method,
			   ship_full_name,ship_email,ship_phone,ship_address,ship_city,ship_state,ship_zip_code,created_at,updated_at)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			o.UserID, o.OrderNumber, string(o.Status), o.TotalPrice.StringFixed(2), string(o.PaymentMethod),
			s.FullName, s.Email, s.Phone, s.Address, s.City, s.State, s.ZipCode, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		o.ID = uint64(id)

		for i := range o.Items {
			it := &o.Items[i]
			res, err := tx.ExecContext(ctx,
				"INSERT INTO order_items (order_id,product_id,quantity,unit_price) VALUES (?,?,?,?)",
				o.ID, it.ProductID, it.Quantity, it.UnitPrice.StringFixed(2))
			if err != nil {
				return err
			}
			itemID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			it.ID, it.OrderID = uint64(itemID), o.ID
		}
		return nil
	})
	if database.IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// GetOrder loads one order with its customer and resolved line items.
func (r *OrderRepo) GetOrder(ctx context.Context, id uint64) (model.Order, error) {
	o, err := scanOrder(r.DB.QueryRowContext(ctx, "SELECT "+orderColumns+orderFrom+" WHERE o.id=?", id))
	if err != nil {
		return o, err
	}
	orders := []model.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return o, err
	}
	return orders[0], nil
}

// ListOrdersByUser returns the user's orders, newest first.
func (r *OrderRepo) ListOrdersByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	return r.queryOrders(ctx,
		"SELECT "+orderColumns+orderFrom+" WHERE o.user_id=? ORDER BY o.created_at DESC, o.id DESC", userID)
}

// UpdateOrderStatus overwrites the status of an order.
func (r *OrderRepo) UpdateOrderStatus(ctx context.Context, id uint64, status model.OrderStatus) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE orders SET status=?, updated_at=? WHERE id=?",
		string(status), time.Now().UTC().Truncate(time.Millisecond), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.currentStatus(ctx, id, 0)
	return err
}

// TransitionOrderStatus moves the user's order to `to` only if its current
// status is one of `from`, as a single conditional UPDATE. It returns
// ErrNotFound when the user owns no such order and ErrConflict when the
// order is in another state.
func (r *OrderRepo) TransitionOrderStatus(ctx context.Context, id, userID uint64, from []model.OrderStatus, to model.OrderStatus) error {
	args := []any{string(to), time.Now().UTC().Truncate(time.Millisecond), id, userID}
	for _, s := range from {
		args = append(args, string(s))
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE orders SET status=?, updated_at=? WHERE id=? AND user_id=? AND status IN ("+placeholders(len(from))+")",
		args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.currentStatus(ctx, id, userID); err != nil {
		return err
	}
	return ErrConflict
}

func (r *OrderRepo) currentStatus(ctx context.Context, id, userID uint64) (model.OrderStatus, error) {
	q, args := "SELECT status FROM orders WHERE id=?", []any{id}
	if userID != 0 {
		q, args = q+" AND user_id=?", append(args, userID)
	}
	var s string
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return model.OrderStatus(s), err
}

// StatusCounts returns the number of orders per status over all orders.
func (r *OrderRepo) StatusCounts(ctx context.Context) (map[model.OrderStatus]int, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.OrderStatus]int{}
	for rows.Next() {
		var (
			s string
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[model.OrderStatus(s)] = n
	}
	return out, rows.Err()
}

// OrderStatsSince returns creation time and total of every order created
// at or after since, oldest first.
func (r *OrderRepo) OrderStatsSince(ctx context.Context, since time.Time) ([]model.OrderStat, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT created_at, total_price FROM orders WHERE created_at >= ? ORDER BY created_at", since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OrderStat
	for rows.Next() {
		var st model.OrderStat
		if err := rows.Scan(&st.CreatedAt, &st.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *OrderRepo) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the line items of all orders in one query and resolves
// their live products.
func (r *OrderRepo) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(orders))
	args := make([]any, 0, len(orders))
	for i, o := range orders {
		idx[o.ID] = i
		args = append(args, o.ID)
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT oi.id,oi.order_id,oi.product_id,oi.quantity,oi.unit_price,`+productColumns+`
		   FROM order_items oi
		   LEFT JOIN products p ON p.id = oi.product_id
		  WHERE oi.order_id IN (`+placeholders(len(orders))+`)
		  ORDER BY oi.id`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it    model.OrderItem
			price decimal.Decimal
			np    nullProduct
		)
		dest := append([]any{&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price}, np.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		it.UnitPrice = price
		it.Product = np.product()
		i := idx[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}
