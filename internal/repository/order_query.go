package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/shopease-api/internal/model"
)

// orderWhere renders the admin filter as a WHERE clause over the `o`
// alias. Every field is optional and the conditions are ANDed.
func orderWhere(f model.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if len(f.Statuses) > 0 {
		conds = append(conds, "o.status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}
	if f.From != nil {
		conds = append(conds, "o.created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, "o.created_at <= ?")
		args = append(args, f.To.UTC())
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		conds = append(conds, "(LOWER(o.order_number) LIKE ? OR LOWER(o.ship_email) LIKE ?)")
		args = append(args, like, like)
	}
	if f.MinTotal != nil {
		conds = append(conds, "o.total_price >= ?")
		args = append(args, f.MinTotal.String())
	}
	if f.MaxTotal != nil {
		conds = append(conds, "o.total_price <= ?")
		args = append(args, f.MaxTotal.String())
	}
	if f.CustomerID != 0 {
		conds = append(conds, "o.user_id = ?")
		args = append(args, f.CustomerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike neutralises LIKE wildcards using MySQL's default escape
// character.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func orderBy(s model.OrderSort) string {
	switch s {
	case model.SortCreatedAsc:
		return " ORDER BY o.created_at ASC, o.id ASC"
	case model.SortTotalAsc:
		return " ORDER BY o.total_price ASC, o.id ASC"
	case model.SortTotalDesc:
		return " ORDER BY o.total_price DESC, o.id DESC"
	default:
		return " ORDER BY o.created_at DESC, o.id DESC"
	}
}

// SearchOrders returns the orders matching f in the requested order along
// with the total number of matches. A nil page returns every match.
func (r *OrderRepo) SearchOrders(ctx context.Context, f model.OrderFilter, page *model.Page) ([]model.Order, int64, error) {
	where, args := orderWhere(f)

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders o"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Order{}, 0, nil
	}

	query := "SELECT " + orderColumns + orderFrom + where + orderBy(f.Sort)
	if page != nil {
		query += " LIMIT ? OFFSET ?"
		args = append(args, page.Size, page.Offset())
	}
	orders, err := r.queryOrders(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, total, nil
}
