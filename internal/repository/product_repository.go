package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopease-api/internal/model"
)

// ProductRepo manages the local catalog mirror in the `products` table.
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productColumns = "p.id,p.external_ref,p.slug,p.name,p.description,p.price,p.image,p.category,p.stock,p.is_active,p.created_at,p.updated_at"

// nullProduct scans the product columns of a LEFT JOIN, where every
// column is NULL when the referenced product no longer exists.
type nullProduct struct {
	ID          sql.NullInt64
	ExternalRef sql.NullString
	Slug        sql.NullString
	Name        sql.NullString
	Description sql.NullString
	Price       decimal.NullDecimal
	Image       sql.NullString
	Category    sql.NullString
	Stock       sql.NullInt64
	IsActive    sql.NullBool
	CreatedAt   sql.NullTime
	UpdatedAt   sql.NullTime
}

func (n *nullProduct) dest() []any {
	return []any{&n.ID, &n.ExternalRef, &n.Slug, &n.Name, &n.Description, &n.Price,
		&n.Image, &n.Category, &n.Stock, &n.IsActive, &n.CreatedAt, &n.UpdatedAt}
}

// product returns nil for a dangling reference.
func (n *nullProduct) product() *model.Product {
	if !n.ID.Valid {
		return nil
	}
	return &model.Product{
		ID:          uint64(n.ID.Int64),
		ExternalRef: n.ExternalRef.String,
		Slug:        n.Slug.String,
		Name:        n.Name.String,
		Description: n.Description.String,
		Price:       n.Price.Decimal,
		Image:       n.Image.String,
		Category:    n.Category.String,
		Stock:       int(n.Stock.Int64),
		IsActive:    n.IsActive.Bool,
		CreatedAt:   n.CreatedAt.Time,
		UpdatedAt:   n.UpdatedAt.Time,
	}
}

func (r *ProductRepo) getOne(ctx context.Context, where string, arg any) (model.Product, error) {
	var np nullProduct
	err := r.DB.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products p WHERE "+where+" LIMIT 1", arg).
		Scan(np.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return *np.product(), nil
}

// GetProductByID fetches a product by primary key.
func (r *ProductRepo) GetProductByID(ctx context.Context, id uint64) (model.Product, error) {
	return r.getOne(ctx, "p.id=?", id)
}

// GetProductByExternalRef fetches the mirror entry for an external id.
func (r *ProductRepo) GetProductByExternalRef(ctx context.Context, ref string) (model.Product, error) {
	return r.getOne(ctx, "p.external_ref=?", ref)
}

// GetOrCreateProduct inserts p unless a product with the same external
// ref exists, in one statement. ON DUPLICATE KEY UPDATE id=LAST_INSERT_ID(id)
// makes LastInsertId return the existing row's id; RowsAffected is 1 only
// when a row was inserted.
func (r *ProductRepo) GetOrCreateProduct(ctx context.Context, p model.Product) (model.Product, model.Resolution, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	var ref any
	if p.ExternalRef != "" {
		ref = p.ExternalRef
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO products (external_ref,slug,name,description,price,image,category,stock,is_active,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE id=LAST_INSERT_ID(id)`,
		ref, p.Slug, p.Name, p.Description, p.Price.StringFixed(2), p.Image, p.Category, p.Stock, p.IsActive, now, now)
	if err != nil {
		return model.Product{}, model.Found, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Product{}, model.Found, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Product{}, model.Found, err
	}
	how := model.Found
	if n == 1 {
		how = model.Created
	}
	stored, err := r.GetProductByID(ctx, uint64(id))
	return stored, how, err
}

// DeleteProduct removes a product row. Cart items that reference it are
// left behind and dropped by the cart on its next read.
func (r *ProductRepo) DeleteProduct(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

