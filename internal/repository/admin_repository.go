package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/shopease-api/internal/database"
	"github.com/iliyamo/shopease-api/internal/model"
)

// AdminRepo reads and seeds rows of the `admins` table.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

// GetAdminByEmail fetches an admin by normalized email.
func (r *AdminRepo) GetAdminByEmail(ctx context.Context, email string) (model.Admin, error) {
	var a model.Admin
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,role,created_at,updated_at FROM admins WHERE email=? LIMIT 1",
		NormalizeEmail(email)).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

// CreateAdmin inserts a and fills in its ID. An existing email yields
// ErrEmailExists.
func (r *AdminRepo) CreateAdmin(ctx context.Context, a *model.Admin) error {
	a.Email = NormalizeEmail(a.Email)
	if a.Role == "" {
		a.Role = model.RoleAdmin
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO admins (name,email,password_hash,role,created_at,updated_at) VALUES (?,?,?,?,?,?)",
		a.Name, a.Email, a.PasswordHash, a.Role, now, now)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID, a.CreatedAt, a.UpdatedAt = uint64(id), now, now
	return nil
}
