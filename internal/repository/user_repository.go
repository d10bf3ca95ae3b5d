package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/shopease-api/internal/database"
	"github.com/iliyamo/shopease-api/internal/model"
)

// NormalizeEmail trims and lower-cases an address. Every lookup and insert
// goes through it so the unique index is case-insensitive in practice.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,phone,address,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Address, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// CreateUser inserts u and fills in its ID and timestamps.
func (r *UserRepo) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name,email,password_hash,phone,address,created_at,updated_at) VALUES (?,?,?,?,?,?,?)",
		u.Name, u.Email, u.PasswordHash, u.Phone, u.Address, now, now)
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
	u.ID, u.CreatedAt, u.UpdatedAt = uint64(id), now, now
	return nil
}

// GetUserByEmail fetches a user by normalized email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetUserByID fetches a user by id.
func (r *UserRepo) GetUserByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdateUser applies the non-nil fields of upd and returns the stored row.
func (r *UserRepo) UpdateUser(ctx context.Context, id uint64, upd model.ProfileUpdate) (model.User, error) {
	var (
		sets []string
		args []any
	)
	if upd.Name != nil {
		sets, args = append(sets, "name=?"), append(args, strings.TrimSpace(*upd.Name))
	}
	if upd.Email != nil {
		sets, args = append(sets, "email=?"), append(args, NormalizeEmail(*upd.Email))
	}
	if upd.Phone != nil {
		sets, args = append(sets, "phone=?"), append(args, strings.TrimSpace(*upd.Phone))
	}
	if upd.Address != nil {
		sets, args = append(sets, "address=?"), append(args, strings.TrimSpace(*upd.Address))
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at=?")
		args = append(args, time.Now().UTC().Truncate(time.Millisecond), id)
		res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
		if err != nil {
			if database.IsDuplicate(err) {
				return model.User{}, ErrEmailExists
			}
			return model.User{}, err
		}
		// RowsAffected is 1 even for a no-op change because updated_at moves.
		if n, _ := res.RowsAffected(); n == 0 {
			return model.User{}, ErrNotFound
		}
	}
	return r.GetUserByID(ctx, id)
}
