package model

import "time"

// Roles carried in the token "role" claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a shopper account as stored in the `users` table.
// The json tags are omitted because handlers shape their own responses;
// the password hash must never leave the service layer.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name.
//	Email        – unique, normalised (trimmed, lower case) address.
//	PasswordHash – bcrypt hash of the password.
//	Phone        – optional phone number set through the profile.
//	Address      – optional postal address set through the profile.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of the last profile update.
type User struct {
	ID           uint64
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Address      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Admin is an operator account from the `admins` table. Admins are only
// created by the seeding command and log in through a separate path.
type Admin struct {
	ID           uint64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileUpdate lists the profile fields a user may change. Nil fields
// are left untouched.
type ProfileUpdate struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}
