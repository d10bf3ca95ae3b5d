package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/repository"
	"github.com/iliyamo/shopease-api/internal/utils"
)

// AuthService owns the credential store: registration, login, profile
// and admin seeding. Tokens come from the shared TokenIssuer.
type AuthService struct {
	users      UserStore
	admins     AdminStore
	tokens     *utils.TokenIssuer
	bcryptCost int
}

func NewAuthService(users UserStore, admins AdminStore, tokens *utils.TokenIssuer, bcryptCost int) *AuthService {
	return &AuthService{users: users, admins: admins, tokens: tokens, bcryptCost: bcryptCost}
}

// Session is the result of a successful user registration or login.
type Session struct {
	Token utils.AccessToken
	User  model.User
}

// AdminSession is the result of a successful admin login.
type AdminSession struct {
	Token utils.AccessToken
	Admin model.Admin
}

var errInvalidCredentials = apperr.Validation("Invalid credentials")

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

// Register creates a user and returns a session for it.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (Session, error) {
	name = strings.TrimSpace(name)
	email = repository.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return Session{}, apperr.Validation("Name, email and password are required")
	}
	if !validEmail(email) {
		return Session{}, apperr.Validation("Invalid email address")
	}
	if len(password) < utils.MinPasswordLength {
		return Session{}, apperr.Validation("Password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return Session{}, apperr.Internal("hash password", err)
	}
	u := model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Session{}, apperr.Validation("User already exists")
		}
		return Session{}, apperr.Internal("create user", err)
	}
	return s.userSession(u)
}

// Login checks the credentials and returns a fresh session. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, apperr.Validation("Email and password are required")
	}
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, errInvalidCredentials
	}
	if err != nil {
		return Session{}, apperr.Internal("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, errInvalidCredentials
	}
	return s.userSession(u)
}

func (s *AuthService) userSession(u model.User) (Session, error) {
	tok, err := s.tokens.Issue(u.ID, u.Email, model.RoleUser)
	if err != nil {
		return Session{}, apperr.Internal("issue token", err)
	}
	u.PasswordHash = ""
	return Session{Token: tok, User: u}, nil
}

// Me returns the user without its password hash.
func (s *AuthService) Me(ctx context.Context, userID uint64) (model.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return model.User{}, apperr.Internal("load user", err)
	}
	u.PasswordHash = ""
	return u, nil
}

// UpdateProfile changes the provided profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, upd model.ProfileUpdate) (model.User, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return model.User{}, apperr.Validation("Name cannot be empty")
	}
	if upd.Email != nil {
		email := repository.NormalizeEmail(*upd.Email)
		if !validEmail(email) {
			return model.User{}, apperr.Validation("Invalid email address")
		}
		upd.Email = &email
	}
	u, err := s.users.UpdateUser(ctx, userID, upd)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.User{}, apperr.NotFound("User not found")
	case errors.Is(err, repository.ErrDuplicate):
		return model.User{}, apperr.Validation("Email already in use")
	case err != nil:
		return model.User{}, apperr.Internal("update user", err)
	}
	u.PasswordHash = ""
	return u, nil
}

// AdminLogin authenticates against the admins table and issues an
// admin-role token.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (AdminSession, error) {
	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return AdminSession{}, apperr.Validation("Email and password are required")
	}
	a, err := s.admins.GetAdminByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return AdminSession{}, errInvalidCredentials
	}
	if err != nil {
		return AdminSession{}, apperr.Internal("load admin", err)
	}
	if !utils.VerifyPassword(a.PasswordHash, password) {
		return AdminSession{}, errInvalidCredentials
	}
	tok, err := s.tokens.Issue(a.ID, a.Email, model.RoleAdmin)
	if err != nil {
		return AdminSession{}, apperr.Internal("issue token", err)
	}
	a.PasswordHash = ""
	return AdminSession{Token: tok, Admin: a}, nil
}

// SeedAdmin creates the admin account unless one with the same email
// already exists. The boolean reports whether a row was inserted.
func (s *AuthService) SeedAdmin(ctx context.Context, name, email, password string) (model.Admin, bool, error) {
	email = repository.NormalizeEmail(email)
	if !validEmail(email) || len(password) < utils.MinPasswordLength {
		return model.Admin{}, false, apperr.Validation("Admin email and a password of at least 6 characters are required")
	}
	if existing, err := s.admins.GetAdminByEmail(ctx, email); err == nil {
		existing.PasswordHash = ""
		return existing, false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Admin{}, false, apperr.Internal("load admin", err)
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return model.Admin{}, false, apperr.Internal("hash password", err)
	}
	a := model.Admin{Name: strings.TrimSpace(name), Email: email, PasswordHash: hash, Role: model.RoleAdmin}
	if err := s.admins.CreateAdmin(ctx, &a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent seeder.
			existing, gerr := s.admins.GetAdminByEmail(ctx, email)
			if gerr != nil {
				return model.Admin{}, false, apperr.Internal("load admin", gerr)
			}
			existing.PasswordHash = ""
			return existing, false, nil
		}
		return model.Admin{}, false, apperr.Internal("create admin", err)
	}
	a.PasswordHash = ""
	return a, true, nil
}
