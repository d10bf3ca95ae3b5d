package utils // package utils provides helpers for token issuance and password hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures. Every error returned by TokenIssuer.Verify
// is one of these values so callers can pick a response without
// inspecting library internals.
var (
	ErrTokenMissing          = errors.New("token missing")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
)

// Claims is the payload carried by every token. Subject holds the user or
// admin ID in decimal form.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// SubjectID parses the subject claim as an unsigned ID.
func (c *Claims) SubjectID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// AccessToken is a signed token and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// TokenIssuer signs and verifies HS256 tokens. TTLs are chosen per role:
// ordinary users get UserTTL, admins AdminTTL.
type TokenIssuer struct {
	secret   []byte
	UserTTL  time.Duration
	AdminTTL time.Duration
	now      func() time.Time
}

// NewTokenIssuer returns an issuer bound to secret.
func NewTokenIssuer(secret string, userTTL, adminTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), UserTTL: userTTL, AdminTTL: adminTTL, now: time.Now}
}

func (t *TokenIssuer) ttlFor(role string) time.Duration {
	if role == "admin" {
		return t.AdminTTL
	}
	return t.UserTTL
}

// Issue builds and signs a token for subject with the given email and
// role. The expiry depends on the role.
func (t *TokenIssuer) Issue(subject uint64, email, role string) (AccessToken, error) {
	now := t.now().UTC()
	exp := now.Add(t.ttlFor(role))
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(subject, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify parses raw and returns its claims, or one of the ErrToken*
// values.
func (t *TokenIssuer) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenMissing
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, classify(err)
	}
	if !tok.Valid {
		return nil, ErrTokenMalformed
	}
	if _, err := claims.SubjectID(); err != nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	default:
		return ErrTokenMalformed
	}
}
