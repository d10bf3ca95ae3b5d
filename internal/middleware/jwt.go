package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopease-api/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxEmail  = "email"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the subject, role and email claims into the request
// context. Handlers read them back with UserID, Role and Email.
//
// Failures answer 401 with a message naming the reason: a missing header,
// a malformed token, an expired token or a bad signature.
func JWTAuth(tokens *utils.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			claims, err := tokens.Verify(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": authMessage(err)})
			}
			id, _ := claims.SubjectID()
			c.Set(CtxUserID, id)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxEmail, claims.Email)
			return next(c)
		}
	}
}

// bearerToken strips the "Bearer " scheme. A header without the scheme is
// taken as the raw token, which older clients send.
func bearerToken(h string) string {
	h = strings.TrimSpace(h)
	if len(h) >= 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, utils.ErrTokenMissing):
		return "No token, authorization denied"
	case errors.Is(err, utils.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, utils.ErrTokenSignatureInvalid):
		return "Invalid token signature"
	default:
		return "Token malformed"
	}
}
