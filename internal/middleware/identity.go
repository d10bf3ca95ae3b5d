package middleware

// identity.go holds the accessors for the identity JWTAuth stores in the
// Echo context, plus the string form used in rate limit and cache keys.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated subject. ok is false on routes that
// did not run JWTAuth.
func UserID(c echo.Context) (id uint64, ok bool) {
	id, ok = c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the role claim or "".
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

// Email returns the email claim or "".
func Email(c echo.Context) string {
	e, _ := c.Get(CtxEmail).(string)
	return e
}

// principal identifies the caller in storage keys: "<role>:<id>" when
// authenticated and "anon" otherwise.
func principal(c echo.Context) string {
	id, ok := UserID(c)
	if !ok {
		return "anon"
	}
	role := Role(c)
	if role == "" {
		role = "user"
	}
	return role + ":" + strconv.FormatUint(id, 10)
}
