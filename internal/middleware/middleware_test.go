package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/metrics"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/utils"
)

func newGuarded(tokens *utils.TokenIssuer, roles ...string) *echo.Echo {
	e := echo.New()
	g := e.Group("", JWTAuth(tokens), RequireRole(roles...))
	g.GET("/whoami", func(c echo.Context) error {
		id, _ := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c), "email": Email(c)})
	})
	return e
}

func call(e *echo.Echo, auth string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestJWTAuthFailures(t *testing.T) {
	tokens := utils.NewTokenIssuer("secret", time.Hour, time.Hour)
	other := utils.NewTokenIssuer("other-secret", time.Hour, time.Hour)
	expired := utils.NewTokenIssuer("secret", -time.Minute, -time.Minute)
	e := newGuarded(tokens, model.RoleUser)

	forged, err := other.Issue(1, "a@x.com", model.RoleUser)
	require.NoError(t, err)
	stale, err := expired.Issue(1, "a@x.com", model.RoleUser)
	require.NoError(t, err)

	cases := []struct {
		name, header, want string
	}{
		{"missing", "", "No token, authorization denied"},
		{"malformed", "Bearer not-a-jwt", "Token malformed"},
		{"wrong secret", "Bearer " + forged.Token, "Invalid token signature"},
		{"expired", "Bearer " + stale.Token, "Token expired"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := call(e, tc.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tc.want, body["message"])
		})
	}
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	tokens := utils.NewTokenIssuer("secret", time.Hour, time.Hour)
	e := newGuarded(tokens, model.RoleUser)
	tok, err := tokens.Issue(42, "a@x.com", model.RoleUser)
	require.NoError(t, err)

	rec, body := call(e, "Bearer "+tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 42, body["id"])
	assert.Equal(t, "user", body["role"])
	assert.Equal(t, "a@x.com", body["email"])

	// Raw token without the scheme is accepted too.
	rec, _ = call(e, tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	tokens := utils.NewTokenIssuer("secret", time.Hour, time.Hour)
	userTok, err := tokens.Issue(1, "a@x.com", model.RoleUser)
	require.NoError(t, err)
	adminTok, err := tokens.Issue(1, "admin@x.com", model.RoleAdmin)
	require.NoError(t, err)

	admin := newGuarded(tokens, model.RoleAdmin)
	rec, body := call(admin, "Bearer "+userTok.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin access required", body["message"])
	rec, _ = call(admin, "Bearer "+adminTok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	customer := newGuarded(tokens, model.RoleUser)
	rec, body = call(customer, "Bearer "+adminTok.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", body["message"])
}

func TestMetricsMiddlewareLabelsByRoute(t *testing.T) {
	m := metrics.New("test")
	e := echo.New()
	e.Use(Metrics(m))
	e.GET("/orders/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/boom", func(c echo.Context) error { return apperr.Conflict("nope") })

	for _, path := range []string{"/orders/1", "/orders/2", "/boom", "/nowhere"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/orders/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/boom", "409")))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(m.LatencyMS), 2)
}
