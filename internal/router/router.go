package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/shopease-api/internal/app"
	"github.com/iliyamo/shopease-api/internal/config"
	"github.com/iliyamo/shopease-api/internal/handler"
	"github.com/iliyamo/shopease-api/internal/middleware"
	"github.com/iliyamo/shopease-api/internal/model"
)

// apiPrefix is the legacy prefix the storefront still calls. Every route
// is served both at the root and under it.
const apiPrefix = "/api"

// handlers bundles one instance of every handler for registration.
type handlers struct {
	auth   *handler.AuthHandler
	cart   *handler.CartHandler
	orders *handler.OrderHandler
	admin  *handler.AdminHandler
}

// New builds the Echo instance for a: error rendering, the ambient
// middleware chain and all routes.
func New(a *app.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Logger.SetLevel(logLevel(a.Config.LogLevel))

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{LogLevel: log.ERROR}))
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     strings.Split(a.Config.CORSOrigin, ","),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderContentDisposition, "X-Cache"},
		AllowCredentials: true,
	}))
	e.Use(middleware.Metrics(a.Metrics))

	h := handlers{
		auth:   handler.NewAuthHandler(a.Auth),
		cart:   handler.NewCartHandler(a.Cart),
		orders: handler.NewOrderHandler(a.Orders),
		admin:  handler.NewAdminHandler(a.Admin, a.Config.ReportTZ),
	}
	RegisterRoutes(e, a)
	for _, prefix := range []string{"", apiPrefix} {
		g := e.Group(prefix)
		authPath := ""
		if prefix == apiPrefix {
			authPath = "/auth"
		}
		RegisterAuth(g, authPath, h.auth, a)
		RegisterCustomer(g, h, a)
		RegisterAdmin(g, h, a)
	}
	return e
}

// RegisterRoutes registers the infrastructure endpoints that do not
// require authentication.
func RegisterRoutes(e *echo.Echo, a *app.App) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))
}

// RegisterAuth registers the credential routes. Register and login sit
// behind the Redis token bucket; /me and /profile need a user token.
func RegisterAuth(g *echo.Group, authPath string, h *handler.AuthHandler, a *app.App) {
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), a.Redis)
	ag := g.Group(authPath)
	ag.POST("/register", h.Register, limit)
	ag.POST("/login", h.Login, limit)

	// Per-route guards: a guarded group with an empty prefix would
	// claim every unmatched path of its parent.
	guard := []echo.MiddlewareFunc{middleware.JWTAuth(a.Tokens), middleware.RequireRole(model.RoleUser)}
	ag.GET("/me", h.Me, guard...)
	ag.PUT("/profile", h.UpdateProfile, guard...)
}

func logLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
