package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopease-api/internal/app"
	"github.com/iliyamo/shopease-api/internal/config"
	"github.com/iliyamo/shopease-api/internal/handler"
	"github.com/iliyamo/shopease-api/internal/middleware"
	"github.com/iliyamo/shopease-api/internal/model"
)

// RegisterAdmin registers operator endpoints under /admin. Login and the
// routing probe are public; everything else requires the admin role.
// The metrics dashboard is served from the Redis response cache, which
// the status-changing routes clear.
func RegisterAdmin(g *echo.Group, h handlers, a *app.App) {
	auth := g.Group("/admin/auth")
	auth.GET("/health", handler.AdminAuthHealth)
	auth.POST("/login", h.auth.AdminLogin, middleware.NewTokenBucket(config.LoadRateLimitConfig(), a.Redis))

	cacheCfg := config.LoadCacheConfig()
	invalidate := middleware.NewCacheInvalidator(cacheCfg, a.Redis)

	admin := g.Group("/admin", middleware.JWTAuth(a.Tokens), middleware.RequireRole(model.RoleAdmin))
	admin.GET("/orders", h.admin.ListOrders)
	admin.GET("/orders/export", h.admin.ExportOrders)
	admin.GET("/orders/:id", h.admin.OrderDetail)
	admin.PATCH("/orders/:id/status", h.admin.UpdateStatus, invalidate)
	admin.POST("/orders/:id/cancel", h.admin.Cancel, invalidate)
	admin.POST("/orders/:id/refund", h.admin.Refund, invalidate)
	admin.GET("/metrics", h.admin.Metrics, middleware.NewRedisCache(cacheCfg, a.Redis))
}
