package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopease-api/internal/app"
	"github.com/iliyamo/shopease-api/internal/middleware"
	"github.com/iliyamo/shopease-api/internal/model"
)

// RegisterCustomer registers the cart and order endpoints. All routes
// require a valid token with the user role, so an admin id is never
// mistaken for a customer id.
func RegisterCustomer(g *echo.Group, h handlers, a *app.App) {
	guard := []echo.MiddlewareFunc{middleware.JWTAuth(a.Tokens), middleware.RequireRole(model.RoleUser)}

	cart := g.Group("/cart", guard...)
	cart.GET("", h.cart.GetCart)
	cart.POST("/add", h.cart.AddItem)
	cart.PUT("/update", h.cart.UpdateItem)
	cart.DELETE("/remove/:itemId", h.cart.RemoveItem)
	cart.DELETE("/clear", h.cart.Clear)

	orders := g.Group("/orders", guard...)
	orders.POST("", h.orders.Create)
	orders.GET("", h.orders.List)
	orders.POST("/checkout", h.orders.Checkout)
	orders.GET("/:id", h.orders.Get)
	orders.PUT("/:id/cancel", h.orders.Cancel)
}
