package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/service"
)

// CartHandler serves the authenticated user's cart.
type CartHandler struct {
	Cart *service.CartService
}

func NewCartHandler(s *service.CartService) *CartHandler {
	return &CartHandler{Cart: s}
}

type addToCartReq struct {
	ProductID      flexID          `json:"productId"`
	Quantity       *int            `json:"quantity"`
	ProductDetails *productDetails `json:"productDetails"`
}

type updateCartReq struct {
	ItemID   flexID `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// GetCart returns the cart; a user without one sees an empty cart.
func (h *CartHandler) GetCart(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Cart.GetCart(ctx, uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCart(v))
}

// AddItem adds a product, mirroring it on first reference.
func (h *CartHandler) AddItem(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req addToCartReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Cart.AddItem(ctx, uid, req.ProductID.String(), qty, req.ProductDetails.hint())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "Item added to cart successfully",
		"itemCount":   res.Cart.ItemCount(),
		"productId":   res.Product.ID,
		"productName": res.Product.Name,
	})
}

// UpdateItem sets the quantity of one item.
func (h *CartHandler) UpdateItem(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req updateCartReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	itemID, ok := req.ItemID.Uint()
	if !ok || req.Quantity < 1 {
		return apperr.Validation("Valid item ID and quantity required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Cart.UpdateItemQuantity(ctx, uid, itemID, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Cart updated successfully", "cart": toCart(v)})
}

// RemoveItem deletes one item.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 64)
	if err != nil {
		return apperr.NotFound("Item not found in cart")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Cart.RemoveItem(ctx, uid, itemID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Item removed from cart successfully", "itemCount": v.ItemCount()})
}

// Clear empties the cart.
func (h *CartHandler) Clear(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Cart.ClearCart(ctx, uid); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Cart cleared successfully"})
}
