package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/service"
)

// OrderHandler serves customer order endpoints.
type OrderHandler struct {
	Orders *service.OrderService
}

func NewOrderHandler(s *service.OrderService) *OrderHandler {
	return &OrderHandler{Orders: s}
}

type orderLineReq struct {
	ProductID      flexID          `json:"productId"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	ProductDetails *productDetails `json:"productDetails"`
}

func (l orderLineReq) input() service.LineItemInput {
	return service.LineItemInput{
		ExternalID: l.ProductID.String(),
		Quantity:   l.Quantity,
		Price:      l.Price,
		Hint:       l.ProductDetails.hint(),
	}
}

// createOrderReq accepts either a single product (the storefront's
// "buy now" form) or an items list. TotalPrice is read only so a
// disagreeing client total can be logged; the server computes its own.
type createOrderReq struct {
	orderLineReq
	TotalPrice      *decimal.Decimal `json:"totalPrice"`
	Items           []orderLineReq   `json:"items"`
	ShippingAddress *shippingReq     `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
}

type checkoutReq struct {
	ShippingAddress *shippingReq `json:"shippingAddress"`
	PaymentMethod   string       `json:"paymentMethod"`
}

// Create places a direct order.
func (h *OrderHandler) Create(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	in := service.CreateOrderInput{
		Shipping:      req.ShippingAddress.model(),
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
	}
	if len(req.Items) > 0 {
		for _, l := range req.Items {
			in.Items = append(in.Items, l.input())
		}
	} else if req.ProductID != "" {
		in.Items = []service.LineItemInput{req.orderLineReq.input()}
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.CreateOrder(ctx, uid, in)
	if err != nil {
		return err
	}
	if req.TotalPrice != nil && !req.TotalPrice.Round(2).Equal(o.TotalPrice) {
		c.Logger().Debugf("order %s: client total %s ignored, computed %s", o.OrderNumber, req.TotalPrice, o.TotalPrice)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "Order placed successfully",
		"orderId":     o.ID,
		"orderNumber": o.OrderNumber,
		"order":       toNewOrder(o),
	})
}

// Checkout turns the cart into an order.
func (h *OrderHandler) Checkout(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.Checkout(ctx, uid, req.ShippingAddress.model(), model.PaymentMethod(req.PaymentMethod))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "Order placed successfully",
		"orderId":     o.ID,
		"orderNumber": o.OrderNumber,
		"order":       toNewOrder(o),
	})
}

// List returns the caller's orders, newest first.
func (h *OrderHandler) List(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	orders, err := h.Orders.ListOrders(ctx, uid)
	if err != nil {
		return err
	}
	out := make([]orderJSON, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrder(o))
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

// Get returns one of the caller's orders.
func (h *OrderHandler) Get(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := orderID(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.GetOrder(ctx, uid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"order": toOrder(o)})
}

// Cancel cancels a pending or confirmed order.
func (h *OrderHandler) Cancel(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := orderID(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.CancelOrder(ctx, uid, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Order cancelled successfully", "order": toOrder(o)})
}

// orderID parses the :id path parameter. A non-numeric id cannot name
// an order, so it is reported as not found.
func orderID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound("Order not found")
	}
	return id, nil
}
