package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/service"
)

// AdminHandler serves the operator endpoints. Loc interprets bare dates
// in the list filters.
type AdminHandler struct {
	Admin *service.AdminService
	Loc   *time.Location
}

func NewAdminHandler(s *service.AdminService, loc *time.Location) *AdminHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AdminHandler{Admin: s, Loc: loc}
}

type statusReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type reasonReq struct {
	Reason string `json:"reason"`
}

type refundReq struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason"`
}

type paginationJSON struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// ListOrders returns one filtered, sorted page of orders.
func (h *AdminHandler) ListOrders(c echo.Context) error {
	f, err := parseOrderFilter(c, h.Loc)
	if err != nil {
		return err
	}
	p, err := parsePage(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.Admin.ListOrders(ctx, f, p)
	if err != nil {
		return err
	}
	data := make([]orderJSON, 0, len(page.Orders))
	for _, o := range page.Orders {
		data = append(data, toOrder(o))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":       data,
		"pagination": paginationJSON{Page: page.Page, Limit: page.Limit, Total: page.Total, Pages: page.Pages},
	})
}

// ExportOrders streams every matching order as a CSV attachment. The
// document is rendered before any byte is sent so a failure still gets a
// JSON error response.
func (h *AdminHandler) ExportOrders(c echo.Context) error {
	f, err := parseOrderFilter(c, h.Loc)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var buf bytes.Buffer
	if err := h.Admin.ExportOrders(ctx, f, &buf); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// OrderDetail returns one order with customer, products and timeline.
func (h *AdminHandler) OrderDetail(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, timeline, err := h.Admin.OrderDetail(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"order": toOrderDetail(o, timeline)})
}

// UpdateStatus overwrites the order status.
func (h *AdminHandler) UpdateStatus(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	if req.Status == "" {
		return apperr.Validation("Status is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Admin.UpdateStatus(ctx, id, model.OrderStatus(req.Status), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Status updated", "order": toOrder(o)})
}

// Cancel marks the order canceled.
func (h *AdminHandler) Cancel(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req reasonReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Admin.Cancel(ctx, id, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Order canceled", "order": toOrder(o)})
}

// Refund records a refund. Only an amount covering the total changes
// the status.
func (h *AdminHandler) Refund(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return err
	}
	var req refundReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	if req.Amount == nil {
		return apperr.Validation("Refund amount is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Admin.Refund(ctx, id, *req.Amount, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Refund processed", "order": toOrder(o)})
}

// Metrics returns the dashboard summary.
func (h *AdminHandler) Metrics(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Admin.DailyMetrics(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMetrics(m))
}
