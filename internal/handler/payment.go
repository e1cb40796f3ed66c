package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/portrait-booth/internal/pricing"
	"github.com/iliyamo/portrait-booth/internal/service"
)

// PublicHandler serves the endpoints reachable without signing in.
type PublicHandler struct {
	Orders *service.OrderService
	Prices pricing.Pricing
}

func NewPublicHandler(orders *service.OrderService, p pricing.Pricing) *PublicHandler {
	if orders == nil {
		panic("nil service passed to NewPublicHandler")
	}
	return &PublicHandler{Orders: orders, Prices: p}
}

type confirmReq struct {
	OrderRef  string `json:"order_ref"`
	SessionID string `json:"session_id"`
}

// GET /v1/pricing
func (h *PublicHandler) Pricing(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	open, err := h.Orders.OrderCreationAllowed(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"base_price":           h.Prices.BasePrice,
		"unit_price":           h.Prices.UnitPrice,
		"min_photos":           pricing.MinPhotos,
		"max_photos":           pricing.MaxPhotos,
		"allow_order_creation": open,
	})
}

// POST /v1/payments/stripe/confirm is called by the web client when checkout
// redirects back with the order reference and the session id.
func (h *PublicHandler) ConfirmStripe(c echo.Context) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	o, err := h.Orders.ConfirmStripe(ctx, strings.TrimSpace(req.OrderRef), strings.TrimSpace(req.SessionID))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}
