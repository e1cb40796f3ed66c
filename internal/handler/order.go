package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/portrait-booth/internal/middleware"
	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/service"
)

// OrderHandler exposes the order lifecycle over HTTP.  It passes the
// signed-in user to the service, which does every permission check.
type OrderHandler struct {
	Orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	if orders == nil {
		panic("nil service passed to NewOrderHandler")
	}
	return &OrderHandler{Orders: orders}
}

type createOrderReq struct {
	NoOfPhotos uint64 `json:"no_of_photos"`
}

// transition runs a single-order operation identified by the :id param.
func (h *OrderHandler) transition(c echo.Context, op func(*service.OrderService, echo.Context, uint64) (model.Order, error)) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	o, err := op(h.Orders, c, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// POST /v1/orders
func (h *OrderHandler) Create(c echo.Context) error {
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	o, err := h.Orders.Create(ctx, middleware.UserFrom(c), req.NoOfPhotos)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// GET /v1/orders
func (h *OrderHandler) ListMine(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	orders, err := h.Orders.ListMine(ctx, middleware.UserFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": orders})
}

// GET /v1/orders/:id
func (h *OrderHandler) Get(c echo.Context) error {
	return h.transition(c, func(s *service.OrderService, c echo.Context, id uint64) (model.Order, error) {
		ctx, cancel := withTimeout(c)
		defer cancel()
		return s.Get(ctx, middleware.UserFrom(c), id)
	})
}

// DELETE /v1/orders/:id
func (h *OrderHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Orders.Delete(ctx, middleware.UserFrom(c), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /v1/orders/search?order_no=&name=&email=&phone=&page=&page_size=
func (h *OrderHandler) Search(c echo.Context) error {
	var f model.OrderSearch
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &f); err != nil {
		return badRequest(c, "invalid search parameters")
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	rows, total, err := h.Orders.Search(ctx, middleware.UserFrom(c), f, page, pageSize)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     rows,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

// POST /v1/orders/:id/pay/cash
func (h *OrderHandler) PayCash(c echo.Context) error {
	return h.transition(c, func(s *service.OrderService, c echo.Context, id uint64) (model.Order, error) {
		ctx, cancel := withTimeout(c)
		defer cancel()
		return s.StartPaymentCash(ctx, middleware.UserFrom(c), id)
	})
}

// POST /v1/orders/:id/pay/stripe
func (h *OrderHandler) PayStripe(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	o, link, err := h.Orders.StartPaymentStripe(ctx, middleware.UserFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": o, "payment_url": link})
}

// POST /v1/orders/:id/collect-cash
func (h *OrderHandler) CollectCash(c echo.Context) error {
	return h.transition(c, func(s *service.OrderService, c echo.Context, id uint64) (model.Order, error) {
		ctx, cancel := withTimeout(c)
		defer cancel()
		return s.CollectPaymentCash(ctx, middleware.UserFrom(c), id)
	})
}

// POST /v1/orders/:id/override-paid
func (h *OrderHandler) OverridePaid(c echo.Context) error {
	return h.transition(c, func(s *service.OrderService, c echo.Context, id uint64) (model.Order, error) {
		ctx, cancel := withTimeout(c)
		defer cancel()
		return s.ManagerMarkPaid(ctx, middleware.UserFrom(c), id)
	})
}

// POST /v1/orders/:id/clear-pending
func (h *OrderHandler) ClearPending(c echo.Context) error {
	return h.transition(c, func(s *service.OrderService, c echo.Context, id uint64) (model.Order, error) {
		ctx, cancel := withTimeout(c)
		defer cancel()
		return s.ManagerClearPending(ctx, middleware.UserFrom(c), id)
	})
}

// POST /v1/orders/:id/start-upload
func (h *OrderHandler) StartUpload(c echo.Context) error {
	return h.transition(c, func(s *service.OrderService, c echo.Context, id uint64) (model.Order, error) {
		ctx, cancel := withTimeout(c)
		defer cancel()
		return s.StartUpload(ctx, middleware.UserFrom(c), id)
	})
}

// POST /v1/processor/claim answers 204 when nothing is waiting.
func (h *OrderHandler) Claim(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	o, err := h.Orders.FetchForProcessor(ctx, middleware.UserFrom(c))
	if err != nil {
		return fail(c, err)
	}
	if o == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, o)
}

// POST /v1/orders/:id/skip
func (h *OrderHandler) Skip(c echo.Context) error {
	return h.transition(c, func(s *service.OrderService, c echo.Context, id uint64) (model.Order, error) {
		ctx, cancel := withTimeout(c)
		defer cancel()
		return s.SkipOrder(ctx, middleware.UserFrom(c), id)
	})
}

// POST /v1/orders/:id/ready
func (h *OrderHandler) Ready(c echo.Context) error {
	return h.transition(c, func(s *service.OrderService, c echo.Context, id uint64) (model.Order, error) {
		ctx, cancel := withTimeout(c)
		defer cancel()
		return s.MarkReadyForDelivery(ctx, middleware.UserFrom(c), id)
	})
}
