package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/portrait-booth/internal/middleware"
	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/service"
)

// ItemHandler serves photo uploads for both tracks.
type ItemHandler struct {
	Items *service.ItemService
}

func NewItemHandler(items *service.ItemService) *ItemHandler {
	if items == nil {
		panic("nil service passed to NewItemHandler")
	}
	return &ItemHandler{Items: items}
}

type uploadReq struct {
	FileName  string `json:"file_name"`
	ObjectKey string `json:"object_key"`
}

// orderAndMode reads the :id param and an item mode.  The message is empty
// when both are valid.
func orderAndMode(c echo.Context, mode string) (uint64, model.ItemMode, string) {
	id, ok := parseID(c, "id")
	if !ok {
		return 0, 0, "invalid order id"
	}
	m, err := model.ParseItemMode(mode)
	if err != nil {
		return 0, 0, "invalid mode"
	}
	return id, m, ""
}

// POST /v1/orders/:id/items/:mode/upload-url
func (h *ItemHandler) RequestUpload(c echo.Context) error {
	id, mode, msg := orderAndMode(c, c.Param("mode"))
	if msg != "" {
		return badRequest(c, msg)
	}
	var req uploadReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	ticket, err := h.Items.RequestUpload(ctx, middleware.UserFrom(c), id, mode, req.FileName)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}

// POST /v1/orders/:id/items/:mode records an object the client has put.
func (h *ItemHandler) ConfirmUpload(c echo.Context) error {
	id, mode, msg := orderAndMode(c, c.Param("mode"))
	if msg != "" {
		return badRequest(c, msg)
	}
	var req uploadReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ObjectKey == "" {
		return badRequest(c, "object_key required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	item, o, err := h.Items.ConfirmUpload(ctx, middleware.UserFrom(c), id, mode, req.ObjectKey, req.FileName)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": item, "order": o})
}

// GET /v1/orders/:id/items?mode=original|processed
func (h *ItemHandler) List(c echo.Context) error {
	mode := c.QueryParam("mode")
	if mode == "" {
		mode = model.ModeProcessed.PathSegment()
	}
	id, m, msg := orderAndMode(c, mode)
	if msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	items, err := h.Items.ListItems(ctx, middleware.UserFrom(c), id, m)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DELETE /v1/items/:id
func (h *ItemHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid item id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	o, err := h.Items.DeleteItem(ctx, middleware.UserFrom(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": o})
}
