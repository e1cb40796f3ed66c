package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/portrait-booth/internal/repository"
	"github.com/iliyamo/portrait-booth/internal/service"
)

// requestTimeout bounds the database and upstream work of one request.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// statusFor maps service and repository errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidPhotoCount),
		errors.Is(err, service.ErrInvalidFileName),
		errors.Is(err, service.ErrInvalidSearch),
		errors.Is(err, service.ErrForeignObjectKey),
		errors.Is(err, service.ErrMissingPaymentRef),
		errors.Is(err, service.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStaleState),
		errors.Is(err, service.ErrNoSlotsRemaining),
		errors.Is(err, service.ErrUploadMissing),
		errors.Is(err, service.ErrOrderCreationDisabled):
		return http.StatusConflict
	case errors.Is(err, service.ErrPaymentUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": ...}.  Internal errors are logged and not
// shown to the client.
func fail(c echo.Context, err error) error {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
		msg = "internal error"
	case http.StatusBadGateway:
		log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
		msg = service.ErrUpstream.Error()
	}
	return c.JSON(status, echo.Map{"error": msg})
}
