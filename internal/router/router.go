// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/portrait-booth/internal/handler"
	"github.com/iliyamo/portrait-booth/internal/middleware"
	"github.com/iliyamo/portrait-booth/internal/model"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth   *handler.AuthHandler
	Orders *handler.OrderHandler
	Items  *handler.ItemHandler
	Admin  *handler.AdminHandler
	Public *handler.PublicHandler
}

// Options carries the shared middleware.  RateLimit guards the sign-in
// routes and ReportCache the manager reports; either may be nil.
type Options struct {
	JWTSecret   string
	Users       middleware.UserLoader
	RateLimit   echo.MiddlewareFunc
	ReportCache echo.MiddlewareFunc
}

func optional(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}

// Register mounts every route on e.
func Register(e *echo.Echo, h Handlers, opt Options) {
	RegisterRoutes(e, h.Public)
	RegisterAuth(e, h.Auth, opt)

	// Every signed-in route loads the user row so role changes and
	// disabled accounts take effect on the next request.
	v1 := e.Group("/v1", middleware.JWTAuth(opt.JWTSecret), middleware.CurrentUser(opt.Users))
	v1.GET("/me", h.Auth.Me)
	RegisterOrders(v1, h.Orders, h.Items)
	RegisterAdmin(v1, h.Admin, opt.ReportCache)
}

// RegisterRoutes registers the routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, p *handler.PublicHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/pricing", p.Pricing)
	e.POST("/v1/payments/stripe/confirm", p.ConfirmStripe)
}

// RegisterAuth registers the sign-in endpoints under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opt Options) {
	g := e.Group("/v1/auth", optional(opt.RateLimit)...)
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.POST("/otp/request", a.RequestOTP)
	g.POST("/otp/verify", a.VerifyOTP)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}

// RegisterOrders registers order, payment, upload and processing routes.
// Ownership and state rules are checked by the services; the Require
// middleware only rejects roles that can never use a route.
func RegisterOrders(g *echo.Group, o *handler.OrderHandler, it *handler.ItemHandler) {
	// customers (every signed-in role orders for itself)
	g.POST("/orders", o.Create, middleware.Require(model.ActionCreateOrder))
	g.GET("/orders", o.ListMine, middleware.Require(model.ActionViewOwnOrders))
	g.GET("/orders/search", o.Search, middleware.Require(model.ActionSearchOrders))
	g.GET("/orders/:id", o.Get)
	g.DELETE("/orders/:id", o.Delete, middleware.Require(model.ActionDeleteOrder))
	g.POST("/orders/:id/pay/cash", o.PayCash, middleware.Require(model.ActionPayOrder))
	g.POST("/orders/:id/pay/stripe", o.PayStripe, middleware.Require(model.ActionPayOrder))

	// counter staff
	g.POST("/orders/:id/collect-cash", o.CollectCash, middleware.Require(model.ActionCollectCash))
	g.POST("/orders/:id/override-paid", o.OverridePaid, middleware.Require(model.ActionOverridePayment))
	g.POST("/orders/:id/clear-pending", o.ClearPending, middleware.Require(model.ActionClearPending))
	g.POST("/orders/:id/start-upload", o.StartUpload, middleware.Require(model.ActionUploadOriginal))

	// photos
	g.GET("/orders/:id/items", it.List)
	g.POST("/orders/:id/items/:mode/upload-url", it.RequestUpload)
	g.POST("/orders/:id/items/:mode", it.ConfirmUpload)
	g.DELETE("/items/:id", it.Delete)

	// processors
	g.POST("/processor/claim", o.Claim, middleware.Require(model.ActionProcess))
	g.POST("/orders/:id/skip", o.Skip, middleware.Require(model.ActionProcess))
	g.POST("/orders/:id/ready", o.Ready, middleware.Require(model.ActionProcess))
}

// RegisterAdmin registers the manager routes.
func RegisterAdmin(g *echo.Group, a *handler.AdminHandler, reportCache echo.MiddlewareFunc) {
	settings := g.Group("/settings", middleware.Require(model.ActionManageSettings))
	settings.GET("/allow-order-creation", a.GetOrderCreation)
	settings.PUT("/allow-order-creation", a.PutOrderCreation)

	reports := g.Group("/reports", append([]echo.MiddlewareFunc{middleware.Require(model.ActionViewReports)}, optional(reportCache)...)...)
	reports.GET("/orders-by-status", a.OrdersByStatus)
	reports.GET("/collection-by-staff", a.CollectionByStaff)
	reports.GET("/orders-by-processor", a.OrdersByProcessor)

	manageStaff := middleware.Require(model.ActionManageStaff)
	g.GET("/staff", a.ListStaff, manageStaff)
	g.GET("/users", a.FindUser, manageStaff)
	g.PUT("/users/:id/role", a.ChangeRole, manageStaff)
}
