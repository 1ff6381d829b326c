// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/fieldrent/field-rental-marketplace/internal/config"
	"github.com/fieldrent/field-rental-marketplace/internal/handler"
	"github.com/fieldrent/field-rental-marketplace/internal/middleware"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Bookings   *handler.BookingHandler
	Promotions *handler.PromotionHandler
	Payments   *handler.PaymentHandler
	Payouts    *handler.PayoutHandler
	Wallets    *handler.WalletHandler
	Webhooks   *handler.WebhookHandler
}

// Register mounts all routes. Booking routes take an optional JWT so
// guests and customers share them; shop and operator routes require a
// role. The webhook endpoint is bare: the gateway cannot authenticate,
// so it is rate limited and idempotent instead.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Booking flow, shared by guests and authenticated customers.
	pub := e.Group("/v1", middleware.OptionalJWT(jwtSecret), rl)
	pub.GET("/fields/:code/availability", h.Bookings.Availability, cache)
	pub.POST("/fields/:code/reservations", h.Bookings.Reserve)
	pub.GET("/bookings/:code", h.Bookings.Get)
	pub.POST("/bookings/:code/cancel", h.Bookings.Cancel)
	pub.GET("/shops/:code/promotions/:promo/quote", h.Promotions.Quote)

	// Bank-transfer notifications from the payment gateway. Any method:
	// some gateways probe with GET before POSTing for real.
	e.Any("/v1/webhooks/bank", h.Webhooks.Receive, rl)

	// Shop owner endpoints.
	owner := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole("OWNER", "ADMIN"), rl)
	owner.GET("/shops/:code/wallet", h.Wallets.Get)
	owner.POST("/shops/:code/payouts", h.Payouts.Request)

	// Operator endpoints.
	admin := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole("ADMIN"), rl)
	admin.POST("/payments/:id/confirm", h.Payments.Confirm)
	admin.POST("/payouts/:id/approve", h.Payouts.Approve)
	admin.POST("/payouts/:id/reject", h.Payouts.Reject)
}
