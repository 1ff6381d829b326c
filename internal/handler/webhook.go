package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldrent/field-rental-marketplace/internal/monitoring"
	"github.com/fieldrent/field-rental-marketplace/internal/service"
)

// WebhookHandler receives bank-transfer notifications. The endpoint
// always answers 200 with the match outcome in the body: gateways
// retry non-2xx responses aggressively and a retry storm helps nobody.
type WebhookHandler struct {
	Matcher *service.WebhookMatcher
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(matcher *service.WebhookMatcher) *WebhookHandler {
	if matcher == nil {
		panic("nil matcher passed to NewWebhookHandler")
	}
	return &WebhookHandler{Matcher: matcher}
}

// Receive handles POST /v1/webhooks/bank.
func (h *WebhookHandler) Receive(c echo.Context) error {
	var raw map[string]any
	if err := c.Bind(&raw); err != nil {
		// Even an unreadable body is acknowledged.
		monitoring.WebhooksTotal.WithLabelValues("error").Inc()
		return c.JSON(http.StatusOK, service.WebhookResult{Success: true, Error: "unreadable payload"})
	}

	result := h.Matcher.Handle(c.Request().Context(), service.ParseBankTransfer(raw))
	switch {
	case result.Duplicate:
		monitoring.WebhooksTotal.WithLabelValues("duplicate").Inc()
	case result.Error != "":
		monitoring.WebhooksTotal.WithLabelValues("error").Inc()
	case result.Matched:
		monitoring.WebhooksTotal.WithLabelValues("matched").Inc()
		monitoring.PaymentsConfirmedTotal.WithLabelValues("webhook").Inc()
	default:
		monitoring.WebhooksTotal.WithLabelValues("unmatched").Inc()
	}
	return c.JSON(http.StatusOK, result)
}
