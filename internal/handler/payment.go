package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
	"github.com/fieldrent/field-rental-marketplace/internal/monitoring"
	"github.com/fieldrent/field-rental-marketplace/internal/service"
)

// PaymentHandler exposes the manual payment verification path used by
// operators when a transfer arrives without a usable webhook.
type PaymentHandler struct {
	Payments *service.PaymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	if payments == nil {
		panic("nil service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: payments}
}

// Confirm handles POST /v1/payments/:id/confirm.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	paymentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paymentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	var body struct {
		ExternalRef string `json:"external_ref"`
	}
	// The body is optional; an empty ref just means no gateway id.
	_ = c.Bind(&body)

	result, err := h.Payments.Confirm(c.Request().Context(), paymentID, body.ExternalRef, model.PaymentLogManualConfirm)
	if err != nil {
		return jsonError(c, err)
	}
	if !result.AlreadyPaid {
		monitoring.PaymentsConfirmedTotal.WithLabelValues("manual").Inc()
	}
	return c.JSON(http.StatusOK, echo.Map{
		"payment_id":         result.PaymentID,
		"booking_code":       result.BookingCode,
		"amount_cents":       result.AmountCents,
		"platform_fee_cents": result.PlatformFeeCents,
		"net_to_shop_cents":  result.NetToShopCents,
		"already_paid":       result.AlreadyPaid,
	})
}
