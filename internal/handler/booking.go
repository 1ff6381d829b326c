package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldrent/field-rental-marketplace/internal/middleware"
	"github.com/fieldrent/field-rental-marketplace/internal/monitoring"
	"github.com/fieldrent/field-rental-marketplace/internal/service"
)

// BookingHandler serves slot reservation, availability, booking lookup
// and cancellation. Reservation and lookup accept both authenticated
// customers and guests; an authenticated customer is bound to their
// bookings, a guest holds them by knowing the booking code.
type BookingHandler struct {
	Reservations *service.ReservationService
	Bookings     *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(reservations *service.ReservationService, bookings *service.BookingService) *BookingHandler {
	if reservations == nil || bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Reservations: reservations, Bookings: bookings}
}

// Reserve handles POST /v1/fields/:code/reservations.
func (h *BookingHandler) Reserve(c echo.Context) error {
	var body struct {
		Slots         []service.SlotRequest `json:"slots"`
		GuestName     string                `json:"guest_name"`
		GuestPhone    string                `json:"guest_phone"`
		PromotionCode string                `json:"promotion_code"`
		QuantityID    *uint64               `json:"quantity_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	customer := service.CustomerInfo{
		CustomerID: middleware.CurrentUserID(c),
		GuestName:  body.GuestName,
		GuestPhone: body.GuestPhone,
	}
	res, err := h.Reservations.Reserve(c.Request().Context(), c.Param("code"), body.Slots, customer, body.PromotionCode, body.QuantityID)
	if err != nil {
		monitoring.ReservationsTotal.WithLabelValues(reserveOutcome(err)).Inc()
		return jsonError(c, err)
	}
	monitoring.ReservationsTotal.WithLabelValues("reserved").Inc()

	return c.JSON(http.StatusCreated, echo.Map{
		"booking_code":       res.BookingCode,
		"checkin_code":       res.CheckinCode,
		"payment_id":         res.PaymentID,
		"qr_payload":         res.QRPayload,
		"base_cents":         res.BaseCents,
		"discount_cents":     res.DiscountCents,
		"total_cents":        res.TotalCents,
		"platform_fee_cents": res.PlatformFeeCents,
		"net_to_shop_cents":  res.NetToShopCents,
		"hold_expires_at":    res.HoldExpiresAt.Format(time.RFC3339),
	})
}

func reserveOutcome(err error) string {
	switch {
	case err == nil:
		return "reserved"
	default:
		if e := jsonErrorKind(err); e != "" {
			return e
		}
		return "error"
	}
}

// Availability handles GET /v1/fields/:code/availability?date=YYYY-MM-DD.
func (h *BookingHandler) Availability(c echo.Context) error {
	windows, err := h.Bookings.Availability(c.Request().Context(), c.Param("code"), c.QueryParam("date"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"field_code": c.Param("code"), "date": c.QueryParam("date"), "windows": windows})
}

// Get handles GET /v1/bookings/:code.
func (h *BookingHandler) Get(c echo.Context) error {
	detail, err := h.Bookings.Get(c.Request().Context(), c.Param("code"), customerScope(c))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking": bookingView(detail.Booking),
		"slots":   detail.Slots,
	})
}

// Cancel handles POST /v1/bookings/:code/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	booking, err := h.Bookings.Cancel(c.Request().Context(), c.Param("code"), customerScope(c))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": bookingView(booking)})
}

// customerScope returns the authenticated customer id for ownership
// checks, or nil when the caller is a guest or a privileged role.
func customerScope(c echo.Context) *uint64 {
	if role, _ := c.Get("role").(string); role == "CUSTOMER" {
		return middleware.CurrentUserID(c)
	}
	return nil
}
