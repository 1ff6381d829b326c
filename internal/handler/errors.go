// Package handler contains the HTTP handlers. Handlers bind and
// validate request shapes, delegate to the service layer and translate
// its sentinel errors into HTTP statuses.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldrent/field-rental-marketplace/internal/repository"
	"github.com/fieldrent/field-rental-marketplace/internal/service"
)

// jsonErrorKind classifies an error for metric labels.
func jsonErrorKind(err error) string {
	switch {
	case errors.Is(err, service.ErrSlotConflict):
		return "conflict"
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrPromotionNotApplicable),
		errors.Is(err, service.ErrPromotionExhausted):
		return "rejected"
	case errors.Is(err, repository.ErrFieldNotFound),
		errors.Is(err, repository.ErrQuantityNotFound),
		errors.Is(err, repository.ErrPromotionNotFound),
		errors.Is(err, repository.ErrPromotionGone):
		return "rejected"
	}
	return ""
}

// jsonError maps service and repository sentinel errors onto HTTP
// responses. Unknown errors become opaque 500s so internal details
// never leak to clients.
func jsonError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrFieldNotFound),
		errors.Is(err, repository.ErrQuantityNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrPaymentNotFound),
		errors.Is(err, repository.ErrPromotionNotFound),
		errors.Is(err, repository.ErrShopNotFound),
		errors.Is(err, repository.ErrBankAccountNotFound),
		errors.Is(err, repository.ErrPayoutNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrPromotionGone):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrSlotConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrPromotionNotApplicable),
		errors.Is(err, service.ErrPromotionExhausted),
		errors.Is(err, repository.ErrInsufficientBalance),
		errors.Is(err, repository.ErrInvalidPayoutState):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorizedActor):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
