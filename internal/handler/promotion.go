package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fieldrent/field-rental-marketplace/internal/middleware"
	"github.com/fieldrent/field-rental-marketplace/internal/service"
)

// PromotionHandler lets clients price a promotion code before
// committing to a reservation.
type PromotionHandler struct {
	Promotions *service.PromotionEvaluator
}

// NewPromotionHandler constructs a PromotionHandler.
func NewPromotionHandler(promotions *service.PromotionEvaluator) *PromotionHandler {
	if promotions == nil {
		panic("nil evaluator passed to NewPromotionHandler")
	}
	return &PromotionHandler{Promotions: promotions}
}

// Quote handles GET /v1/shops/:code/promotions/:promo/quote?amount_cents=N.
// The quote runs the same validation chain as a reservation but records
// no usage.
func (h *PromotionHandler) Quote(c echo.Context) error {
	baseCents, err := strconv.ParseInt(c.QueryParam("amount_cents"), 10, 64)
	if err != nil || baseCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must be a positive integer"})
	}

	quote, err := h.Promotions.Evaluate(c.Request().Context(), c.Param("code"), c.Param("promo"),
		baseCents, middleware.CurrentUserID(c))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"promotion_code": quote.Promotion.Code,
		"discount_type":  quote.Promotion.DiscountType,
		"base_cents":     quote.BaseCents,
		"discount_cents": quote.DiscountCents,
		"final_cents":    quote.FinalCents,
	})
}
