package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fieldrent/field-rental-marketplace/internal/middleware"
	"github.com/fieldrent/field-rental-marketplace/internal/monitoring"
	"github.com/fieldrent/field-rental-marketplace/internal/repository"
	"github.com/fieldrent/field-rental-marketplace/internal/service"
)

// PayoutHandler exposes payout requests for shop owners and the
// approve/reject decisions for admins.
type PayoutHandler struct {
	Payouts *service.PayoutService
	Shops   *repository.ShopRepo
}

// NewPayoutHandler constructs a PayoutHandler.
func NewPayoutHandler(payouts *service.PayoutService, shops *repository.ShopRepo) *PayoutHandler {
	if payouts == nil || shops == nil {
		panic("nil dependency passed to NewPayoutHandler")
	}
	return &PayoutHandler{Payouts: payouts, Shops: shops}
}

// requireShopOwner checks that the caller owns the shop. Admins pass.
func (h *PayoutHandler) requireShopOwner(c echo.Context, shopCode string) error {
	if role, _ := c.Get("role").(string); role == "ADMIN" {
		return nil
	}
	shop, err := h.Shops.GetByCode(c.Request().Context(), shopCode)
	if err != nil {
		return err
	}
	uid := middleware.CurrentUserID(c)
	if uid == nil || *uid != shop.OwnerUserID {
		return repository.ErrForbidden
	}
	return nil
}

// Request handles POST /v1/shops/:code/payouts.
func (h *PayoutHandler) Request(c echo.Context) error {
	shopCode := c.Param("code")
	if err := h.requireShopOwner(c, shopCode); err != nil {
		return jsonError(c, err)
	}
	var body struct {
		BankAccountID uint64 `json:"bank_account_id"`
		AmountCents   int64  `json:"amount_cents"`
		Note          string `json:"note"`
		Password      string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	payout, err := h.Payouts.Request(c.Request().Context(), shopCode, body.BankAccountID,
		body.AmountCents, body.Note, middleware.CurrentUserID(c), body.Password)
	if err != nil {
		return jsonError(c, err)
	}
	monitoring.PayoutsTotal.WithLabelValues("requested").Inc()
	return c.JSON(http.StatusCreated, echo.Map{"payout": payoutView(payout)})
}

// Approve handles POST /v1/payouts/:id/approve.
func (h *PayoutHandler) Approve(c echo.Context) error {
	payoutID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || payoutID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payout id"})
	}
	var body struct {
		Note string `json:"note"`
	}
	_ = c.Bind(&body)

	payout, err := h.Payouts.Approve(c.Request().Context(), payoutID, body.Note)
	if err != nil {
		return jsonError(c, err)
	}
	monitoring.PayoutsTotal.WithLabelValues("paid").Inc()
	return c.JSON(http.StatusOK, echo.Map{"payout": payoutView(payout)})
}

// Reject handles POST /v1/payouts/:id/reject.
func (h *PayoutHandler) Reject(c echo.Context) error {
	payoutID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || payoutID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payout id"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil || body.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason is required"})
	}

	payout, err := h.Payouts.Reject(c.Request().Context(), payoutID, body.Reason)
	if err != nil {
		return jsonError(c, err)
	}
	monitoring.PayoutsTotal.WithLabelValues("rejected").Inc()
	return c.JSON(http.StatusOK, echo.Map{"payout": payoutView(payout)})
}
