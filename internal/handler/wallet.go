package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldrent/field-rental-marketplace/internal/middleware"
	"github.com/fieldrent/field-rental-marketplace/internal/repository"
)

// WalletHandler serves a shop's balance and transaction ledger to its
// owner.
type WalletHandler struct {
	Wallets *repository.WalletRepo
	Shops   *repository.ShopRepo
}

// NewWalletHandler constructs a WalletHandler.
func NewWalletHandler(wallets *repository.WalletRepo, shops *repository.ShopRepo) *WalletHandler {
	if wallets == nil || shops == nil {
		panic("nil repository passed to NewWalletHandler")
	}
	return &WalletHandler{Wallets: wallets, Shops: shops}
}

// Get handles GET /v1/shops/:code/wallet.
func (h *WalletHandler) Get(c echo.Context) error {
	shopCode := c.Param("code")
	ctx := c.Request().Context()

	shop, err := h.Shops.GetByCode(ctx, shopCode)
	if err != nil {
		return jsonError(c, err)
	}
	if role, _ := c.Get("role").(string); role != "ADMIN" {
		uid := middleware.CurrentUserID(c)
		if uid == nil || *uid != shop.OwnerUserID {
			return jsonError(c, repository.ErrForbidden)
		}
	}

	balance, err := h.Wallets.Balance(ctx, shopCode)
	if err != nil {
		return jsonError(c, err)
	}
	txs, err := h.Wallets.ListTransactions(ctx, shopCode)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"shop_code":     shopCode,
		"balance_cents": balance,
		"transactions":  txs,
	})
}
