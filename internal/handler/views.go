package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
)

// bookingView renders a booking for API responses. Amount fields stay
// in minor units; the check-in code is included since anyone holding
// the booking code is entitled to it.
func bookingView(b *model.Booking) echo.Map {
	return echo.Map{
		"booking_code":       b.BookingCode,
		"field_id":           b.FieldID,
		"shop_code":          b.ShopCode,
		"status":             b.Status,
		"payment_status":     b.PaymentStatus,
		"total_price_cents":  b.TotalPriceCents,
		"discount_cents":     b.DiscountCents,
		"platform_fee_cents": b.PlatformFeeCents,
		"net_to_shop_cents":  b.NetToShopCents,
		"checkin_code":       b.CheckinCode,
		"created_at":         b.CreatedAt,
	}
}

// payoutView renders a payout request for API responses.
func payoutView(p *model.PayoutRequest) echo.Map {
	return echo.Map{
		"id":              p.ID,
		"shop_code":       p.ShopCode,
		"bank_account_id": p.BankAccountID,
		"amount_cents":    p.AmountCents,
		"status":          p.Status,
		"note":            p.Note,
		"reason":          p.Reason,
		"wallet_tx_id":    p.WalletTxID,
	}
}
