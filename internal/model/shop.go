package model

import "time"

// Shop owns fields, promotions, a wallet and payout requests. Only the
// attributes the booking/payout core needs are modeled here.
type Shop struct {
	ID          uint64    // shops.id
	Code        string    // shops.code
	Name        string    // shops.name
	OwnerUserID uint64    // shops.owner_user_id
	CreatedAt   time.Time // shops.created_at
}

// BankAccount is a payout destination registered by a shop.
type BankAccount struct {
	ID            uint64 // bank_accounts.id
	ShopCode      string // bank_accounts.shop_code
	BankName      string // bank_accounts.bank_name
	AccountNumber string // bank_accounts.account_number
	AccountName   string // bank_accounts.account_name
	IsActive      bool   // bank_accounts.is_active
}
