package model

import "time"

// WalletTxType classifies a wallet transaction. AmountCents on a
// transaction is a signed delta; the wallet balance is always the sum
// of all transaction deltas for the shop.
type WalletTxType string

const (
	WalletCreditSettlement WalletTxType = "credit_settlement"
	WalletDebitPayout      WalletTxType = "debit_payout"
	WalletRefundPayout     WalletTxType = "refund_payout"
)

// WalletTxStatus tracks whether a transaction's effect is final.
// Payout debits stay pending until the payout is approved (completed)
// or rejected (reversed, paired with a refund_payout credit).
type WalletTxStatus string

const (
	WalletTxPending   WalletTxStatus = "pending"
	WalletTxCompleted WalletTxStatus = "completed"
	WalletTxReversed  WalletTxStatus = "reversed"
)

// Wallet is a shop's running balance in minor units. It is mutated only
// through single atomic increments paired with an appended transaction.
type Wallet struct {
	ID           uint64    // wallets.id
	ShopCode     string    // wallets.shop_code
	BalanceCents int64     // wallets.balance_cents
	UpdatedAt    time.Time // wallets.updated_at
}

// WalletTransaction is one append-only row in a shop's wallet ledger.
// Reference carries the related booking code or payout id.
type WalletTransaction struct {
	ID          uint64         // wallet_transactions.id
	ShopCode    string         // wallet_transactions.shop_code
	Type        WalletTxType   // wallet_transactions.tx_type
	AmountCents int64          // wallet_transactions.amount_cents (signed delta)
	Status      WalletTxStatus // wallet_transactions.status
	Reference   string         // wallet_transactions.reference
	CreatedAt   time.Time      // wallet_transactions.created_at
}
