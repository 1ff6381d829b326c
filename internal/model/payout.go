package model

import "time"

// PayoutStatus is the state of a payout request:
// requested -> paid|rejected, both terminal.
type PayoutStatus string

const (
	PayoutRequested PayoutStatus = "requested"
	PayoutPaid      PayoutStatus = "paid"
	PayoutRejected  PayoutStatus = "rejected"
)

// PayoutRequest is a shop's withdrawal against its wallet balance. The
// wallet is debited immediately at request time; approval finalizes the
// already-debited transaction, rejection credits the amount back.
type PayoutRequest struct {
	ID            uint64       // payout_requests.id
	ShopCode      string       // payout_requests.shop_code
	BankAccountID uint64       // payout_requests.bank_account_id
	AmountCents   int64        // payout_requests.amount_cents
	Note          string       // payout_requests.note (requester note)
	Reason        string       // payout_requests.reason (rejection reason)
	Status        PayoutStatus // payout_requests.status
	WalletTxID    uint64       // payout_requests.wallet_tx_id (the debit)
	CreatedAt     time.Time    // payout_requests.created_at
	UpdatedAt     time.Time    // payout_requests.updated_at
}
