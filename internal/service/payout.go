package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/fieldrent/field-rental-marketplace/internal/model"
	"github.com/fieldrent/field-rental-marketplace/internal/queue"
	"github.com/fieldrent/field-rental-marketplace/internal/utils"
)

// ShopStore is the shop/credential slice of the shop repository used by
// the payout service.
type ShopStore interface {
	GetByCode(ctx context.Context, code string) (*model.Shop, error)
	GetBankAccount(ctx context.Context, shopCode string, accountID uint64) (*model.BankAccount, error)
	GetUserPasswordHash(ctx context.Context, userID uint64) (string, error)
}

// WalletLedger is the wallet slice of the wallet repository used by the
// payout service.
type WalletLedger interface {
	DebitIfSufficientTx(ctx context.Context, tx *sql.Tx, shopCode string, amountCents int64, txType model.WalletTxType, reference string) (uint64, error)
	CreditTx(ctx context.Context, tx *sql.Tx, shopCode string, amountCents int64, txType model.WalletTxType, status model.WalletTxStatus, reference string) (uint64, error)
	MarkTransactionTx(ctx context.Context, tx *sql.Tx, walletTxID uint64, status model.WalletTxStatus) error
}

// PayoutStore is the payout-request slice of the payout repository.
type PayoutStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, p *model.PayoutRequest) error
	GetByID(ctx context.Context, id uint64) (*model.PayoutRequest, error)
	ResolveTx(ctx context.Context, tx *sql.Tx, payoutID uint64, to model.PayoutStatus, note, reason string) error
}

// PayoutService handles shop withdrawals. The wallet is debited the
// moment a payout is requested, so concurrent requests can never spend
// the same balance twice; approval finalizes the already-debited ledger
// row, rejection credits the amount back.
type PayoutService struct {
	shops   ShopStore
	wallets WalletLedger
	payouts PayoutStore
	events  Publisher
	runTx   func(ctx context.Context, fn func(tx *sql.Tx) error) error
	verify  func(hash, plain string) bool
	now     func() time.Time
}

// NewPayoutService wires the payout service. events may be nil.
func NewPayoutService(shops ShopStore, wallets WalletLedger, payouts PayoutStore, events Publisher,
	runTx func(ctx context.Context, fn func(tx *sql.Tx) error) error) *PayoutService {
	return &PayoutService{
		shops:   shops,
		wallets: wallets,
		payouts: payouts,
		events:  events,
		runTx:   runTx,
		verify:  utils.VerifyPassword,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Request creates a payout and immediately debits the shop wallet.
// When an actor/password pair is supplied the password is re-verified
// against the actor's stored hash before any money moves.
func (s *PayoutService) Request(ctx context.Context, shopCode string, bankAccountID uint64, amountCents int64, note string, actorUserID *uint64, actorPassword string) (*model.PayoutRequest, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: payout amount must be positive", ErrValidation)
	}
	shop, err := s.shops.GetByCode(ctx, shopCode)
	if err != nil {
		return nil, err
	}
	if actorUserID != nil && actorPassword != "" {
		hash, err := s.shops.GetUserPasswordHash(ctx, *actorUserID)
		if err != nil {
			return nil, err
		}
		if !s.verify(hash, actorPassword) {
			return nil, ErrUnauthorizedActor
		}
	}
	account, err := s.shops.GetBankAccount(ctx, shop.Code, bankAccountID)
	if err != nil {
		return nil, err
	}

	payout := &model.PayoutRequest{
		ShopCode:      shop.Code,
		BankAccountID: account.ID,
		AmountCents:   amountCents,
		Note:          note,
	}
	err = s.runTx(ctx, func(tx *sql.Tx) error {
		walletTxID, err := s.wallets.DebitIfSufficientTx(ctx, tx, shop.Code, amountCents,
			model.WalletDebitPayout, fmt.Sprintf("payout:bank=%d", account.ID))
		if err != nil {
			return err
		}
		payout.WalletTxID = walletTxID
		return s.payouts.CreateTx(ctx, tx, payout)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, payout, string(model.PayoutRequested), "")
	return payout, nil
}

// Approve marks a requested payout as paid. The wallet was already
// debited at request time, so only the ledger row is finalized.
func (s *PayoutService) Approve(ctx context.Context, payoutID uint64, note string) (*model.PayoutRequest, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	err = s.runTx(ctx, func(tx *sql.Tx) error {
		if err := s.payouts.ResolveTx(ctx, tx, payout.ID, model.PayoutPaid, note, ""); err != nil {
			return err
		}
		return s.wallets.MarkTransactionTx(ctx, tx, payout.WalletTxID, model.WalletTxCompleted)
	})
	if err != nil {
		return nil, err
	}
	payout.Status = model.PayoutPaid

	s.notify(ctx, payout, string(model.PayoutPaid), "")
	return payout, nil
}

// Reject marks a requested payout as rejected and credits the amount
// back to the shop wallet.
func (s *PayoutService) Reject(ctx context.Context, payoutID uint64, reason string) (*model.PayoutRequest, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	err = s.runTx(ctx, func(tx *sql.Tx) error {
		if err := s.payouts.ResolveTx(ctx, tx, payout.ID, model.PayoutRejected, "", reason); err != nil {
			return err
		}
		if err := s.wallets.MarkTransactionTx(ctx, tx, payout.WalletTxID, model.WalletTxReversed); err != nil {
			return err
		}
		_, err := s.wallets.CreditTx(ctx, tx, payout.ShopCode, payout.AmountCents,
			model.WalletRefundPayout, model.WalletTxCompleted, fmt.Sprintf("payout:%d", payout.ID))
		return err
	})
	if err != nil {
		return nil, err
	}
	payout.Status = model.PayoutRejected
	payout.Reason = reason

	s.notify(ctx, payout, string(model.PayoutRejected), reason)
	return payout, nil
}

func (s *PayoutService) notify(ctx context.Context, p *model.PayoutRequest, status, reason string) {
	if s.events == nil {
		return
	}
	ev := queue.PayoutDecidedEvent{
		PayoutID:    p.ID,
		ShopCode:    p.ShopCode,
		Status:      status,
		AmountCents: p.AmountCents,
		Reason:      reason,
		DecidedAt:   s.now(),
	}
	if err := s.events.Publish(ctx, queue.PayoutDecidedQueue, ev); err != nil {
		log.Printf("payout: %s publish failed for payout %d: %v", queue.PayoutDecidedQueue, p.ID, err)
	}
}
