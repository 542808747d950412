// Package wallet owns the balance mutation rules. All arithmetic happens in
// minor currency units and every mutation is delegated to the store's
// atomic increment/decrement primitives; the ledger never reads a balance
// and writes it back.
package wallet

import (
	"context"

	"github.com/rs/zerolog"

	"profitbliss-backend/internal/domain"
)

// Store is the slice of the record store the ledger needs.
type Store interface {
	WalletBalance(ctx context.Context, userID string) (int64, error)
	CreditWallet(ctx context.Context, userID string, amount int64) error
	DebitWallet(ctx context.Context, userID string, amount int64) (bool, error)
}

// Ledger enforces the wallet invariants: balances never go negative and
// credits are always positive.
type Ledger struct {
	store  Store
	logger zerolog.Logger
}

// NewLedger creates a wallet ledger
func NewLedger(store Store, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger.With().Str("component", "wallet").Logger(),
	}
}

// Debit removes amount from the user's wallet. Fails with
// domain.ErrInsufficientFunds when the balance cannot cover it; the check
// and the decrement are a single conditional update at the store.
func (l *Ledger) Debit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	ok, err := l.store.DebitWallet(ctx, userID, amount)
	if err != nil {
		return err
	}
	if !ok {
		l.logger.Warn().Str("user_id", userID).Int64("amount", amount).Msg("debit refused: insufficient funds")
		return domain.ErrInsufficientFunds
	}
	return nil
}

// Credit adds amount to the user's wallet
func (l *Ledger) Credit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	return l.store.CreditWallet(ctx, userID, amount)
}

// BalanceOf returns the current balance; users without a wallet read as 0
func (l *Ledger) BalanceOf(ctx context.Context, userID string) (int64, error) {
	return l.store.WalletBalance(ctx, userID)
}
