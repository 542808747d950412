package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// WalletBalance returns the current balance in minor units. A user without
// a wallet row reads as zero.
func (r *Repository) WalletBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.db.Pool.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get wallet balance: %w", err)
	}
	return balance, nil
}

// CreditWallet atomically increments the balance
func (r *Repository) CreditWallet(ctx context.Context, userID string, amount int64) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE wallets SET balance = balance + $2, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found for user %s", userID)
	}
	return nil
}

// DebitWallet atomically decrements the balance, but only if it covers the
// amount. Reports false when funds are insufficient. This is a single
// compare-and-decrement statement, never a read followed by a write.
func (r *Repository) DebitWallet(ctx context.Context, userID string, amount int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE wallets SET balance = balance - $2, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND balance >= $2
	`, userID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to debit wallet: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
