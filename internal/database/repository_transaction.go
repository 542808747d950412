package database

import (
	"context"
	"fmt"
	"time"

	"profitbliss-backend/internal/domain"
)

const transactionColumns = `id, user_id, kind, amount, method, address, status, created_at, processed_at`

// CreateTransaction inserts a transaction with no wallet effect (deposits)
func (r *Repository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount, method, address, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, tx.ID, tx.UserID, tx.Kind, tx.Amount, tx.Method, tx.Address, tx.Status).
		Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// CreateWithdrawalDebiting escrows the amount and records the withdrawal in
// one transaction: the debit is conditional on sufficient balance and the
// row insert only happens once the debit stuck. Reports false without side
// effects when funds are insufficient.
func (r *Repository) CreateWithdrawalDebiting(ctx context.Context, wtx *domain.Transaction) (bool, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance - $2, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND balance >= $2
	`, wtx.UserID, wtx.Amount)
	if err != nil {
		return false, fmt.Errorf("failed to escrow withdrawal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount, method, address, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, wtx.ID, wtx.UserID, wtx.Kind, wtx.Amount, wtx.Method, wtx.Address, wtx.Status).
		Scan(&wtx.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to record withdrawal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit withdrawal: %w", err)
	}
	return true, nil
}

// TransactionByID retrieves a transaction. Returns nil, nil when absent.
func (r *Repository) TransactionByID(ctx context.Context, txID string) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE id = $1
	`, txID).Scan(
		&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.Method,
		&t.Address, &t.Status, &t.CreatedAt, &t.ProcessedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// FinishTransaction moves a pending transaction to a terminal status and
// applies the wallet credit that goes with it (zero for transitions with no
// wallet effect), all in one transaction. The status flip is conditional on
// the row still being pending, so a second approval or a concurrent expiry
// loses the race and reports false.
func (r *Repository) FinishTransaction(ctx context.Context, txID string, to domain.TransactionStatus, credit int64) (bool, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID string
	err = tx.QueryRow(ctx, `
		UPDATE transactions SET status = $2, processed_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $3
		RETURNING user_id
	`, txID, to, domain.TransactionPending).Scan(&userID)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}

	if credit > 0 {
		tag, err := tx.Exec(ctx, `
			UPDATE wallets SET balance = balance + $2, updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $1
		`, userID, credit)
		if err != nil {
			return false, fmt.Errorf("failed to credit wallet: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return false, fmt.Errorf("wallet not found for user %s", userID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction update: %w", err)
	}
	return true, nil
}

// StalePendingTransactions returns pending transactions created at or
// before the cutoff
func (r *Repository) StalePendingTransactions(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE status = $1 AND created_at <= $2
		ORDER BY created_at ASC
	`, domain.TransactionPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stale transactions: %w", err)
	}
	return collectTransactions(rows)
}

// ListTransactions returns a user's transactions, newest first
func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

// ListTransactionsByKind returns all transactions of one kind, newest
// first (admin view)
func (r *Repository) ListTransactionsByKind(ctx context.Context, kind domain.TransactionKind) ([]domain.Transaction, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE kind = $1 ORDER BY created_at DESC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s transactions: %w", kind, err)
	}
	return collectTransactions(rows)
}
