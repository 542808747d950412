package database

import (
	"context"
	"fmt"
	"time"

	"profitbliss-backend/internal/domain"
)

const investmentColumns = `i.id, i.user_id, i.plan_id, i.amount, i.status,
	i.start_date, i.end_date, i.settled_at, p.name, p.roi_percent`

// CreateInvestmentDebiting debits the principal from the user's wallet and
// creates the investment in one transaction. Reports false without side
// effects when the wallet cannot cover the amount.
func (r *Repository) CreateInvestmentDebiting(ctx context.Context, inv *domain.Investment) (bool, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance - $2, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND balance >= $2
	`, inv.UserID, inv.Amount)
	if err != nil {
		return false, fmt.Errorf("failed to debit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO investments (id, user_id, plan_id, amount, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, inv.ID, inv.UserID, inv.PlanID, inv.Amount, inv.Status, inv.StartDate, inv.EndDate)
	if err != nil {
		return false, fmt.Errorf("failed to create investment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit investment: %w", err)
	}
	return true, nil
}

// InvestmentByID retrieves an investment with its plan joined. Returns
// nil, nil when absent.
func (r *Repository) InvestmentByID(ctx context.Context, investmentID string) (*domain.Investment, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+investmentColumns+`
		FROM investments i JOIN investment_plans p ON p.id = i.plan_id
		WHERE i.id = $1
	`, investmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}
	invs, err := collectInvestments(rows)
	if err != nil {
		return nil, err
	}
	if len(invs) == 0 {
		return nil, nil
	}
	return &invs[0], nil
}

// MaturedInvestments returns active investments whose end date has passed
func (r *Repository) MaturedInvestments(ctx context.Context, now time.Time) ([]domain.Investment, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+investmentColumns+`
		FROM investments i JOIN investment_plans p ON p.id = i.plan_id
		WHERE i.status = $1 AND i.end_date <= $2
		ORDER BY i.end_date ASC
	`, domain.InvestmentActive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch matured investments: %w", err)
	}
	return collectInvestments(rows)
}

// SettleInvestment transitions an investment from active to completed and
// credits the payout, both in one transaction. The status flip is
// conditional on the investment still being active, so concurrent
// settlement attempts credit at most once; the loser reports false.
func (r *Repository) SettleInvestment(ctx context.Context, investmentID string, payout int64) (bool, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID string
	err = tx.QueryRow(ctx, `
		UPDATE investments SET status = $2, settled_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $3
		RETURNING user_id
	`, investmentID, domain.InvestmentCompleted, domain.InvestmentActive).Scan(&userID)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to complete investment: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance + $2, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
	`, userID, payout)
	if err != nil {
		return false, fmt.Errorf("failed to credit payout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, fmt.Errorf("wallet not found for user %s", userID)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return true, nil
}

// ListInvestments returns a user's investments, newest first. Passing an
// empty status returns the full history.
func (r *Repository) ListInvestments(ctx context.Context, userID string, status domain.InvestmentStatus) ([]domain.Investment, error) {
	query := `
		SELECT ` + investmentColumns + `
		FROM investments i JOIN investment_plans p ON p.id = i.plan_id
		WHERE i.user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND i.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY i.start_date DESC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	return collectInvestments(rows)
}

// ListAllInvestments returns every investment, newest first (admin view)
func (r *Repository) ListAllInvestments(ctx context.Context) ([]domain.Investment, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+investmentColumns+`
		FROM investments i JOIN investment_plans p ON p.id = i.plan_id
		ORDER BY i.start_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	return collectInvestments(rows)
}
