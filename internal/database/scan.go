package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"profitbliss-backend/internal/domain"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func collectInvestments(rows pgx.Rows) ([]domain.Investment, error) {
	defer rows.Close()

	var invs []domain.Investment
	for rows.Next() {
		var inv domain.Investment
		if err := rows.Scan(
			&inv.ID, &inv.UserID, &inv.PlanID, &inv.Amount, &inv.Status,
			&inv.StartDate, &inv.EndDate, &inv.SettledAt,
			&inv.PlanName, &inv.ROIPercent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate investments: %w", err)
	}
	return invs, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Kind, &tx.Amount, &tx.Method,
			&tx.Address, &tx.Status, &tx.CreatedAt, &tx.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}
